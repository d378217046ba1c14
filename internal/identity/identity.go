package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gitgovernance/core/internal/agentengine"
	"github.com/gitgovernance/core/internal/crypto"
	"github.com/gitgovernance/core/internal/eventbus"
	"github.com/gitgovernance/core/internal/record"
	"github.com/gitgovernance/core/internal/session"
	"github.com/gitgovernance/core/internal/validate"
)

// Adapter is the identity adapter: actor/agent CRUD, key custody, succession
// resolution, and record signing on behalf of an actor.
//
// Signature verification is trust-on-first-use: the public key that
// authenticates an actor's own author signature is the key its own
// ActorRecord declares, cached in-process the moment the record is created
// or rotated. ActorsDir lets a fresh process rebuild that cache from the
// local, already-trusted content store at startup (LoadAll); no network
// round-trip is ever involved.
type Adapter struct {
	Actors   record.Store[validate.ActorPayload]
	Agents   record.Store[validate.AgentPayload]
	Keys     *Keystore
	Bus      *eventbus.Bus
	Sessions *session.Store

	// ActorsDir, if set, is the on-disk directory backing Actors — used only
	// by LoadAll to seed the public-key cache from raw files at startup.
	ActorsDir string

	Now func() time.Time

	mu         sync.RWMutex
	publicKeys map[string]string // actor id -> base64 public key
}

// Option configures an Adapter at construction time.
type Option func(*Adapter)

// WithSessions attaches a session.Store so actor operations record
// last-session and migrate actor state on rotation.
func WithSessions(s *session.Store) Option {
	return func(a *Adapter) { a.Sessions = s }
}

// WithActorsDir sets the on-disk directory LoadAll reads from.
func WithActorsDir(dir string) Option {
	return func(a *Adapter) { a.ActorsDir = dir }
}

// WithClock overrides the adapter's time source; tests use this for
// deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.Now = now }
}

// New creates an Adapter over the given actor/agent stores, keystore, and
// event bus.
func New(actors record.Store[validate.ActorPayload], agents record.Store[validate.AgentPayload], keys *Keystore, bus *eventbus.Bus, opts ...Option) *Adapter {
	a := &Adapter{
		Actors:     actors,
		Agents:     agents,
		Keys:       keys,
		Bus:        bus,
		Now:        time.Now,
		publicKeys: make(map[string]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) nowRFC3339() string {
	return a.Now().Format(time.RFC3339)
}

func (a *Adapter) cachePublicKey(actorID, publicKey string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.publicKeys[actorID] = publicKey
}

func (a *Adapter) cachedPublicKey(actorID string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	pub, ok := a.publicKeys[actorID]
	return pub, ok
}

// Resolver returns a record.KeyResolver backed by the adapter's cached
// public keys, suitable for passing to any record.Store[P].Get/Put call.
func (a *Adapter) Resolver() record.KeyResolver {
	return func(keyID string) (string, bool) {
		return a.cachedPublicKey(keyID)
	}
}

// LoadAll rebuilds the public-key cache from the raw actor files under
// ActorsDir, trusting each record's self-declared public key without
// re-verifying its signature (there is nothing else to verify it against on
// first load). Call this once after constructing an Adapter against an
// existing project.
func (a *Adapter) LoadAll(ctx context.Context) error {
	if a.ActorsDir == "" {
		return nil
	}
	entries, err := os.ReadDir(a.ActorsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(a.ActorsDir, name))
		if err != nil {
			return err
		}
		var rec record.Record[validate.ActorPayload]
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		a.cachePublicKey(rec.Payload.ID, rec.Payload.PublicKey)
	}
	return nil
}

// CreateActor generates a new Ed25519 key pair, builds a self-signed
// ActorRecord, persists the private key to the keystore, and publishes
// identity.actor.created. isBootstrap marks the project's first actor.
func (a *Adapter) CreateActor(ctx context.Context, displayName string, actorType validate.ActorType, roles []string, isBootstrap bool) (record.Record[validate.ActorPayload], error) {
	var rec record.Record[validate.ActorPayload]

	publicKey, privateKey, err := crypto.GenerateKeys()
	if err != nil {
		return rec, err
	}

	payload, err := validate.CreateActorPayload(validate.ActorPayload{
		Type:        actorType,
		DisplayName: displayName,
		PublicKey:   publicKey,
		Roles:       roles,
	})
	if err != nil {
		return rec, err
	}

	// Self-trust: this is the id's first appearance, so its own declared key
	// is the root of trust for the author signature below.
	a.cachePublicKey(payload.ID, payload.PublicKey)

	rec, err = a.buildAndSign(payload, payload.ID, "author", "")
	if err != nil {
		return rec, err
	}

	if err := a.Actors.Put(ctx, payload.ID, rec, a.Resolver()); err != nil {
		return rec, err
	}
	if err := a.Keys.Put(payload.ID, privateKey); err != nil {
		return rec, err
	}

	a.Bus.Publish(eventbus.ActorCreated("identity", payload.ID, isBootstrap))
	if a.Sessions != nil {
		_ = a.Sessions.SetLastSession(payload.ID, a.Now())
	}
	return rec, nil
}

// GetActor fetches the ActorRecord for id.
func (a *Adapter) GetActor(ctx context.Context, id string) (record.Record[validate.ActorPayload], error) {
	return a.Actors.Get(ctx, id, a.Resolver())
}

// ListActors lists every actor id in the store.
func (a *Adapter) ListActors(ctx context.Context) ([]string, error) {
	return a.Actors.List(ctx)
}

// GetActorPublicKey resolves keyID to the public key that verifies its
// signatures, WITHOUT walking the succession chain: a revoked actor's
// record retains the exact key that made its historical signatures, so
// signatures made before a rotation keep verifying after it.
func (a *Adapter) GetActorPublicKey(ctx context.Context, keyID string) (string, bool) {
	return a.cachedPublicKey(keyID)
}

// ResolveCurrentActorId walks the supersededBy chain starting at id and
// returns the id of the actor currently holding that identity (the chain's
// terminal, non-superseded record). Unlike GetActorPublicKey, this is for
// authorization ("who acts as this identity today"), not signature
// verification.
func (a *Adapter) ResolveCurrentActorId(ctx context.Context, id string) (string, error) {
	seen := map[string]bool{}
	cur := id
	for {
		if seen[cur] {
			return "", fmt.Errorf("identity: succession cycle detected at %q", cur)
		}
		seen[cur] = true
		rec, err := a.GetActor(ctx, cur)
		if err != nil {
			return "", err
		}
		if rec.Payload.SupersededBy == "" {
			return cur, nil
		}
		cur = rec.Payload.SupersededBy
	}
}

// GetCurrentActor resolves id's succession chain and returns the live
// ActorRecord it points to.
func (a *Adapter) GetCurrentActor(ctx context.Context, id string) (record.Record[validate.ActorPayload], error) {
	current, err := a.ResolveCurrentActorId(ctx, id)
	if err != nil {
		return record.Record[validate.ActorPayload]{}, err
	}
	return a.GetActor(ctx, current)
}

// RevokeActor marks id's ActorRecord revoked, countersigned by revokedBy,
// and publishes identity.actor.revoked. supersededBy is empty unless this
// revocation is part of a key rotation (see RotateActorKey).
func (a *Adapter) RevokeActor(ctx context.Context, id, revokedBy, reason, supersededBy string) (record.Record[validate.ActorPayload], error) {
	existing, err := a.GetActor(ctx, id)
	if err != nil {
		return existing, err
	}

	payload := existing.Payload
	payload.Status = validate.ActorRevoked
	payload.SupersededBy = supersededBy
	if res := validate.ValidateActorDetailed(payload); !res.IsValid {
		return existing, res.AsError("actor")
	}

	rec, err := a.buildAndSign(payload, revokedBy, "revoker", reason)
	if err != nil {
		return existing, err
	}
	if err := a.Actors.Put(ctx, id, rec, a.Resolver()); err != nil {
		return existing, err
	}

	a.Bus.Publish(eventbus.ActorRevoked("identity", id, revokedBy, reason, supersededBy))
	return rec, nil
}

// RotateActorKey retires id's key by creating a new successor ActorRecord
// ("{id}-v{n}") with a fresh key pair, pointing id's own record at it via
// RevokeActor, and migrating session state to the new id.
func (a *Adapter) RotateActorKey(ctx context.Context, id string, revokedBy, reason string, version int) (record.Record[validate.ActorPayload], error) {
	existing, err := a.GetActor(ctx, id)
	if err != nil {
		return existing, err
	}

	successorID := validate.NextActorVersion(id, version)
	publicKey, privateKey, err := crypto.GenerateKeys()
	if err != nil {
		return existing, err
	}

	successorPayload, err := validate.CreateActorPayload(validate.ActorPayload{
		ID:          successorID,
		Type:        existing.Payload.Type,
		DisplayName: existing.Payload.DisplayName,
		PublicKey:   publicKey,
		Roles:       existing.Payload.Roles,
	})
	if err != nil {
		return existing, err
	}
	a.cachePublicKey(successorPayload.ID, successorPayload.PublicKey)

	successorRec, err := a.buildAndSign(successorPayload, successorPayload.ID, "author", "")
	if err != nil {
		return existing, err
	}
	if err := a.Actors.Put(ctx, successorPayload.ID, successorRec, a.Resolver()); err != nil {
		return existing, err
	}
	if err := a.Keys.Put(successorPayload.ID, privateKey); err != nil {
		return existing, err
	}

	if _, err := a.RevokeActor(ctx, id, revokedBy, reason, successorPayload.ID); err != nil {
		return existing, err
	}

	if a.Sessions != nil {
		_ = a.Sessions.MigrateActor(id, successorPayload.ID)
	}
	return successorRec, nil
}

// RegisterAgent validates engine against the agent engine registry (unless
// the record opts out via prompt_engine_requirements.allowUnregisteredEngine)
// and persists the AgentRecord, countersigned by signerID.
func (a *Adapter) RegisterAgent(ctx context.Context, payload validate.AgentPayload, signerID string) (record.Record[validate.AgentPayload], error) {
	var rec record.Record[validate.AgentPayload]

	payload, err := validate.CreateAgentPayload(payload)
	if err != nil {
		return rec, err
	}

	if _, err := a.GetActor(ctx, payload.ID); err != nil {
		return rec, fmt.Errorf("identity: agent %q has no matching actor record: %w", payload.ID, err)
	}

	if !agentengine.Known(payload.Engine) {
		allow, _ := payload.PromptEngineRequirements["allowUnregisteredEngine"].(bool)
		if !allow {
			return rec, validate.Result{
				Errors: []validate.FieldError{{Field: "engine", Message: "engine is not a registered binding", Value: payload.Engine}},
			}.AsError("agent")
		}
	}

	rec, err = a.buildAgentAndSign(payload, signerID)
	if err != nil {
		return rec, err
	}
	if err := a.Agents.Put(ctx, payload.ID, rec, a.Resolver()); err != nil {
		return rec, err
	}

	a.Bus.Publish(eventbus.AgentRegistered("identity", payload.ID, payload.Engine))
	return rec, nil
}

// GetAgent fetches the AgentRecord for id.
func (a *Adapter) GetAgent(ctx context.Context, id string) (record.Record[validate.AgentPayload], error) {
	return a.Agents.Get(ctx, id, a.Resolver())
}

// SignRecord appends signerID's signature (role, notes) over checksum,
// using the private key held in the keystore. It does not mutate any
// record; callers append the returned Signature to their own header.
func (a *Adapter) SignRecord(signerID, role, notes, checksum string) (sig crypto.Signature, err error) {
	priv, err := a.Keys.Get(signerID)
	if err != nil {
		return sig, err
	}
	return crypto.SignPayload(checksum, priv, signerID, role, notes, a.nowRFC3339)
}

func (a *Adapter) buildAndSign(payload validate.ActorPayload, signerID, role, notes string) (record.Record[validate.ActorPayload], error) {
	var rec record.Record[validate.ActorPayload]
	checksum, err := crypto.CanonicalChecksum(payload)
	if err != nil {
		return rec, err
	}
	priv, err := a.Keys.Get(signerID)
	if err != nil {
		return rec, err
	}
	sig, err := crypto.SignPayload(checksum, priv, signerID, role, notes, a.nowRFC3339)
	if err != nil {
		return rec, err
	}
	rec = record.Record[validate.ActorPayload]{
		Header: record.Header{
			Version:         record.SchemaVersion,
			Type:            record.KindActor,
			PayloadChecksum: checksum,
			Signatures:      []crypto.Signature{sig},
		},
		Payload: payload,
	}
	return rec, nil
}

func (a *Adapter) buildAgentAndSign(payload validate.AgentPayload, signerID string) (record.Record[validate.AgentPayload], error) {
	var rec record.Record[validate.AgentPayload]
	checksum, err := crypto.CanonicalChecksum(payload)
	if err != nil {
		return rec, err
	}
	priv, err := a.Keys.Get(signerID)
	if err != nil {
		return rec, err
	}
	sig, err := crypto.SignPayload(checksum, priv, signerID, "author", "", a.nowRFC3339)
	if err != nil {
		return rec, err
	}
	rec = record.Record[validate.AgentPayload]{
		Header: record.Header{
			Version:         record.SchemaVersion,
			Type:            record.KindAgent,
			PayloadChecksum: checksum,
			Signatures:      []crypto.Signature{sig},
		},
		Payload: payload,
	}
	return rec, nil
}
