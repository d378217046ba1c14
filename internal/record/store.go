package record

import (
	"context"

	"github.com/gitgovernance/core/internal/crypto"
)

// KeyResolver resolves an actor/agent keyId to the public key that should
// verify signatures attributed to it. It is supplied by the identity
// adapter, whose resolver looks the keyId up directly and does not follow
// succession chains; the store never resolves keys on its own.
type KeyResolver func(keyID string) (publicKey string, ok bool)

// Store is the sole filesystem I/O boundary for one record kind.
//
// Put persists atomically (temp-file + rename) after recomputing and
// verifying payloadChecksum. Get re-validates on every read: checksum
// matches payload, at least one signature is present, and every signature
// verifies via resolver. List enumerates present ids in unspecified order.
//
// A single writer per working copy is assumed; Store uses file-level
// locking only to make Put crash-safe, never to serialize unrelated
// commands.
type Store[P any] interface {
	Put(ctx context.Context, id string, rec Record[P], resolver KeyResolver) error
	Get(ctx context.Context, id string, resolver KeyResolver) (Record[P], error)
	List(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// Validate re-checks the read-time invariants of rec against resolver,
// independent of how the bytes were obtained. Both FileStore and MemStore
// call this from Get so corruption is caught identically regardless of
// backend.
func Validate[P any](id string, rec Record[P], resolver KeyResolver) error {
	checksum, err := crypto.CanonicalChecksum(rec.Payload)
	if err != nil {
		return err
	}
	if checksum != rec.Header.PayloadChecksum {
		return &ErrChecksumMismatch{ID: id, Expected: rec.Header.PayloadChecksum, Actual: checksum}
	}
	if len(rec.Header.Signatures) == 0 {
		return &ErrSignature{ID: id, Reason: "no signatures present"}
	}
	for _, sig := range rec.Header.Signatures {
		pub, ok := resolver(sig.KeyID)
		if !ok {
			return &ErrSignature{ID: id, Reason: "unknown keyId " + sig.KeyID}
		}
		ok2, err := crypto.VerifySignature(sig, pub, rec.Header.PayloadChecksum)
		if err != nil {
			return &ErrSignature{ID: id, Reason: err.Error()}
		}
		if !ok2 {
			return &ErrSignature{ID: id, Reason: "signature does not verify for keyId " + sig.KeyID}
		}
	}
	return nil
}
