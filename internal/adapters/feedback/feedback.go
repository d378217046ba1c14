// Package feedback implements the feedback adapter: immutable feedback
// records, each optionally resolving an earlier one.
package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/gitgovernance/core/internal/adapters/common"
	"github.com/gitgovernance/core/internal/eventbus"
	"github.com/gitgovernance/core/internal/record"
	"github.com/gitgovernance/core/internal/validate"
)

// Adapter creates and queries FeedbackRecords. Feedback records are
// immutable: "resolving" one does not mutate it, it creates a new record
// whose ResolvesFeedbackID points back to the original.
type Adapter struct {
	Store    record.Store[validate.FeedbackPayload]
	Signer   common.Signer
	Resolver record.KeyResolver
	Bus      *eventbus.Bus
	Now      func() time.Time
}

// New creates a feedback Adapter.
func New(store record.Store[validate.FeedbackPayload], signer common.Signer, resolver record.KeyResolver, bus *eventbus.Bus) *Adapter {
	return &Adapter{Store: store, Signer: signer, Resolver: resolver, Bus: bus, Now: time.Now}
}

// CreateFeedback fills defaults, signs, persists, and publishes
// feedback.created for a new FeedbackRecord authored by actorID. A new
// "assignment" feedback is rejected with DuplicateAssignmentError if the
// same entity already carries an open assignment to the same assignee;
// a feedback that resolves an earlier one is exempt, since it is closing
// an assignment rather than opening one.
func (a *Adapter) CreateFeedback(ctx context.Context, partial validate.FeedbackPayload, actorID string) (record.Record[validate.FeedbackPayload], error) {
	var rec record.Record[validate.FeedbackPayload]

	payload, err := validate.CreateFeedbackPayload(partial, a.Now())
	if err != nil {
		return rec, err
	}

	if payload.Type == validate.FeedbackAssignment && payload.Assignee != "" && payload.ResolvesFeedbackID == "" {
		open, err := a.HasOpenAssignment(ctx, string(payload.EntityType), payload.EntityID, payload.Assignee)
		if err != nil {
			return rec, err
		}
		if open {
			return rec, &DuplicateAssignmentError{EntityType: string(payload.EntityType), EntityID: payload.EntityID, Assignee: payload.Assignee}
		}
	}

	rec, err = common.NewRecord(payload, record.KindFeedback, a.Signer, actorID, "author", "")
	if err != nil {
		return rec, err
	}
	if err := a.Store.Put(ctx, payload.ID, rec, a.Resolver); err != nil {
		return rec, err
	}

	a.Bus.Publish(eventbus.FeedbackCreated("feedback", payload.ID, string(payload.EntityType), payload.EntityID,
		string(payload.Type), string(payload.Status), payload.Content, actorID, payload.Assignee, payload.ResolvesFeedbackID))
	return rec, nil
}

// GetFeedback fetches the FeedbackRecord for id.
func (a *Adapter) GetFeedback(ctx context.Context, id string) (record.Record[validate.FeedbackPayload], error) {
	return a.Store.Get(ctx, id, a.Resolver)
}

// GetAllFeedback lists every FeedbackRecord, optionally filtered by
// entityType/entityID (either may be empty to skip that filter).
func (a *Adapter) GetAllFeedback(ctx context.Context, entityType, entityID string) ([]record.Record[validate.FeedbackPayload], error) {
	ids, err := a.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []record.Record[validate.FeedbackPayload]
	for _, id := range ids {
		rec, err := a.GetFeedback(ctx, id)
		if err != nil {
			return nil, err
		}
		if entityType != "" && string(rec.Payload.EntityType) != entityType {
			continue
		}
		if entityID != "" && rec.Payload.EntityID != entityID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// HasOpenBlocking reports whether entityID has any "blocking" feedback that
// is not yet closed. Because feedback records are immutable, a record's own
// Status never changes after creation; "closing" one is recorded by a later
// record whose ResolvesFeedbackID points back at it with status resolved
// or wontfix. A blocking record is therefore open iff no later record on
// the same entity resolves it.
func (a *Adapter) HasOpenBlocking(ctx context.Context, entityType, entityID string) (bool, error) {
	all, err := a.GetAllFeedback(ctx, entityType, entityID)
	if err != nil {
		return false, err
	}

	closed := make(map[string]bool)
	for _, rec := range all {
		if rec.Payload.ResolvesFeedbackID != "" &&
			(rec.Payload.Status == validate.FeedbackResolved || rec.Payload.Status == validate.FeedbackWontfix) {
			closed[rec.Payload.ResolvesFeedbackID] = true
		}
	}
	for _, rec := range all {
		if rec.Payload.Type != validate.FeedbackBlocking {
			continue
		}
		if !closed[rec.Payload.ID] {
			return true, nil
		}
	}
	return false, nil
}

// HasOpenAssignment reports whether entityID already carries an open
// "assignment" feedback naming assignee. Open is defined the same way as
// HasOpenBlocking: a later record resolving it via ResolvesFeedbackID
// (status resolved or wontfix) closes it.
func (a *Adapter) HasOpenAssignment(ctx context.Context, entityType, entityID, assignee string) (bool, error) {
	all, err := a.GetAllFeedback(ctx, entityType, entityID)
	if err != nil {
		return false, err
	}

	closed := make(map[string]bool)
	for _, rec := range all {
		if rec.Payload.ResolvesFeedbackID != "" &&
			(rec.Payload.Status == validate.FeedbackResolved || rec.Payload.Status == validate.FeedbackWontfix) {
			closed[rec.Payload.ResolvesFeedbackID] = true
		}
	}
	for _, rec := range all {
		if rec.Payload.Type != validate.FeedbackAssignment || rec.Payload.Assignee != assignee {
			continue
		}
		if !closed[rec.Payload.ID] {
			return true, nil
		}
	}
	return false, nil
}

// ResolveFeedback creates a new FeedbackRecord on the same entity with the
// given closing status, pointing back at originalID via ResolvesFeedbackID
// — feedback records themselves are never mutated, so "resolving" one is
// always an append.
func (a *Adapter) ResolveFeedback(ctx context.Context, originalID, resolutionContent, actorID string, status validate.FeedbackStatus) (record.Record[validate.FeedbackPayload], error) {
	var rec record.Record[validate.FeedbackPayload]

	original, err := a.GetFeedback(ctx, originalID)
	if err != nil {
		return rec, err
	}
	if status != validate.FeedbackResolved && status != validate.FeedbackWontfix {
		return rec, fmt.Errorf("feedback: resolution status must be resolved or wontfix, got %q", status)
	}
	already, err := a.isClosed(ctx, originalID)
	if err != nil {
		return rec, err
	}
	if already {
		return rec, fmt.Errorf("feedback: %q is already closed", originalID)
	}

	return a.CreateFeedback(ctx, validate.FeedbackPayload{
		EntityType:         original.Payload.EntityType,
		EntityID:           original.Payload.EntityID,
		Type:               original.Payload.Type,
		Status:             status,
		Content:            resolutionContent,
		ResolvesFeedbackID: originalID,
	}, actorID)
}

func (a *Adapter) isClosed(ctx context.Context, feedbackID string) (bool, error) {
	ids, err := a.Store.List(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		rec, err := a.GetFeedback(ctx, id)
		if err != nil {
			return false, err
		}
		if rec.Payload.ResolvesFeedbackID == feedbackID &&
			(rec.Payload.Status == validate.FeedbackResolved || rec.Payload.Status == validate.FeedbackWontfix) {
			return true, nil
		}
	}
	return false, nil
}
