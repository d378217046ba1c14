// Package execution implements the execution adapter: append-only
// ExecutionRecords logging progress against a task.
package execution

import (
	"context"
	"time"

	"github.com/gitgovernance/core/internal/adapters/common"
	"github.com/gitgovernance/core/internal/eventbus"
	"github.com/gitgovernance/core/internal/record"
	"github.com/gitgovernance/core/internal/validate"
)

// Adapter creates and queries ExecutionRecords. Executions are append-only:
// there is no update or delete operation.
type Adapter struct {
	Store    record.Store[validate.ExecutionPayload]
	Signer   common.Signer
	Resolver record.KeyResolver
	Bus      *eventbus.Bus
	Now      func() time.Time
}

// New creates an execution Adapter.
func New(store record.Store[validate.ExecutionPayload], signer common.Signer, resolver record.KeyResolver, bus *eventbus.Bus) *Adapter {
	return &Adapter{Store: store, Signer: signer, Resolver: resolver, Bus: bus, Now: time.Now}
}

// CreateExecution fills defaults, signs, persists, and publishes
// execution.created for a new ExecutionRecord authored by actorID.
// isFirstExecution, computed by the caller (typically with HasAnyExecution
// just before this call), is carried
// through to the published event so subscribers don't need to re-derive it.
func (a *Adapter) CreateExecution(ctx context.Context, partial validate.ExecutionPayload, actorID string, isFirstExecution bool) (record.Record[validate.ExecutionPayload], error) {
	var rec record.Record[validate.ExecutionPayload]

	payload, err := validate.CreateExecutionPayload(partial, a.Now())
	if err != nil {
		return rec, err
	}

	rec, err = common.NewRecord(payload, record.KindExecution, a.Signer, actorID, "author", "")
	if err != nil {
		return rec, err
	}
	if err := a.Store.Put(ctx, payload.ID, rec, a.Resolver); err != nil {
		return rec, err
	}

	a.Bus.Publish(eventbus.ExecutionCreated("execution", payload.ID, payload.TaskID, actorID, isFirstExecution))
	return rec, nil
}

// GetExecution fetches the ExecutionRecord for id.
func (a *Adapter) GetExecution(ctx context.Context, id string) (record.Record[validate.ExecutionPayload], error) {
	return a.Store.Get(ctx, id, a.Resolver)
}

// GetExecutionsForTask lists every ExecutionRecord whose TaskID is taskID.
func (a *Adapter) GetExecutionsForTask(ctx context.Context, taskID string) ([]record.Record[validate.ExecutionPayload], error) {
	ids, err := a.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []record.Record[validate.ExecutionPayload]
	for _, id := range ids {
		rec, err := a.GetExecution(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec.Payload.TaskID == taskID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// HasAnyExecution reports whether taskID already has at least one
// ExecutionRecord — callers use this to compute isFirstExecution before
// calling CreateExecution.
func (a *Adapter) HasAnyExecution(ctx context.Context, taskID string) (bool, error) {
	existing, err := a.GetExecutionsForTask(ctx, taskID)
	if err != nil {
		return false, err
	}
	return len(existing) > 0, nil
}
