// Package backlog implements the backlog adapter: the task state machine,
// cycle lifecycle, and the cross-entity reactions wired through the event
// bus (pause-on-blocking-feedback, resume-on-resolution,
// first-execution-activation, changelog-triggered archival, and
// child-cycle-completion propagation to a parent cycle).
package backlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gitgovernance/core/internal/adapters/common"
	feedbackadapter "github.com/gitgovernance/core/internal/adapters/feedback"
	"github.com/gitgovernance/core/internal/eventbus"
	"github.com/gitgovernance/core/internal/record"
	"github.com/gitgovernance/core/internal/session"
	"github.com/gitgovernance/core/internal/validate"
	"github.com/gitgovernance/core/internal/workflow"
)

// systemActor is a pseudo actor id naming the backlog adapter itself. It
// has no ActorRecord and no key, so it cannot sign a record: the handlers
// Wire registers sign with a real actor instead (the actor named in the
// triggering event, or the author of the record being transitioned).
const systemActor = "system:backlog"

// Adapter owns TaskRecords and CycleRecords and enforces every invariant of
// their state machines.
type Adapter struct {
	Tasks       record.Store[validate.TaskPayload]
	Cycles      record.Store[validate.CyclePayload]
	Signer      common.Signer
	Resolver    record.KeyResolver
	Bus         *eventbus.Bus
	Methodology *workflow.Methodology
	Feedback    *feedbackadapter.Adapter
	Sessions    *session.Store
	Now         func() time.Time

	// mu serializes the adapter's multi-record operations
	// (moveTasksBetweenCycles, addTaskToCycle) so they read-modify-write
	// without interleaving with another such operation in this process.
	mu sync.Mutex
}

// New creates a backlog Adapter. methodology governs every task status
// transition; pass workflow.Default() for the standard 8-state lifecycle.
func New(tasks record.Store[validate.TaskPayload], cycles record.Store[validate.CyclePayload], signer common.Signer, resolver record.KeyResolver, bus *eventbus.Bus, methodology *workflow.Methodology, fb *feedbackadapter.Adapter) *Adapter {
	return &Adapter{
		Tasks: tasks, Cycles: cycles, Signer: signer, Resolver: resolver,
		Bus: bus, Methodology: methodology, Feedback: fb, Now: time.Now,
	}
}

// Wire registers the adapter's cross-entity event handlers on bus. Call
// once per process after constructing every adapter that publishes events
// this adapter reacts to.
func (a *Adapter) Wire() {
	a.Bus.Subscribe(eventbus.TypeFeedbackCreated, a.onFeedbackCreated)
	a.Bus.Subscribe(eventbus.TypeExecutionCreated, a.onExecutionCreated)
	a.Bus.Subscribe(eventbus.TypeChangelogCreated, a.onChangelogCreated)
	a.Bus.Subscribe(eventbus.TypeCycleStatusChanged, a.onCycleStatusChanged)
	a.Bus.Subscribe(eventbus.TypeSystemDailyTick, a.onSystemDailyTick)
}

// --- Task CRUD ---

// CreateTask fills defaults, signs, persists, and publishes task.created.
func (a *Adapter) CreateTask(ctx context.Context, partial validate.TaskPayload, actorID string) (record.Record[validate.TaskPayload], error) {
	var rec record.Record[validate.TaskPayload]

	payload, err := validate.CreateTaskPayload(partial, a.Now())
	if err != nil {
		return rec, err
	}

	rec, err = common.NewRecord(payload, record.KindTask, a.Signer, actorID, "author", "")
	if err != nil {
		return rec, err
	}
	if err := a.Tasks.Put(ctx, payload.ID, rec, a.Resolver); err != nil {
		return rec, err
	}

	a.Bus.Publish(eventbus.TaskCreated("backlog", payload.ID, actorID))
	return rec, nil
}

// GetTask fetches the TaskRecord for id.
func (a *Adapter) GetTask(ctx context.Context, id string) (record.Record[validate.TaskPayload], error) {
	return a.Tasks.Get(ctx, id, a.Resolver)
}

// TaskExists reports whether id names a TaskRecord, satisfying
// changelog.TaskExistence.
func (a *Adapter) TaskExists(ctx context.Context, id string) (bool, error) {
	return a.Tasks.Exists(ctx, id)
}

// GetAllTasks lists every TaskRecord, optionally filtered to a single
// status (empty string skips the filter).
func (a *Adapter) GetAllTasks(ctx context.Context, status validate.TaskStatus) ([]record.Record[validate.TaskPayload], error) {
	ids, err := a.Tasks.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []record.Record[validate.TaskPayload]
	for _, id := range ids {
		rec, err := a.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		if status != "" && rec.Payload.Status != status {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// UpdateTaskFields updates non-status fields (title, description, notes,
// tags, priority, estimatedEffort/actualEffort, metadata) of an existing
// task via mutate, re-validates, re-signs, and persists. mutate must not
// change Status; use TransitionTask for status changes.
func (a *Adapter) UpdateTaskFields(ctx context.Context, id string, mutate func(*validate.TaskPayload), actorID string) (record.Record[validate.TaskPayload], error) {
	rec, err := a.GetTask(ctx, id)
	if err != nil {
		return rec, err
	}
	before := rec.Payload.Status
	mutate(&rec.Payload)
	if rec.Payload.Status != before {
		return rec, fmt.Errorf("backlog: UpdateTaskFields must not change status; use TransitionTask")
	}
	if res := validate.ValidateTaskDetailed(rec.Payload); !res.IsValid {
		return rec, res.AsError("task")
	}

	rec, err = common.Resign(rec, a.Signer, actorID, "editor", "")
	if err != nil {
		return rec, err
	}
	if err := a.Tasks.Put(ctx, id, rec, a.Resolver); err != nil {
		return rec, err
	}
	return rec, nil
}

// DeleteTask removes id, which must be in draft status — the only status
// from which a task may be deleted outright.
func (a *Adapter) DeleteTask(ctx context.Context, id string) error {
	rec, err := a.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if rec.Payload.Status != validate.TaskDraft {
		return fmt.Errorf("ProtocolViolationError: task %q can only be deleted in draft status, is %s", id, rec.Payload.Status)
	}
	return a.Tasks.Delete(ctx, id)
}

// TransitionTask moves task id from its current status to "to", gated by
// the adapter's Methodology, signed by actorID. reason is recorded on the
// published task.status.changed event.
func (a *Adapter) TransitionTask(ctx context.Context, id string, to validate.TaskStatus, actorID, reason string) (record.Record[validate.TaskPayload], error) {
	rec, err := a.GetTask(ctx, id)
	if err != nil {
		return rec, err
	}
	return a.transitionTaskRecord(ctx, rec, to, actorID, reason)
}

func (a *Adapter) transitionTaskRecord(ctx context.Context, rec record.Record[validate.TaskPayload], to validate.TaskStatus, actorID, reason string) (record.Record[validate.TaskPayload], error) {
	from := rec.Payload.Status

	hasBlocking, err := a.Feedback.HasOpenBlocking(ctx, string(validate.FeedbackOnTask), rec.Payload.ID)
	if err != nil {
		return rec, err
	}
	wfCtx := workflow.Context{HasOpenBlockingFeedback: hasBlocking}
	if !a.Methodology.ValidateTransition(from, to, wfCtx) {
		return rec, &ErrInvalidTransition{Kind: "task", ID: rec.Payload.ID, From: string(from), To: string(to)}
	}

	rec.Payload.Status = to
	if to == validate.TaskDiscarded {
		rec.Payload.Notes = prependDiscardNote(rec.Payload.Notes, from, a.Now())
	}
	rec, err = common.Resign(rec, a.Signer, actorID, "transitioner", reason)
	if err != nil {
		return rec, err
	}
	if err := a.Tasks.Put(ctx, rec.Payload.ID, rec, a.Resolver); err != nil {
		return rec, err
	}

	a.Bus.Publish(eventbus.TaskStatusChanged("backlog", rec.Payload.ID, string(from), string(to), actorID, reason))

	if a.Sessions != nil {
		switch to {
		case validate.TaskActive:
			_ = a.Sessions.SetActive(actorID, rec.Payload.ID, "", false, false)
		case validate.TaskDone, validate.TaskArchived, validate.TaskDiscarded:
			_ = a.Sessions.SetActive(actorID, "", "", true, false)
		}
	}
	return rec, nil
}

// --- Cycle CRUD ---

// CreateCycle fills defaults, signs, persists, and publishes cycle.created.
func (a *Adapter) CreateCycle(ctx context.Context, partial validate.CyclePayload, actorID string) (record.Record[validate.CyclePayload], error) {
	var rec record.Record[validate.CyclePayload]

	payload, err := validate.CreateCyclePayload(partial, a.Now())
	if err != nil {
		return rec, err
	}

	rec, err = common.NewRecord(payload, record.KindCycle, a.Signer, actorID, "author", "")
	if err != nil {
		return rec, err
	}
	if err := a.Cycles.Put(ctx, payload.ID, rec, a.Resolver); err != nil {
		return rec, err
	}

	a.Bus.Publish(eventbus.CycleCreated("backlog", payload.ID, actorID))
	return rec, nil
}

// GetCycle fetches the CycleRecord for id.
func (a *Adapter) GetCycle(ctx context.Context, id string) (record.Record[validate.CyclePayload], error) {
	return a.Cycles.Get(ctx, id, a.Resolver)
}

// CycleExists reports whether id names a CycleRecord, satisfying
// changelog.TaskExistence.
func (a *Adapter) CycleExists(ctx context.Context, id string) (bool, error) {
	return a.Cycles.Exists(ctx, id)
}

// GetAllCycles lists every CycleRecord, optionally filtered to a single
// status (empty string skips the filter).
func (a *Adapter) GetAllCycles(ctx context.Context, status validate.CycleStatus) ([]record.Record[validate.CyclePayload], error) {
	ids, err := a.Cycles.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []record.Record[validate.CyclePayload]
	for _, id := range ids {
		rec, err := a.GetCycle(ctx, id)
		if err != nil {
			return nil, err
		}
		if status != "" && rec.Payload.Status != status {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// UpdateCycle applies mutate to an existing, non-terminal cycle, re-signs,
// and persists. mutate must not change Status; use TransitionCycle.
func (a *Adapter) UpdateCycle(ctx context.Context, id string, mutate func(*validate.CyclePayload), actorID string) (record.Record[validate.CyclePayload], error) {
	rec, err := a.GetCycle(ctx, id)
	if err != nil {
		return rec, err
	}
	if validate.IsCycleTerminal(rec.Payload.Status) {
		return rec, &ErrTerminalState{ID: id, Status: string(rec.Payload.Status)}
	}

	before := rec.Payload.Status
	mutate(&rec.Payload)
	if rec.Payload.Status != before {
		return rec, fmt.Errorf("backlog: UpdateCycle must not change status; use TransitionCycle")
	}
	if res := validate.ValidateCycleDetailed(rec.Payload); !res.IsValid {
		return rec, res.AsError("cycle")
	}

	rec, err = common.Resign(rec, a.Signer, actorID, "editor", "")
	if err != nil {
		return rec, err
	}
	if err := a.Cycles.Put(ctx, id, rec, a.Resolver); err != nil {
		return rec, err
	}
	return rec, nil
}

// TransitionCycle moves cycle id to status "to", signed by actorID.
// triggeredBy labels the published event's cause — pass actorID again for
// a direct call, or a pseudo-actor string (e.g. systemActor) when an
// automatic propagation is transitioning it.
func (a *Adapter) TransitionCycle(ctx context.Context, id string, to validate.CycleStatus, actorID, triggeredBy string) (record.Record[validate.CyclePayload], error) {
	rec, err := a.GetCycle(ctx, id)
	if err != nil {
		return rec, err
	}
	if validate.IsCycleTerminal(rec.Payload.Status) {
		return rec, &ErrTerminalState{ID: id, Status: string(rec.Payload.Status)}
	}
	from := rec.Payload.Status

	rec.Payload.Status = to
	if res := validate.ValidateCycleDetailed(rec.Payload); !res.IsValid {
		return rec, res.AsError("cycle")
	}
	rec, err = common.Resign(rec, a.Signer, actorID, "transitioner", "")
	if err != nil {
		return rec, err
	}
	if err := a.Cycles.Put(ctx, id, rec, a.Resolver); err != nil {
		return rec, err
	}

	a.Bus.Publish(eventbus.CycleStatusChanged("backlog", id, string(from), string(to), triggeredBy))
	return rec, nil
}

// AddTaskToCycle appends taskID to cycleID's TaskIDs (idempotent) and
// taskID's CycleIDs, persisting both records.
func (a *Adapter) AddTaskToCycle(ctx context.Context, cycleID, taskID, actorID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attach(ctx, cycleID, taskID, actorID)
}

func (a *Adapter) attach(ctx context.Context, cycleID, taskID, actorID string) error {
	cycle, err := a.GetCycle(ctx, cycleID)
	if err != nil {
		return err
	}
	task, err := a.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	if !contains(cycle.Payload.TaskIDs, taskID) {
		cycle.Payload.TaskIDs = append(cycle.Payload.TaskIDs, taskID)
		cycle, err = common.Resign(cycle, a.Signer, actorID, "editor", "")
		if err != nil {
			return err
		}
		if err := a.Cycles.Put(ctx, cycleID, cycle, a.Resolver); err != nil {
			return err
		}
	}
	if !contains(task.Payload.CycleIDs, cycleID) {
		task.Payload.CycleIDs = append(task.Payload.CycleIDs, cycleID)
		task, err = common.Resign(task, a.Signer, actorID, "editor", "")
		if err != nil {
			return err
		}
		if err := a.Tasks.Put(ctx, taskID, task, a.Resolver); err != nil {
			return err
		}
	}
	return nil
}

// RemoveTasksFromCycle detaches every id in taskIDs from cycleID, on both
// the cycle's TaskIDs and each task's CycleIDs.
func (a *Adapter) RemoveTasksFromCycle(ctx context.Context, cycleID string, taskIDs []string, actorID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detach(ctx, cycleID, taskIDs, actorID)
}

func (a *Adapter) detach(ctx context.Context, cycleID string, taskIDs []string, actorID string) error {
	cycle, err := a.GetCycle(ctx, cycleID)
	if err != nil {
		return err
	}
	cycle.Payload.TaskIDs = remove(cycle.Payload.TaskIDs, taskIDs...)
	cycle, err = common.Resign(cycle, a.Signer, actorID, "editor", "")
	if err != nil {
		return err
	}
	if err := a.Cycles.Put(ctx, cycleID, cycle, a.Resolver); err != nil {
		return err
	}

	for _, taskID := range taskIDs {
		task, err := a.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		task.Payload.CycleIDs = remove(task.Payload.CycleIDs, cycleID)
		task, err = common.Resign(task, a.Signer, actorID, "editor", "")
		if err != nil {
			return err
		}
		if err := a.Tasks.Put(ctx, taskID, task, a.Resolver); err != nil {
			return err
		}
	}
	return nil
}

// MoveTasksBetweenCycles detaches taskIDs from fromCycleID and attaches
// them to toCycleID as a single logical operation. It rejects outright,
// before any write, if fromCycleID equals toCycleID or any task is absent
// from fromCycleID's TaskIDs. Every record involved is then read and
// validated before any write begins; if a write fails partway through, the
// already-written records are restored to their prior state on a
// best-effort basis (the store itself has no multi-file transaction
// primitive, so this is the strongest atomicity achievable on top of it).
func (a *Adapter) MoveTasksBetweenCycles(ctx context.Context, fromCycleID, toCycleID string, taskIDs []string, actorID string) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if fromCycleID == toCycleID {
		return &AtomicOperationError{Op: "MoveTasksBetweenCycles", Reason: fmt.Sprintf("source and target cycle are both %q", fromCycleID)}
	}

	fromBefore, err := a.GetCycle(ctx, fromCycleID)
	if err != nil {
		return err
	}
	toBefore, err := a.GetCycle(ctx, toCycleID)
	if err != nil {
		return err
	}
	for _, id := range taskIDs {
		if !contains(fromBefore.Payload.TaskIDs, id) {
			return &AtomicOperationError{Op: "MoveTasksBetweenCycles", Reason: fmt.Sprintf("task %q is not in source cycle %q", id, fromCycleID)}
		}
	}
	taskBefores := make([]record.Record[validate.TaskPayload], len(taskIDs))
	for i, id := range taskIDs {
		taskBefores[i], err = a.GetTask(ctx, id)
		if err != nil {
			return err
		}
	}

	defer func() {
		if err != nil {
			_ = a.Cycles.Put(ctx, fromCycleID, fromBefore, a.Resolver)
			_ = a.Cycles.Put(ctx, toCycleID, toBefore, a.Resolver)
			for _, before := range taskBefores {
				_ = a.Tasks.Put(ctx, before.Payload.ID, before, a.Resolver)
			}
		}
	}()

	if err = a.detach(ctx, fromCycleID, taskIDs, actorID); err != nil {
		return err
	}
	for _, id := range taskIDs {
		if err = a.attach(ctx, toCycleID, id, actorID); err != nil {
			return err
		}
	}
	return nil
}

// prependDiscardNote prepends the discard tag and timestamp discardTask
// records on Notes: "[CANCELLED]" from ready/active, "[REJECTED]" from
// review.
func prependDiscardNote(notes string, from validate.TaskStatus, at time.Time) string {
	tag := "[CANCELLED]"
	if from == validate.TaskReview {
		tag = "[REJECTED]"
	}
	line := fmt.Sprintf("%s %s", tag, at.UTC().Format(time.RFC3339))
	if notes == "" {
		return line
	}
	return line + "\n" + notes
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

func remove(list []string, targets ...string) []string {
	targetSet := make(map[string]bool, len(targets))
	for _, t := range targets {
		targetSet[t] = true
	}
	out := list[:0:0]
	for _, v := range list {
		if !targetSet[v] {
			out = append(out, v)
		}
	}
	return out
}

// --- Unimplemented operations ---

// Lint is not implemented: the backlog adapter enforces record-level
// invariants on every write, so a separate batch-lint pass has no
// independent state to check yet.
func (a *Adapter) Lint(ctx context.Context) error {
	return &NotImplementedError{Op: "lint"}
}

// Audit is not implemented.
func (a *Adapter) Audit(ctx context.Context) error {
	return &NotImplementedError{Op: "audit"}
}

// ProcessChanges is not implemented.
func (a *Adapter) ProcessChanges(ctx context.Context) error {
	return &NotImplementedError{Op: "processChanges"}
}
