package backlog

import (
	"context"
	"strings"
	"testing"

	"github.com/gitgovernance/core/internal/adapters/changelog"
	"github.com/gitgovernance/core/internal/adapters/execution"
	feedbackadapter "github.com/gitgovernance/core/internal/adapters/feedback"
	"github.com/gitgovernance/core/internal/eventbus"
	"github.com/gitgovernance/core/internal/identity"
	"github.com/gitgovernance/core/internal/record"
	"github.com/gitgovernance/core/internal/validate"
	"github.com/gitgovernance/core/internal/workflow"
)

type fixture struct {
	Backlog    *Adapter
	Feedback   *feedbackadapter.Adapter
	Execution  *execution.Adapter
	Changelog  *changelog.Adapter
	ActorID    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	actors, err := record.NewFileStore[validate.ActorPayload](t.TempDir())
	if err != nil {
		t.Fatalf("actor store: %v", err)
	}
	agents, err := record.NewFileStore[validate.AgentPayload](t.TempDir())
	if err != nil {
		t.Fatalf("agent store: %v", err)
	}
	keys, err := identity.NewKeystore(t.TempDir())
	if err != nil {
		t.Fatalf("keystore: %v", err)
	}
	bus := eventbus.New()
	ids := identity.New(actors, agents, keys, bus)

	actor, err := ids.CreateActor(context.Background(), "Grace Hopper", validate.ActorHuman, []string{"owner"}, true)
	if err != nil {
		t.Fatalf("CreateActor: %v", err)
	}

	taskStore, err := record.NewFileStore[validate.TaskPayload](t.TempDir())
	if err != nil {
		t.Fatalf("task store: %v", err)
	}
	cycleStore, err := record.NewFileStore[validate.CyclePayload](t.TempDir())
	if err != nil {
		t.Fatalf("cycle store: %v", err)
	}
	feedbackStore, err := record.NewFileStore[validate.FeedbackPayload](t.TempDir())
	if err != nil {
		t.Fatalf("feedback store: %v", err)
	}
	executionStore, err := record.NewFileStore[validate.ExecutionPayload](t.TempDir())
	if err != nil {
		t.Fatalf("execution store: %v", err)
	}
	changelogStore, err := record.NewFileStore[validate.ChangelogPayload](t.TempDir())
	if err != nil {
		t.Fatalf("changelog store: %v", err)
	}

	fb := feedbackadapter.New(feedbackStore, ids, ids.Resolver(), bus)
	exec := execution.New(executionStore, ids, ids.Resolver(), bus)
	bl := New(taskStore, cycleStore, ids, ids.Resolver(), bus, workflow.Default(), fb)
	bl.Wire()
	cl := changelog.New(changelogStore, ids, ids.Resolver(), bus, bl)

	return &fixture{Backlog: bl, Feedback: fb, Execution: exec, Changelog: cl, ActorID: actor.Payload.ID}
}

func mustCreateTask(t *testing.T, f *fixture) record.Record[validate.TaskPayload] {
	t.Helper()
	task, err := f.Backlog.CreateTask(context.Background(), validate.TaskPayload{
		Title:       "Wire the release pipeline",
		Description: "Automate the release checklist end to end.",
	}, f.ActorID)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

// advanceToActive walks a freshly created (draft) task through review/ready/active.
func advanceToActive(t *testing.T, f *fixture, id string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.Backlog.TransitionTask(ctx, id, validate.TaskReview, f.ActorID, "ready for review"); err != nil {
		t.Fatalf("draft->review: %v", err)
	}
	if _, err := f.Backlog.TransitionTask(ctx, id, validate.TaskReady, f.ActorID, "approved"); err != nil {
		t.Fatalf("review->ready: %v", err)
	}
	if _, err := f.Backlog.TransitionTask(ctx, id, validate.TaskActive, f.ActorID, "work begun"); err != nil {
		t.Fatalf("ready->active: %v", err)
	}
}

func TestTransitionTask_EnforcesMethodology(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := mustCreateTask(t, f)

	t.Run("valid transition succeeds", func(t *testing.T) {
		rec, err := f.Backlog.TransitionTask(ctx, task.Payload.ID, validate.TaskReview, f.ActorID, "ready for review")
		if err != nil {
			t.Fatalf("TransitionTask: %v", err)
		}
		if rec.Payload.Status != validate.TaskReview {
			t.Errorf("expected status review, got %q", rec.Payload.Status)
		}
	})

	t.Run("invalid transition is rejected", func(t *testing.T) {
		_, err := f.Backlog.TransitionTask(ctx, task.Payload.ID, validate.TaskDone, f.ActorID, "skip ahead")
		if err == nil {
			t.Fatal("expected review->done to be rejected")
		}
	})
}

func TestBlockingFeedback_PausesAndResumesTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := mustCreateTask(t, f)
	advanceToActive(t, f, task.Payload.ID)

	fb, err := f.Feedback.CreateFeedback(ctx, validate.FeedbackPayload{
		EntityType: validate.FeedbackOnTask,
		EntityID:   task.Payload.ID,
		Type:       validate.FeedbackBlocking,
		Content:    "Blocked until legal signs off on the license terms.",
	}, f.ActorID)
	if err != nil {
		t.Fatalf("CreateFeedback: %v", err)
	}

	t.Run("task is paused by blocking feedback", func(t *testing.T) {
		reloaded, err := f.Backlog.GetTask(ctx, task.Payload.ID)
		if err != nil {
			t.Fatalf("GetTask: %v", err)
		}
		if reloaded.Payload.Status != validate.TaskPaused {
			t.Fatalf("expected task paused, got %q", reloaded.Payload.Status)
		}
	})

	if _, err := f.Feedback.ResolveFeedback(ctx, fb.Payload.ID, "Legal signed off.", f.ActorID, validate.FeedbackResolved); err != nil {
		t.Fatalf("ResolveFeedback: %v", err)
	}

	t.Run("task resumes once the last blocking feedback resolves", func(t *testing.T) {
		reloaded, err := f.Backlog.GetTask(ctx, task.Payload.ID)
		if err != nil {
			t.Fatalf("GetTask: %v", err)
		}
		if reloaded.Payload.Status != validate.TaskActive {
			t.Fatalf("expected task active again, got %q", reloaded.Payload.Status)
		}
	})
}

func TestFirstExecution_ActivatesReadyTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := mustCreateTask(t, f)

	if _, err := f.Backlog.TransitionTask(ctx, task.Payload.ID, validate.TaskReview, f.ActorID, ""); err != nil {
		t.Fatalf("draft->review: %v", err)
	}
	if _, err := f.Backlog.TransitionTask(ctx, task.Payload.ID, validate.TaskReady, f.ActorID, ""); err != nil {
		t.Fatalf("review->ready: %v", err)
	}

	has, err := f.Execution.HasAnyExecution(ctx, task.Payload.ID)
	if err != nil {
		t.Fatalf("HasAnyExecution: %v", err)
	}
	if _, err := f.Execution.CreateExecution(ctx, validate.ExecutionPayload{
		TaskID: task.Payload.ID,
		Title:  "Kickoff",
		Result: "Drafted the implementation plan and opened a tracking issue.",
	}, f.ActorID, !has); err != nil {
		t.Fatalf("CreateExecution: %v", err)
	}

	reloaded, err := f.Backlog.GetTask(ctx, task.Payload.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if reloaded.Payload.Status != validate.TaskActive {
		t.Fatalf("expected task active after its first execution, got %q", reloaded.Payload.Status)
	}
}

func TestChangelog_ArchivesDoneTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := mustCreateTask(t, f)
	advanceToActive(t, f, task.Payload.ID)
	if _, err := f.Backlog.TransitionTask(ctx, task.Payload.ID, validate.TaskDone, f.ActorID, "shipped"); err != nil {
		t.Fatalf("active->done: %v", err)
	}

	if _, err := f.Changelog.CreateChangelog(ctx, validate.ChangelogPayload{
		Title:        "Release pipeline shipped",
		Description:  "Automated the release checklist end to end.",
		RelatedTasks: []string{task.Payload.ID},
	}, f.ActorID); err != nil {
		t.Fatalf("CreateChangelog: %v", err)
	}

	reloaded, err := f.Backlog.GetTask(ctx, task.Payload.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if reloaded.Payload.Status != validate.TaskArchived {
		t.Fatalf("expected task archived by its changelog, got %q", reloaded.Payload.Status)
	}
}

func TestCycle_AddMoveAndCompletionPropagation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent, err := f.Backlog.CreateCycle(ctx, validate.CyclePayload{Title: "Q1 Roadmap"}, f.ActorID)
	if err != nil {
		t.Fatalf("CreateCycle parent: %v", err)
	}
	child, err := f.Backlog.CreateCycle(ctx, validate.CyclePayload{Title: "Sprint 1"}, f.ActorID)
	if err != nil {
		t.Fatalf("CreateCycle child: %v", err)
	}
	parent, err = f.Backlog.UpdateCycle(ctx, parent.Payload.ID, func(p *validate.CyclePayload) {
		p.ChildCycleIDs = append(p.ChildCycleIDs, child.Payload.ID)
	}, f.ActorID)
	if err != nil {
		t.Fatalf("UpdateCycle: %v", err)
	}

	taskA := mustCreateTask(t, f)

	t.Run("AddTaskToCycle links both sides", func(t *testing.T) {
		if err := f.Backlog.AddTaskToCycle(ctx, child.Payload.ID, taskA.Payload.ID, f.ActorID); err != nil {
			t.Fatalf("AddTaskToCycle: %v", err)
		}
		cycle, err := f.Backlog.GetCycle(ctx, child.Payload.ID)
		if err != nil {
			t.Fatalf("GetCycle: %v", err)
		}
		if len(cycle.Payload.TaskIDs) != 1 {
			t.Fatalf("expected 1 task on cycle, got %d", len(cycle.Payload.TaskIDs))
		}
		task, err := f.Backlog.GetTask(ctx, taskA.Payload.ID)
		if err != nil {
			t.Fatalf("GetTask: %v", err)
		}
		if len(task.Payload.CycleIDs) != 1 {
			t.Fatalf("expected 1 cycle on task, got %d", len(task.Payload.CycleIDs))
		}
	})

	other, err := f.Backlog.CreateCycle(ctx, validate.CyclePayload{Title: "Backlog"}, f.ActorID)
	if err != nil {
		t.Fatalf("CreateCycle other: %v", err)
	}

	t.Run("MoveTasksBetweenCycles relinks the task", func(t *testing.T) {
		if err := f.Backlog.MoveTasksBetweenCycles(ctx, child.Payload.ID, other.Payload.ID, []string{taskA.Payload.ID}, f.ActorID); err != nil {
			t.Fatalf("MoveTasksBetweenCycles: %v", err)
		}
		task, err := f.Backlog.GetTask(ctx, taskA.Payload.ID)
		if err != nil {
			t.Fatalf("GetTask: %v", err)
		}
		if len(task.Payload.CycleIDs) != 1 || task.Payload.CycleIDs[0] != other.Payload.ID {
			t.Fatalf("expected task linked only to %q, got %v", other.Payload.ID, task.Payload.CycleIDs)
		}
	})

	t.Run("rejects when source equals target", func(t *testing.T) {
		err := f.Backlog.MoveTasksBetweenCycles(ctx, other.Payload.ID, other.Payload.ID, []string{taskA.Payload.ID}, f.ActorID)
		if _, ok := err.(*AtomicOperationError); !ok {
			t.Fatalf("expected *AtomicOperationError, got %v", err)
		}
	})

	t.Run("rejects when a task is absent from source", func(t *testing.T) {
		taskB := mustCreateTask(t, f)
		err := f.Backlog.MoveTasksBetweenCycles(ctx, other.Payload.ID, child.Payload.ID, []string{taskB.Payload.ID}, f.ActorID)
		if _, ok := err.(*AtomicOperationError); !ok {
			t.Fatalf("expected *AtomicOperationError, got %v", err)
		}
		task, getErr := f.Backlog.GetTask(ctx, taskB.Payload.ID)
		if getErr != nil {
			t.Fatalf("GetTask: %v", getErr)
		}
		if len(task.Payload.CycleIDs) != 0 {
			t.Fatalf("expected the rejected move to leave taskB unlinked, got %v", task.Payload.CycleIDs)
		}
	})

	t.Run("completing the last incomplete child completes the parent", func(t *testing.T) {
		if _, err := f.Backlog.TransitionCycle(ctx, child.Payload.ID, validate.CycleStatusComplete, f.ActorID, f.ActorID); err != nil {
			t.Fatalf("TransitionCycle: %v", err)
		}
		reloadedParent, err := f.Backlog.GetCycle(ctx, parent.Payload.ID)
		if err != nil {
			t.Fatalf("GetCycle: %v", err)
		}
		if reloadedParent.Payload.Status != validate.CycleStatusComplete {
			t.Fatalf("expected parent cycle completed by propagation, got %q", reloadedParent.Payload.Status)
		}
	})
}

func TestDeleteTask_OnlyAllowedInDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := mustCreateTask(t, f)

	if _, err := f.Backlog.TransitionTask(ctx, task.Payload.ID, validate.TaskReview, f.ActorID, ""); err != nil {
		t.Fatalf("draft->review: %v", err)
	}

	if err := f.Backlog.DeleteTask(ctx, task.Payload.ID); err == nil {
		t.Fatal("expected delete to be rejected outside draft status")
	}

	task2 := mustCreateTask(t, f)
	if err := f.Backlog.DeleteTask(ctx, task2.Payload.ID); err != nil {
		t.Fatalf("expected delete to succeed in draft status: %v", err)
	}
	if exists, _ := f.Backlog.TaskExists(ctx, task2.Payload.ID); exists {
		t.Error("expected task to no longer exist after delete")
	}
}

func TestDiscardTask_PrependsTaggedNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("from review prepends REJECTED", func(t *testing.T) {
		task := mustCreateTask(t, f)
		task, err := f.Backlog.TransitionTask(ctx, task.Payload.ID, validate.TaskReview, f.ActorID, "ready for review")
		if err != nil {
			t.Fatalf("draft->review: %v", err)
		}
		task, err = f.Backlog.TransitionTask(ctx, task.Payload.ID, validate.TaskDiscarded, f.ActorID, "scope cut")
		if err != nil {
			t.Fatalf("review->discarded: %v", err)
		}
		if !strings.HasPrefix(task.Payload.Notes, "[REJECTED] ") {
			t.Fatalf("expected notes to start with [REJECTED], got %q", task.Payload.Notes)
		}
	})

	t.Run("from active prepends CANCELLED and keeps prior notes", func(t *testing.T) {
		task := mustCreateTask(t, f)
		advanceToActive(t, f, task.Payload.ID)
		task, err := f.Backlog.UpdateTaskFields(ctx, task.Payload.ID, func(p *validate.TaskPayload) {
			p.Notes = "pre-existing note"
		}, f.ActorID)
		if err != nil {
			t.Fatalf("UpdateTaskFields: %v", err)
		}
		task, err = f.Backlog.TransitionTask(ctx, task.Payload.ID, validate.TaskDiscarded, f.ActorID, "no longer needed")
		if err != nil {
			t.Fatalf("active->discarded: %v", err)
		}
		if !strings.HasPrefix(task.Payload.Notes, "[CANCELLED] ") {
			t.Fatalf("expected notes to start with [CANCELLED], got %q", task.Payload.Notes)
		}
		if !strings.HasSuffix(task.Payload.Notes, "pre-existing note") {
			t.Fatalf("expected the prior note to be preserved, got %q", task.Payload.Notes)
		}
	})
}
