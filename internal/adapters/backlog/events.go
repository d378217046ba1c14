package backlog

import (
	"context"
	"log"

	"github.com/gitgovernance/core/internal/eventbus"
	"github.com/gitgovernance/core/internal/validate"
)

// onFeedbackCreated implements both pause-on-blocking-feedback (a new
// "blocking" feedback record against an active task pauses it) and
// resume-on-last-blocking-resolved (a feedback record that closes the last
// open blocking item against a paused task resumes it).
func (a *Adapter) onFeedbackCreated(e eventbus.Event) {
	entityType, _ := e.Payload["entityType"].(string)
	if entityType != string(validate.FeedbackOnTask) {
		return
	}
	taskID, _ := e.Payload["entityId"].(string)
	fbType, _ := e.Payload["type"].(string)
	triggeredBy, _ := e.Payload["triggeredBy"].(string)
	ctx := context.Background()

	task, err := a.GetTask(ctx, taskID)
	if err != nil {
		return
	}

	if fbType == string(validate.FeedbackBlocking) && task.Payload.Status == validate.TaskActive {
		if _, err := a.transitionTaskRecord(ctx, task, validate.TaskPaused, triggeredBy, "blocking feedback created"); err != nil {
			log.Printf("backlog: pause-on-blocking-feedback failed for %s: %v", taskID, err)
		}
		return
	}

	if task.Payload.Status == validate.TaskPaused {
		hasBlocking, err := a.Feedback.HasOpenBlocking(ctx, string(validate.FeedbackOnTask), taskID)
		if err != nil {
			log.Printf("backlog: resume check failed for %s: %v", taskID, err)
			return
		}
		if !hasBlocking {
			if _, err := a.transitionTaskRecord(ctx, task, validate.TaskActive, triggeredBy, "last blocking feedback resolved"); err != nil {
				log.Printf("backlog: resume-on-resolution failed for %s: %v", taskID, err)
			}
		}
	}
}

// onExecutionCreated implements first-execution-activates-ready-task: the
// first ExecutionRecord logged against a ready task activates it.
func (a *Adapter) onExecutionCreated(e eventbus.Event) {
	isFirst, _ := e.Payload["isFirstExecution"].(bool)
	if !isFirst {
		return
	}
	taskID, _ := e.Payload["taskId"].(string)
	actorID, _ := e.Payload["actorId"].(string)
	ctx := context.Background()

	task, err := a.GetTask(ctx, taskID)
	if err != nil {
		return
	}
	if task.Payload.Status != validate.TaskReady {
		return
	}
	if _, err := a.transitionTaskRecord(ctx, task, validate.TaskActive, actorID, "first execution logged"); err != nil {
		log.Printf("backlog: first-execution-activation failed for %s: %v", taskID, err)
	}
}

// onChangelogCreated implements changelog-archives-done-task: every task
// named in a new ChangelogRecord's relatedTasks, if still in status done,
// moves to archived, signed by the task's original author.
func (a *Adapter) onChangelogCreated(e eventbus.Event) {
	relatedTasks, _ := e.Payload["relatedTasks"].([]string)
	ctx := context.Background()

	for _, taskID := range relatedTasks {
		task, err := a.GetTask(ctx, taskID)
		if err != nil {
			continue
		}
		if task.Payload.Status != validate.TaskDone {
			continue
		}
		if _, err := a.transitionTaskRecord(ctx, task, validate.TaskArchived, task.Author().KeyID, "archived by changelog"); err != nil {
			log.Printf("backlog: changelog-triggered archive failed for %s: %v", taskID, err)
		}
	}
}

// onCycleStatusChanged implements child-cycle-completion propagation: when
// a cycle reaches "completed" and it was the last of its parent's children
// still incomplete, the parent also transitions to "completed", signed by
// the parent cycle's original author.
func (a *Adapter) onCycleStatusChanged(e eventbus.Event) {
	newStatus, _ := e.Payload["newStatus"].(string)
	if newStatus != string(validate.CycleStatusComplete) {
		return
	}
	cycleID, _ := e.Payload["cycleId"].(string)
	ctx := context.Background()

	ids, err := a.Cycles.List(ctx)
	if err != nil {
		return
	}
	for _, parentID := range ids {
		parent, err := a.GetCycle(ctx, parentID)
		if err != nil {
			continue
		}
		if !contains(parent.Payload.ChildCycleIDs, cycleID) {
			continue
		}
		if parent.Payload.Status == validate.CycleStatusComplete || validate.IsCycleTerminal(parent.Payload.Status) {
			continue
		}
		allDone := true
		for _, childID := range parent.Payload.ChildCycleIDs {
			child, err := a.GetCycle(ctx, childID)
			if err != nil || (child.Payload.Status != validate.CycleStatusComplete && !validate.IsCycleTerminal(child.Payload.Status)) {
				allDone = false
				break
			}
		}
		if allDone {
			if _, err := a.TransitionCycle(ctx, parentID, validate.CycleStatusComplete, parent.Author().KeyID, "system:cycle-propagation"); err != nil {
				log.Printf("backlog: cycle completion propagation failed for parent %s: %v", parentID, err)
			}
		}
	}
}

// onSystemDailyTick is a documented no-op: the daily tick exists so future
// methodologies can add time-based transitions (e.g. staleness warnings)
// without changing the event contract; the default methodology has none.
func (a *Adapter) onSystemDailyTick(e eventbus.Event) {}
