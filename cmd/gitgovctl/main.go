// Command gitgovctl exercises the kernel end to end: it bootstraps a
// project, walks a task through its lifecycle, and prints the resulting
// record ids. It exists as a thin demonstration harness, not a full CLI —
// real callers should wire the adapter packages directly.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gitgovernance/core/internal/adapters/backlog"
	"github.com/gitgovernance/core/internal/adapters/changelog"
	"github.com/gitgovernance/core/internal/adapters/execution"
	"github.com/gitgovernance/core/internal/adapters/feedback"
	"github.com/gitgovernance/core/internal/adapters/project"
	"github.com/gitgovernance/core/internal/eventbus"
	"github.com/gitgovernance/core/internal/identity"
	"github.com/gitgovernance/core/internal/metrics"
	"github.com/gitgovernance/core/internal/record"
	"github.com/gitgovernance/core/internal/session"
	"github.com/gitgovernance/core/internal/validate"
	"github.com/gitgovernance/core/internal/workflow"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	root, err := os.MkdirTemp("", "gitgov-demo-*")
	if err != nil {
		log.Fatalf("gitgovctl: create project dir: %v", err)
	}
	defer os.RemoveAll(root)

	ctx := context.Background()
	bus := eventbus.New()
	bus.Metrics = metrics.New(prometheus.NewRegistry())

	actorsDir := filepath.Join(root, "actors")
	agentsDir := filepath.Join(root, "agents")
	tasksDir := filepath.Join(root, "tasks")
	cyclesDir := filepath.Join(root, "cycles")
	feedbackDir := filepath.Join(root, "feedback")
	executionsDir := filepath.Join(root, "executions")
	changelogsDir := filepath.Join(root, "changelogs")
	keysDir := filepath.Join(root, "keys")

	actorStore, err := record.NewFileStore[validate.ActorPayload](actorsDir)
	if err != nil {
		log.Fatalf("gitgovctl: actor store: %v", err)
	}
	agentStore, err := record.NewFileStore[validate.AgentPayload](agentsDir)
	if err != nil {
		log.Fatalf("gitgovctl: agent store: %v", err)
	}
	taskStore, err := record.NewFileStore[validate.TaskPayload](tasksDir)
	if err != nil {
		log.Fatalf("gitgovctl: task store: %v", err)
	}
	cycleStore, err := record.NewFileStore[validate.CyclePayload](cyclesDir)
	if err != nil {
		log.Fatalf("gitgovctl: cycle store: %v", err)
	}
	feedbackStore, err := record.NewFileStore[validate.FeedbackPayload](feedbackDir)
	if err != nil {
		log.Fatalf("gitgovctl: feedback store: %v", err)
	}
	executionStore, err := record.NewFileStore[validate.ExecutionPayload](executionsDir)
	if err != nil {
		log.Fatalf("gitgovctl: execution store: %v", err)
	}
	changelogStore, err := record.NewFileStore[validate.ChangelogPayload](changelogsDir)
	if err != nil {
		log.Fatalf("gitgovctl: changelog store: %v", err)
	}

	keys, err := identity.NewKeystore(keysDir)
	if err != nil {
		log.Fatalf("gitgovctl: keystore: %v", err)
	}
	sessions := session.NewStore(filepath.Join(root, "session.json"))

	ids := identity.New(actorStore, agentStore, keys, bus, identity.WithSessions(sessions), identity.WithActorsDir(actorsDir))

	fb := feedback.New(feedbackStore, ids, ids.Resolver(), bus)
	exec := execution.New(executionStore, ids, ids.Resolver(), bus)

	bl := backlog.New(taskStore, cycleStore, ids, ids.Resolver(), bus, workflow.Default(), fb)
	bl.Sessions = sessions
	bl.Wire()

	cl := changelog.New(changelogStore, ids, ids.Resolver(), bus, bl)

	proj := project.New(root, bl, ids, sessions, nil)
	doc, err := proj.InitializeProject(ctx, project.InitOptions{
		ProjectName:    "demo",
		BootstrapActor: "Ada Lovelace",
		SeedRootCycle:  true,
		RootCycleTitle: "Q1 Roadmap",
	})
	if err != nil {
		log.Fatalf("gitgovctl: initialize project: %v", err)
	}
	fmt.Printf("project %q bootstrapped, root cycle %s\n", doc.ProjectName, doc.RootCycle)

	owner, err := ids.GetCurrentActor(ctx, "human:ada-lovelace")
	if err != nil {
		log.Fatalf("gitgovctl: get bootstrap actor: %v", err)
	}

	task, err := bl.CreateTask(ctx, validate.TaskPayload{
		Title:       "Wire up the release pipeline",
		Description: "Automate the release checklist end to end.",
		Priority:    "high",
	}, owner.Payload.ID)
	if err != nil {
		log.Fatalf("gitgovctl: create task: %v", err)
	}
	fmt.Printf("created task %s\n", task.Payload.ID)

	if err := bl.AddTaskToCycle(ctx, doc.RootCycle, task.Payload.ID, owner.Payload.ID); err != nil {
		log.Fatalf("gitgovctl: add task to cycle: %v", err)
	}

	task, err = bl.TransitionTask(ctx, task.Payload.ID, validate.TaskReview, owner.Payload.ID, "ready for review")
	if err != nil {
		log.Fatalf("gitgovctl: submit for review: %v", err)
	}
	task, err = bl.TransitionTask(ctx, task.Payload.ID, validate.TaskReady, owner.Payload.ID, "approved")
	if err != nil {
		log.Fatalf("gitgovctl: approve: %v", err)
	}

	firstExec, err := exec.HasAnyExecution(ctx, task.Payload.ID)
	if err != nil {
		log.Fatalf("gitgovctl: check prior executions: %v", err)
	}
	if _, err := exec.CreateExecution(ctx, validate.ExecutionPayload{
		TaskID: task.Payload.ID,
		Title:  "Kickoff",
		Result: "Drafted the pipeline stages and opened the tracking issue.",
	}, owner.Payload.ID, !firstExec); err != nil {
		log.Fatalf("gitgovctl: log execution: %v", err)
	}

	task, err = bl.GetTask(ctx, task.Payload.ID)
	if err != nil {
		log.Fatalf("gitgovctl: reload task: %v", err)
	}
	fmt.Printf("task %s is now %s (activated by its first execution)\n", task.Payload.ID, task.Payload.Status)

	task, err = bl.TransitionTask(ctx, task.Payload.ID, validate.TaskDone, owner.Payload.ID, "pipeline shipped")
	if err != nil {
		log.Fatalf("gitgovctl: complete task: %v", err)
	}

	cl2, err := cl.CreateChangelog(ctx, validate.ChangelogPayload{
		Title:        "Release pipeline automation shipped",
		Description:  "Automated the release checklist end to end for the first time.",
		RelatedTasks: []string{task.Payload.ID},
	}, owner.Payload.ID)
	if err != nil {
		log.Fatalf("gitgovctl: create changelog: %v", err)
	}
	fmt.Printf("created changelog %s\n", cl2.Payload.ID)

	task, err = bl.GetTask(ctx, task.Payload.ID)
	if err != nil {
		log.Fatalf("gitgovctl: reload task: %v", err)
	}
	fmt.Printf("task %s is now %s (archived by its changelog)\n", task.Payload.ID, task.Payload.Status)
}
