// Package project implements the project adapter: one-shot project
// bootstrap (initializeProject) and the small set of project-wide
// operations layered on top of the config and session stores.
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gitgovernance/core/internal/adapters/backlog"
	"github.com/gitgovernance/core/internal/config"
	"github.com/gitgovernance/core/internal/identity"
	"github.com/gitgovernance/core/internal/session"
	"github.com/gitgovernance/core/internal/validate"
)

// Initializer validates the host environment before bootstrap begins and
// performs any VCS-specific setup (e.g. writing a pre-commit hook) after it
// succeeds. Concrete implementations live outside this package: the
// project adapter only calls the interface, never a specific VCS.
type Initializer interface {
	ValidateEnvironment(root string) error
	InstallHook(root string) error
	RemoveHook(root string) error
}

// NoopInitializer satisfies Initializer by doing nothing, for projects that
// don't want a VCS hook installed.
type NoopInitializer struct{}

func (NoopInitializer) ValidateEnvironment(root string) error { return nil }
func (NoopInitializer) InstallHook(root string) error         { return nil }
func (NoopInitializer) RemoveHook(root string) error          { return nil }

// Adapter bootstraps and describes one GitGovernance project rooted at
// Root (typically "<repo>/.gitgov").
type Adapter struct {
	Root        string
	Backlog     *backlog.Adapter
	Identity    *identity.Adapter
	Sessions    *session.Store
	Initializer Initializer
	Now         func() time.Time
}

// New creates a project Adapter rooted at root.
func New(root string, bl *backlog.Adapter, ids *identity.Adapter, sessions *session.Store, init Initializer) *Adapter {
	if init == nil {
		init = NoopInitializer{}
	}
	return &Adapter{Root: root, Backlog: bl, Identity: ids, Sessions: sessions, Initializer: init, Now: time.Now}
}

// InitOptions configures InitializeProject.
type InitOptions struct {
	ProjectName    string
	BootstrapActor string // display name for the project's first human actor
	SeedRootCycle  bool
	RootCycleTitle string
}

// InitializeProject runs the full bootstrap pipeline: validate the host
// environment, create the project's directory tree, create the bootstrap
// actor, optionally seed a root cycle, write the project config, initialize
// the session document, and install the hook. Any failure triggers rollback of
// whatever step had already completed; InitializeProject never leaves a
// project half-initialized on disk.
func (a *Adapter) InitializeProject(ctx context.Context, opts InitOptions) (doc config.Document, err error) {
	if err := a.Initializer.ValidateEnvironment(a.Root); err != nil {
		return doc, fmt.Errorf("project: environment validation failed: %w", err)
	}

	createdDirs := false
	hookInstalled := false
	var bootstrapActorID string
	var rootCycleID string

	defer func() {
		if err != nil {
			a.rollback(ctx, createdDirs, hookInstalled, bootstrapActorID, rootCycleID)
		}
	}()

	dirs := []string{
		filepath.Join(a.Root, "tasks"),
		filepath.Join(a.Root, "cycles"),
		filepath.Join(a.Root, "feedback"),
		filepath.Join(a.Root, "executions"),
		filepath.Join(a.Root, "changelogs"),
		filepath.Join(a.Root, "actors"),
		filepath.Join(a.Root, "agents"),
		filepath.Join(a.Root, "keys"),
	}
	for _, dir := range dirs {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return doc, fmt.Errorf("project: create %s: %w", dir, err)
		}
	}
	createdDirs = true

	actorRec, actorErr := a.Identity.CreateActor(ctx, opts.BootstrapActor, validate.ActorHuman, []string{"owner"}, true)
	if actorErr != nil {
		err = fmt.Errorf("project: bootstrap actor: %w", actorErr)
		return doc, err
	}
	bootstrapActorID = actorRec.Payload.ID

	if opts.SeedRootCycle {
		title := opts.RootCycleTitle
		if title == "" {
			title = opts.ProjectName
		}
		cycleRec, cycleErr := a.Backlog.CreateCycle(ctx, validate.CyclePayload{Title: title}, bootstrapActorID)
		if cycleErr != nil {
			err = fmt.Errorf("project: root cycle: %w", cycleErr)
			return doc, err
		}
		rootCycleID = cycleRec.Payload.ID
	}

	doc = config.Document{
		ProtocolVersion: config.ProtocolVersion,
		ProjectID:       validate.Slugify(opts.ProjectName),
		ProjectName:     opts.ProjectName,
		RootCycle:       rootCycleID,
		State: config.State{
			Branch: "main",
			Defaults: config.Defaults{
				TaskPriority: "medium",
				ActorRole:    "owner",
			},
		},
	}
	if err = config.Save(filepath.Join(a.Root, "config.json"), doc); err != nil {
		return doc, fmt.Errorf("project: write config: %w", err)
	}

	sessionStore := a.Sessions
	if sessionStore == nil {
		sessionStore = session.NewStore(filepath.Join(a.Root, "session.json"))
	}
	if err = sessionStore.SetLastSession(bootstrapActorID, a.Now()); err != nil {
		return doc, fmt.Errorf("project: write session: %w", err)
	}

	if err = a.Initializer.InstallHook(a.Root); err != nil {
		return doc, fmt.Errorf("project: install hook: %w", err)
	}
	hookInstalled = true

	return doc, nil
}

// rollback undoes whatever InitializeProject steps had already succeeded,
// best-effort: a rollback failure is logged nowhere but also never
// shadows the original error, since it runs after err has already been set.
func (a *Adapter) rollback(ctx context.Context, createdDirs, hookInstalled bool, bootstrapActorID, rootCycleID string) {
	if hookInstalled {
		_ = a.Initializer.RemoveHook(a.Root)
	}
	if rootCycleID != "" {
		_ = a.Backlog.Cycles.Delete(ctx, rootCycleID)
	}
	if bootstrapActorID != "" {
		_ = a.Identity.Actors.Delete(ctx, bootstrapActorID)
	}
	if createdDirs {
		_ = os.RemoveAll(a.Root)
	}
}

// UpdateProjectConfig is not implemented: the config document's mutable
// surface (branch, sync, defaults) has no validated schema of permitted
// partial updates yet.
func (a *Adapter) UpdateProjectConfig(ctx context.Context, mutate func(*config.State)) error {
	return &NotImplementedError{Op: "updateProjectConfig"}
}

// GenerateProjectReport is not implemented.
func (a *Adapter) GenerateProjectReport(ctx context.Context) (string, error) {
	return "", &NotImplementedError{Op: "generateProjectReport"}
}

// NotImplementedError marks an operation that is intentionally left
// unimplemented.
type NotImplementedError struct {
	Op string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("NotImplementedError: %s is not implemented", e.Op)
}
