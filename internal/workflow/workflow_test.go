package workflow

import (
	"testing"

	"github.com/gitgovernance/core/internal/validate"
)

func TestMethodology_AddRuleAndLookup(t *testing.T) {
	t.Run("registered pair is found", func(t *testing.T) {
		m := New("custom")
		m.AddRule(Rule{From: validate.TaskDraft, To: validate.TaskReview})

		rule := m.GetTransitionRule(validate.TaskDraft, validate.TaskReview)
		if rule == nil {
			t.Fatal("expected rule, got nil")
		}
	})

	t.Run("unregistered pair returns nil", func(t *testing.T) {
		m := New("custom")
		if rule := m.GetTransitionRule(validate.TaskDraft, validate.TaskDone); rule != nil {
			t.Errorf("expected nil, got %+v", rule)
		}
	})

	t.Run("later AddRule replaces earlier rule for same pair", func(t *testing.T) {
		m := New("custom")
		m.AddRule(Rule{From: validate.TaskDraft, To: validate.TaskReview, RequiredRole: "owner"})
		m.AddRule(Rule{From: validate.TaskDraft, To: validate.TaskReview})

		rule := m.GetTransitionRule(validate.TaskDraft, validate.TaskReview)
		if rule.RequiredRole != "" {
			t.Errorf("expected the replacement rule with no required role, got %q", rule.RequiredRole)
		}
	})
}

func TestMethodology_ValidateTransition(t *testing.T) {
	t.Run("guard blocks when it fails", func(t *testing.T) {
		m := Default()
		ctx := Context{HasOpenBlockingFeedback: true}
		if m.ValidateTransition(validate.TaskReview, validate.TaskReady, ctx) {
			t.Error("expected review->ready to be blocked by open blocking feedback")
		}
	})

	t.Run("guard allows when it passes", func(t *testing.T) {
		m := Default()
		ctx := Context{HasOpenBlockingFeedback: false}
		if !m.ValidateTransition(validate.TaskReview, validate.TaskReady, ctx) {
			t.Error("expected review->ready to be allowed with no blocking feedback")
		}
	})

	t.Run("unregistered transition is rejected", func(t *testing.T) {
		m := Default()
		if m.ValidateTransition(validate.TaskDone, validate.TaskActive, Context{}) {
			t.Error("expected done->active to be rejected (no such rule)")
		}
	})

	t.Run("required role gates the transition", func(t *testing.T) {
		m := New("role-gated")
		m.AddRule(Rule{From: validate.TaskDraft, To: validate.TaskReview, RequiredRole: "owner"})

		if m.ValidateTransition(validate.TaskDraft, validate.TaskReview, Context{ActorRoles: []string{"member"}}) {
			t.Error("expected transition to be rejected without the required role")
		}
		if !m.ValidateTransition(validate.TaskDraft, validate.TaskReview, Context{ActorRoles: []string{"owner"}}) {
			t.Error("expected transition to be allowed with the required role")
		}
	})
}

func TestMethodology_GetAvailableTransitions(t *testing.T) {
	t.Run("lists every reachable status from active", func(t *testing.T) {
		m := Default()
		got := m.GetAvailableTransitions(validate.TaskActive, Context{})

		want := map[validate.TaskStatus]bool{
			validate.TaskPaused:    true,
			validate.TaskDone:      true,
			validate.TaskDiscarded: true,
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d transitions, got %d (%v)", len(want), len(got), got)
		}
		for _, status := range got {
			if !want[status] {
				t.Errorf("unexpected transition to %q", status)
			}
		}
	})

	t.Run("excludes guarded transitions that fail", func(t *testing.T) {
		m := Default()
		got := m.GetAvailableTransitions(validate.TaskPaused, Context{HasOpenBlockingFeedback: true})
		for _, status := range got {
			if status == validate.TaskActive {
				t.Error("expected paused->active to be excluded while blocking feedback is open")
			}
		}
	})
}

func TestDefault_FullLifecycleIsReachable(t *testing.T) {
	m := Default()
	ctx := Context{}

	path := []struct{ from, to validate.TaskStatus }{
		{validate.TaskDraft, validate.TaskReview},
		{validate.TaskReview, validate.TaskReady},
		{validate.TaskReady, validate.TaskActive},
		{validate.TaskActive, validate.TaskDone},
		{validate.TaskDone, validate.TaskArchived},
	}
	for _, step := range path {
		if !m.ValidateTransition(step.from, step.to, ctx) {
			t.Errorf("expected %s->%s to be valid", step.from, step.to)
		}
	}
}
