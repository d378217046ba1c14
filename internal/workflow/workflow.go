// Package workflow implements the pluggable methodology rules engine: a
// pure lookup from (fromStatus, toStatus, context) to the rule that governs
// the transition, if any. The backlog adapter consults this before applying
// any task status change; it never embeds transition policy itself.
package workflow

import "github.com/gitgovernance/core/internal/validate"

// Context carries the facts a Rule's Guard may need beyond the two
// statuses themselves — e.g. whether the task has open blocking feedback.
type Context struct {
	HasOpenBlockingFeedback bool
	HasAnyExecution         bool
	ActorRoles              []string
}

// Rule gates one (from, to) transition: RequiredRole, if non-empty, is the
// role an actor must hold to apply it; Guard, if non-nil, is an additional
// predicate over Context (e.g. "no open blocking feedback").
type Rule struct {
	From         validate.TaskStatus
	To           validate.TaskStatus
	RequiredRole string
	Guard        func(Context) bool
}

type transitionKey struct {
	from validate.TaskStatus
	to   validate.TaskStatus
}

// Methodology is one named set of transition rules. The default
// methodology below implements the standard task state machine; a project
// may register an alternative set without the backlog adapter changing
// at all.
type Methodology struct {
	Name  string
	rules map[transitionKey]Rule
}

// New creates an empty Methodology named name.
func New(name string) *Methodology {
	return &Methodology{Name: name, rules: make(map[transitionKey]Rule)}
}

// AddRule registers rule, keyed by its From/To pair. A later AddRule call
// for the same pair replaces the earlier rule.
func (m *Methodology) AddRule(rule Rule) {
	m.rules[transitionKey{from: rule.From, to: rule.To}] = rule
}

// GetTransitionRule returns the rule governing from->to, or nil if no rule
// is registered (the backlog adapter treats an unregistered transition as
// forbidden).
func (m *Methodology) GetTransitionRule(from, to validate.TaskStatus) *Rule {
	rule, ok := m.rules[transitionKey{from: from, to: to}]
	if !ok {
		return nil
	}
	return &rule
}

// ValidateTransition reports whether from->to is permitted under ctx: a
// registered rule must exist, its Guard (if any) must pass, and if
// RequiredRole is set ctx.ActorRoles must contain it.
func (m *Methodology) ValidateTransition(from, to validate.TaskStatus, ctx Context) bool {
	rule := m.GetTransitionRule(from, to)
	if rule == nil {
		return false
	}
	if rule.Guard != nil && !rule.Guard(ctx) {
		return false
	}
	if rule.RequiredRole != "" && !hasRole(ctx.ActorRoles, rule.RequiredRole) {
		return false
	}
	return true
}

// GetAvailableTransitions lists every status reachable from "from" under
// ctx, in no particular order.
func (m *Methodology) GetAvailableTransitions(from validate.TaskStatus, ctx Context) []validate.TaskStatus {
	var out []validate.TaskStatus
	for key, rule := range m.rules {
		if key.from != from {
			continue
		}
		if rule.Guard != nil && !rule.Guard(ctx) {
			continue
		}
		if rule.RequiredRole != "" && !hasRole(ctx.ActorRoles, rule.RequiredRole) {
			continue
		}
		out = append(out, key.to)
	}
	return out
}

func hasRole(roles []string, required string) bool {
	for _, r := range roles {
		if r == required {
			return true
		}
	}
	return false
}

// Default builds the standard task-state-machine methodology: the 8-state
// task lifecycle with its documented transitions. No default rule sets
// RequiredRole, so the pause/resume/archive transitions the event bus
// triggers pass the same rules as a direct actor call.
func Default() *Methodology {
	m := New("default")

	noBlockingFeedback := func(ctx Context) bool { return !ctx.HasOpenBlockingFeedback }

	m.AddRule(Rule{From: validate.TaskDraft, To: validate.TaskReview})
	m.AddRule(Rule{From: validate.TaskReview, To: validate.TaskDraft})
	m.AddRule(Rule{From: validate.TaskReview, To: validate.TaskReady, Guard: noBlockingFeedback})
	m.AddRule(Rule{From: validate.TaskReady, To: validate.TaskActive})
	m.AddRule(Rule{From: validate.TaskActive, To: validate.TaskPaused})
	m.AddRule(Rule{From: validate.TaskPaused, To: validate.TaskActive, Guard: noBlockingFeedback})
	m.AddRule(Rule{From: validate.TaskActive, To: validate.TaskDone})
	m.AddRule(Rule{From: validate.TaskDone, To: validate.TaskArchived})
	m.AddRule(Rule{From: validate.TaskDraft, To: validate.TaskDiscarded})
	m.AddRule(Rule{From: validate.TaskReview, To: validate.TaskDiscarded})
	m.AddRule(Rule{From: validate.TaskReady, To: validate.TaskDiscarded})
	m.AddRule(Rule{From: validate.TaskActive, To: validate.TaskDiscarded})
	m.AddRule(Rule{From: validate.TaskPaused, To: validate.TaskDiscarded})

	return m
}
