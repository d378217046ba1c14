package eventbus

// Enumerated event type names.
const (
	TypeTaskCreated         = "task.created"
	TypeTaskStatusChanged   = "task.status.changed"
	TypeCycleCreated        = "cycle.created"
	TypeCycleStatusChanged  = "cycle.status.changed"
	TypeExecutionCreated    = "execution.created"
	TypeFeedbackCreated     = "feedback.created"
	TypeChangelogCreated    = "changelog.created"
	TypeActorCreated        = "identity.actor.created"
	TypeActorRevoked        = "identity.actor.revoked"
	TypeAgentRegistered     = "identity.agent.registered"
	TypeSystemDailyTick     = "system.daily_tick"
)

// TaskCreated builds a task.created event.
func TaskCreated(source, taskID, actorID string) Event {
	return Event{Type: TypeTaskCreated, Source: source, Payload: map[string]any{
		"taskId": taskID, "actorId": actorID,
	}}
}

// TaskStatusChanged builds a task.status.changed event. reason may be empty.
func TaskStatusChanged(source, taskID, oldStatus, newStatus, actorID, reason string) Event {
	return Event{Type: TypeTaskStatusChanged, Source: source, Payload: map[string]any{
		"taskId": taskID, "oldStatus": oldStatus, "newStatus": newStatus,
		"actorId": actorID, "reason": reason,
	}}
}

// CycleCreated builds a cycle.created event.
func CycleCreated(source, cycleID, actorID string) Event {
	return Event{Type: TypeCycleCreated, Source: source, Payload: map[string]any{
		"cycleId": cycleID, "actorId": actorID,
	}}
}

// CycleStatusChanged builds a cycle.status.changed event. triggeredBy
// identifies the actor or system process that caused the transition (e.g.
// "system:cycle-propagation" for an automatic parent completion).
func CycleStatusChanged(source, cycleID, oldStatus, newStatus, triggeredBy string) Event {
	return Event{Type: TypeCycleStatusChanged, Source: source, Payload: map[string]any{
		"cycleId": cycleID, "oldStatus": oldStatus, "newStatus": newStatus, "triggeredBy": triggeredBy,
	}}
}

// ExecutionCreated builds an execution.created event.
func ExecutionCreated(source, executionID, taskID, actorID string, isFirstExecution bool) Event {
	return Event{Type: TypeExecutionCreated, Source: source, Payload: map[string]any{
		"executionId": executionID, "taskId": taskID, "actorId": actorID,
		"isFirstExecution": isFirstExecution,
	}}
}

// FeedbackCreated builds a feedback.created event.
func FeedbackCreated(source string, feedbackID, entityType, entityID, fbType, status, content, triggeredBy, assignee, resolvesFeedbackID string) Event {
	return Event{Type: TypeFeedbackCreated, Source: source, Payload: map[string]any{
		"feedbackId": feedbackID, "entityType": entityType, "entityId": entityID,
		"type": fbType, "status": status, "content": content, "triggeredBy": triggeredBy,
		"assignee": assignee, "resolvesFeedbackId": resolvesFeedbackID,
	}}
}

// ChangelogCreated builds a changelog.created event.
func ChangelogCreated(source, changelogID string, relatedTasks []string, title, version string) Event {
	return Event{Type: TypeChangelogCreated, Source: source, Payload: map[string]any{
		"changelogId": changelogID, "relatedTasks": relatedTasks, "title": title, "version": version,
	}}
}

// ActorCreated builds an identity.actor.created event.
func ActorCreated(source, actorID string, isBootstrap bool) Event {
	return Event{Type: TypeActorCreated, Source: source, Payload: map[string]any{
		"actorId": actorID, "isBootstrap": isBootstrap,
	}}
}

// ActorRevoked builds an identity.actor.revoked event.
func ActorRevoked(source, actorID, revokedBy, reason, supersededBy string) Event {
	return Event{Type: TypeActorRevoked, Source: source, Payload: map[string]any{
		"actorId": actorID, "revokedBy": revokedBy, "reason": reason, "supersededBy": supersededBy,
	}}
}

// AgentRegistered builds an identity.agent.registered event.
func AgentRegistered(source, agentID, engine string) Event {
	return Event{Type: TypeAgentRegistered, Source: source, Payload: map[string]any{
		"agentId": agentID, "engine": engine,
	}}
}

// SystemDailyTick builds a system.daily_tick event.
func SystemDailyTick(source, date string) Event {
	return Event{Type: TypeSystemDailyTick, Source: source, Payload: map[string]any{
		"date": date,
	}}
}
