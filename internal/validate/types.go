package validate

// ActorStatus enumerates actor/agent lifecycle states.
type ActorStatus string

const (
	ActorActive  ActorStatus = "active"
	ActorRevoked ActorStatus = "revoked"
)

// ActorType distinguishes human-operated from agent-operated identities.
type ActorType string

const (
	ActorHuman ActorType = "human"
	ActorAgent ActorType = "agent"
)

// ActorPayload is the payload of an ActorRecord.
type ActorPayload struct {
	ID           string      `json:"id"`
	Type         ActorType   `json:"type"`
	DisplayName  string      `json:"displayName"`
	PublicKey    string      `json:"publicKey"`
	Roles        []string    `json:"roles"`
	Status       ActorStatus `json:"status"`
	SupersededBy string      `json:"supersededBy,omitempty"`
}

// AgentPayload is the payload of an AgentRecord. The matching ActorRecord
// (same id, Type=ActorAgent) must already exist.
type AgentPayload struct {
	ID                       string         `json:"id"`
	Engine                   string         `json:"engine"`
	Status                   ActorStatus    `json:"status"`
	Triggers                 []string       `json:"triggers,omitempty"`
	KnowledgeDependencies    []string       `json:"knowledge_dependencies,omitempty"`
	PromptEngineRequirements map[string]any `json:"prompt_engine_requirements,omitempty"`
}

// TaskStatus enumerates the task state machine's states.
type TaskStatus string

const (
	TaskDraft     TaskStatus = "draft"
	TaskReview    TaskStatus = "review"
	TaskReady     TaskStatus = "ready"
	TaskActive    TaskStatus = "active"
	TaskPaused    TaskStatus = "paused"
	TaskDone      TaskStatus = "done"
	TaskArchived  TaskStatus = "archived"
	TaskDiscarded TaskStatus = "discarded"
)

// TaskPayload is the payload of a TaskRecord.
type TaskPayload struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Status          TaskStatus     `json:"status"`
	Priority        string         `json:"priority"`
	Description     string         `json:"description"`
	Tags            []string       `json:"tags,omitempty"`
	CycleIDs        []string       `json:"cycleIds,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	EstimatedEffort string         `json:"estimatedEffort,omitempty"`
	ActualEffort    string         `json:"actualEffort,omitempty"`
}

// CycleStatus enumerates cycle lifecycle states.
type CycleStatus string

const (
	CycleStatusPlanning CycleStatus = "planning"
	CycleStatusActive   CycleStatus = "active"
	CycleStatusComplete CycleStatus = "completed"
	CycleStatusArchived CycleStatus = "archived"
)

// CyclePayload is the payload of a CycleRecord.
type CyclePayload struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Status        CycleStatus    `json:"status"`
	TaskIDs       []string       `json:"taskIds,omitempty"`
	ChildCycleIDs []string       `json:"childCycleIds,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	StartDate     string         `json:"startDate,omitempty"`
	EndDate       string         `json:"endDate,omitempty"`
}

// FeedbackEntityType enumerates the kinds of entity feedback may attach to.
type FeedbackEntityType string

const (
	FeedbackOnTask      FeedbackEntityType = "task"
	FeedbackOnCycle     FeedbackEntityType = "cycle"
	FeedbackOnExecution FeedbackEntityType = "execution"
	FeedbackOnChangelog FeedbackEntityType = "changelog"
	FeedbackOnFeedback  FeedbackEntityType = "feedback"
)

// FeedbackType enumerates feedback intents.
type FeedbackType string

const (
	FeedbackBlocking      FeedbackType = "blocking"
	FeedbackSuggestion    FeedbackType = "suggestion"
	FeedbackQuestion      FeedbackType = "question"
	FeedbackApproval      FeedbackType = "approval"
	FeedbackClarification FeedbackType = "clarification"
	FeedbackAssignment    FeedbackType = "assignment"
)

// FeedbackStatus enumerates feedback lifecycle states.
type FeedbackStatus string

const (
	FeedbackOpen         FeedbackStatus = "open"
	FeedbackAcknowledged FeedbackStatus = "acknowledged"
	FeedbackResolved     FeedbackStatus = "resolved"
	FeedbackWontfix      FeedbackStatus = "wontfix"
)

// FeedbackPayload is the payload of a FeedbackRecord. Feedback records are
// immutable; "resolving" one creates a new record pointing back via
// ResolvesFeedbackID.
type FeedbackPayload struct {
	ID                 string             `json:"id"`
	EntityType         FeedbackEntityType `json:"entityType"`
	EntityID           string             `json:"entityId"`
	Type               FeedbackType       `json:"type"`
	Status             FeedbackStatus     `json:"status"`
	Content            string             `json:"content"`
	Assignee           string             `json:"assignee,omitempty"`
	ResolvesFeedbackID string             `json:"resolvesFeedbackId,omitempty"`
	Priority           string             `json:"priority,omitempty"`
	Tags               []string           `json:"tags,omitempty"`
	Severity           string             `json:"severity,omitempty"`
}

// ExecutionPayload is the payload of an ExecutionRecord. Append-only, never
// updated.
type ExecutionPayload struct {
	ID         string   `json:"id"`
	TaskID     string   `json:"taskId"`
	Result     string   `json:"result"`
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Notes      string   `json:"notes,omitempty"`
	References []string `json:"references,omitempty"`
}

// ChangelogPayload is the payload of a ChangelogRecord. Append-only.
type ChangelogPayload struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	RelatedTasks      []string       `json:"relatedTasks"`
	CompletedAt       string         `json:"completedAt"`
	RelatedCycles     []string       `json:"relatedCycles,omitempty"`
	RelatedExecutions []string       `json:"relatedExecutions,omitempty"`
	RelatedFeedback   []string       `json:"relatedFeedback,omitempty"`
	Version           string         `json:"version,omitempty"`
	Tags              []string       `json:"tags,omitempty"`
	Commits           []string       `json:"commits,omitempty"`
	Files             []string       `json:"files,omitempty"`
	Notes             string         `json:"notes,omitempty"`
}
