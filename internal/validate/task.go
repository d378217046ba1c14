package validate

import "time"

// validTaskStatuses is the task state machine's full state domain.
var validTaskStatuses = map[TaskStatus]bool{
	TaskDraft: true, TaskReview: true, TaskReady: true, TaskActive: true,
	TaskPaused: true, TaskDone: true, TaskArchived: true, TaskDiscarded: true,
}

// CreateTaskPayload fills defaults (status=draft, generated id) and
// validates the result.
func CreateTaskPayload(partial TaskPayload, now time.Time) (TaskPayload, error) {
	p := partial
	if p.Status == "" {
		p.Status = TaskDraft
	}
	if p.Priority == "" {
		p.Priority = "medium"
	}
	if p.ID == "" {
		id, err := GenerateID("task", p.Title, now)
		if err != nil {
			return p, err
		}
		p.ID = id
	}
	if res := ValidateTaskDetailed(p); !res.IsValid {
		return p, res.AsError("task")
	}
	return p, nil
}

// ValidateTaskDetailed re-checks the full TaskPayload invariant set.
func ValidateTaskDetailed(p TaskPayload) Result {
	var errs []FieldError

	if p.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "id is required"})
	} else if !IsValidRecordID(p.ID) {
		errs = append(errs, FieldError{Field: "id", Message: "id does not match record grammar", Value: p.ID})
	}
	if p.Title == "" {
		errs = append(errs, FieldError{Field: "title", Message: "title is required"})
	}
	if !validTaskStatuses[p.Status] {
		errs = append(errs, FieldError{Field: "status", Message: "unknown task status", Value: p.Status})
	}

	if len(errs) == 0 {
		return ok()
	}
	return fail(errs...)
}
