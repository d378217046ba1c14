package validate

import "time"

// CreateExecutionPayload fills defaults (generated id) and validates the
// result. result must already be present: callers write it into partial.
func CreateExecutionPayload(partial ExecutionPayload, now time.Time) (ExecutionPayload, error) {
	p := partial
	if p.Type == "" {
		p.Type = "progress"
	}
	if p.ID == "" {
		id, err := GenerateID("execution", p.Title, now)
		if err != nil {
			return p, err
		}
		p.ID = id
	}
	if res := ValidateExecutionDetailed(p); !res.IsValid {
		return p, res.AsError("execution")
	}
	return p, nil
}

// ValidateExecutionDetailed re-checks the full ExecutionPayload invariant
// set: result must be at least 10 characters, taskId is required.
func ValidateExecutionDetailed(p ExecutionPayload) Result {
	var errs []FieldError

	if p.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "id is required"})
	} else if !IsValidRecordID(p.ID) {
		errs = append(errs, FieldError{Field: "id", Message: "id does not match record grammar", Value: p.ID})
	}
	if p.TaskID == "" {
		errs = append(errs, FieldError{Field: "taskId", Message: "taskId is required"})
	}
	if len(p.Result) < 10 {
		errs = append(errs, FieldError{Field: "result", Message: "result must be at least 10 characters", Value: p.Result})
	}
	if p.Title == "" {
		errs = append(errs, FieldError{Field: "title", Message: "title is required"})
	}

	if len(errs) == 0 {
		return ok()
	}
	return fail(errs...)
}
