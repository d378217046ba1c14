package validate

import (
	"fmt"
	"time"
)

// CreateChangelogPayload fills defaults (deterministic id from title slug
// and completedAt) and validates the result. Task/cycle existence checks
// are the changelog adapter's responsibility (they require store access
// this package does not have).
func CreateChangelogPayload(partial ChangelogPayload, now time.Time) (ChangelogPayload, error) {
	p := partial
	if p.CompletedAt == "" {
		p.CompletedAt = now.UTC().Format(time.RFC3339)
	}
	if p.ID == "" {
		completedAt, err := time.Parse(time.RFC3339, p.CompletedAt)
		if err != nil {
			completedAt = now
		}
		slug := Slugify(p.Title)
		p.ID = fmt.Sprintf("%d-changelog-%s", completedAt.Unix(), slug)
	}
	if res := ValidateChangelogDetailed(p); !res.IsValid {
		return p, res.AsError("changelog")
	}
	return p, nil
}

// ValidateChangelogDetailed re-checks the full ChangelogPayload invariant
// set: title >= 10 chars, description >= 20 chars, relatedTasks non-empty.
// Existence of each referenced task/cycle is checked by the adapter.
func ValidateChangelogDetailed(p ChangelogPayload) Result {
	var errs []FieldError

	if p.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "id is required"})
	} else if !IsValidRecordID(p.ID) {
		errs = append(errs, FieldError{Field: "id", Message: "id does not match record grammar", Value: p.ID})
	}
	if len(p.Title) < 10 {
		errs = append(errs, FieldError{Field: "title", Message: "title must be at least 10 characters", Value: p.Title})
	}
	if len(p.Description) < 20 {
		errs = append(errs, FieldError{Field: "description", Message: "description must be at least 20 characters", Value: p.Description})
	}
	if len(p.RelatedTasks) == 0 {
		errs = append(errs, FieldError{Field: "relatedTasks", Message: "relatedTasks must be non-empty"})
	}
	if p.CompletedAt == "" {
		errs = append(errs, FieldError{Field: "completedAt", Message: "completedAt is required"})
	}

	if len(errs) == 0 {
		return ok()
	}
	return fail(errs...)
}
