package validate

import "time"

var validFeedbackEntityTypes = map[FeedbackEntityType]bool{
	FeedbackOnTask: true, FeedbackOnCycle: true, FeedbackOnExecution: true,
	FeedbackOnChangelog: true, FeedbackOnFeedback: true,
}

var validFeedbackTypes = map[FeedbackType]bool{
	FeedbackBlocking: true, FeedbackSuggestion: true, FeedbackQuestion: true,
	FeedbackApproval: true, FeedbackClarification: true, FeedbackAssignment: true,
}

var validFeedbackStatuses = map[FeedbackStatus]bool{
	FeedbackOpen: true, FeedbackAcknowledged: true, FeedbackResolved: true, FeedbackWontfix: true,
}

// CreateFeedbackPayload fills defaults (status=open, generated id) and
// validates the result.
func CreateFeedbackPayload(partial FeedbackPayload, now time.Time) (FeedbackPayload, error) {
	p := partial
	if p.Status == "" {
		p.Status = FeedbackOpen
	}
	if p.ID == "" {
		id, err := GenerateID("feedback", p.Content, now)
		if err != nil {
			return p, err
		}
		p.ID = id
	}
	if res := ValidateFeedbackDetailed(p); !res.IsValid {
		return p, res.AsError("feedback")
	}
	return p, nil
}

// ValidateFeedbackDetailed re-checks the full FeedbackPayload invariant set.
func ValidateFeedbackDetailed(p FeedbackPayload) Result {
	var errs []FieldError

	if p.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "id is required"})
	} else if !IsValidRecordID(p.ID) {
		errs = append(errs, FieldError{Field: "id", Message: "id does not match record grammar", Value: p.ID})
	}
	if !validFeedbackEntityTypes[p.EntityType] {
		errs = append(errs, FieldError{Field: "entityType", Message: "InvalidEntityTypeError: unknown entity type", Value: p.EntityType})
	}
	if p.EntityID == "" {
		errs = append(errs, FieldError{Field: "entityId", Message: "entityId is required"})
	}
	if !validFeedbackTypes[p.Type] {
		errs = append(errs, FieldError{Field: "type", Message: "unknown feedback type", Value: p.Type})
	}
	if !validFeedbackStatuses[p.Status] {
		errs = append(errs, FieldError{Field: "status", Message: "unknown feedback status", Value: p.Status})
	}
	if p.Content == "" {
		errs = append(errs, FieldError{Field: "content", Message: "content is required"})
	}
	if p.EntityType == FeedbackOnFeedback && p.ResolvesFeedbackID == "" {
		errs = append(errs, FieldError{Field: "resolvesFeedbackId", Message: "resolvesFeedbackId is required when entityType is feedback"})
	}

	if len(errs) == 0 {
		return ok()
	}
	return fail(errs...)
}
