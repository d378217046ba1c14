package validate

import "time"

var validCycleStatuses = map[CycleStatus]bool{
	CycleStatusPlanning: true, CycleStatusActive: true,
	CycleStatusComplete: true, CycleStatusArchived: true,
}

// CreateCyclePayload fills defaults (status=planning, generated id) and
// validates the result.
func CreateCyclePayload(partial CyclePayload, now time.Time) (CyclePayload, error) {
	p := partial
	if p.Status == "" {
		p.Status = CycleStatusPlanning
	}
	if p.ID == "" {
		id, err := GenerateID("cycle", p.Title, now)
		if err != nil {
			return p, err
		}
		p.ID = id
	}
	if res := ValidateCycleDetailed(p); !res.IsValid {
		return p, res.AsError("cycle")
	}
	return p, nil
}

// ValidateCycleDetailed re-checks the full CyclePayload invariant set.
func ValidateCycleDetailed(p CyclePayload) Result {
	var errs []FieldError

	if p.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "id is required"})
	} else if !IsValidRecordID(p.ID) {
		errs = append(errs, FieldError{Field: "id", Message: "id does not match record grammar", Value: p.ID})
	}
	if p.Title == "" {
		errs = append(errs, FieldError{Field: "title", Message: "title is required"})
	}
	if !validCycleStatuses[p.Status] {
		errs = append(errs, FieldError{Field: "status", Message: "unknown cycle status", Value: p.Status})
	}

	if len(errs) == 0 {
		return ok()
	}
	return fail(errs...)
}

// IsCycleTerminal reports whether status admits no further transitions.
func IsCycleTerminal(status CycleStatus) bool {
	return status == CycleStatusArchived
}
