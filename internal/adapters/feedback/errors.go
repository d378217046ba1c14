package feedback

import "fmt"

// DuplicateAssignmentError is returned when a new "assignment" feedback
// would open a second concurrent assignment of the same entity to the
// same actor. The prior assignment must carry a resolution record first.
type DuplicateAssignmentError struct {
	EntityType string
	EntityID   string
	Assignee   string
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("DuplicateAssignmentError: %s %q is already assigned to %s", e.EntityType, e.EntityID, e.Assignee)
}
