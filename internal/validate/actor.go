package validate

import "fmt"

// CreateActorPayload fills defaults and generates an id for a new actor if
// absent, then validates the result.
func CreateActorPayload(partial ActorPayload) (ActorPayload, error) {
	p := partial
	if p.Status == "" {
		p.Status = ActorActive
	}
	if p.ID == "" {
		prefix := "human"
		if p.Type == ActorAgent {
			prefix = "agent"
		}
		p.ID = fmt.Sprintf("%s:%s", prefix, Slugify(p.DisplayName))
	}
	if res := ValidateActorDetailed(p); !res.IsValid {
		return p, res.AsError("actor")
	}
	return p, nil
}

// ValidateActorDetailed re-checks the full ActorPayload invariant set.
func ValidateActorDetailed(p ActorPayload) Result {
	var errs []FieldError

	if p.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "id is required"})
	} else if !IsValidActorID(p.ID) {
		errs = append(errs, FieldError{Field: "id", Message: "id does not match actor grammar", Value: p.ID})
	}
	if p.Type != ActorHuman && p.Type != ActorAgent {
		errs = append(errs, FieldError{Field: "type", Message: "type must be human or agent", Value: p.Type})
	}
	if p.DisplayName == "" {
		errs = append(errs, FieldError{Field: "displayName", Message: "displayName is required"})
	}
	if p.PublicKey == "" {
		errs = append(errs, FieldError{Field: "publicKey", Message: "publicKey is required"})
	}
	if len(p.Roles) == 0 {
		errs = append(errs, FieldError{Field: "roles", Message: "at least one role is required"})
	}
	if p.Status != ActorActive && p.Status != ActorRevoked {
		errs = append(errs, FieldError{Field: "status", Message: "status must be active or revoked", Value: p.Status})
	}
	if p.Status == ActorActive && p.SupersededBy != "" {
		errs = append(errs, FieldError{Field: "supersededBy", Message: "an active actor must not name a successor"})
	}

	if len(errs) == 0 {
		return ok()
	}
	return fail(errs...)
}

// CreateAgentPayload fills defaults and validates a new AgentPayload. The id
// must match an existing agent-type ActorRecord; that cross-record check is
// the identity adapter's responsibility, not the factory's.
func CreateAgentPayload(partial AgentPayload) (AgentPayload, error) {
	p := partial
	if p.Status == "" {
		p.Status = ActorActive
	}
	if res := ValidateAgentDetailed(p); !res.IsValid {
		return p, res.AsError("agent")
	}
	return p, nil
}

// ValidateAgentDetailed re-checks the full AgentPayload invariant set.
func ValidateAgentDetailed(p AgentPayload) Result {
	var errs []FieldError

	if p.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "id is required"})
	} else if !IsValidActorID(p.ID) {
		errs = append(errs, FieldError{Field: "id", Message: "id does not match actor grammar", Value: p.ID})
	}
	if p.Engine == "" {
		errs = append(errs, FieldError{Field: "engine", Message: "engine is required"})
	}
	if p.Status != ActorActive && p.Status != ActorRevoked {
		errs = append(errs, FieldError{Field: "status", Message: "status must be active or revoked", Value: p.Status})
	}

	if len(errs) == 0 {
		return ok()
	}
	return fail(errs...)
}
