// Package validate implements per-record-kind factories and validators:
// default-fill, ID generation, and the invariant checks enforced both when a
// factory produces a payload and when the store reads one back.
package validate

import "strings"

// FieldError is one validation failure, carrying enough context for a
// caller to build a precise error message without re-deriving it.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Result is the output of a *Detailed validator: IsValid is true iff Errors
// is empty.
type Result struct {
	IsValid bool         `json:"isValid"`
	Errors  []FieldError `json:"errors"`
}

func ok() Result { return Result{IsValid: true} }

func fail(errs ...FieldError) Result {
	return Result{IsValid: false, Errors: errs}
}

// DetailedValidationError adapts a failing Result into an error, for
// factories and adapters that need to return a single error value.
type DetailedValidationError struct {
	Kind   string
	Result Result
}

func (e *DetailedValidationError) Error() string {
	var b strings.Builder
	b.WriteString("DetailedValidationError: ")
	b.WriteString(e.Kind)
	b.WriteString(": ")
	for i, fe := range e.Result.Errors {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(fe.Field)
		b.WriteString(": ")
		b.WriteString(fe.Message)
	}
	return b.String()
}

// AsError converts a Result into an error (nil if valid).
func (r Result) AsError(kind string) error {
	if r.IsValid {
		return nil
	}
	return &DetailedValidationError{Kind: kind, Result: r}
}
