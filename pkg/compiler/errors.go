package compiler

import (
	"errors"
	"fmt"
)

// ErrUnknownField is returned when a checker is requested for a name the
// schema does not declare.
var ErrUnknownField = errors.New("compiler: unknown field")

// FieldError reports one field's candidate value failing its compiled
// checker. The message is human readable and safe to show registrants.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldErrorf(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PayloadError aggregates the per-field failures of a whole-payload check,
// preserving schema order.
type PayloadError struct {
	Fields []*FieldError
}

func (e *PayloadError) Error() string {
	if len(e.Fields) == 1 {
		return e.Fields[0].Error()
	}
	return fmt.Sprintf("%d fields failed validation", len(e.Fields))
}

// ByField returns the failure messages keyed by field name.
func (e *PayloadError) ByField() map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for _, fe := range e.Fields {
		out[fe.Field] = append(out[fe.Field], fe.Message)
	}
	return out
}
