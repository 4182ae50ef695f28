// Package render defines the presentation seam: renderers turn a form schema
// into bytes for a given medium without knowing how the schema was produced
// or where the output goes.
package render

import (
	"context"

	"github.com/foundersclub/formflow/pkg/model"
)

// Renderer converts a form schema into a byte representation (HTML, text,
// etc.). Implementations must be stateless with respect to individual calls;
// one renderer serves many concurrent sessions.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, schema model.FormSchema, options Options) ([]byte, error)
}

// Options carry per-request presentation state so renderers never mutate the
// schema itself.
type Options struct {
	// Step selects a single wizard step to render. Negative renders the
	// whole form at once.
	Step int
	// Action is the submission endpoint the rendered form posts to.
	Action string
	// Values pre-populates controls with the session's bound values, keyed
	// by field name.
	Values map[string]any
	// Errors surfaces validation feedback keyed by field name. Only touched
	// steps should carry entries; untouched fields render without chrome.
	Errors map[string][]string
	// PendingUploads marks file fields whose upload is still in flight so
	// the renderer can show the busy state and disable forward navigation.
	PendingUploads map[string]bool
}

// FieldValue returns the bound value for a field, or nil.
func (o Options) FieldValue(name string) any {
	if o.Values == nil {
		return nil
	}
	return o.Values[name]
}

// FieldErrors returns the visible error messages for a field.
func (o Options) FieldErrors(name string) []string {
	if o.Errors == nil {
		return nil
	}
	return o.Errors[name]
}
