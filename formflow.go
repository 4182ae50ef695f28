// Package formflow builds dynamic registration forms for events: organizers
// define a schema of typed fields, registrants fill it one step at a time
// through a wizard, and validated submissions are handed to a pluggable
// persistence layer.
package formflow

import (
	"context"

	"github.com/foundersclub/formflow/pkg/model"
	"github.com/foundersclub/formflow/pkg/orchestrator"
	"github.com/foundersclub/formflow/pkg/render"
	"github.com/foundersclub/formflow/pkg/wizard"
)

// FormSchema is the organizer-authored definition of one event's form.
type FormSchema = model.FormSchema

// FieldDefinition describes a single typed field within a schema.
type FieldDefinition = model.FieldDefinition

// Options carries per-request presentation state for renderers.
type Options = render.Options

// Identity is the registrant a submission is attributed to.
type Identity = wizard.Identity

// SubmitContext carries cross-cutting submission metadata.
type SubmitContext = wizard.SubmitContext

// Receipt is what persistence returns for a stored submission.
type Receipt = wizard.Receipt

// New exposes the orchestrator constructor from the top-level module.
func New(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// RenderHTML renders an event's stored schema with the default HTML renderer.
// It is the simplest entry point for callers that just want markup.
func RenderHTML(ctx context.Context, eventID string, options ...orchestrator.Option) ([]byte, error) {
	return orchestrator.New(options...).RenderForm(ctx, orchestrator.Request{
		EventID:       eventID,
		RenderOptions: render.Options{Step: -1},
	})
}

// NewWizard starts a fresh filling session for an event's stored schema.
func NewWizard(ctx context.Context, eventID string, options ...orchestrator.Option) (*wizard.Controller, error) {
	return orchestrator.New(options...).NewWizard(ctx, eventID)
}

// WithSource registers the schema source used to resolve event forms.
func WithSource(source orchestrator.SchemaSource) orchestrator.Option {
	return orchestrator.WithSource(source)
}

// WithSubmitter registers the persistence collaborator for wizard sessions.
func WithSubmitter(submitter wizard.Submitter) orchestrator.Option {
	return orchestrator.WithSubmitter(submitter)
}
