// Package orchestrator coordinates the pipeline from stored form schema to
// rendered output and live wizard sessions. It applies sensible defaults
// (HTML renderer, memoized compilation) while remaining open to dependency
// injection for advanced callers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/foundersclub/formflow/pkg/compiler"
	"github.com/foundersclub/formflow/pkg/model"
	"github.com/foundersclub/formflow/pkg/render"
	"github.com/foundersclub/formflow/pkg/renderers/html"
	"github.com/foundersclub/formflow/pkg/wizard"
)

const defaultRendererName = "html"

// SchemaSource resolves the published form schema for an event. The storage
// layer implements it; tests use StaticSource.
type SchemaSource interface {
	FormSchema(ctx context.Context, eventID string) (model.FormSchema, error)
}

// StaticSource serves schemas from memory, keyed by event id.
type StaticSource struct {
	mu      sync.RWMutex
	schemas map[string]model.FormSchema
}

// NewStaticSource builds an in-memory schema source.
func NewStaticSource() *StaticSource {
	return &StaticSource{schemas: make(map[string]model.FormSchema)}
}

// Put validates and stores a schema under its event id.
func (s *StaticSource) Put(schema model.FormSchema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	if schema.EventID == "" {
		return errors.New("orchestrator: schema has no event id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[schema.EventID] = schema
	return nil
}

// FormSchema implements SchemaSource.
func (s *StaticSource) FormSchema(_ context.Context, eventID string) (model.FormSchema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.schemas[eventID]
	if !ok {
		return model.FormSchema{}, fmt.Errorf("orchestrator: no form for event %q", eventID)
	}
	return schema, nil
}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithSource injects the schema source.
func WithSource(source SchemaSource) Option {
	return func(o *Orchestrator) {
		o.source = source
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithCompiler injects a shared memoizing compiler.
func WithCompiler(c *compiler.Compiler) Option {
	return func(o *Orchestrator) {
		o.compiler = c
	}
}

// WithSubmitter injects the persistence collaborator handed to new wizard
// sessions.
func WithSubmitter(submitter wizard.Submitter) Option {
	return func(o *Orchestrator) {
		o.submitter = submitter
	}
}

// WithUploader injects the upload collaborator for file fields.
func WithUploader(uploader wizard.Uploader) Option {
	return func(o *Orchestrator) {
		o.uploader = uploader
	}
}

// Orchestrator wires schema source, compiler, renderers, and collaborators
// into one entry point.
type Orchestrator struct {
	source          SchemaSource
	compiler        *compiler.Compiler
	registry        *render.Registry
	submitter       wizard.Submitter
	uploader        wizard.Uploader
	defaultRenderer string
	initialiseErr   error
	defaultsApplied bool
}

// New constructs an Orchestrator applying any provided options. Missing
// dependencies are initialised with the built-in implementations so callers
// can start with a single constructor call.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes the inputs required to render a form for an event.
type Request struct {
	// EventID selects the stored schema. Optional when Schema is supplied.
	EventID string

	// Schema allows callers to bypass the source when they already hold a
	// schema.
	Schema *model.FormSchema

	// Renderer names the renderer to use. If empty, the orchestrator falls
	// back to the configured default renderer.
	Renderer string

	// RenderOptions carries per-request presentation state such as step
	// selection, bound values, or validation errors.
	RenderOptions render.Options
}

// RenderForm resolves the schema, ensures it compiles, and renders it with
// the requested renderer.
func (o *Orchestrator) RenderForm(ctx context.Context, req Request) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.initialiseErr; err != nil {
		return nil, err
	}

	schema, err := o.resolveSchema(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := o.compiler.Get(schema); err != nil {
		return nil, err
	}

	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return nil, err
	}

	output, err := renderer.Render(ctx, schema, req.RenderOptions)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

// NewWizard resolves the event's schema and starts a fresh filling session
// backed by the configured persistence collaborator. Compilation is shared
// across sessions through the memoizing compiler.
func (o *Orchestrator) NewWizard(ctx context.Context, eventID string) (*wizard.Controller, error) {
	if err := o.initialiseErr; err != nil {
		return nil, err
	}
	if o.submitter == nil {
		return nil, errors.New("orchestrator: submitter is required for wizard sessions")
	}

	schema, err := o.resolveSchema(ctx, Request{EventID: eventID})
	if err != nil {
		return nil, err
	}
	compiled, err := o.compiler.Get(schema)
	if err != nil {
		return nil, err
	}
	return wizard.New(schema, o.submitter, wizard.WithValidator(compiled))
}

// Uploader exposes the configured upload collaborator for surfaces that
// handle file fields themselves.
func (o *Orchestrator) Uploader() wizard.Uploader {
	return o.uploader
}

// Registry exposes the renderer registry for callers that register extra
// renderers after construction.
func (o *Orchestrator) Registry() *render.Registry {
	return o.registry
}

func (o *Orchestrator) resolveSchema(ctx context.Context, req Request) (model.FormSchema, error) {
	if req.Schema != nil {
		if err := req.Schema.Validate(); err != nil {
			return model.FormSchema{}, err
		}
		return *req.Schema, nil
	}
	if req.EventID == "" {
		return model.FormSchema{}, errors.New("orchestrator: event id or schema is required")
	}
	if o.source == nil {
		return model.FormSchema{}, errors.New("orchestrator: schema source is nil")
	}
	schema, err := o.source.FormSchema(ctx, req.EventID)
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("orchestrator: resolve schema: %w", err)
	}
	return schema, nil
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = o.defaultRenderer
	}

	if target != "" {
		renderer, err := o.registry.Get(target)
		if err == nil {
			return renderer, nil
		}
		if name != "" {
			return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
		}
	}

	names := o.registry.List()
	if len(names) == 0 {
		return nil, errors.New("orchestrator: no renderers registered")
	}
	return o.registry.Get(names[0])
}

func (o *Orchestrator) applyDefaults() {
	if o.defaultsApplied {
		return
	}

	if o.compiler == nil {
		o.compiler = compiler.NewCompiler()
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := html.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
		} else {
			o.registry.MustRegister(renderer)
		}
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}

	o.defaultsApplied = true
}
