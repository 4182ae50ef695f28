// Package wizard implements the single-step-at-a-time state machine that
// walks a registrant through a form schema. One controller owns one filling
// session; nothing is shared between concurrent sessions except the read-only
// schema they were built from.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/foundersclub/formflow/pkg/compiler"
	"github.com/foundersclub/formflow/pkg/model"
)

// Status enumerates the controller's lifecycle states.
type Status string

const (
	StatusFilling    Status = "filling"
	StatusSubmitting Status = "submitting"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

var (
	// ErrNoSteps is returned when a zero-field schema leaves nothing to
	// fill; submission stays disabled.
	ErrNoSteps = errors.New("wizard: form has no steps")
	// ErrNotLastStep guards Submit, which is only reachable from the final
	// step.
	ErrNotLastStep = errors.New("wizard: submit is only available on the last step")
	// ErrNoNextStep is returned by Next on the final step.
	ErrNoNextStep = errors.New("wizard: already on the last step")
	// ErrUploadPending blocks forward navigation while a file upload for
	// the current step is in flight.
	ErrUploadPending = errors.New("wizard: upload in progress")
	// ErrSubmitInFlight rejects user actions while persistence is running.
	ErrSubmitInFlight = errors.New("wizard: submission in progress")
	// ErrAlreadyDone rejects actions after a successful submission.
	ErrAlreadyDone = errors.New("wizard: submission already completed")
)

// Controller drives one filling session over a compiled schema. All methods
// are safe for concurrent use; uploads completing on background goroutines
// are the only expected concurrent callers.
type Controller struct {
	mu        sync.Mutex
	fields    []model.FieldDefinition
	validator Validator
	submitter Submitter
	now       func() time.Time

	step      int
	status    Status
	values    map[string]any
	touched   map[int]bool
	stepErr   map[int]string
	uploads   map[string]bool
	submitErr error
}

// Option configures a Controller.
type Option func(*Controller)

// WithValidator substitutes the compiled-schema validator. Intended for
// tests; production sessions use the schema's own compilation.
func WithValidator(v Validator) Option {
	return func(c *Controller) {
		if v != nil {
			c.validator = v
		}
	}
}

// WithClock overrides the timestamp source used by the assembler.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New validates and compiles the schema, then returns a fresh session at
// step zero. The submitter is the injected persistence collaborator; the
// controller never constructs storage clients itself.
func New(schema model.FormSchema, submitter Submitter, options ...Option) (*Controller, error) {
	if submitter == nil {
		return nil, errors.New("wizard: submitter is required")
	}

	c := &Controller{
		fields:    schema.Fields,
		submitter: submitter,
		now:       time.Now,
		status:    StatusFilling,
		values:    make(map[string]any),
		touched:   make(map[int]bool),
		stepErr:   make(map[int]string),
		uploads:   make(map[string]bool),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}

	if c.validator == nil {
		compiled, err := compiler.Compile(schema)
		if err != nil {
			return nil, err
		}
		c.validator = compiled
	}
	return c, nil
}

// Step reports the current step index.
func (c *Controller) Step() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// StepCount reports the number of steps (one per field, redirects included).
func (c *Controller) StepCount() int { return len(c.fields) }

// Current returns the definition rendered at the current step.
func (c *Controller) Current() (model.FieldDefinition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step < 0 || c.step >= len(c.fields) {
		return model.FieldDefinition{}, false
	}
	return c.fields[c.step], true
}

// Status reports the lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SetValue binds a candidate value for a field. Binding never validates;
// validation happens on Next/Submit.
func (c *Controller) SetValue(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
}

// Value returns the currently bound value for a field.
func (c *Controller) Value(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[name]
	return v, ok
}

// Touched reports whether validation has been attempted for a step. Error
// messages stay hidden until then so untouched steps render silently.
func (c *Controller) Touched(step int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched[step]
}

// StepError returns the visible error message for a step: empty until the
// step has been touched and its latest validation failed.
func (c *Controller) StepError(step int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.touched[step] {
		return ""
	}
	return c.stepErr[step]
}

// Next validates the current step and advances on success. Optional fields
// with nothing entered are skipped without invoking their checker; required
// fields always validate. On failure the step stays put, is marked touched,
// and the message becomes visible.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guardAction(); err != nil {
		return err
	}
	if c.step >= len(c.fields)-1 {
		return ErrNoNextStep
	}
	if err := c.validateStepLocked(); err != nil {
		return err
	}
	c.step++
	return nil
}

// Previous moves back one step without validating; back-navigation never
// blocks, including while an upload for the current field is pending.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case StatusSubmitting:
		return ErrSubmitInFlight
	case StatusDone:
		return ErrAlreadyDone
	}
	if c.step == 0 {
		return nil
	}
	c.status = StatusFilling
	c.step--
	return nil
}

// Submit is only reachable from the final step. It validates that step the
// way Next would, re-checks the whole payload defensively, then hands the
// assembled submission to the persistence collaborator. On collaborator
// failure every entered value is preserved and Submit may be retried.
func (c *Controller) Submit(ctx context.Context, sc SubmitContext) (Receipt, error) {
	c.mu.Lock()

	switch c.status {
	case StatusSubmitting:
		c.mu.Unlock()
		return Receipt{}, ErrSubmitInFlight
	case StatusDone:
		c.mu.Unlock()
		return Receipt{}, ErrAlreadyDone
	}
	if len(c.fields) == 0 {
		c.mu.Unlock()
		return Receipt{}, ErrNoSteps
	}
	if c.step != len(c.fields)-1 {
		c.mu.Unlock()
		return Receipt{}, ErrNotLastStep
	}
	if err := c.validateStepLocked(); err != nil {
		c.mu.Unlock()
		return Receipt{}, err
	}

	payload := Assemble(c.fields, c.values, sc, c.now())
	if err := c.validator.CheckPayload(payload.Answers); err != nil {
		c.mu.Unlock()
		return Receipt{}, err
	}

	c.status = StatusSubmitting
	c.mu.Unlock()

	// Single in-flight submission: the Submitting status rejects any user
	// action until the collaborator resolves.
	receipt, err := c.submitter.Submit(ctx, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.status = StatusFailed
		c.submitErr = err
		return Receipt{}, fmt.Errorf("wizard: submit: %w", err)
	}
	c.status = StatusDone
	c.submitErr = nil
	return receipt, nil
}

// SubmitError returns the collaborator failure from the last submission
// attempt, if any. Retryable: entered values survive a failed submit.
func (c *Controller) SubmitError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitErr
}

// BeginUpload marks a file field's busy sub-state. While pending, Next and
// Submit are no-ops for the owning step.
func (c *Controller) BeginUpload(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploads[name] = true
}

// FinishUpload resolves a pending upload. On success the uploaded URL is
// bound to the field, even if the user has meanwhile navigated elsewhere; a
// Previous during upload never cancels it. On failure the field stays empty
// and the user may retry.
func (c *Controller) FinishUpload(name, url string, uploadErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.uploads, name)
	if uploadErr == nil {
		c.values[name] = url
	}
}

// UploadPending reports whether a field's upload is in the busy sub-state.
func (c *Controller) UploadPending(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploads[name]
}

func (c *Controller) guardAction() error {
	switch c.status {
	case StatusSubmitting:
		return ErrSubmitInFlight
	case StatusDone:
		return ErrAlreadyDone
	}
	if len(c.fields) == 0 {
		return ErrNoSteps
	}
	return nil
}

// validateStepLocked applies the per-step rules shared by Next and Submit:
// redirect steps pass untouched, pending uploads block, empty optional
// fields skip their checker, everything else validates.
func (c *Controller) validateStepLocked() error {
	field := c.fields[c.step]

	if field.Type == model.FieldTypeRedirect {
		return nil
	}
	if c.uploads[field.Name] {
		return ErrUploadPending
	}
	if !field.Required && compiler.IsEmpty(c.values[field.Name]) {
		return nil
	}

	c.touched[c.step] = true
	if err := c.validator.CheckField(field.Name, c.values[field.Name]); err != nil {
		c.stepErr[c.step] = errorMessage(err)
		return err
	}
	delete(c.stepErr, c.step)
	return nil
}

func errorMessage(err error) string {
	var fieldErr *compiler.FieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Message
	}
	return err.Error()
}
