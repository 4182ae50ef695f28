// Package tui walks a registrant through a form wizard over terminal prompts.
// The prompt driver is pluggable so session logic stays testable without a
// real terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/foundersclub/formflow/pkg/model"
	"github.com/foundersclub/formflow/pkg/wizard"
)

const skipOption = "(skip)"

// Session drives one wizard controller over a prompt driver, one step per
// field, validating through the controller's Next/Submit the same way the
// web surface does.
type Session struct {
	ctrl     *wizard.Controller
	schema   model.FormSchema
	driver   PromptDriver
	uploader wizard.Uploader
}

// Option configures a Session.
type Option func(*Session)

// WithDriver substitutes the prompt driver. Tests use stub drivers.
func WithDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithUploader injects the collaborator used by file fields.
func WithUploader(uploader wizard.Uploader) Option {
	return func(s *Session) {
		s.uploader = uploader
	}
}

// NewSession wires a session around an existing controller. The default
// driver prompts over the terminal via survey.
func NewSession(ctrl *wizard.Controller, schema model.FormSchema, options ...Option) (*Session, error) {
	if ctrl == nil {
		return nil, errors.New("tui: controller is required")
	}
	s := &Session{
		ctrl:   ctrl,
		schema: schema,
		driver: newSurveyDriver(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

// Run prompts through every step and submits from the last one. Validation
// failures re-prompt the same step; collaborator failures are returned to the
// caller with the entered values intact so Run may be called again.
func (s *Session) Run(ctx context.Context, sc wizard.SubmitContext) (wizard.Receipt, error) {
	if s.ctrl.StepCount() == 0 {
		return wizard.Receipt{}, wizard.ErrNoSteps
	}
	if s.schema.Title != "" {
		if err := s.driver.Info(ctx, s.schema.Title); err != nil {
			return wizard.Receipt{}, err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return wizard.Receipt{}, err
		}

		field, ok := s.ctrl.Current()
		if !ok {
			return wizard.Receipt{}, fmt.Errorf("tui: no field at step %d", s.ctrl.Step())
		}

		if err := s.promptField(ctx, field); err != nil {
			return wizard.Receipt{}, err
		}

		last := s.ctrl.Step() == s.ctrl.StepCount()-1
		if last {
			receipt, err := s.ctrl.Submit(ctx, sc)
			if err == nil {
				return receipt, nil
			}
			// Collaborator failures leave the machine in the failed state;
			// the caller decides whether to retry the whole run.
			if s.ctrl.Status() == wizard.StatusFailed {
				return wizard.Receipt{}, err
			}
			if errors.Is(err, wizard.ErrUploadPending) || isValidation(err) {
				_ = s.driver.Info(ctx, "Invalid "+field.Name+": "+err.Error())
				continue
			}
			return wizard.Receipt{}, err
		}

		if err := s.ctrl.Next(); err != nil {
			if errors.Is(err, wizard.ErrUploadPending) || isValidation(err) {
				_ = s.driver.Info(ctx, "Invalid "+field.Name+": "+err.Error())
				continue
			}
			return wizard.Receipt{}, err
		}
	}
}

func (s *Session) promptField(ctx context.Context, field model.FieldDefinition) error {
	switch field.Type {
	case model.FieldTypeText:
		return s.promptText(ctx, field)
	case model.FieldTypeTextarea:
		return s.promptTextarea(ctx, field)
	case model.FieldTypeSelect, model.FieldTypeRadio:
		return s.promptSelect(ctx, field)
	case model.FieldTypeCheckbox:
		return s.promptCheckbox(ctx, field)
	case model.FieldTypeDate:
		return s.promptDate(ctx, field)
	case model.FieldTypeSlider:
		return s.promptSlider(ctx, field)
	case model.FieldTypeURL:
		return s.promptURL(ctx, field)
	case model.FieldTypeFile:
		return s.promptFile(ctx, field)
	case model.FieldTypeRedirect:
		return s.showRedirect(ctx, field)
	case model.FieldTypeMemberSelect:
		return s.promptMembers(ctx, field)
	default:
		return fmt.Errorf("tui: field type %q is not supported", field.Type)
	}
}

func (s *Session) promptText(ctx context.Context, field model.FieldDefinition) error {
	response, err := s.driver.Input(ctx, InputConfig{
		Message: displayLabel(field),
		Default: boundString(s.ctrl, field.Name),
		Help:    field.Description,
	})
	if err != nil {
		return err
	}
	s.ctrl.SetValue(field.Name, response)
	return nil
}

func (s *Session) promptTextarea(ctx context.Context, field model.FieldDefinition) error {
	response, err := s.driver.TextArea(ctx, TextAreaConfig{
		Message: displayLabel(field),
		Default: boundString(s.ctrl, field.Name),
		Help:    field.Description,
	})
	if err != nil {
		return err
	}
	s.ctrl.SetValue(field.Name, response)
	return nil
}

func (s *Session) promptSelect(ctx context.Context, field model.FieldDefinition) error {
	options := field.Options
	if !field.Required {
		options = append([]string{skipOption}, options...)
	}

	defaultIdx := -1
	if bound := boundString(s.ctrl, field.Name); bound != "" {
		defaultIdx = indexOf(options, bound)
	}

	idx, err := s.driver.Select(ctx, SelectConfig{
		Message:      displayLabel(field),
		Options:      options,
		DefaultIndex: defaultIdx,
		Help:         field.Description,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(options) {
		s.ctrl.SetValue(field.Name, "")
		return nil
	}
	selected := options[idx]
	if selected == skipOption && !field.Required {
		s.ctrl.SetValue(field.Name, "")
		return nil
	}
	s.ctrl.SetValue(field.Name, selected)
	return nil
}

func (s *Session) promptCheckbox(ctx context.Context, field model.FieldDefinition) error {
	if field.Checkbox == nil || field.Checkbox.Kind != model.CheckboxMultiple {
		checked, err := s.driver.Confirm(ctx, ConfirmConfig{
			Message: displayLabel(field),
			Help:    field.Description,
		})
		if err != nil {
			return err
		}
		s.ctrl.SetValue(field.Name, checked)
		return nil
	}

	labels := make([]string, 0, len(field.Checkbox.Items))
	for _, item := range field.Checkbox.Items {
		labels = append(labels, item.Label)
	}
	indices, err := s.driver.MultiSelect(ctx, SelectConfig{
		Message: displayLabel(field),
		Options: labels,
		Help:    field.Description,
	})
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(field.Checkbox.Items) {
			ids = append(ids, field.Checkbox.Items[idx].ID)
		}
	}
	s.ctrl.SetValue(field.Name, ids)
	return nil
}

func (s *Session) promptDate(ctx context.Context, field model.FieldDefinition) error {
	for {
		response, err := s.driver.Input(ctx, InputConfig{
			Message: displayLabel(field) + " (YYYY-MM-DD)",
			Help:    field.Description,
		})
		if err != nil {
			return err
		}
		trimmed := strings.TrimSpace(response)
		if trimmed == "" {
			s.ctrl.SetValue(field.Name, nil)
			return nil
		}
		parsed, err := time.Parse("2006-01-02", trimmed)
		if err != nil {
			_ = s.driver.Info(ctx, "Invalid "+field.Name+": expected YYYY-MM-DD")
			continue
		}
		s.ctrl.SetValue(field.Name, parsed)
		return nil
	}
}

func (s *Session) promptSlider(ctx context.Context, field model.FieldDefinition) error {
	message := displayLabel(field)
	if field.Slider != nil {
		message = fmt.Sprintf("%s (%v-%v)", message, field.Slider.Min, field.Slider.Max)
	}
	for {
		response, err := s.driver.Input(ctx, InputConfig{
			Message: message,
			Help:    field.Description,
		})
		if err != nil {
			return err
		}
		trimmed := strings.TrimSpace(response)
		if trimmed == "" {
			s.ctrl.SetValue(field.Name, nil)
			return nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			_ = s.driver.Info(ctx, "Invalid "+field.Name+": expected a number")
			continue
		}
		s.ctrl.SetValue(field.Name, parsed)
		return nil
	}
}

func (s *Session) promptURL(ctx context.Context, field model.FieldDefinition) error {
	placeholder := ""
	if field.URL != nil {
		placeholder = field.URL.Placeholder
	}
	response, err := s.driver.Input(ctx, InputConfig{
		Message: displayLabel(field),
		Default: firstNonEmpty(boundString(s.ctrl, field.Name), placeholder),
		Help:    field.Description,
	})
	if err != nil {
		return err
	}
	s.ctrl.SetValue(field.Name, strings.TrimSpace(response))
	return nil
}

// promptFile asks for a local path and hands the file to the upload
// collaborator. The controller's busy sub-state wraps the upload so the rest
// of the machine behaves exactly as it does on the web surface.
func (s *Session) promptFile(ctx context.Context, field model.FieldDefinition) error {
	response, err := s.driver.Input(ctx, InputConfig{
		Message: displayLabel(field) + " (path to file)",
		Help:    field.Description,
	})
	if err != nil {
		return err
	}
	path := strings.TrimSpace(response)
	if path == "" {
		return nil
	}
	if s.uploader == nil {
		return ErrNoUploader
	}

	file, err := os.Open(path)
	if err != nil {
		_ = s.driver.Info(ctx, "Cannot open "+path+": "+err.Error())
		return nil
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	s.ctrl.BeginUpload(field.Name)
	url, err := s.uploader.Upload(ctx, wizard.UploadRequest{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Size:        info.Size(),
		Body:        file,
	})
	s.ctrl.FinishUpload(field.Name, url, err)
	if err != nil {
		_ = s.driver.Info(ctx, "Upload failed: "+err.Error())
	}
	return nil
}

func (s *Session) showRedirect(ctx context.Context, field model.FieldDefinition) error {
	if field.Redirect == nil {
		return nil
	}
	label := field.Redirect.Label
	if label == "" {
		label = field.Redirect.URL
	}
	return s.driver.Info(ctx, label+": "+field.Redirect.URL)
}

func (s *Session) promptMembers(ctx context.Context, field model.FieldDefinition) error {
	var ids []string
	if bound, ok := s.ctrl.Value(field.Name); ok {
		if existing, ok := bound.([]string); ok {
			ids = append(ids, existing...)
		}
	}

	for {
		response, err := s.driver.Input(ctx, InputConfig{
			Message: displayLabel(field) + " (member id, empty to finish)",
			Help:    field.Description,
		})
		if err != nil {
			return err
		}
		trimmed := strings.TrimSpace(response)
		if trimmed == "" {
			break
		}
		ids = append(ids, trimmed)

		more, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Add another member?"})
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	s.ctrl.SetValue(field.Name, ids)
	return nil
}

// isValidation distinguishes per-field rejections, which re-prompt, from
// machine-level failures, which end the session.
func isValidation(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, wizard.ErrNoSteps),
		errors.Is(err, wizard.ErrNotLastStep),
		errors.Is(err, wizard.ErrNoNextStep),
		errors.Is(err, wizard.ErrSubmitInFlight),
		errors.Is(err, wizard.ErrAlreadyDone),
		errors.Is(err, ErrAborted):
		return false
	}
	return true
}

func displayLabel(field model.FieldDefinition) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func boundString(ctrl *wizard.Controller, name string) string {
	if v, ok := ctrl.Value(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
