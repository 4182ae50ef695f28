// Package html renders a form schema into browser-ready markup using pongo2
// templates. Field descriptions may carry author-supplied markup and are
// sanitized before they reach the page.
package html

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/foundersclub/formflow/pkg/model"
	"github.com/foundersclub/formflow/pkg/render"
)

type Option func(*config)

type config struct {
	templateFS fs.FS
	policy     *bluemonday.Policy
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithSanitizer injects a custom sanitization policy for field descriptions.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.policy = policy
		}
	}
}

type Renderer struct {
	mu        sync.Mutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
	policy    *bluemonday.Policy
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the HTML renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS: TemplatesFS(),
		policy:     bluemonday.UGCPolicy(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	return &Renderer{
		set:       pongo2.NewSet("formflow", pongo2.NewFSLoader(cfg.templateFS)),
		templates: make(map[string]*pongo2.Template),
		policy:    cfg.policy,
	}, nil
}

func (r *Renderer) Name() string {
	return "html"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces the markup for one wizard step, or for the whole form when
// options.Step is negative.
func (r *Renderer) Render(_ context.Context, schema model.FormSchema, options render.Options) ([]byte, error) {
	fields := schema.Fields
	if options.Step >= 0 {
		if options.Step >= len(fields) {
			return nil, fmt.Errorf("html renderer: step %d out of range (%d steps)", options.Step, len(fields))
		}
		fields = fields[options.Step : options.Step+1]
	}

	views := make([]map[string]any, 0, len(fields))
	for _, field := range fields {
		views = append(views, r.fieldView(field, options))
	}

	tmpl, err := r.template("templates/form.tmpl")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = tmpl.ExecuteWriter(pongo2.Context{
		"form": map[string]any{
			"title":   schema.Title,
			"eventId": schema.EventID,
			"action":  options.Action,
		},
		"step":   options.Step,
		"steps":  len(schema.Fields),
		"fields": views,
	}, &buf)
	if err != nil {
		return nil, fmt.Errorf("html renderer: execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// fieldView flattens one definition into the map the templates consume. Only
// the payload matching the field's type is projected; the model guarantees no
// stray payloads survive validation.
func (r *Renderer) fieldView(field model.FieldDefinition, options render.Options) map[string]any {
	view := map[string]any{
		"name":        field.Name,
		"type":        string(field.Type),
		"label":       field.Label,
		"description": r.sanitize(field.Description),
		"required":    field.Required,
		"value":       options.FieldValue(field.Name),
		"errors":      options.FieldErrors(field.Name),
		"pending":     options.PendingUploads[field.Name],
	}

	switch field.Type {
	case model.FieldTypeSelect, model.FieldTypeRadio:
		view["options"] = field.Options
	case model.FieldTypeCheckbox:
		if field.Checkbox != nil {
			view["kind"] = string(field.Checkbox.Kind)
			selected := selectedIDs(options.FieldValue(field.Name))
			items := make([]map[string]any, 0, len(field.Checkbox.Items))
			for _, item := range field.Checkbox.Items {
				items = append(items, map[string]any{
					"id":      item.ID,
					"label":   item.Label,
					"checked": selected[item.ID],
				})
			}
			view["items"] = items
		}
	case model.FieldTypeSlider:
		if field.Slider != nil {
			view["min"] = field.Slider.Min
			view["max"] = field.Slider.Max
		}
	case model.FieldTypeURL:
		if field.URL != nil {
			view["placeholder"] = field.URL.Placeholder
		}
	case model.FieldTypeFile:
		if field.File != nil {
			view["accept"] = field.File.AcceptedTypes
			view["maxSizeMb"] = field.File.MaxSizeMB
		}
	case model.FieldTypeRedirect:
		if field.Redirect != nil {
			view["url"] = field.Redirect.URL
			view["linkLabel"] = field.Redirect.Label
		}
	case model.FieldTypeMemberSelect:
		if field.MemberSelect != nil {
			view["minMembers"] = field.MemberSelect.MinMembers
			if field.MemberSelect.MaxMembers != nil {
				view["maxMembers"] = *field.MemberSelect.MaxMembers
			}
		}
	}
	return view
}

func selectedIDs(value any) map[string]bool {
	out := make(map[string]bool)
	switch v := value.(type) {
	case []string:
		for _, id := range v {
			out[id] = true
		}
	case []any:
		for _, raw := range v {
			if id, ok := raw.(string); ok {
				out[id] = true
			}
		}
	}
	return out
}

func (r *Renderer) sanitize(raw string) string {
	if raw == "" || r.policy == nil {
		return raw
	}
	return r.policy.Sanitize(raw)
}

func (r *Renderer) template(path string) (*pongo2.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tmpl, ok := r.templates[path]; ok {
		return tmpl, nil
	}
	tmpl, err := r.set.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("html renderer: load template %q: %w", path, err)
	}
	r.templates[path] = tmpl
	return tmpl, nil
}
