// Package compiler turns a form schema into runnable validators. Compilation
// is pure and deterministic: the same schema always yields checkers with
// identical accept/reject behaviour, so compiled schemas are safe to cache
// (see Compiler) and to share across wizard instances.
package compiler

import (
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/foundersclub/formflow/pkg/model"
)

// Checker validates one field's candidate value. A nil return means the value
// is acceptable for that field.
type Checker func(value any) error

// Compiled holds the per-field checkers derived from one schema. It is
// immutable after Compile and safe for concurrent use.
type Compiled struct {
	schema      model.FormSchema
	checkers    map[string]Checker
	order       []string
	fingerprint string
}

// Compile validates the schema's own invariants and derives one checker per
// payload-bearing field. Redirect steps carry no data and are excluded from
// the compiled schema entirely. Unrecognised field types do not fail
// compilation; they produce a checker that always rejects with a diagnostic
// so corrupt definitions fail closed instead of passing silently.
func Compile(schema model.FormSchema) (*Compiled, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	fingerprint, err := Fingerprint(schema)
	if err != nil {
		return nil, err
	}

	compiled := &Compiled{
		schema:      schema,
		checkers:    make(map[string]Checker, len(schema.Fields)),
		fingerprint: fingerprint,
	}
	for _, field := range schema.Fields {
		if field.Type == model.FieldTypeRedirect {
			continue
		}
		compiled.checkers[field.Name] = compileField(field)
		compiled.order = append(compiled.order, field.Name)
	}
	return compiled, nil
}

// Schema returns the schema this validator was compiled from.
func (c *Compiled) Schema() model.FormSchema { return c.schema }

// Fingerprint returns the identity hash of the source schema.
func (c *Compiled) Fingerprint() string { return c.fingerprint }

// Checker returns the compiled checker for a field name.
func (c *Compiled) Checker(name string) (Checker, bool) {
	checker, ok := c.checkers[name]
	return checker, ok
}

// CheckField validates a single field's candidate value, as the wizard does
// on every step transition.
func (c *Compiled) CheckField(name string, value any) error {
	checker, ok := c.checkers[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return checker(value)
}

// CheckPayload validates a whole submission payload field by field, in schema
// order. Keys the schema does not declare are rejected. A nil return means
// the payload is acceptable; otherwise the error is a *PayloadError.
func (c *Compiled) CheckPayload(payload map[string]any) error {
	var failed []*FieldError
	for _, name := range c.order {
		if err := c.checkers[name](payload[name]); err != nil {
			if fe, ok := err.(*FieldError); ok {
				failed = append(failed, fe)
				continue
			}
			failed = append(failed, &FieldError{Field: name, Message: err.Error()})
		}
	}
	for key := range payload {
		if _, ok := c.checkers[key]; !ok {
			failed = append(failed, &FieldError{Field: key, Message: "is not part of this form"})
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &PayloadError{Fields: failed}
}

func compileField(field model.FieldDefinition) Checker {
	switch field.Type {
	case model.FieldTypeText, model.FieldTypeTextarea:
		return textChecker(field)
	case model.FieldTypeSelect, model.FieldTypeRadio:
		return enumChecker(field)
	case model.FieldTypeCheckbox:
		if field.Checkbox != nil && field.Checkbox.Kind == model.CheckboxMultiple {
			return multiCheckboxChecker(field)
		}
		return singleCheckboxChecker(field)
	case model.FieldTypeDate:
		return dateChecker(field)
	case model.FieldTypeSlider:
		return sliderChecker(field)
	case model.FieldTypeURL:
		return urlChecker(field)
	case model.FieldTypeFile:
		return fileChecker(field)
	case model.FieldTypeMemberSelect:
		return memberSelectChecker(field)
	default:
		// Data corruption or a version skew; fail closed with a diagnostic.
		name := field.Name
		fieldType := field.Type
		return func(any) error {
			return fieldErrorf(name, "field type %q is not supported", fieldType)
		}
	}
}

func textChecker(field model.FieldDefinition) Checker {
	name := field.Name
	required := field.Required
	var (
		minLen, maxLen *int
		pattern        *regexp.Regexp
	)
	if v := field.Validation; v != nil {
		minLen, maxLen = v.MinLength, v.MaxLength
		if v.Pattern != "" {
			// Schema validation already proved the expression compiles.
			pattern = regexp.MustCompile(v.Pattern)
		}
	}

	return func(value any) error {
		text, ok := asString(value)
		if !ok {
			return fieldErrorf(name, "must be text")
		}
		if text == "" {
			// required=false is an explicit empty-string escape hatch, not
			// merely optional-absent.
			if required {
				return fieldErrorf(name, "is required")
			}
			return nil
		}
		if minLen != nil && len(text) < *minLen {
			return fieldErrorf(name, "must be at least %d characters", *minLen)
		}
		if maxLen != nil && len(text) > *maxLen {
			return fieldErrorf(name, "must be at most %d characters", *maxLen)
		}
		if pattern != nil && !pattern.MatchString(text) {
			return fieldErrorf(name, "does not match the expected format")
		}
		return nil
	}
}

func enumChecker(field model.FieldDefinition) Checker {
	name := field.Name
	required := field.Required
	allowed := make(map[string]struct{}, len(field.Options))
	for _, opt := range field.Options {
		allowed[opt] = struct{}{}
	}

	return func(value any) error {
		choice, ok := asString(value)
		if !ok {
			return fieldErrorf(name, "please select an option")
		}
		if choice == "" {
			if required {
				return fieldErrorf(name, "please select an option")
			}
			return nil
		}
		// Closed enumeration: near matches and free text are rejected.
		if _, ok := allowed[choice]; !ok {
			return fieldErrorf(name, "must be one of the listed options")
		}
		return nil
	}
}

func singleCheckboxChecker(field model.FieldDefinition) Checker {
	name := field.Name
	return func(value any) error {
		if value == nil {
			return nil // absent reads as false
		}
		if _, ok := value.(bool); !ok {
			return fieldErrorf(name, "must be a yes/no value")
		}
		return nil
	}
}

func multiCheckboxChecker(field model.FieldDefinition) Checker {
	name := field.Name
	required := field.Required
	known := make(map[string]struct{}, len(field.Checkbox.Items))
	for _, item := range field.Checkbox.Items {
		known[item.ID] = struct{}{}
	}

	return func(value any) error {
		ids, ok := asStringSlice(value)
		if !ok {
			return fieldErrorf(name, "must be a list of selections")
		}
		distinct := dedupe(ids)
		for _, id := range distinct {
			if _, ok := known[id]; !ok {
				return fieldErrorf(name, "%q is not a recognised option", id)
			}
		}
		if required && len(distinct) == 0 {
			return fieldErrorf(name, "select at least one option")
		}
		return nil
	}
}

func dateChecker(field model.FieldDefinition) Checker {
	name := field.Name
	required := field.Required
	return func(value any) error {
		when, ok := asTime(value)
		if !ok {
			if value == nil {
				if required {
					return fieldErrorf(name, "is required")
				}
				return nil
			}
			return fieldErrorf(name, "must be a valid date")
		}
		if when.IsZero() {
			if required {
				return fieldErrorf(name, "is required")
			}
			return nil
		}
		return nil
	}
}

func sliderChecker(field model.FieldDefinition) Checker {
	name := field.Name
	required := field.Required
	min, max := field.Slider.Min, field.Slider.Max
	return func(value any) error {
		if value == nil {
			if required {
				return fieldErrorf(name, "is required")
			}
			return nil
		}
		n, ok := asNumber(value)
		if !ok {
			return fieldErrorf(name, "must be a number")
		}
		if n < min || n > max {
			return fieldErrorf(name, "must be between %v and %v", min, max)
		}
		return nil
	}
}

func urlChecker(field model.FieldDefinition) Checker {
	name := field.Name
	required := field.Required
	var pattern *regexp.Regexp
	if v := field.Validation; v != nil && v.Pattern != "" {
		pattern = regexp.MustCompile(v.Pattern)
	}

	return func(value any) error {
		raw, ok := asString(value)
		if !ok {
			return fieldErrorf(name, "must be a link")
		}
		if raw == "" {
			if required {
				return fieldErrorf(name, "is required")
			}
			return nil
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fieldErrorf(name, "must be a valid URL")
		}
		if pattern != nil && !pattern.MatchString(raw) {
			return fieldErrorf(name, "does not match the expected format")
		}
		return nil
	}
}

func fileChecker(field model.FieldDefinition) Checker {
	name := field.Name
	required := field.Required
	return func(value any) error {
		location, ok := asString(value)
		if !ok {
			return fieldErrorf(name, "must be an uploaded file")
		}
		if location == "" && required {
			return fieldErrorf(name, "a file upload is required")
		}
		return nil
	}
}

func memberSelectChecker(field model.FieldDefinition) Checker {
	name := field.Name
	required := field.Required
	min := field.MemberSelect.MinMembers
	max := field.MemberSelect.MaxMembers
	return func(value any) error {
		members, ok := asStringSlice(value)
		if !ok {
			return fieldErrorf(name, "must be a list of members")
		}
		distinct := dedupe(members)
		if required && len(distinct) == 0 {
			return fieldErrorf(name, "select at least one member")
		}
		if len(distinct) > 0 || required {
			if len(distinct) < min {
				return fieldErrorf(name, "select at least %d members", min)
			}
			if max != nil && len(distinct) > *max {
				return fieldErrorf(name, "select at most %d members", *max)
			}
		}
		return nil
	}
}

func asString(value any) (string, bool) {
	if value == nil {
		return "", true
	}
	s, ok := value.(string)
	return s, ok
}

func asNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func asStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case nil:
		return nil, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func asTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	default:
		return time.Time{}, false
	}
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// IsEmpty reports whether a candidate value counts as "nothing entered" for
// the wizard's skip-if-empty-and-optional rule.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case time.Time:
		return v.IsZero()
	case *time.Time:
		return v == nil || v.IsZero()
	default:
		return false
	}
}
