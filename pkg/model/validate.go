package model

import (
	"fmt"
	"regexp"
)

// DefinitionError reports a schema invariant violation. These surface to the
// administrator at authoring or publish time; a registrant-facing wizard never
// receives an invalid schema.
type DefinitionError struct {
	Field   string
	Message string
}

func (e *DefinitionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("form schema: %s", e.Message)
	}
	return fmt.Sprintf("form schema: field %q: %s", e.Field, e.Message)
}

func definitionErrorf(field, format string, args ...any) error {
	return &DefinitionError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the schema against its structural invariants: non-empty
// unique names, non-empty options for enumerated kinds, non-empty items for
// multi-checkbox groups, slider max > min, and tag-consistent payloads. A
// schema with zero fields is legal; blocking activation of an empty form is
// the caller's concern.
func (s FormSchema) Validate() error {
	seen := make(map[string]struct{}, len(s.Fields))
	for i, field := range s.Fields {
		if field.Name == "" {
			return definitionErrorf("", "field at index %d has no name", i)
		}
		if _, dup := seen[field.Name]; dup {
			return definitionErrorf(field.Name, "duplicate field name")
		}
		seen[field.Name] = struct{}{}

		if err := field.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f FieldDefinition) validate() error {
	if !f.Type.Known() {
		return definitionErrorf(f.Name, "unknown field type %q", f.Type)
	}
	if err := f.checkStrayPayloads(); err != nil {
		return err
	}

	switch f.Type {
	case FieldTypeText, FieldTypeTextarea, FieldTypeURL:
		if v := f.Validation; v != nil {
			if v.MinLength != nil && *v.MinLength < 0 {
				return definitionErrorf(f.Name, "minLength must not be negative")
			}
			if v.MinLength != nil && v.MaxLength != nil && *v.MaxLength < *v.MinLength {
				return definitionErrorf(f.Name, "maxLength %d is below minLength %d", *v.MaxLength, *v.MinLength)
			}
			if v.Pattern != "" {
				if _, err := regexp.Compile(v.Pattern); err != nil {
					return definitionErrorf(f.Name, "invalid pattern: %v", err)
				}
			}
		}
	case FieldTypeSelect, FieldTypeRadio:
		if len(f.Options) == 0 {
			return definitionErrorf(f.Name, "options must not be empty")
		}
		seen := make(map[string]struct{}, len(f.Options))
		for _, opt := range f.Options {
			if _, dup := seen[opt]; dup {
				return definitionErrorf(f.Name, "duplicate option %q", opt)
			}
			seen[opt] = struct{}{}
		}
	case FieldTypeCheckbox:
		cb := f.Checkbox
		if cb == nil {
			return definitionErrorf(f.Name, "checkbox configuration is required")
		}
		switch cb.Kind {
		case CheckboxSingle:
		case CheckboxMultiple:
			if len(cb.Items) == 0 {
				return definitionErrorf(f.Name, "checkbox items must not be empty")
			}
			seen := make(map[string]struct{}, len(cb.Items))
			for _, item := range cb.Items {
				if item.ID == "" {
					return definitionErrorf(f.Name, "checkbox item has no id")
				}
				if _, dup := seen[item.ID]; dup {
					return definitionErrorf(f.Name, "duplicate checkbox item id %q", item.ID)
				}
				seen[item.ID] = struct{}{}
			}
		default:
			return definitionErrorf(f.Name, "unknown checkbox kind %q", cb.Kind)
		}
	case FieldTypeSlider:
		sl := f.Slider
		if sl == nil {
			return definitionErrorf(f.Name, "slider bounds are required")
		}
		if sl.Max <= sl.Min {
			return definitionErrorf(f.Name, "slider max %v must be greater than min %v", sl.Max, sl.Min)
		}
	case FieldTypeRedirect:
		if f.Redirect == nil || f.Redirect.URL == "" {
			return definitionErrorf(f.Name, "redirect url is required")
		}
	case FieldTypeMemberSelect:
		ms := f.MemberSelect
		if ms == nil {
			return definitionErrorf(f.Name, "member select bounds are required")
		}
		if ms.MinMembers < 0 {
			return definitionErrorf(f.Name, "minMembers must not be negative")
		}
		if ms.MaxMembers != nil && *ms.MaxMembers < ms.MinMembers {
			return definitionErrorf(f.Name, "maxMembers %d is below minMembers %d", *ms.MaxMembers, ms.MinMembers)
		}
	}
	return nil
}

// checkStrayPayloads rejects payload structs that contradict the type tag,
// keeping the union closed even for hand-written JSON.
func (f FieldDefinition) checkStrayPayloads() error {
	stray := func(name string) error {
		return definitionErrorf(f.Name, "%s configuration is not valid for field type %q", name, f.Type)
	}
	switch f.Type {
	case FieldTypeText, FieldTypeTextarea:
	default:
		if f.Type != FieldTypeURL && f.Validation != nil {
			return stray("validation")
		}
	}
	if f.Type != FieldTypeSelect && f.Type != FieldTypeRadio && len(f.Options) > 0 {
		return stray("options")
	}
	if f.Type != FieldTypeCheckbox && f.Checkbox != nil {
		return stray("checkbox")
	}
	if f.Type != FieldTypeSlider && f.Slider != nil {
		return stray("slider")
	}
	if f.Type != FieldTypeURL && f.URL != nil {
		return stray("url")
	}
	if f.Type != FieldTypeFile && f.File != nil {
		return stray("file")
	}
	if f.Type != FieldTypeRedirect && f.Redirect != nil {
		return stray("redirect")
	}
	if f.Type != FieldTypeMemberSelect && f.MemberSelect != nil {
		return stray("memberSelect")
	}
	return nil
}
