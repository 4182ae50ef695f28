package model

// FieldType is the closed enum of field kinds a registration form can carry.
// Every FieldDefinition is tagged with exactly one of these; the schema
// compiler and the renderers both dispatch on the tag.
type FieldType string

const (
	FieldTypeText         FieldType = "text"
	FieldTypeTextarea     FieldType = "textarea"
	FieldTypeSelect       FieldType = "select"
	FieldTypeRadio        FieldType = "radio"
	FieldTypeCheckbox     FieldType = "checkbox"
	FieldTypeDate         FieldType = "date"
	FieldTypeSlider       FieldType = "slider"
	FieldTypeURL          FieldType = "url"
	FieldTypeFile         FieldType = "file"
	FieldTypeRedirect     FieldType = "redirect"
	FieldTypeMemberSelect FieldType = "member_select"
)

// Known reports whether t is one of the recognised field kinds.
func (t FieldType) Known() bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeSelect, FieldTypeRadio,
		FieldTypeCheckbox, FieldTypeDate, FieldTypeSlider, FieldTypeURL,
		FieldTypeFile, FieldTypeRedirect, FieldTypeMemberSelect:
		return true
	default:
		return false
	}
}

// FieldTypes lists the recognised kinds in a stable order. Builders use it to
// populate "Add Field" menus.
func FieldTypes() []FieldType {
	return []FieldType{
		FieldTypeText,
		FieldTypeTextarea,
		FieldTypeSelect,
		FieldTypeRadio,
		FieldTypeCheckbox,
		FieldTypeDate,
		FieldTypeSlider,
		FieldTypeURL,
		FieldTypeFile,
		FieldTypeRedirect,
		FieldTypeMemberSelect,
	}
}

// Validation carries the optional string constraints shared by text, textarea
// and url fields.
type Validation struct {
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

// CheckboxKind distinguishes a single yes/no checkbox from a multi-item group.
type CheckboxKind string

const (
	CheckboxSingle   CheckboxKind = "single"
	CheckboxMultiple CheckboxKind = "multiple"
)

// CheckboxItem is one selectable entry of a multi-checkbox group. IDs are the
// values stored in the submission payload; labels are display-only.
type CheckboxItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// CheckboxOptions configures checkbox fields. Items is only meaningful when
// Kind is CheckboxMultiple.
type CheckboxOptions struct {
	Kind  CheckboxKind   `json:"kind"`
	Items []CheckboxItem `json:"items,omitempty"`
}

// SliderOptions bounds a numeric slider. Max must be strictly greater than Min.
type SliderOptions struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// URLOptions configures url fields. Stricter scheme checks reuse
// Validation.Pattern on the owning field.
type URLOptions struct {
	Placeholder string `json:"placeholder,omitempty"`
}

// FileOptions configures upload fields. AcceptedTypes is a MIME pattern such
// as "image/*" or "application/pdf".
type FileOptions struct {
	AcceptedTypes string `json:"acceptedTypes,omitempty"`
	MaxSizeMB     int    `json:"maxSizeMB,omitempty"`
}

// RedirectOptions configures informational redirect steps. Redirect fields
// never contribute to the submission payload.
type RedirectOptions struct {
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

// MemberSelectOptions bounds how many team members a registrant can attach.
// A nil MaxMembers leaves the upper bound open.
type MemberSelectOptions struct {
	MinMembers int  `json:"minMembers"`
	MaxMembers *int `json:"maxMembers,omitempty"`
}

// FieldDefinition is one entry of a form schema: a common head plus exactly
// one type-specific payload matching the Type tag. Payloads for other kinds
// must stay nil so a text field can never acquire select options; Normalize
// and UnmarshalJSON enforce this.
type FieldDefinition struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"fieldType"`
	Label       string    `json:"label,omitempty"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`

	Validation   *Validation          `json:"validation,omitempty"`
	Options      []string             `json:"options,omitempty"`
	Checkbox     *CheckboxOptions     `json:"checkbox,omitempty"`
	Slider       *SliderOptions       `json:"slider,omitempty"`
	URL          *URLOptions          `json:"url,omitempty"`
	File         *FileOptions         `json:"file,omitempty"`
	Redirect     *RedirectOptions     `json:"redirect,omitempty"`
	MemberSelect *MemberSelectOptions `json:"memberSelect,omitempty"`
}

// FormSchema is the ordered field list for one event's registration form plus
// the owning-event metadata the storage layer keys on. Order is positional;
// reordering moves array indices, never identifiers.
type FormSchema struct {
	EventID string            `json:"eventId,omitempty"`
	Title   string            `json:"title,omitempty"`
	Fields  []FieldDefinition `json:"fields"`
}

// FieldNames returns the field names in schema order, excluding redirect
// steps, which never appear in a payload.
func (s FormSchema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		if field.Type == FieldTypeRedirect {
			continue
		}
		names = append(names, field.Name)
	}
	return names
}

// Field looks up a definition by name.
func (s FormSchema) Field(name string) (FieldDefinition, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDefinition{}, false
}
