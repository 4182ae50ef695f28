package model

// DefaultField produces a sensible zero-value definition for the given kind.
// This is what a builder's "Add Field" action invokes; names are assigned by
// the caller (see FormSchema.AddField).
func DefaultField(t FieldType) FieldDefinition {
	def := FieldDefinition{Type: t}
	switch t {
	case FieldTypeSelect, FieldTypeRadio:
		def.Options = []string{}
	case FieldTypeCheckbox:
		def.Checkbox = &CheckboxOptions{Kind: CheckboxSingle}
	case FieldTypeSlider:
		def.Slider = &SliderOptions{Min: 0, Max: 10}
	case FieldTypeURL:
		def.URL = &URLOptions{Placeholder: "https://"}
	case FieldTypeFile:
		def.File = &FileOptions{MaxSizeMB: 5}
	case FieldTypeRedirect:
		def.Redirect = &RedirectOptions{}
	case FieldTypeMemberSelect:
		def.MemberSelect = &MemberSelectOptions{MinMembers: 1}
	}
	return def
}

// Update replaces base with patch as a whole-field operation. When the patch
// changes the type tag, the type-specific payload is rebuilt from the new
// kind's defaults instead of being carried over, keeping the union closed.
// Head fields from patch win; an empty patch name keeps the stable identifier.
func Update(base, patch FieldDefinition) FieldDefinition {
	if patch.Name == "" {
		patch.Name = base.Name
	}
	if patch.Type != base.Type {
		next := DefaultField(patch.Type)
		next.Name = patch.Name
		next.Label = patch.Label
		next.Description = patch.Description
		next.Required = patch.Required
		return next
	}
	return Normalize(patch)
}

// Normalize strips payloads that do not belong to the field's type tag and
// fills in the mandatory payload struct when absent. It never invents data
// beyond the per-type defaults.
func Normalize(def FieldDefinition) FieldDefinition {
	out := FieldDefinition{
		Name:        def.Name,
		Type:        def.Type,
		Label:       def.Label,
		Description: def.Description,
		Required:    def.Required,
	}
	switch def.Type {
	case FieldTypeText, FieldTypeTextarea:
		out.Validation = def.Validation
	case FieldTypeSelect, FieldTypeRadio:
		out.Options = def.Options
	case FieldTypeCheckbox:
		out.Checkbox = def.Checkbox
		if out.Checkbox == nil {
			out.Checkbox = &CheckboxOptions{Kind: CheckboxSingle}
		}
	case FieldTypeSlider:
		out.Slider = def.Slider
		if out.Slider == nil {
			out.Slider = &SliderOptions{Min: 0, Max: 10}
		}
	case FieldTypeURL:
		out.Validation = def.Validation
		out.URL = def.URL
	case FieldTypeFile:
		out.File = def.File
	case FieldTypeRedirect:
		out.Redirect = def.Redirect
		if out.Redirect == nil {
			out.Redirect = &RedirectOptions{}
		}
	case FieldTypeMemberSelect:
		out.MemberSelect = def.MemberSelect
		if out.MemberSelect == nil {
			out.MemberSelect = &MemberSelectOptions{}
		}
	default:
		// Unknown tags keep only the head; the compiler fails them closed.
	}
	return out
}
