// Package openapi derives draft form schemas from OpenAPI documents so event
// organizers can bootstrap a registration form from an existing API contract
// instead of starting blank.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/foundersclub/formflow/pkg/model"
)

// ErrOperationNotFound is returned when the document does not declare the
// requested operationId.
var ErrOperationNotFound = errors.New("openapi: operation not found")

// ImportOptions tune how a document is loaded.
type ImportOptions struct {
	// ResolveReferences validates the document and follows external $refs.
	ResolveReferences bool
}

// ImportOperation loads an OpenAPI document and converts the JSON request
// body of one operation into a draft form schema. The draft is validated
// before it is returned; organizers refine it with the schema builder
// afterwards.
func ImportOperation(ctx context.Context, raw []byte, operationID, eventID string, options ImportOptions) (model.FormSchema, error) {
	if len(raw) == 0 {
		return model.FormSchema{}, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: options.ResolveReferences,
	}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("openapi: load document: %w", err)
	}
	if options.ResolveReferences {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return model.FormSchema{}, fmt.Errorf("openapi: validate: %w", err)
		}
	}

	operation := findOperation(spec, operationID)
	if operation == nil {
		return model.FormSchema{}, fmt.Errorf("openapi: %w: %s", ErrOperationNotFound, operationID)
	}

	body := requestBodySchema(operation.RequestBody)
	if body == nil {
		return model.FormSchema{}, fmt.Errorf("openapi: operation %s has no usable request body", operationID)
	}

	schema := model.FormSchema{
		EventID: eventID,
		Title:   firstNonEmpty(operation.Summary, operationID),
		Fields:  convertProperties(body),
	}
	if err := schema.Validate(); err != nil {
		return model.FormSchema{}, err
	}
	return schema, nil
}

func findOperation(spec *openapi3.T, operationID string) *openapi3.Operation {
	if spec.Paths == nil {
		return nil
	}
	for _, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range []*openapi3.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Patch, item.Head, item.Options, item.Trace,
		} {
			if op != nil && op.OperationID == operationID {
				return op
			}
		}
	}
	return nil
}

func requestBodySchema(ref *openapi3.RequestBodyRef) *openapi3.Schema {
	if ref == nil || ref.Value == nil {
		return nil
	}
	content := ref.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

// convertProperties maps object properties to field definitions in a
// deterministic order: required fields first, then alphabetical.
func convertProperties(src *openapi3.Schema) []model.FieldDefinition {
	required := make(map[string]bool, len(src.Required))
	for _, name := range src.Required {
		required[name] = true
	}

	names := make([]string, 0, len(src.Properties))
	for name := range src.Properties {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if required[names[i]] != required[names[j]] {
			return required[names[i]]
		}
		return names[i] < names[j]
	})

	fields := make([]model.FieldDefinition, 0, len(names))
	for _, name := range names {
		property := src.Properties[name]
		if property == nil || property.Value == nil {
			continue
		}
		field, ok := convertProperty(name, property.Value, required[name])
		if !ok {
			continue
		}
		fields = append(fields, field)
	}
	return fields
}

func convertProperty(name string, src *openapi3.Schema, required bool) (model.FieldDefinition, bool) {
	field := model.FieldDefinition{
		Name:        name,
		Label:       firstNonEmpty(src.Title, name),
		Description: src.Description,
		Required:    required,
	}

	switch firstSchemaType(src.Type) {
	case "string":
		return convertString(field, src), true
	case "boolean":
		field.Type = model.FieldTypeCheckbox
		field.Checkbox = &model.CheckboxOptions{Kind: model.CheckboxSingle}
		return field, true
	case "integer", "number":
		field.Type = model.FieldTypeSlider
		slider := model.DefaultField(model.FieldTypeSlider).Slider
		if src.Min != nil {
			slider.Min = *src.Min
		}
		if src.Max != nil {
			slider.Max = *src.Max
		}
		field.Slider = slider
		return field, true
	case "array":
		return convertArray(field, src)
	default:
		// Objects and unions have no single-control equivalent.
		return model.FieldDefinition{}, false
	}
}

func convertString(field model.FieldDefinition, src *openapi3.Schema) model.FieldDefinition {
	if len(src.Enum) > 0 {
		field.Type = model.FieldTypeSelect
		field.Options = stringifyEnum(src.Enum)
		return field
	}

	switch src.Format {
	case "date", "date-time":
		field.Type = model.FieldTypeDate
		return field
	case "uri", "url":
		field.Type = model.FieldTypeURL
		field.URL = &model.URLOptions{Placeholder: "https://"}
		return field
	case "binary":
		field.Type = model.FieldTypeFile
		field.File = model.DefaultField(model.FieldTypeFile).File
		return field
	}

	if src.MaxLength != nil && *src.MaxLength > 255 {
		field.Type = model.FieldTypeTextarea
	} else {
		field.Type = model.FieldTypeText
	}

	validation := &model.Validation{Pattern: src.Pattern}
	if src.MinLength != 0 {
		value := int(src.MinLength)
		validation.MinLength = &value
	}
	if src.MaxLength != nil {
		value := int(*src.MaxLength)
		validation.MaxLength = &value
	}
	if validation.Pattern != "" || validation.MinLength != nil || validation.MaxLength != nil {
		field.Validation = validation
	}
	return field
}

func convertArray(field model.FieldDefinition, src *openapi3.Schema) (model.FieldDefinition, bool) {
	if src.Items == nil || src.Items.Value == nil {
		return model.FieldDefinition{}, false
	}
	items := src.Items.Value
	if firstSchemaType(items.Type) != "string" || len(items.Enum) == 0 {
		return model.FieldDefinition{}, false
	}

	options := stringifyEnum(items.Enum)
	checkboxItems := make([]model.CheckboxItem, 0, len(options))
	for _, option := range options {
		checkboxItems = append(checkboxItems, model.CheckboxItem{ID: option, Label: option})
	}
	field.Type = model.FieldTypeCheckbox
	field.Checkbox = &model.CheckboxOptions{
		Kind:  model.CheckboxMultiple,
		Items: checkboxItems,
	}
	return field, true
}

func firstSchemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	default:
		return strings.Join(values, ",")
	}
}

func stringifyEnum(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
