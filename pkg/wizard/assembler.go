package wizard

import (
	"time"

	"github.com/foundersclub/formflow/pkg/model"
)

// Assemble gathers the session's bound values into a submission payload,
// keyed by field name and carrying the cross-cutting metadata from the
// submit context. Fields the registrant never answered are filled with their
// type's zero value so payload shapes stay uniform across submissions.
// Redirect steps are informational only and never appear in Answers.
// Idempotence for repeat registrations is the persistence collaborator's
// responsibility, not the assembler's.
func Assemble(fields []model.FieldDefinition, values map[string]any, sc SubmitContext, submittedAt time.Time) Payload {
	answers := make(map[string]any, len(fields))
	for _, field := range fields {
		if field.Type == model.FieldTypeRedirect {
			continue
		}
		value, ok := values[field.Name]
		if !ok || value == nil {
			value = zeroAnswer(field)
		}
		answers[field.Name] = value
	}

	return Payload{
		EventID:     sc.EventID,
		UserID:      sc.Identity.UserID,
		Email:       sc.Identity.Email,
		Approved:    sc.AutoApprove,
		SubmittedAt: submittedAt,
		Answers:     answers,
	}
}

func zeroAnswer(field model.FieldDefinition) any {
	switch field.Type {
	case model.FieldTypeText, model.FieldTypeTextarea, model.FieldTypeSelect,
		model.FieldTypeRadio, model.FieldTypeURL, model.FieldTypeFile:
		return ""
	case model.FieldTypeCheckbox:
		if field.Checkbox != nil && field.Checkbox.Kind == model.CheckboxMultiple {
			return []string{}
		}
		return false
	case model.FieldTypeMemberSelect:
		return []string{}
	default:
		// slider and date have no meaningful zero; absent stays null.
		return nil
	}
}
