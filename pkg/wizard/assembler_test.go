package wizard

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/foundersclub/formflow/pkg/model"
)

func TestAssemble_FillsUnansweredFieldsWithZeroValues(t *testing.T) {
	maxMembers := 4
	fields := []model.FieldDefinition{
		{Name: "bio", Type: model.FieldTypeTextarea},
		{Name: "track", Type: model.FieldTypeSelect, Options: []string{"web", "mobile"}},
		{Name: "newsletter", Type: model.FieldTypeCheckbox, Checkbox: &model.CheckboxOptions{Kind: model.CheckboxSingle}},
		{Name: "interests", Type: model.FieldTypeCheckbox, Checkbox: &model.CheckboxOptions{
			Kind:  model.CheckboxMultiple,
			Items: []model.CheckboxItem{{ID: "ai", Label: "AI"}},
		}},
		{Name: "age", Type: model.FieldTypeSlider, Slider: &model.SliderOptions{Min: 18, Max: 65}},
		{Name: "team", Type: model.FieldTypeMemberSelect, MemberSelect: &model.MemberSelectOptions{MinMembers: 1, MaxMembers: &maxMembers}},
		{Name: "rules", Type: model.FieldTypeRedirect, Redirect: &model.RedirectOptions{URL: "https://club.example/rules"}},
	}

	when := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	payload := Assemble(fields, map[string]any{"track": "web"}, SubmitContext{
		Identity:    Identity{UserID: "u1", Email: "a@b.com"},
		EventID:     "demo-day",
		AutoApprove: true,
	}, when)

	want := Payload{
		EventID:     "demo-day",
		UserID:      "u1",
		Email:       "a@b.com",
		Approved:    true,
		SubmittedAt: when,
		Answers: map[string]any{
			"bio":        "",
			"track":      "web",
			"newsletter": false,
			"interests":  []string{},
			"age":        nil,
			"team":       []string{},
		},
	}
	if diff := cmp.Diff(want, payload); diff != "" {
		t.Fatalf("payload (-want +got):\n%s", diff)
	}
	if _, present := payload.Answers["rules"]; present {
		t.Fatalf("redirect step leaked into answers")
	}
}

func TestAssemble_BoundValuesWinOverZeroes(t *testing.T) {
	fields := []model.FieldDefinition{
		{Name: "bio", Type: model.FieldTypeTextarea},
		{Name: "age", Type: model.FieldTypeSlider, Slider: &model.SliderOptions{Min: 18, Max: 65}},
	}

	payload := Assemble(fields, map[string]any{"age": 30.0}, SubmitContext{EventID: "demo-day"}, time.Now())
	want := map[string]any{"bio": "", "age": 30.0}
	if diff := cmp.Diff(want, payload.Answers); diff != "" {
		t.Fatalf("answers (-want +got):\n%s", diff)
	}
}
