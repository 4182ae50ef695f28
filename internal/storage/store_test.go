package storage

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/foundersclub/formflow/pkg/model"
	"github.com/foundersclub/formflow/pkg/wizard"
)

func TestSchemaRecordRoundTrip(t *testing.T) {
	schema := model.FormSchema{
		EventID: "demo-day",
		Title:   "Demo Day",
		Fields: []model.FieldDefinition{
			{Name: "email", Type: model.FieldTypeText, Required: true, Validation: &model.Validation{Pattern: "^[^@]+@[^@]+$"}},
			{Name: "age", Type: model.FieldTypeSlider, Slider: &model.SliderOptions{Min: 18, Max: 65}},
		},
	}

	record, err := recordFromSchema(schema)
	if err != nil {
		t.Fatalf("to record: %v", err)
	}
	if record.EventID != "demo-day" || record.Title != "Demo Day" {
		t.Fatalf("record metadata wrong: %+v", record)
	}

	decoded, err := schemaFromRecord(record)
	if err != nil {
		t.Fatalf("from record: %v", err)
	}
	if diff := cmp.Diff(schema, decoded); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestSchemaFromRecord_Corrupt(t *testing.T) {
	record := &FormRecord{EventID: "demo-day", Schema: []byte("{not json")}
	if _, err := schemaFromRecord(record); err == nil {
		t.Fatalf("corrupt schema must not load")
	}
}

func TestSubmissionFromPayload(t *testing.T) {
	when := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	payload := wizard.Payload{
		EventID:     "demo-day",
		UserID:      "u1",
		Email:       "a@b.com",
		Approved:    true,
		SubmittedAt: when,
		Answers:     map[string]any{"bio": "", "age": 30.0},
	}

	record, err := submissionFromPayload(payload)
	if err != nil {
		t.Fatalf("to record: %v", err)
	}
	if record.EventID != "demo-day" || record.UserID != "u1" || !record.Approved {
		t.Fatalf("record metadata wrong: %+v", record)
	}
	if !record.SubmittedAt.Equal(when) {
		t.Fatalf("timestamp wrong: %v", record.SubmittedAt)
	}
	if len(record.Payload) == 0 {
		t.Fatalf("answers not serialized")
	}
}

func TestSubmissionFromPayload_RequiresIdentity(t *testing.T) {
	if _, err := submissionFromPayload(wizard.Payload{EventID: "demo-day"}); err == nil {
		t.Fatalf("missing user id must be rejected")
	}
	if _, err := submissionFromPayload(wizard.Payload{UserID: "u1"}); err == nil {
		t.Fatalf("missing event id must be rejected")
	}
}
