package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/foundersclub/formflow/pkg/compiler"
	"github.com/foundersclub/formflow/pkg/model"
)

type recordingSubmitter struct {
	calls    int
	last     Payload
	fail     error
	receipts Receipt
}

func (s *recordingSubmitter) Submit(_ context.Context, payload Payload) (Receipt, error) {
	s.calls++
	s.last = payload
	if s.fail != nil {
		return Receipt{}, s.fail
	}
	return s.receipts, nil
}

// countingValidator wraps a compiled schema and counts CheckField calls so
// the skip rule is observable.
type countingValidator struct {
	inner      Validator
	fieldCalls map[string]int
}

func newCountingValidator(t *testing.T, schema model.FormSchema) *countingValidator {
	t.Helper()
	compiled, err := compiler.Compile(schema)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return &countingValidator{inner: compiled, fieldCalls: make(map[string]int)}
}

func (v *countingValidator) CheckField(name string, value any) error {
	v.fieldCalls[name]++
	return v.inner.CheckField(name, value)
}

func (v *countingValidator) CheckPayload(payload map[string]any) error {
	return v.inner.CheckPayload(payload)
}

func emailSchema() model.FormSchema {
	return model.FormSchema{
		EventID: "hack-night",
		Fields: []model.FieldDefinition{
			{Name: "email", Type: model.FieldTypeText, Required: true, Validation: &model.Validation{Pattern: "^[^@]+@[^@]+$"}},
		},
	}
}

func bioAgeSchema() model.FormSchema {
	return model.FormSchema{
		EventID: "demo-day",
		Fields: []model.FieldDefinition{
			{Name: "bio", Type: model.FieldTypeTextarea},
			{Name: "age", Type: model.FieldTypeSlider, Required: true, Slider: &model.SliderOptions{Min: 18, Max: 65}},
		},
	}
}

func TestSingleEmailField_EndToEnd(t *testing.T) {
	submitter := &recordingSubmitter{receipts: Receipt{ID: "sub-1"}}
	ctrl, err := New(emailSchema(), submitter)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctrl.SetValue("email", "not-an-email")
	if _, err := ctrl.Submit(context.Background(), SubmitContext{EventID: "hack-night"}); err == nil {
		t.Fatalf("invalid email must be rejected")
	}
	if ctrl.Step() != 0 {
		t.Fatalf("step moved after failed validation")
	}
	if msg := ctrl.StepError(0); msg == "" {
		t.Fatalf("touched step must surface an error message")
	}
	if submitter.calls != 0 {
		t.Fatalf("persistence invoked despite invalid field")
	}

	ctrl.SetValue("email", "a@b.com")
	receipt, err := ctrl.Submit(context.Background(), SubmitContext{
		Identity: Identity{UserID: "u1", Email: "a@b.com"},
		EventID:  "hack-night",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.ID != "sub-1" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if ctrl.Status() != StatusDone {
		t.Fatalf("expected done, got %q", ctrl.Status())
	}
	if submitter.calls != 1 {
		t.Fatalf("expected exactly one persistence call, got %d", submitter.calls)
	}
}

func TestSkipRule_OptionalEmptyNeverInvokesChecker(t *testing.T) {
	schema := bioAgeSchema()
	validator := newCountingValidator(t, schema)
	ctrl, err := New(schema, &recordingSubmitter{}, WithValidator(validator))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := ctrl.Next(); err != nil {
		t.Fatalf("next over empty optional field: %v", err)
	}
	if ctrl.Step() != 1 {
		t.Fatalf("expected step 1, got %d", ctrl.Step())
	}
	if validator.fieldCalls["bio"] != 0 {
		t.Fatalf("optional empty field invoked its checker %d times", validator.fieldCalls["bio"])
	}
	if ctrl.Touched(0) {
		t.Fatalf("skipped step must not count as touched")
	}
}

func TestBioAgeScenario(t *testing.T) {
	submitter := &recordingSubmitter{receipts: Receipt{ID: "sub-2"}}
	when := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ctrl, err := New(bioAgeSchema(), submitter, WithClock(func() time.Time { return when }))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := ctrl.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}

	ctrl.SetValue("age", 10.0)
	if _, err := ctrl.Submit(context.Background(), SubmitContext{EventID: "demo-day"}); err == nil {
		t.Fatalf("below-minimum age accepted")
	}
	if ctrl.Step() != 1 {
		t.Fatalf("failed submit moved the step")
	}

	ctrl.SetValue("age", 30.0)
	if _, err := ctrl.Submit(context.Background(), SubmitContext{
		Identity: Identity{UserID: "u2", Email: "b@c.com"},
		EventID:  "demo-day",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if submitter.calls != 1 {
		t.Fatalf("expected exactly one persistence call, got %d", submitter.calls)
	}
	wantAnswers := map[string]any{"bio": "", "age": 30.0}
	if diff := cmp.Diff(wantAnswers, submitter.last.Answers); diff != "" {
		t.Fatalf("payload answers (-want +got):\n%s", diff)
	}
	if !submitter.last.SubmittedAt.Equal(when) {
		t.Fatalf("unexpected timestamp %v", submitter.last.SubmittedAt)
	}
}

func TestPreviousThenNextIsIdempotent(t *testing.T) {
	schema := model.FormSchema{Fields: []model.FieldDefinition{
		{Name: "a", Type: model.FieldTypeText, Required: true},
		{Name: "b", Type: model.FieldTypeText, Required: true},
		{Name: "c", Type: model.FieldTypeText, Required: true},
	}}
	ctrl, err := New(schema, &recordingSubmitter{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctrl.SetValue("a", "one")
	ctrl.SetValue("b", "two")
	if err := ctrl.Next(); err != nil {
		t.Fatalf("next a: %v", err)
	}
	if err := ctrl.Next(); err != nil {
		t.Fatalf("next b: %v", err)
	}

	touchedBefore := []bool{ctrl.Touched(0), ctrl.Touched(1), ctrl.Touched(2)}
	if err := ctrl.Previous(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if err := ctrl.Next(); err != nil {
		t.Fatalf("next after previous: %v", err)
	}
	if ctrl.Step() != 2 {
		t.Fatalf("expected to return to step 2, got %d", ctrl.Step())
	}
	touchedAfter := []bool{ctrl.Touched(0), ctrl.Touched(1), ctrl.Touched(2)}
	if diff := cmp.Diff(touchedBefore, touchedAfter); diff != "" {
		t.Fatalf("touched state changed (-before +after):\n%s", diff)
	}
	if v, _ := ctrl.Value("a"); v != "one" {
		t.Fatalf("back-navigation altered a value: %v", v)
	}
}

func TestBackNavigationNeverValidates(t *testing.T) {
	schema := model.FormSchema{Fields: []model.FieldDefinition{
		{Name: "a", Type: model.FieldTypeText},
		{Name: "b", Type: model.FieldTypeText, Required: true},
	}}
	validator := newCountingValidator(t, schema)
	ctrl, err := New(schema, &recordingSubmitter{}, WithValidator(validator))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := ctrl.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := ctrl.Previous(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if calls := validator.fieldCalls["b"]; calls != 0 {
		t.Fatalf("previous validated the abandoned step %d times", calls)
	}
}

func TestUploadGating(t *testing.T) {
	schema := model.FormSchema{Fields: []model.FieldDefinition{
		{Name: "cv", Type: model.FieldTypeFile, Required: true, File: &model.FileOptions{AcceptedTypes: "application/pdf"}},
		{Name: "bio", Type: model.FieldTypeTextarea},
	}}
	ctrl, err := New(schema, &recordingSubmitter{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctrl.BeginUpload("cv")
	if err := ctrl.Next(); !errors.Is(err, ErrUploadPending) {
		t.Fatalf("expected ErrUploadPending, got %v", err)
	}
	if ctrl.Step() != 0 {
		t.Fatalf("upload-gated next moved the step")
	}

	ctrl.FinishUpload("cv", "https://cdn.club.example/cv.pdf", nil)
	if err := ctrl.Next(); err != nil {
		t.Fatalf("next after upload: %v", err)
	}
	if v, _ := ctrl.Value("cv"); v != "https://cdn.club.example/cv.pdf" {
		t.Fatalf("upload url not bound: %v", v)
	}
}

func TestUploadFailureLeavesFieldEmpty(t *testing.T) {
	schema := model.FormSchema{Fields: []model.FieldDefinition{
		{Name: "cv", Type: model.FieldTypeFile, Required: true},
	}}
	ctrl, err := New(schema, &recordingSubmitter{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctrl.BeginUpload("cv")
	ctrl.FinishUpload("cv", "", errors.New("bucket unavailable"))
	if ctrl.UploadPending("cv") {
		t.Fatalf("failed upload still pending")
	}
	if _, ok := ctrl.Value("cv"); ok {
		t.Fatalf("failed upload bound a value")
	}
	// The user can retry; the required checker still rejects submission.
	if _, err := ctrl.Submit(context.Background(), SubmitContext{}); err == nil {
		t.Fatalf("required file field passed without an upload")
	}
}

func TestSubmitFailureIsRetryableAndPreservesValues(t *testing.T) {
	submitter := &recordingSubmitter{fail: errors.New("connection reset")}
	ctrl, err := New(emailSchema(), submitter)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctrl.SetValue("email", "a@b.com")
	if _, err := ctrl.Submit(context.Background(), SubmitContext{EventID: "hack-night"}); err == nil {
		t.Fatalf("expected submit failure")
	}
	if ctrl.Status() != StatusFailed {
		t.Fatalf("expected failed status, got %q", ctrl.Status())
	}
	if v, _ := ctrl.Value("email"); v != "a@b.com" {
		t.Fatalf("failed submit lost the entered value")
	}
	if ctrl.SubmitError() == nil {
		t.Fatalf("expected retryable submit error to be surfaced")
	}

	submitter.fail = nil
	submitter.receipts = Receipt{ID: "sub-3"}
	receipt, err := ctrl.Submit(context.Background(), SubmitContext{EventID: "hack-night"})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if receipt.ID != "sub-3" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if submitter.calls != 2 {
		t.Fatalf("expected 2 persistence calls, got %d", submitter.calls)
	}
}

func TestNoDoubleSubmission(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := SubmitterFunc(func(context.Context, Payload) (Receipt, error) {
		close(started)
		<-release
		return Receipt{ID: "slow"}, nil
	})

	ctrl, err := New(emailSchema(), slow)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctrl.SetValue("email", "a@b.com")

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(context.Background(), SubmitContext{})
		done <- err
	}()

	<-started
	if _, err := ctrl.Submit(context.Background(), SubmitContext{}); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}
	if err := ctrl.Next(); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("next during submit: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ctrl.Status() != StatusDone {
		t.Fatalf("expected done, got %q", ctrl.Status())
	}
}

func TestZeroFieldSchemaDisablesSubmission(t *testing.T) {
	ctrl, err := New(model.FormSchema{}, &recordingSubmitter{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := ctrl.Submit(context.Background(), SubmitContext{}); !errors.Is(err, ErrNoSteps) {
		t.Fatalf("expected ErrNoSteps, got %v", err)
	}
	if err := ctrl.Next(); !errors.Is(err, ErrNoSteps) {
		t.Fatalf("expected ErrNoSteps from next, got %v", err)
	}
}

func TestRedirectStepAdvancesWithoutValidation(t *testing.T) {
	schema := model.FormSchema{Fields: []model.FieldDefinition{
		{Name: "rules", Type: model.FieldTypeRedirect, Redirect: &model.RedirectOptions{URL: "https://club.example/rules"}},
		{Name: "bio", Type: model.FieldTypeTextarea},
	}}
	ctrl, err := New(schema, &recordingSubmitter{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := ctrl.Next(); err != nil {
		t.Fatalf("redirect step should advance freely: %v", err)
	}
}

func TestSubmitOnlyFromLastStep(t *testing.T) {
	ctrl, err := New(bioAgeSchema(), &recordingSubmitter{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := ctrl.Submit(context.Background(), SubmitContext{}); !errors.Is(err, ErrNotLastStep) {
		t.Fatalf("expected ErrNotLastStep, got %v", err)
	}
}
