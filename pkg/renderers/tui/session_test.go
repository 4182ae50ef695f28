package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/foundersclub/formflow/pkg/model"
	"github.com/foundersclub/formflow/pkg/wizard"
)

// stubDriver replays scripted responses and records informational output.
type stubDriver struct {
	inputs    []string
	textareas []string
	confirms  []bool
	selects   []int
	multis    [][]int
	infos     []string
}

func (d *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return "", errors.New("stub: no input scripted")
	}
	out := d.inputs[0]
	d.inputs = d.inputs[1:]
	return out, nil
}

func (d *stubDriver) TextArea(_ context.Context, _ TextAreaConfig) (string, error) {
	if len(d.textareas) == 0 {
		return "", errors.New("stub: no textarea scripted")
	}
	out := d.textareas[0]
	d.textareas = d.textareas[1:]
	return out, nil
}

func (d *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if len(d.confirms) == 0 {
		return false, errors.New("stub: no confirm scripted")
	}
	out := d.confirms[0]
	d.confirms = d.confirms[1:]
	return out, nil
}

func (d *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if len(d.selects) == 0 {
		return 0, errors.New("stub: no select scripted")
	}
	out := d.selects[0]
	d.selects = d.selects[1:]
	return out, nil
}

func (d *stubDriver) MultiSelect(_ context.Context, _ SelectConfig) ([]int, error) {
	if len(d.multis) == 0 {
		return nil, errors.New("stub: no multiselect scripted")
	}
	out := d.multis[0]
	d.multis = d.multis[1:]
	return out, nil
}

func (d *stubDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

type captureSubmitter struct {
	calls int
	last  wizard.Payload
	fail  error
}

func (s *captureSubmitter) Submit(_ context.Context, payload wizard.Payload) (wizard.Receipt, error) {
	s.calls++
	s.last = payload
	if s.fail != nil {
		return wizard.Receipt{}, s.fail
	}
	return wizard.Receipt{ID: "sub-1"}, nil
}

func newSession(t *testing.T, schema model.FormSchema, submitter wizard.Submitter, driver PromptDriver, options ...Option) *Session {
	t.Helper()
	ctrl, err := wizard.New(schema, submitter)
	if err != nil {
		t.Fatalf("wizard: %v", err)
	}
	session, err := NewSession(ctrl, schema, append([]Option{WithDriver(driver)}, options...)...)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return session
}

func TestSession_TextAndSelect(t *testing.T) {
	schema := model.FormSchema{
		EventID: "hack-night",
		Fields: []model.FieldDefinition{
			{Name: "name", Type: model.FieldTypeText, Required: true},
			{Name: "track", Type: model.FieldTypeSelect, Required: true, Options: []string{"web", "mobile"}},
		},
	}
	driver := &stubDriver{inputs: []string{"Ada"}, selects: []int{1}}
	submitter := &captureSubmitter{}

	receipt, err := newSession(t, schema, submitter, driver).Run(context.Background(), wizard.SubmitContext{
		Identity: wizard.Identity{UserID: "u1"},
		EventID:  "hack-night",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if receipt.ID != "sub-1" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	want := map[string]any{"name": "Ada", "track": "mobile"}
	if diff := cmp.Diff(want, submitter.last.Answers); diff != "" {
		t.Fatalf("answers (-want +got):\n%s", diff)
	}
}

func TestSession_RepromptsOnValidationFailure(t *testing.T) {
	schema := model.FormSchema{Fields: []model.FieldDefinition{
		{Name: "email", Type: model.FieldTypeText, Required: true, Validation: &model.Validation{Pattern: "^[^@]+@[^@]+$"}},
	}}
	driver := &stubDriver{inputs: []string{"not-an-email", "a@b.com"}}
	submitter := &captureSubmitter{}

	if _, err := newSession(t, schema, submitter, driver).Run(context.Background(), wizard.SubmitContext{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if submitter.calls != 1 {
		t.Fatalf("expected one persistence call, got %d", submitter.calls)
	}
	if len(driver.infos) == 0 || !strings.Contains(driver.infos[0], "email") {
		t.Fatalf("expected rejection notice, got %v", driver.infos)
	}
}

func TestSession_OptionalSelectSkips(t *testing.T) {
	schema := model.FormSchema{Fields: []model.FieldDefinition{
		{Name: "track", Type: model.FieldTypeSelect, Options: []string{"web", "mobile"}},
	}}
	// Index 0 is the injected skip entry for optional selects.
	driver := &stubDriver{selects: []int{0}}
	submitter := &captureSubmitter{}

	if _, err := newSession(t, schema, submitter, driver).Run(context.Background(), wizard.SubmitContext{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := submitter.last.Answers["track"]; got != "" {
		t.Fatalf("skipped select bound %v", got)
	}
}

func TestSession_MultiCheckboxMapsLabelsToIDs(t *testing.T) {
	schema := model.FormSchema{Fields: []model.FieldDefinition{
		{Name: "interests", Type: model.FieldTypeCheckbox, Required: true, Checkbox: &model.CheckboxOptions{
			Kind:  model.CheckboxMultiple,
			Items: []model.CheckboxItem{{ID: "ai", Label: "AI"}, {ID: "web3", Label: "Web3"}},
		}},
	}}
	driver := &stubDriver{multis: [][]int{{1}}}
	submitter := &captureSubmitter{}

	if _, err := newSession(t, schema, submitter, driver).Run(context.Background(), wizard.SubmitContext{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]string{"web3"}, submitter.last.Answers["interests"]); diff != "" {
		t.Fatalf("interests (-want +got):\n%s", diff)
	}
}

func TestSession_FileUploadDelegates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	schema := model.FormSchema{Fields: []model.FieldDefinition{
		{Name: "cv", Type: model.FieldTypeFile, Required: true},
	}}
	driver := &stubDriver{inputs: []string{path}}
	submitter := &captureSubmitter{}
	uploaded := ""
	uploader := uploaderFunc(func(_ context.Context, req wizard.UploadRequest) (string, error) {
		uploaded = req.Filename
		return "https://cdn.club.example/" + req.Filename, nil
	})

	session := newSession(t, schema, submitter, driver, WithUploader(uploader))
	if _, err := session.Run(context.Background(), wizard.SubmitContext{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if uploaded != "cv.pdf" {
		t.Fatalf("uploader received %q", uploaded)
	}
	if got := submitter.last.Answers["cv"]; got != "https://cdn.club.example/cv.pdf" {
		t.Fatalf("uploaded url not bound: %v", got)
	}
}

func TestSession_FileFieldWithoutUploader(t *testing.T) {
	schema := model.FormSchema{Fields: []model.FieldDefinition{
		{Name: "cv", Type: model.FieldTypeFile, Required: true},
	}}
	driver := &stubDriver{inputs: []string{"/tmp/whatever.pdf"}}

	_, err := newSession(t, schema, &captureSubmitter{}, driver).Run(context.Background(), wizard.SubmitContext{})
	if !errors.Is(err, ErrNoUploader) {
		t.Fatalf("expected ErrNoUploader, got %v", err)
	}
}

func TestSession_RedirectShowsLink(t *testing.T) {
	schema := model.FormSchema{Fields: []model.FieldDefinition{
		{Name: "rules", Type: model.FieldTypeRedirect, Redirect: &model.RedirectOptions{URL: "https://club.example/rules", Label: "Rules"}},
		{Name: "bio", Type: model.FieldTypeTextarea},
	}}
	driver := &stubDriver{textareas: []string{""}}
	submitter := &captureSubmitter{}

	if _, err := newSession(t, schema, submitter, driver).Run(context.Background(), wizard.SubmitContext{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(driver.infos) == 0 || !strings.Contains(driver.infos[0], "https://club.example/rules") {
		t.Fatalf("redirect link not shown: %v", driver.infos)
	}
	if _, present := submitter.last.Answers["rules"]; present {
		t.Fatalf("redirect leaked into answers")
	}
}

func TestSession_CollaboratorFailureEndsRun(t *testing.T) {
	schema := model.FormSchema{Fields: []model.FieldDefinition{
		{Name: "bio", Type: model.FieldTypeTextarea, Required: true},
	}}
	driver := &stubDriver{textareas: []string{"hello"}}
	submitter := &captureSubmitter{fail: fmt.Errorf("connection reset")}

	_, err := newSession(t, schema, submitter, driver).Run(context.Background(), wizard.SubmitContext{})
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected collaborator failure, got %v", err)
	}
}

type uploaderFunc func(ctx context.Context, req wizard.UploadRequest) (string, error)

func (f uploaderFunc) Upload(ctx context.Context, req wizard.UploadRequest) (string, error) {
	return f(ctx, req)
}
