package render

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/foundersclub/formflow/pkg/model"
)

type stubRenderer struct {
	name string
}

func (s stubRenderer) Name() string        { return s.name }
func (s stubRenderer) ContentType() string { return "text/plain" }
func (s stubRenderer) Render(context.Context, model.FormSchema, Options) ([]byte, error) {
	return []byte(s.name), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(stubRenderer{name: "html"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(stubRenderer{name: "tui"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	renderer, err := registry.Get("html")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if renderer.Name() != "html" {
		t.Fatalf("wrong renderer: %s", renderer.Name())
	}

	if diff := cmp.Diff([]string{"html", "tui"}, registry.List()); diff != "" {
		t.Fatalf("list (-want +got):\n%s", diff)
	}
	if !registry.Has("tui") {
		t.Fatalf("expected tui to be registered")
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(stubRenderer{name: "html"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := registry.Register(stubRenderer{name: "html"})
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestRegistry_MissingRenderer(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Get("preact"); err == nil {
		t.Fatalf("expected not-found error")
	}
	if err := registry.Register(nil); err == nil {
		t.Fatalf("expected nil renderer rejection")
	}
	if err := registry.Register(stubRenderer{}); err == nil {
		t.Fatalf("expected empty name rejection")
	}
}

func TestOptions_Accessors(t *testing.T) {
	opts := Options{
		Values: map[string]any{"bio": "hi"},
		Errors: map[string][]string{"bio": {"too short"}},
	}
	if opts.FieldValue("bio") != "hi" {
		t.Fatalf("value accessor failed")
	}
	if len(opts.FieldErrors("bio")) != 1 {
		t.Fatalf("error accessor failed")
	}
	var empty Options
	if empty.FieldValue("bio") != nil || empty.FieldErrors("bio") != nil {
		t.Fatalf("zero options must return nils")
	}
}
