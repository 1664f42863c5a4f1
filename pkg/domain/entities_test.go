package domain

import (
	"context"
	"encoding/json"
	"testing"
)

func TestParseNamespace(t *testing.T) {
	if ns, ok := ParseNamespace(" Person "); !ok || ns != NamespacePerson {
		t.Fatalf("expected person, got %q %v", ns, ok)
	}
	if _, ok := ParseNamespace("organism"); ok {
		t.Fatalf("unexpected namespace accepted")
	}
	if len(Namespaces()) != 10 {
		t.Fatalf("expected 10 namespaces")
	}
}

func TestPersonHelpers(t *testing.T) {
	p := Person{
		Name:     Name{Given: "John", Surname: "Smith", Suffix: "Jr"},
		AltNames: []Name{{Surname: "Smyth"}},
	}
	if p.Name.Full() != "John Smith Jr" {
		t.Fatalf("unexpected full name %q", p.Name.Full())
	}
	if names := p.AllNames(); len(names) != 2 || names[1].Surname != "Smyth" {
		t.Fatalf("unexpected names %+v", names)
	}
	if _, ok := p.MainParentFamily(); ok {
		t.Fatalf("person without parents has no main family")
	}
	p.ParentFamilies = []Handle{"f2", "f1"}
	if h, ok := p.MainParentFamily(); !ok || h != "f2" {
		t.Fatalf("expected first parent family, got %q", h)
	}
}

func TestFamilyParents(t *testing.T) {
	if got := (Family{Mother: "m"}).Parents(); len(got) != 1 || got[0] != "m" {
		t.Fatalf("unexpected parents %v", got)
	}
	if got := (Family{Father: "f", Mother: "m"}).Parents(); len(got) != 2 || got[0] != "f" {
		t.Fatalf("father must come first, got %v", got)
	}
}

func TestPersonJSONFieldNames(t *testing.T) {
	raw := []byte(`{"handle":"p1","id":"I0001","name":{"given":"Ann"},"gender":"female","parent_families":["f1"],"birth_ref":"e1"}`)
	var p Person
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.EntityHandle() != "p1" || p.EntityID() != "I0001" || p.BirthRef != "e1" || p.ParentFamilies[0] != "f1" {
		t.Fatalf("unexpected person %+v", p)
	}
	if p.EntityNamespace() != NamespacePerson {
		t.Fatalf("unexpected namespace %q", p.EntityNamespace())
	}
}

type stopAfter struct{ n, steps int }

func (s *stopAfter) Begin(string, int) {}
func (s *stopAfter) Step()             { s.steps++ }
func (s *stopAfter) Cancelled() bool   { return s.steps >= s.n }
func (s *stopAfter) End()              {}

func TestContextProgress(t *testing.T) {
	if OrNoProgress(nil) != NoProgress {
		t.Fatalf("nil progress should become NoProgress")
	}

	inner := &stopAfter{n: 2}
	ctx, cancel := context.WithCancel(context.Background())
	p := ContextProgress(ctx, inner)
	p.Step()
	if p.Cancelled() {
		t.Fatalf("not cancelled yet")
	}
	p.Step()
	if !p.Cancelled() {
		t.Fatalf("inner cancellation must propagate")
	}

	p = ContextProgress(ctx, nil)
	if p.Cancelled() {
		t.Fatalf("live context is not cancelled")
	}
	cancel()
	if !p.Cancelled() {
		t.Fatalf("cancelled context must cancel progress")
	}
}
