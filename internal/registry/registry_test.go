package registry

import (
	"context"
	"testing"
)

func nopHandler(ctx context.Context, call Call) (*Result, error) {
	return Textf("ok"), nil
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Definition{
		{Name: "context_store", Handler: nopHandler},
		{Name: "context_store", Handler: nopHandler},
	})
	if err == nil {
		t.Fatal("duplicate tool names must be rejected")
	}
}

func TestNewRejectsMissingHandler(t *testing.T) {
	_, err := New([]Definition{{Name: "orphan"}})
	if err == nil {
		t.Fatal("a tool without a handler must be rejected")
	}
}

func TestLookupAndOrdering(t *testing.T) {
	reg, err := New([]Definition{
		{Name: "task_list", Handler: nopHandler},
		{Name: "aidis_ping", Handler: nopHandler},
		{Name: "context_store", Handler: nopHandler},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, ok := reg.Get("context_store"); !ok {
		t.Fatal("Get() should find context_store")
	}
	if _, ok := reg.Get("nope"); ok {
		t.Fatal("Get() should miss unknown names")
	}

	names := reg.Names()
	want := []string{"aidis_ping", "context_store", "task_list"}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("Names()[%d] = %q, want %q", i, names[i], name)
		}
	}

	if reg.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", reg.Len())
	}
}

func TestTextEnvelope(t *testing.T) {
	result := Text("hello", map[string]int{"n": 1})
	if len(result.Content) != 1 {
		t.Fatalf("content blocks = %d, want 1", len(result.Content))
	}
	if result.Content[0].Type != "text" || result.Content[0].Text != "hello" {
		t.Fatalf("content = %+v", result.Content[0])
	}
	if result.Structured == nil {
		t.Fatal("structured payload lost")
	}
}
