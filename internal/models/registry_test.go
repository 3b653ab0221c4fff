package models

import (
	"context"
	"errors"
	"testing"
)

type fakeDiscoverer struct {
	models []DiscoveredModel
	err    error
}

func (f fakeDiscoverer) Discover(ctx context.Context) ([]DiscoveredModel, error) {
	return f.models, f.err
}

func TestCatalogRefreshLaterLayerWinsOnDuplicateID(t *testing.T) {
	first := fakeDiscoverer{models: []DiscoveredModel{{ID: "dup", DisplayName: "from-local", Role: "text"}}}
	second := fakeDiscoverer{models: []DiscoveredModel{{ID: "dup", DisplayName: "from-ollama", Role: "text"}}}

	catalog := NewCatalog(first, second)
	if err := catalog.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	entry, ok := catalog.Get("dup")
	if !ok {
		t.Fatal("expected dup to be present")
	}
	if entry.DisplayName != "from-ollama" {
		t.Fatalf("got display name %q, want from-ollama (later layer wins)", entry.DisplayName)
	}
}

func TestCatalogRefreshPropagatesDiscovererError(t *testing.T) {
	catalog := NewCatalog(fakeDiscoverer{err: errors.New("boom")})
	if err := catalog.Refresh(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}

func TestCatalogRefreshPreservesAddedAtAcrossRefreshes(t *testing.T) {
	calls := 0
	restore := nowFunc
	nowFunc = func() string {
		calls++
		if calls == 1 {
			return "first-stamp"
		}
		return "second-stamp"
	}
	defer func() { nowFunc = restore }()

	layer := fakeDiscoverer{models: []DiscoveredModel{{ID: "stable", Role: "text"}}}
	catalog := NewCatalog(layer)

	if err := catalog.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	first, _ := catalog.Get("stable")
	if first.AddedAt != "first-stamp" {
		t.Fatalf("got AddedAt %q, want first-stamp", first.AddedAt)
	}

	if err := catalog.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	second, _ := catalog.Get("stable")
	if second.AddedAt != "first-stamp" {
		t.Fatalf("got AddedAt %q, want first-stamp preserved across refresh", second.AddedAt)
	}
}

func TestCatalogListIsSortedByID(t *testing.T) {
	layer := fakeDiscoverer{models: []DiscoveredModel{
		{ID: "z-model", Role: "text"},
		{ID: "a-model", Role: "text"},
	}}
	catalog := NewCatalog(layer)
	if err := catalog.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	list := catalog.List()
	if len(list) != 2 || list[0].ID != "a-model" || list[1].ID != "z-model" {
		t.Fatalf("got %+v, want sorted [a-model, z-model]", list)
	}
}

func TestCatalogRoleAssignmentReflectsAssignRole(t *testing.T) {
	layer := fakeDiscoverer{models: []DiscoveredModel{{ID: "local:chat", Role: "text", FilePath: "/m/chat.gguf"}}}
	catalog := NewCatalog(layer)
	if err := catalog.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := catalog.AssignRole("character", "local:chat", nil); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	id, ok := catalog.RoleAssignment("character")
	if !ok || id != "local:chat" {
		t.Fatalf("got (%q, %v), want (local:chat, true)", id, ok)
	}
}
