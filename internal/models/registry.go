package models

import (
	"context"
	"sort"
	"sync"
	"time"

	coreconfig "github.com/coco4atJP/tepora-alpha-sub000/internal/config"
)

// Discoverer is one discovery layer (local GGUF walk, Ollama, LM Studio).
// Layers are composed in a fixed order and later layers overwrite earlier
// ones on a duplicate id.
type Discoverer interface {
	Discover(ctx context.Context) ([]DiscoveredModel, error)
}

// nowFunc stamps AddedAt; overridable in tests.
var nowFunc = func() string { return time.Now().UTC().Format(time.RFC3339) }

// Catalog owns the in-memory registry and serializes role assignment and
// refresh against concurrent readers.
type Catalog struct {
	mu       sync.RWMutex
	registry *Registry
	layers   []Discoverer
}

// NewCatalog composes discovery layers in the order given (usually local
// GGUF, then Ollama, then LM Studio); later layers win for duplicate ids.
func NewCatalog(layers ...Discoverer) *Catalog {
	return &Catalog{registry: NewRegistry(), layers: layers}
}

// Refresh re-runs every discovery layer and folds their results into the
// registry, preserving existing role assignments for ids that still exist.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.RLock()
	previous := c.registry.Models
	c.mu.RUnlock()

	merged := map[string]Entry{}
	for _, layer := range c.layers {
		found, err := layer.Discover(ctx)
		if err != nil {
			return err
		}
		for _, m := range found {
			existing, had := merged[m.ID]
			if !had {
				existing, had = previous[m.ID]
			}
			addedAt := nowFunc()
			if had {
				addedAt = existing.AddedAt
			}
			merged[m.ID] = Entry{DiscoveredModel: m, AddedAt: addedAt}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.Models = merged
	return nil
}

// List returns every known model, sorted by id for deterministic output.
func (c *Catalog) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.registry.Models))
	for _, m := range c.registry.Models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get looks up one model by id.
func (c *Catalog) Get(id string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.registry.Models[id]
	return m, ok
}

// RoleAssignment returns the model id currently assigned to roleKey, if any.
func (c *Catalog) RoleAssignment(roleKey string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.registry.RoleAssignments[roleKey]
	return id, ok
}

// ConfigWriter rewrites the live config's models_gguf.{text_model,
// embedding_model}.path when a character/embedding role is (re)assigned.
type ConfigWriter interface {
	SetModelPath(roleSection, path string) error
}

// AssignRole enforces the role assignment invariant: a model may only be
// bound to a role-key whose expected role matches the model's own role
// ("embedding:*" wants an embedding model; "character:*"/"professional:*"/
// "agent:*"/"text" want a text model). Assigning to "character" or
// "embedding" rewrites the corresponding models_gguf path in the live
// config via cfg, if provided.
func (c *Catalog) AssignRole(roleKey, modelID string, cfg ConfigWriter) error {
	expected, ok := ExpectedRoleForAssignment(roleKey)
	if !ok {
		return coreconfig.Validation("unrecognized role assignment key %q", roleKey)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	model, ok := c.registry.Models[modelID]
	if !ok {
		return coreconfig.NotFound("model %q not found", modelID)
	}
	if model.Role != expected {
		return coreconfig.Validation("model %q has role %q, but role key %q requires %q", modelID, model.Role, roleKey, expected)
	}

	c.registry.RoleAssignments[roleKey] = modelID

	if cfg == nil {
		return nil
	}
	switch roleKey {
	case "character":
		return cfg.SetModelPath("text_model", model.FilePath)
	case "embedding":
		return cfg.SetModelPath("embedding_model", model.FilePath)
	}
	return nil
}
