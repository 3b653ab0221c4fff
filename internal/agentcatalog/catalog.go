package agentcatalog

import (
	"sort"

	coreconfig "github.com/coco4atJP/tepora-alpha-sub000/internal/config"
)

// Catalog holds the full set of configured agents, keyed by id.
type Catalog struct {
	agents map[string]Agent
}

// NewCatalog builds a catalog from agents, rejecting duplicate ids.
func NewCatalog(agents []Agent) (*Catalog, error) {
	m := make(map[string]Agent, len(agents))
	for _, a := range agents {
		if _, exists := m[a.ID]; exists {
			return nil, coreconfig.Validation("duplicate agent id %q", a.ID)
		}
		m[a.ID] = a
	}
	return &Catalog{agents: m}, nil
}

// Get returns the agent with the given id, if any.
func (c *Catalog) Get(id string) (Agent, bool) {
	a, ok := c.agents[id]
	return a, ok
}

// ChooseAgent implements the selection contract: if id names an
// agent, it is used iff enabled; otherwise every enabled agent is scored
// against query and the highest scorer wins, ties broken by lexicographic
// id.
func (c *Catalog) ChooseAgent(id *string, query string) (Agent, error) {
	if id != nil {
		a, ok := c.agents[*id]
		if !ok {
			return Agent{}, coreconfig.NotFound("agent %q not found", *id)
		}
		if !a.Enabled {
			return Agent{}, coreconfig.Forbidden("agent %q is disabled", *id)
		}
		return a, nil
	}

	candidates := make([]Agent, 0, len(c.agents))
	for _, a := range c.agents {
		if a.Enabled {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return Agent{}, coreconfig.NotFound("no enabled agents configured")
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	best := candidates[0]
	bestScore := scoreAgent(best, query)
	for _, a := range candidates[1:] {
		s := scoreAgent(a, query)
		if s > bestScore {
			best, bestScore = a, s
		}
	}
	return best, nil
}
