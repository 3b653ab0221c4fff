// Package models implements the model registry: discovery across local
// GGUF files, Ollama, and LM Studio, role inference and assignment, and the
// download policy gate for fetching new models from Hugging Face.
package models

// Capabilities is the unified, loader-crossing feature flag set.
type Capabilities struct {
	Completion bool `json:"completion"`
	ToolUse    bool `json:"tool_use"`
	Vision     bool `json:"vision"`
}

// DiscoveredModel is one entry as reported by a single discovery layer,
// before it is folded into the registry.
type DiscoveredModel struct {
	ID                 string
	DisplayName        string
	Role               string // "text" | "embedding"
	FileSize           uint64
	Filename           string
	Source             string // "local" | "ollama" | "lmstudio" | a Hugging Face repo id
	FilePath           string
	Loader             string
	LoaderModelName    string
	RepoID             string
	Revision           string
	SHA256             string
	ParameterSize      string
	Quantization       string
	ContextLength       uint64
	Architecture       string
	ChatTemplate       string
	StopTokens         []string
	DefaultTemperature *float32
	Capabilities       *Capabilities
	Publisher          string
	Description        string
	Format             string
}

// Entry is one registry-resident model, keyed by ID, carrying an
// "added_at" the registry stamps on first discovery.
type Entry struct {
	DiscoveredModel
	AddedAt string
}

// Registry is the on-disk models.json root: the discovered model set, plus
// which model id is currently assigned to each role key, plus a per-role
// display ordering.
type Registry struct {
	Models         map[string]Entry
	RoleAssignments map[string]string
	RoleOrder       map[string][]string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		Models:          map[string]Entry{},
		RoleAssignments: map[string]string{},
		RoleOrder:       map[string][]string{},
	}
}

// DownloadPolicy is the evaluated outcome of the download policy gate.
type DownloadPolicy struct {
	Allowed         bool
	RequiresConsent bool
	Warnings        []string
}

// DownloadPolicyConfig parameterizes EvaluateDownloadPolicy.
type DownloadPolicyConfig struct {
	RequireAllowlist bool
	WarnOnUnlisted   bool
	RequireRevision  bool
	RequireSHA256    bool
	AllowRepoOwners  []string
}
