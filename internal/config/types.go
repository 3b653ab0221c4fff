package config

import "time"

// AppConfig mirrors the recognized config sections used by the core.
// Unknown sections round-trip untouched through the underlying decoded
// tree; only the sections the core reads are given typed fields here.
type AppConfig struct {
	App              AppSection              `mapstructure:"app" yaml:"app"`
	Server           ServerSection           `mapstructure:"server" yaml:"server"`
	Privacy          PrivacySection          `mapstructure:"privacy" yaml:"privacy"`
	Search           SearchSection           `mapstructure:"search" yaml:"search"`
	ModelDownload    ModelDownloadSection    `mapstructure:"model_download" yaml:"model_download"`
	ModelsGGUF       ModelsGGUFSection       `mapstructure:"models_gguf" yaml:"models_gguf"`
	ActiveAgent      string                  `mapstructure:"active_agent_profile" yaml:"active_agent_profile"`
	Characters       map[string]Character    `mapstructure:"characters" yaml:"characters"`
	ChatHistory      ChatHistorySection      `mapstructure:"chat_history" yaml:"chat_history"`
	Loaders          LoadersSection          `mapstructure:"loaders" yaml:"loaders"`
	DefaultModels    DefaultModelsSection    `mapstructure:"default_models" yaml:"default_models"`
}

type AppSection struct {
	GraphRecursionLimit int    `mapstructure:"graph_recursion_limit" yaml:"graph_recursion_limit"`
	ToolApprovalTimeout int    `mapstructure:"tool_approval_timeout" yaml:"tool_approval_timeout"`
	WebFetchMaxChars    int    `mapstructure:"web_fetch_max_chars" yaml:"web_fetch_max_chars"`
	WebFetchMaxBytes    int    `mapstructure:"web_fetch_max_bytes" yaml:"web_fetch_max_bytes"`
	WebFetchTimeoutSecs int    `mapstructure:"web_fetch_timeout_secs" yaml:"web_fetch_timeout_secs"`
	MCPConfigPath       string `mapstructure:"mcp_config_path" yaml:"mcp_config_path"`
}

type ServerSection struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	WSAllowedOrigins []string `mapstructure:"ws_allowed_origins" yaml:"ws_allowed_origins"`
	Production       bool     `mapstructure:"production" yaml:"production"`
}

type PrivacySection struct {
	AllowWebSearch bool     `mapstructure:"allow_web_search" yaml:"allow_web_search"`
	URLDenylist    []string `mapstructure:"url_denylist" yaml:"url_denylist"`
}

type SearchSection struct {
	EmbeddingRerank bool `mapstructure:"embedding_rerank" yaml:"embedding_rerank"`
}

type ModelDownloadSection struct {
	RequireAllowlist bool     `mapstructure:"require_allowlist" yaml:"require_allowlist"`
	WarnOnUnlisted   bool     `mapstructure:"warn_on_unlisted" yaml:"warn_on_unlisted"`
	RequireRevision  bool     `mapstructure:"require_revision" yaml:"require_revision"`
	RequireSHA256    bool     `mapstructure:"require_sha256" yaml:"require_sha256"`
	AllowRepoOwners  []string `mapstructure:"allow_repo_owners" yaml:"allow_repo_owners"`
}

type ModelsGGUFSection struct {
	TextModel      ModelRef `mapstructure:"text_model" yaml:"text_model"`
	EmbeddingModel ModelRef `mapstructure:"embedding_model" yaml:"embedding_model"`
}

type ModelRef struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type Character struct {
	Name         string `mapstructure:"name" yaml:"name"`
	Description  string `mapstructure:"description" yaml:"description"`
	SystemPrompt string `mapstructure:"system_prompt" yaml:"system_prompt"`
}

type ChatHistorySection struct {
	DefaultLimit int `mapstructure:"default_limit" yaml:"default_limit"`
}

type LoadersSection struct {
	Ollama   LoaderEndpoint `mapstructure:"ollama" yaml:"ollama"`
	LMStudio LoaderEndpoint `mapstructure:"lmstudio" yaml:"lmstudio"`
}

type LoaderEndpoint struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type DefaultModelsSection struct {
	TextModels []string `mapstructure:"text_models" yaml:"text_models"`
	Embedding  string   `mapstructure:"embedding" yaml:"embedding"`
}

// Defaults applies the documented defaults for fields the core treats as
// optional in the config tree.
func (c *AppConfig) Defaults() {
	if c.App.GraphRecursionLimit == 0 {
		c.App.GraphRecursionLimit = 6
	}
	if c.App.ToolApprovalTimeout == 0 {
		c.App.ToolApprovalTimeout = 300
	}
	if c.App.WebFetchMaxChars == 0 {
		c.App.WebFetchMaxChars = 6000
	}
	if c.App.WebFetchMaxBytes == 0 {
		c.App.WebFetchMaxBytes = 1_000_000
	}
	if c.App.WebFetchTimeoutSecs == 0 {
		c.App.WebFetchTimeoutSecs = 10
	}
	if c.ChatHistory.DefaultLimit == 0 {
		c.ChatHistory.DefaultLimit = 40
	}
}

// ToolApprovalTimeoutDuration is a convenience accessor for the approval
// wait used by the agent executor.
func (c *AppConfig) ToolApprovalTimeoutDuration() time.Duration {
	return time.Duration(c.App.ToolApprovalTimeout) * time.Second
}
