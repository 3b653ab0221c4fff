// Package agentcatalog holds the execution-agent registry and the
// choose_agent selection contract.
package agentcatalog

import (
	coretool "github.com/coco4atJP/tepora-alpha-sub000/internal/tool"
)

// Agent is one configured execution agent.
type Agent struct {
	ID           string
	Name         string
	Description  string
	Enabled      bool
	SystemPrompt string
	ModelRole    string // optional model-role override, e.g. "agent:<id>"
	ToolPolicy   coretool.Policy
	Priority     int
	Tags         []string
}
