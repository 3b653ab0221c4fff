package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Compile is the deterministic, pure projection from a built Context into
// the ordered chat-message sequence sent to the broker. It never mutates ctx.
func Compile(ctx *Context) []ChatMessage {
	var out []ChatMessage

	systemParts := prioritizedSystemParts(ctx)
	history := normalizeHistory(ctx.History)

	// Drop lower-priority system fragments first, then older history, until
	// the budget is no longer exceeded. The trailing user input is never
	// truncated.
	systemParts, history = trimToBudget(ctx.TokenBudget, systemParts, history)

	if system := buildSystemMessage(systemParts, ctx.Persona); system != "" {
		out = append(out, ChatMessage{Role: "system", Content: system})
	}

	if len(ctx.MemoryChunks) > 0 {
		fragments := make([]string, len(ctx.MemoryChunks))
		for i, m := range ctx.MemoryChunks {
			fragments[i] = m.Content
		}
		out = append(out, ChatMessage{
			Role:    "system",
			Content: "[Memory Context]\n" + strings.Join(fragments, "\n\n"),
		})
	}

	if len(ctx.RagChunks) > 0 {
		lines := make([]string, len(ctx.RagChunks))
		for i, c := range ctx.RagChunks {
			lines[i] = fmt.Sprintf("[%d] (score: %.2f) %s", i+1, c.Score, c.Content)
		}
		out = append(out, ChatMessage{Role: "system", Content: strings.Join(lines, "\n\n")})
	}

	if len(ctx.SearchResults) > 0 {
		if raw, err := json.MarshalIndent(ctx.SearchResults, "", "  "); err == nil {
			out = append(out, ChatMessage{
				Role:    "system",
				Content: "Web search results (cite as [Source: URL]):\n" + string(raw),
			})
		}
	}

	if len(ctx.Artifacts) > 0 {
		parts := make([]string, len(ctx.Artifacts))
		for i, a := range ctx.Artifacts {
			parts[i] = fmt.Sprintf("[Artifact: %s]\n%s", a.Type, a.Content)
		}
		out = append(out, ChatMessage{Role: "system", Content: strings.Join(parts, "\n\n---\n\n")})
	}

	if len(ctx.SubAgentResults) > 0 {
		parts := make([]string, len(ctx.SubAgentResults))
		for i, r := range ctx.SubAgentResults {
			mark := "✗"
			if r.Success {
				mark = "✓"
			}
			parts[i] = fmt.Sprintf("[%s %s] %s", mark, r.AgentName, r.Result)
		}
		out = append(out, ChatMessage{Role: "system", Content: strings.Join(parts, "\n\n")})
	}

	out = append(out, history...)

	if ctx.Mode.HasScratchpad() {
		for _, entry := range ctx.Scratchpad {
			out = append(out, ChatMessage{Role: "assistant", Content: "Thought: " + entry.Thought})
			if entry.Action != "" {
				out = append(out, ChatMessage{Role: "assistant", Content: "Action: " + entry.Action})
			}
			if entry.Observation != "" {
				out = append(out, ChatMessage{Role: "user", Content: "Observation: " + entry.Observation})
			}
		}
	}

	out = append(out, ChatMessage{Role: "user", Content: ctx.UserInput})

	return out
}

// prioritizedSystemParts returns a copy of ctx.SystemParts sorted by
// priority descending (stable, so equal-priority fragments keep insertion
// order).
func prioritizedSystemParts(ctx *Context) []SystemPart {
	parts := make([]SystemPart, len(ctx.SystemParts))
	copy(parts, ctx.SystemParts)
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Priority > parts[j].Priority })
	return parts
}

// buildSystemMessage concatenates system fragments with a blank-line
// separator, followed by the persona section if one is set.
func buildSystemMessage(parts []SystemPart, persona *Persona) string {
	sections := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		sections = append(sections, p.Content)
	}
	if persona != nil {
		sections = append(sections, personaSection(*persona))
	}
	return strings.Join(sections, "\n\n")
}

func personaSection(p Persona) string {
	if p.PromptText != "" {
		return p.PromptText
	}
	return fmt.Sprintf("Your name is %s. %s\nTraits: %s", p.Name, p.Description, strings.Join(p.Traits, ", "))
}

// normalizeHistory re-roles tool messages to assistant and drops
// empty-content messages.
func normalizeHistory(history []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role == "tool" {
			m.Role = "assistant"
		}
		out = append(out, m)
	}
	return out
}

// trimToBudget drops lower-priority system fragments first (lowest
// priority removed first), then older history entries (oldest first),
// until estimated tokens fit the budget or nothing more can be dropped.
// The trailing user input is never touched here.
func trimToBudget(budget TokenBudget, systemParts []SystemPart, history []ChatMessage) ([]SystemPart, []ChatMessage) {
	limit := budget.Max - budget.ReservedOutput
	if limit <= 0 {
		return systemParts, history
	}

	total := func() int {
		t := 0
		for _, p := range systemParts {
			t += estimateTokens(p.Content)
		}
		for _, m := range history {
			t += estimateTokens(m.Content)
		}
		return t
	}

	for total() > limit && len(systemParts) > 0 {
		systemParts = systemParts[:len(systemParts)-1]
	}
	for total() > limit && len(history) > 0 {
		history = history[1:]
	}
	return systemParts, history
}
