package executor

import "strings"

// buildAgentInstructions synthesizes the system message enumerating the
// allowed tools and the exact response shapes the decision parser
// recognizes.
func buildAgentInstructions(toolNames []string) string {
	var b strings.Builder
	b.WriteString("You are operating in agent mode. You have access to the following tools: ")
	b.WriteString(strings.Join(toolNames, ", "))
	b.WriteString(".\n")
	b.WriteString("When you need to use a tool, respond ONLY with JSON in this format:\n")
	b.WriteString(`{"type":"tool_call","tool_name":"<tool>","tool_args":{...}}`)
	b.WriteString("\n")
	b.WriteString("When you have the final answer, respond ONLY with JSON in this format:\n")
	b.WriteString(`{"type":"final","content":"..."}`)
	b.WriteString("\n")
	b.WriteString("Do not include any extra text outside the JSON.")
	return b.String()
}
