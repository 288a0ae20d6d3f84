// Package agents defines the assistant's agents: a coordinator that routes
// each turn and the specialists it may hand the turn off to.
//
// Agents are plain configuration built once at startup and shared read-only
// by every session. Nothing on an Agent changes per request.
package agents

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codingassistant/assistant/internal/tools"
	"github.com/codingassistant/assistant/pkg/models"
)

const (
	CoordinatorName   = "Parent-Assistant"
	GeneratingName    = "Generating-Assistant"
	DocumentationName = "Documentation-Assistant"

	// HandoffPrefix prefixes the synthetic tools that transfer a turn.
	HandoffPrefix = "transfer_to_"
)

// Agent pairs instructions with the tools it may call and the agents it may
// hand a turn to.
type Agent struct {
	Name         string
	Description  string
	Instructions string
	Tools        []*tools.Tool
	Delegates    []*Agent
}

// Tool returns the bound tool with the given name.
func (a *Agent) Tool(name string) (*tools.Tool, bool) {
	for _, t := range a.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// HandoffToolName is the tool name the model calls to transfer to a.
func (a *Agent) HandoffToolName() string {
	return HandoffPrefix + nonIdent.ReplaceAllString(strings.ToLower(a.Name), "_")
}

var nonIdent = regexp.MustCompile(`[^a-z0-9]+`)

// DelegateForHandoff resolves a handoff tool name to one of a's delegates.
func (a *Agent) DelegateForHandoff(toolName string) (*Agent, bool) {
	for _, d := range a.Delegates {
		if d.HandoffToolName() == toolName {
			return d, true
		}
	}
	return nil, false
}

// Delegate returns the delegate with the given name.
func (a *Agent) Delegate(name string) (*Agent, bool) {
	for _, d := range a.Delegates {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// ToolDefinitions describes the bound tools and, when withHandoffs is set,
// one transfer tool per delegate.
func (a *Agent) ToolDefinitions(withHandoffs bool) []models.ToolDefinition {
	defs := make([]models.ToolDefinition, 0, len(a.Tools)+len(a.Delegates))
	for _, t := range a.Tools {
		defs = append(defs, t.Definition())
	}
	if !withHandoffs {
		return defs
	}
	for _, d := range a.Delegates {
		defs = append(defs, models.ToolDefinition{
			Name:        d.HandoffToolName(),
			Description: fmt.Sprintf("Handoff to the %s agent to handle the request. %s", d.Name, d.Description),
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		})
	}
	return defs
}

// NewGeneratingAssistant builds the code specialist bound to generate_code_file.
func NewGeneratingAssistant(codeTool *tools.Tool) *Agent {
	return &Agent{
		Name:        GeneratingName,
		Description: "Generates, writes and saves source code files.",
		Instructions: strings.TrimSpace(`
You are Generating-Assistant, a code generation agent.

If the user asks to generate, write, or save any programming code, do it. You only handle actual code, never summaries or documentation. Use the ` + "`" + tools.GenerateCodeFile + "`" + ` tool to store code files in their proper folders, then tell the user the tool's message.
`),
		Tools: []*tools.Tool{codeTool},
	}
}

// NewDocumentationAssistant builds the explanation specialist bound to
// save_documentation_file.
func NewDocumentationAssistant(docTool *tools.Tool) *Agent {
	return &Agent{
		Name:        DocumentationName,
		Description: "Explains, summarizes and documents concepts and stores the text as .docx.",
		Instructions: strings.TrimSpace(`
You are Documentation-Assistant, a learning and explanation agent.

If the user wants to learn, understand, summarize, or document code or a concept, assist with clear explanations. Use the ` + "`" + tools.SaveDocumentationFile + "`" + ` tool to save the text in .docx format, then tell the user the tool's message. You only handle non-code content.
`),
		Tools: []*tools.Tool{docTool},
	}
}

// NewCoordinator builds the routing agent. It performs no file I/O itself.
func NewCoordinator(delegates ...*Agent) *Agent {
	var b strings.Builder
	b.WriteString("You are ParentAssistant, the central coordinator. You oversee all user requests and delegate tasks to specialized child agents:\n\n")
	for i, d := range delegates {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, d.Name, d.Description)
	}
	b.WriteString("\nUse the following rules to determine delegation:\n\n")
	for _, d := range delegates {
		switch d.Name {
		case GeneratingName:
			fmt.Fprintf(&b, "- If the user wants to generate or store code, call %s.\n", d.HandoffToolName())
		case DocumentationName:
			fmt.Fprintf(&b, "- If the user wants to learn, summarize, explain, or document a concept, call %s.\n", d.HandoffToolName())
		}
	}
	if len(delegates) > 1 {
		b.WriteString("- If both are requested, handle each part separately using the correct agent.\n")
		b.WriteString("\nNever confuse code with documentation. Only code goes to Generating-Assistant. Only explanations and summaries go to Documentation-Assistant.\n")
	}
	b.WriteString("\nOtherwise answer the user directly.")

	return &Agent{
		Name:         CoordinatorName,
		Description:  "Routes each request to the right specialist or answers directly.",
		Instructions: b.String(),
		Delegates:    delegates,
	}
}
