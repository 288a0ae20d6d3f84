package agents

import (
	"fmt"
	"sort"

	"github.com/codingassistant/assistant/internal/tools"
)

// Variant selects which agent topology is active.
type Variant string

const (
	// VariantSolo runs Generating-Assistant alone as the entry agent.
	VariantSolo Variant = "solo"
	// VariantCode puts the coordinator in front of Generating-Assistant.
	VariantCode Variant = "code"
	// VariantFull puts the coordinator in front of both specialists.
	VariantFull Variant = "full"
)

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantSolo, VariantCode, VariantFull:
		return v, nil
	case "":
		return VariantFull, nil
	default:
		return "", fmt.Errorf("unknown variant %q (want solo, code or full)", s)
	}
}

// Team is the fixed set of agents reachable from the entry agent.
type Team struct {
	Variant       Variant
	Entry         *Agent
	Generating    *Agent
	Documentation *Agent // nil unless VariantFull
}

// Build constructs the team for a variant from the registry's tools.
func Build(variant Variant, reg *tools.Registry) (*Team, error) {
	codeTool, ok := reg.Get(tools.GenerateCodeFile)
	if !ok {
		return nil, fmt.Errorf("tool %s not registered", tools.GenerateCodeFile)
	}
	gen := NewGeneratingAssistant(codeTool)

	team := &Team{Variant: variant, Generating: gen}
	switch variant {
	case VariantSolo:
		team.Entry = gen
	case VariantCode:
		team.Entry = NewCoordinator(gen)
	case VariantFull:
		docTool, ok := reg.Get(tools.SaveDocumentationFile)
		if !ok {
			return nil, fmt.Errorf("tool %s not registered", tools.SaveDocumentationFile)
		}
		team.Documentation = NewDocumentationAssistant(docTool)
		team.Entry = NewCoordinator(gen, team.Documentation)
	default:
		return nil, fmt.Errorf("unknown variant %q", variant)
	}
	return team, nil
}

// Agents lists every reachable agent, entry first.
func (t *Team) Agents() []*Agent {
	out := []*Agent{t.Entry}
	out = append(out, t.Entry.Delegates...)
	return out
}

// ToolNames lists every tool reachable through the team, sorted.
func (t *Team) ToolNames() []string {
	seen := make(map[string]bool)
	for _, a := range t.Agents() {
		for _, tool := range a.Tools {
			seen[tool.Name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Specialist returns the entry agent's delegate for a specialist name, or nil
// when the active variant has no such delegate.
func (t *Team) Specialist(name string) *Agent {
	d, ok := t.Entry.Delegate(name)
	if !ok {
		return nil
	}
	return d
}
