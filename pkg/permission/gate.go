// Package permission decides which tools a caller may use. Decisions come
// from a first-match policy table keyed on the caller's mode flags; a
// separate consent scanner can lift restricted mode for a single turn after
// an explicit disclaimer/affirmation exchange.
package permission

import "slices"

// Mode carries the caller's access flags for one turn.
type Mode struct {
	Restricted         bool
	BMS                bool
	ETEQ               bool
	WebSearchRequested bool
}

// Gate evaluates the tool policy. Tool names are configured, not imported,
// so the gate stays decoupled from the tool implementations.
type Gate struct {
	allTools      []string
	webTools      []string
	knowledgeTool string
	emailTool     string
}

// GateConfig names the tool sets the policy table refers to.
type GateConfig struct {
	AllTools      []string
	WebTools      []string
	KnowledgeTool string
	EmailTool     string
}

// NewGate creates a Gate over the configured tool sets.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{
		allTools:      slices.Clone(cfg.AllTools),
		webTools:      slices.Clone(cfg.WebTools),
		knowledgeTool: cfg.KnowledgeTool,
		emailTool:     cfg.EmailTool,
	}
}

// AllowedTools returns the tools mode may use. The policy rows are ordered;
// the first matching row wins.
func (g *Gate) AllowedTools(mode Mode) []string {
	switch {
	case mode.BMS:
		if g.knowledgeTool == "" {
			return nil
		}
		return []string{g.knowledgeTool}

	case mode.ETEQ:
		allowed := []string{}
		if g.emailTool != "" {
			allowed = append(allowed, g.emailTool)
		}
		if mode.WebSearchRequested {
			allowed = append(allowed, g.webTools...)
		}
		return allowed

	case mode.Restricted && mode.WebSearchRequested:
		return slices.Clone(g.webTools)

	case mode.Restricted:
		return nil

	default:
		allowed := make([]string, 0, len(g.allTools))
		for _, tool := range g.allTools {
			if !mode.WebSearchRequested && g.isWebTool(tool) {
				continue
			}
			allowed = append(allowed, tool)
		}
		return allowed
	}
}

// IsToolAllowed reports whether mode may invoke tool.
func (g *Gate) IsToolAllowed(tool string, mode Mode) bool {
	return slices.Contains(g.AllowedTools(mode), tool)
}

func (g *Gate) isWebTool(tool string) bool {
	return slices.Contains(g.webTools, tool)
}
