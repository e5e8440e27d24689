package harmony

import (
	"fmt"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
)

// ReasoningEffort is the "Reasoning:" line of the system message.
type ReasoningEffort string

const (
	ReasoningLow    ReasoningEffort = "low"
	ReasoningMedium ReasoningEffort = "medium"
	ReasoningHigh   ReasoningEffort = "high"
)

// DefaultIdentity is the model identity line gpt-oss was trained with.
const DefaultIdentity = "You are ChatGPT, a large language model trained by OpenAI."

// SystemContent is the body of the system message.
type SystemContent struct {
	Identity        string
	KnowledgeCutoff string
	CurrentDate     string
	Reasoning       ReasoningEffort
	Channels        []string
	// ToolNamespaces lists namespaces whose calls must go to the commentary
	// channel.
	ToolNamespaces []string
}

// NewSystemContent returns the system content with the standard channels.
func NewSystemContent() SystemContent {
	return SystemContent{
		Identity:        DefaultIdentity,
		KnowledgeCutoff: "2024-06",
		Reasoning:       ReasoningMedium,
		Channels:        []string{"analysis", "commentary", "final"},
	}
}

// Render returns the text of the system message.
func (s SystemContent) Render() string {
	var b strings.Builder
	b.WriteString(s.Identity)
	if s.KnowledgeCutoff != "" {
		b.WriteString("\nKnowledge cutoff: " + s.KnowledgeCutoff)
	}
	if s.CurrentDate != "" {
		b.WriteString("\nCurrent date: " + s.CurrentDate)
	}
	if s.Reasoning != "" {
		b.WriteString("\n\nReasoning: " + string(s.Reasoning))
	}
	if len(s.Channels) > 0 {
		b.WriteString("\n\n# Valid channels: " + strings.Join(s.Channels, ", ") + ". Channel must be included for every message.")
	}
	for _, ns := range s.ToolNamespaces {
		b.WriteString(fmt.Sprintf("\nCalls to these tools must go to the commentary channel: '%s'.", ns))
	}
	return b.String()
}

// ToolDescription declares one callable tool. Parameters is the JSON Schema
// of the argument object; nil means the tool takes no arguments.
type ToolDescription struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

// ToolNamespace groups tools the model addresses as "<namespace>.<tool>".
type ToolNamespace struct {
	Name        string
	Description string
	Tools       []ToolDescription
}

// DeveloperContent is the body of the developer message: free-form
// instructions followed by the tool declarations.
type DeveloperContent struct {
	Instructions string
	Namespaces   []ToolNamespace
}

// Render returns the text of the developer message.
func (d DeveloperContent) Render() string {
	var b strings.Builder
	if d.Instructions != "" {
		b.WriteString("# Instructions\n\n")
		b.WriteString(d.Instructions)
	}
	if len(d.Namespaces) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("# Tools")
		for _, ns := range d.Namespaces {
			b.WriteString("\n\n")
			b.WriteString(ns.render())
		}
	}
	return b.String()
}

func (ns ToolNamespace) render() string {
	var b strings.Builder
	b.WriteString("## " + ns.Name + "\n\n")
	if ns.Description != "" {
		for _, line := range strings.Split(ns.Description, "\n") {
			b.WriteString("// " + line + "\n")
		}
	}
	b.WriteString("namespace " + ns.Name + " {\n\n")
	for _, t := range ns.Tools {
		for _, line := range strings.Split(strings.TrimSpace(t.Description), "\n") {
			b.WriteString("// " + line + "\n")
		}
		if t.Parameters == nil || t.Parameters.Properties == nil || t.Parameters.Properties.Len() == 0 {
			b.WriteString("type " + t.Name + " = () => any;\n\n")
			continue
		}
		b.WriteString("type " + t.Name + " = (_: {\n")
		for pair := t.Parameters.Properties.Oldest(); pair != nil; pair = pair.Next() {
			prop := pair.Value
			if prop.Description != "" {
				b.WriteString("// " + prop.Description + "\n")
			}
			name := pair.Key
			if !slices.Contains(t.Parameters.Required, name) {
				name += "?"
			}
			b.WriteString(name + ": " + tsType(prop) + ",")
			if prop.Default != nil {
				b.WriteString(fmt.Sprintf(" // default: %v", prop.Default))
			}
			b.WriteString("\n")
		}
		b.WriteString("}) => any;\n\n")
	}
	b.WriteString("} // namespace " + ns.Name)
	return b.String()
}

// tsType renders a JSON Schema as the TypeScript-like type gpt-oss expects.
func tsType(s *jsonschema.Schema) string {
	if s == nil {
		return "any"
	}
	if len(s.Enum) > 0 {
		parts := make([]string, 0, len(s.Enum))
		for _, v := range s.Enum {
			parts = append(parts, fmt.Sprintf("%q", fmt.Sprint(v)))
		}
		return strings.Join(parts, " | ")
	}
	switch s.Type {
	case "string":
		return "string"
	case "integer", "number":
		return "number"
	case "boolean":
		return "boolean"
	case "array":
		return tsType(s.Items) + "[]"
	case "object":
		return "object"
	default:
		return "any"
	}
}
