package agent

import (
	"strings"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/session"
)

// OutcomeKind says what a completion asked for.
type OutcomeKind int

const (
	// OutcomeUnstructured: neither a tool call nor a final answer was found.
	OutcomeUnstructured OutcomeKind = iota
	OutcomeToolCall
	OutcomeFinal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeToolCall:
		return "tool_call"
	case OutcomeFinal:
		return "final"
	default:
		return "unstructured"
	}
}

// ToolCall is a tool invocation taken from a parsed assistant message.
// Arguments is the raw argument text as the model wrote it.
type ToolCall struct {
	Name      string
	Arguments string
}

// Outcome is the result of Extract. Index is the position of the message it
// was taken from, or -1 for OutcomeUnstructured.
type Outcome struct {
	Kind  OutcomeKind
	Call  ToolCall
	Final string
	Index int
}

// Extract returns the first tool call in msgs or, failing that, the first
// final-channel answer. Tool calls win over final answers.
func Extract(msgs []session.Message) Outcome {
	for i, m := range msgs {
		if !strings.HasPrefix(m.Recipient, toolRecipientPrefix) {
			continue
		}
		args := "{}"
		if text, ok := m.Text(); ok {
			args = strings.TrimSpace(text)
		}
		return Outcome{
			Kind:  OutcomeToolCall,
			Call:  ToolCall{Name: strings.TrimPrefix(m.Recipient, toolRecipientPrefix), Arguments: args},
			Index: i,
		}
	}
	for i, m := range msgs {
		if m.Channel != "final" {
			continue
		}
		if text, ok := m.Text(); ok {
			return Outcome{Kind: OutcomeFinal, Final: strings.TrimSpace(text), Index: i}
		}
	}
	return Outcome{Kind: OutcomeUnstructured, Index: -1}
}
