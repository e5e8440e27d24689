package harmony

import (
	"fmt"
	"strings"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/session"
)

// Encoding renders conversations into Harmony prompt text and parses
// completions back into messages. The zero value is ready to use.
type Encoding struct{}

// NewEncoding returns a Harmony encoding.
func NewEncoding() *Encoding { return &Encoding{} }

// ValidateMessage reports whether m can be rendered.
func (e *Encoding) ValidateMessage(m session.Message) error {
	_, err := e.RenderMessage(m)
	return err
}

// RenderMessage renders a single message including its terminator.
func (e *Encoding) RenderMessage(m session.Message) (string, error) {
	var b strings.Builder
	if err := e.renderMessage(&b, m); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderConversation renders msgs back to back.
func (e *Encoding) RenderConversation(msgs []session.Message) (string, error) {
	var b strings.Builder
	for i, m := range msgs {
		if err := e.renderMessage(&b, m); err != nil {
			return "", fmt.Errorf("message %d: %w", i, err)
		}
	}
	return b.String(), nil
}

// RenderConversationForCompletion renders msgs followed by the opening of a
// message from next, so that the completion continues as that role. The
// output depends only on its inputs.
func (e *Encoding) RenderConversationForCompletion(msgs []session.Message, next session.Role) (string, error) {
	prompt, err := e.RenderConversation(msgs)
	if err != nil {
		return "", err
	}
	if !knownRole(next) || next == session.RoleTool {
		return "", fmt.Errorf("cannot open a completion for role %q", next)
	}
	return prompt + TokenStart + string(next), nil
}

func (e *Encoding) renderMessage(b *strings.Builder, m session.Message) error {
	author := string(m.Role)
	switch {
	case m.Role == session.RoleTool:
		if m.AuthorName == "" {
			return fmt.Errorf("tool message has no author name")
		}
		author = m.AuthorName
	case !knownRole(m.Role):
		return fmt.Errorf("unknown role %q", m.Role)
	}
	for _, f := range []struct{ name, value string }{
		{"author", author},
		{"recipient", m.Recipient},
		{"channel", m.Channel},
	} {
		if tok := firstControlToken(f.value); tok != "" {
			return fmt.Errorf("%s %q contains control token %s", f.name, f.value, tok)
		}
		if strings.ContainsAny(f.value, " \t\r\n") {
			return fmt.Errorf("%s %q contains whitespace", f.name, f.value)
		}
	}
	if tok := firstControlToken(strings.ReplaceAll(m.ContentType, TokenConstrain, "")); tok != "" {
		return fmt.Errorf("content type %q contains control token %s", m.ContentType, tok)
	}

	var text strings.Builder
	for _, c := range m.Content {
		if tc, ok := c.(session.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}
	if tok := firstControlToken(text.String()); tok != "" {
		return fmt.Errorf("message text contains control token %s", tok)
	}

	b.WriteString(TokenStart)
	b.WriteString(author)
	// Assistant tool calls carry the recipient after the channel, the way the
	// model emits them; everyone else carries it before.
	if m.Recipient != "" && m.Role != session.RoleAssistant {
		b.WriteString(" to=" + m.Recipient)
	}
	if m.Channel != "" {
		b.WriteString(TokenChannel + m.Channel)
	}
	if m.Recipient != "" && m.Role == session.RoleAssistant {
		b.WriteString(" to=" + m.Recipient)
	}
	if m.ContentType != "" {
		b.WriteString(" " + m.ContentType)
	}
	b.WriteString(TokenMessage)
	b.WriteString(text.String())
	if m.Role == session.RoleAssistant && m.Recipient != "" {
		b.WriteString(TokenCall)
	} else {
		b.WriteString(TokenEnd)
	}
	return nil
}

func knownRole(r session.Role) bool {
	switch r {
	case session.RoleSystem, session.RoleDeveloper, session.RoleUser, session.RoleAssistant, session.RoleTool:
		return true
	}
	return false
}
