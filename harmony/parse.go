package harmony

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/session"
)

var (
	// ErrIncomplete is returned when the text ends inside a header or before
	// a message terminator.
	ErrIncomplete = errors.New("harmony: incomplete message")
	// ErrMalformed is returned when tokens appear out of order.
	ErrMalformed = errors.New("harmony: malformed message")
)

// ParseMessagesFromCompletion decodes completion text into messages. The
// text is what the backend produced after a prompt ending in
// "<|start|>{role}", so the first header is implicitly prefixed with role.
//
// Parsing is strict: every message must be closed by <|end|>, <|call|> or
// <|return|>. Parsing stops after <|call|> or <|return|>; only whitespace may
// follow them.
func (e *Encoding) ParseMessagesFromCompletion(text string, role session.Role) ([]session.Message, error) {
	rest := text
	if !strings.HasPrefix(rest, TokenStart) {
		rest = TokenStart + string(role) + rest
	}

	var msgs []session.Message
	for {
		rest = strings.TrimLeft(rest, " \t\r\n")
		if rest == "" {
			break
		}
		if !strings.HasPrefix(rest, TokenStart) {
			return nil, fmt.Errorf("%w: expected %s before %q", ErrMalformed, TokenStart, excerpt(rest))
		}
		rest = rest[len(TokenStart):]

		hdrEnd := strings.Index(rest, TokenMessage)
		if hdrEnd < 0 {
			return nil, fmt.Errorf("%w: header %q has no %s", ErrIncomplete, excerpt(rest), TokenMessage)
		}
		msg, err := parseHeader(rest[:hdrEnd])
		if err != nil {
			return nil, err
		}
		rest = rest[hdrEnd+len(TokenMessage):]

		end, term := nextTerminator(rest)
		if end < 0 {
			return nil, fmt.Errorf("%w: message body %q is not terminated", ErrIncomplete, excerpt(rest))
		}
		body := rest[:end]
		if tok := firstControlToken(body); tok != "" {
			return nil, fmt.Errorf("%w: %s inside message body", ErrMalformed, tok)
		}
		msg.Content = []session.Content{session.TextContent{Text: body}}
		msgs = append(msgs, msg)

		rest = rest[end+len(term):]
		if term == TokenCall || term == TokenReturn {
			if strings.TrimSpace(rest) != "" {
				return nil, fmt.Errorf("%w: text after %s: %q", ErrMalformed, term, excerpt(rest))
			}
			break
		}
	}
	return msgs, nil
}

// parseHeader decodes the text between <|start|> and <|message|>, e.g.
// "assistant<|channel|>commentary to=functions.read_file <|constrain|>json".
func parseHeader(h string) (session.Message, error) {
	var m session.Message
	for _, tok := range []string{TokenStart, TokenEnd, TokenCall, TokenReturn} {
		if strings.Contains(h, tok) {
			return m, fmt.Errorf("%w: %s inside header %q", ErrMalformed, tok, h)
		}
	}
	h = strings.ReplaceAll(h, TokenChannel, " "+TokenChannel+" ")
	h = strings.ReplaceAll(h, TokenConstrain, " "+TokenConstrain)
	fields := strings.Fields(h)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "<|") || strings.HasPrefix(fields[0], "to=") {
		return m, fmt.Errorf("%w: header has no role", ErrMalformed)
	}

	switch r := session.Role(fields[0]); r {
	case session.RoleSystem, session.RoleDeveloper, session.RoleUser, session.RoleAssistant:
		m.Role = r
	default:
		m.Role = session.RoleTool
		m.AuthorName = fields[0]
	}

	var contentType []string
	for i := 1; i < len(fields); i++ {
		f := fields[i]
		switch {
		case f == TokenChannel:
			if i+1 >= len(fields) || strings.HasPrefix(fields[i+1], "<|") || strings.HasPrefix(fields[i+1], "to=") {
				return m, fmt.Errorf("%w: empty channel", ErrMalformed)
			}
			i++
			m.Channel = fields[i]
		case strings.HasPrefix(f, "to="):
			if len(f) == len("to=") {
				return m, fmt.Errorf("%w: empty recipient", ErrMalformed)
			}
			m.Recipient = strings.TrimPrefix(f, "to=")
		default:
			contentType = append(contentType, f)
		}
	}
	m.ContentType = strings.Join(contentType, " ")
	return m, nil
}

// nextTerminator returns the index and value of the earliest message
// terminator in s, or -1.
func nextTerminator(s string) (int, string) {
	at, term := -1, ""
	for _, tok := range []string{TokenEnd, TokenCall, TokenReturn} {
		if i := strings.Index(s, tok); i >= 0 && (at < 0 || i < at) {
			at, term = i, tok
		}
	}
	return at, term
}

func excerpt(s string) string {
	const max = 40
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
