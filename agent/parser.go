package agent

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/errors"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/harmony"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/session"
)

// ToolNamespace is the namespace the model addresses tools in, as in
// "to=functions.read_file".
const ToolNamespace = "functions"

const toolRecipientPrefix = ToolNamespace + "."

// ResponseParser turns raw completion text into assistant messages.
type ResponseParser interface {
	Parse(raw string) ([]session.Message, error)
}

// RepairCall appends a call terminator to raw when it addresses a tool but
// has none. The completion endpoint strips the stop sequence, so a complete
// tool call usually arrives without its <|call|>.
func RepairCall(raw string) string {
	if strings.Contains(raw, "to="+toolRecipientPrefix) && !strings.Contains(raw, harmony.TokenCall) {
		return raw + harmony.TokenCall
	}
	return raw
}

// StructuredParser decodes completions with the strict Harmony parser after
// applying RepairCall.
type StructuredParser struct {
	enc *harmony.Encoding
}

// NewStructuredParser returns a parser backed by enc.
func NewStructuredParser(enc *harmony.Encoding) *StructuredParser {
	if enc == nil {
		enc = harmony.NewEncoding()
	}
	return &StructuredParser{enc: enc}
}

func (p *StructuredParser) Parse(raw string) ([]session.Message, error) {
	msgs, err := p.enc.ParseMessagesFromCompletion(RepairCall(raw), session.RoleAssistant)
	if err != nil {
		return nil, errors.E(errors.KindParse, "parse", err)
	}
	return msgs, nil
}

// ScanParser recovers a tool call or a final answer from text the strict
// parser rejects by scanning for markers. It never fails. When it finds
// neither it returns no messages and the caller falls back to the raw text.
type ScanParser struct{}

func (ScanParser) Parse(raw string) ([]session.Message, error) {
	if m, ok := scanToolCall(raw); ok {
		return []session.Message{m}, nil
	}
	if m, ok := scanFinal(raw); ok {
		return []session.Message{m}, nil
	}
	return nil, nil
}

// scanToolCall takes the name after the first "to=functions." (up to a
// space or the next marker) and the arguments after the last <|message|>.
func scanToolCall(raw string) (session.Message, bool) {
	marker := "to=" + toolRecipientPrefix
	i := strings.Index(raw, marker)
	if i < 0 {
		return session.Message{}, false
	}
	name := raw[i+len(marker):]
	if j := strings.IndexAny(name, " \t\r\n"); j >= 0 {
		name = name[:j]
	}
	if j := strings.Index(name, "<|"); j >= 0 {
		name = name[:j]
	}
	if name == "" {
		return session.Message{}, false
	}

	m := session.Message{Role: session.RoleAssistant, Channel: "commentary", Recipient: toolRecipientPrefix + name}
	// Without a body marker the call has no content and Extract supplies "{}".
	if j := strings.LastIndex(raw, harmony.TokenMessage); j >= 0 {
		args := raw[j+len(harmony.TokenMessage):]
		if k := strings.Index(args, "<|"); k >= 0 {
			args = args[:k]
		}
		m.Content = []session.Content{session.TextContent{Text: strings.TrimSpace(args)}}
	}
	return m, true
}

func scanFinal(raw string) (session.Message, bool) {
	marker := harmony.TokenChannel + "final" + harmony.TokenMessage
	i := strings.Index(raw, marker)
	if i < 0 {
		return session.Message{}, false
	}
	content := raw[i+len(marker):]
	if j := strings.Index(content, "<|"); j >= 0 {
		content = content[:j]
	}
	return session.NewMessage(session.RoleAssistant, strings.TrimSpace(content)).WithChannel("final"), true
}

// FallbackParser tries Primary and, when it fails, returns Fallback's
// result. Primary errors are logged, never returned.
type FallbackParser struct {
	Primary  ResponseParser
	Fallback ResponseParser
	Logger   *slog.Logger
}

// NewFallbackParser returns the default parser chain: StructuredParser
// falling back to ScanParser.
func NewFallbackParser(enc *harmony.Encoding, logger *slog.Logger) *FallbackParser {
	return &FallbackParser{
		Primary:  NewStructuredParser(enc),
		Fallback: ScanParser{},
		Logger:   logger,
	}
}

func (p *FallbackParser) Parse(raw string) ([]session.Message, error) {
	msgs, err := p.Primary.Parse(raw)
	if err == nil {
		return msgs, nil
	}
	if p.Logger != nil {
		p.Logger.Debug("structured parse failed, scanning raw text", "error", err)
	}
	msgs, ferr := p.Fallback.Parse(raw)
	if ferr != nil {
		return nil, errors.E(errors.KindParse, "parse", fmt.Errorf("fallback parser: %w (structured parser: %v)", ferr, err))
	}
	return msgs, nil
}
