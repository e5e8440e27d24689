package acp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/agent"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/errors"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// maxResourceSize caps file contents inlined from resource_link blocks.
const maxResourceSize = 50000

// NewAgentFunc builds the agent behind a new session. cwd is the working
// directory sent by the client and may be empty.
type NewAgentFunc func(cwd string) (*agent.Agent, error)

// Run serves ACP on in and out until in is exhausted. Nothing but JSON-RPC
// messages is written to out; diagnostics go to logger.
func Run(ctx context.Context, newAgent NewAgentFunc, in io.Reader, out io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{
		ctx:      ctx,
		newAgent: newAgent,
		sessions: make(map[string]*agent.Agent),
		out:      out,
		logger:   logger,
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		payload := scanner.Bytes()
		if len(strings.TrimSpace(string(payload))) == 0 {
			continue
		}
		logger.Debug("acp request", "payload", string(payload))

		var req jsonrpcRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			logger.Warn("acp request is not JSON", "error", err)
			s.writeError(nil, codeParseError, "Parse error", nil)
			continue
		}
		s.dispatch(&req)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "ACP: read error")
	}
	return nil
}

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonrpcError `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type jsonrpcNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// server holds the sessions of one ACP connection. Requests are handled one
// at a time, so a session never runs two turns at once.
type server struct {
	ctx      context.Context
	newAgent NewAgentFunc

	mu       sync.Mutex
	sessions map[string]*agent.Agent

	writeMu sync.Mutex
	out     io.Writer
	logger  *slog.Logger
}

func (s *server) dispatch(req *jsonrpcRequest) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "session/new":
		s.handleSessionNew(req)
	case "session/load":
		s.writeError(req.ID, codeMethodNotFound, "Method not supported", "sessions are not persisted")
	case "session/prompt":
		s.handleSessionPrompt(req)
	default:
		if req.ID == nil {
			// Notifications such as session/cancel get no response.
			s.logger.Debug("ignoring acp notification", "method", req.Method)
			return
		}
		s.writeError(req.ID, codeMethodNotFound, "Method not found", nil)
	}
}

func (s *server) write(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encoding acp message", "error", err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.logger.Debug("acp write failed", "error", err)
	}
}

func (s *server) writeResult(id, result any) {
	s.write(jsonrpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *server) writeError(id any, code int, msg string, data any) {
	s.logger.Debug("acp error response", "code", code, "message", msg, "data", data)
	s.write(jsonrpcResponse{JSONRPC: "2.0", ID: id, Error: &jsonrpcError{Code: code, Message: msg, Data: data}})
}

func (s *server) sendUpdate(sessionID string, update map[string]any) {
	s.write(jsonrpcNotification{
		JSONRPC: "2.0",
		Method:  "session/update",
		Params:  map[string]any{"sessionId": sessionID, "update": update},
	})
}

func (s *server) handleInitialize(req *jsonrpcRequest) {
	var p struct {
		ProtocolVersion int `json:"protocolVersion"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			s.writeError(req.ID, codeInvalidParams, "Invalid params", err.Error())
			return
		}
	}
	s.logger.Info("acp client connected", "protocol_version", p.ProtocolVersion)

	s.writeResult(req.ID, map[string]any{
		"protocolVersion": 1,
		"agentCapabilities": map[string]any{
			"loadSession": false,
			"promptCapabilities": map[string]bool{
				"audio":           false,
				"embeddedContext": false,
				"image":           false,
			},
		},
		"authMethods": []any{},
	})
}

func (s *server) handleSessionNew(req *jsonrpcRequest) {
	var p struct {
		Cwd string `json:"cwd"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			s.writeError(req.ID, codeInvalidParams, "Invalid params", err.Error())
			return
		}
	}

	a, err := s.newAgent(p.Cwd)
	if err != nil {
		s.writeError(req.ID, codeInternalError, "Internal error", fmt.Sprintf("failed to create session: %v", err))
		return
	}
	sid := "sess_" + uuid.NewString()

	s.mu.Lock()
	s.sessions[sid] = a
	s.mu.Unlock()

	s.logger.Info("acp session created", "session_id", sid, "cwd", p.Cwd)
	s.writeResult(req.ID, map[string]any{"sessionId": sid})
}

// contentBlock is an ACP prompt block. Only text and resource_link blocks
// contribute to the user message.
type contentBlock struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	URI         string `json:"uri,omitempty"`
	Name        string `json:"name,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Size        *int64 `json:"size,omitempty"`
}

func (s *server) handleSessionPrompt(req *jsonrpcRequest) {
	var p struct {
		SessionID string         `json:"sessionId"`
		Prompt    []contentBlock `json:"prompt"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		s.writeError(req.ID, codeInvalidParams, "Invalid params", err.Error())
		return
	}

	s.mu.Lock()
	a, ok := s.sessions[p.SessionID]
	s.mu.Unlock()
	if !ok {
		s.writeError(req.ID, codeInvalidParams, "Invalid params", "unknown sessionId")
		return
	}

	userText := extractUserText(p.Prompt)
	if strings.TrimSpace(userText) == "" {
		s.writeError(req.ID, codeInvalidParams, "Invalid params", "prompt has no text")
		return
	}

	log := s.logger.With("session_id", p.SessionID)
	// Calls run one at a time, so the id of the pending call pairs each
	// tool_result with its tool_call.
	var callID string
	callbacks := agent.ProcessCallbacks{
		OnAssistantMessage: func(message string) {
			s.sendUpdate(p.SessionID, map[string]any{
				"sessionUpdate": "agent_message_chunk",
				"content":       map[string]any{"type": "text", "text": message},
			})
		},
		OnToolCall: func(call agent.ToolCall) {
			callID = "call_" + uuid.NewString()
			s.sendUpdate(p.SessionID, map[string]any{
				"sessionUpdate": "tool_call",
				"toolCall": map[string]any{
					"id":   callID,
					"name": call.Name,
					"args": toolArgs(call.Arguments),
				},
			})
		},
		OnToolResult: func(call agent.ToolCall, result string) {
			s.sendUpdate(p.SessionID, map[string]any{
				"sessionUpdate": "tool_result",
				"toolResult":    map[string]any{"toolCallId": callID, "result": result},
			})
		},
		// The editor does not confirm calls; they always run.
		ShouldExecuteTool: func(agent.ToolCall) bool { return true },
		OnWarning: func(warning string) {
			log.Warn("turn warning", "warning", warning)
		},
	}

	if err := a.ProcessUserInput(s.ctx, userText, callbacks); err != nil {
		log.Error("turn failed", "error", err)
		s.writeError(req.ID, codeInternalError, "Internal error", fmt.Sprintf("error processing user input: %v", err))
		return
	}
	s.writeResult(req.ID, map[string]any{"stopReason": "end_turn"})
}

// toolArgs embeds valid JSON arguments as an object and anything else as a
// string.
func toolArgs(args string) any {
	if gjson.Valid(args) {
		return json.RawMessage(args)
	}
	return args
}

// extractUserText joins the text blocks of a prompt. resource_link blocks
// are inlined with their metadata and, for file:// URIs, the file contents.
func extractUserText(blocks []contentBlock) string {
	var parts []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if strings.TrimSpace(b.Text) != "" {
				parts = append(parts, b.Text)
			}
		case "resource_link":
			parts = append(parts, resourceText(b))
		}
	}
	return strings.Join(parts, "\n")
}

func resourceText(b contentBlock) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Resource: %s ===\n", b.Name)
	if b.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", b.Title)
	}
	if b.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", b.Description)
	}
	fmt.Fprintf(&sb, "URI: %s\n", b.URI)
	if b.MimeType != "" {
		fmt.Fprintf(&sb, "Type: %s\n", b.MimeType)
	}
	if b.Size != nil {
		fmt.Fprintf(&sb, "Size: %d bytes\n", *b.Size)
	}

	if strings.HasPrefix(b.URI, "file://") {
		content, err := readFileURI(b.URI)
		if err != nil {
			fmt.Fprintf(&sb, "\n[Error reading file: %v]\n", err)
		} else {
			if len(content) > maxResourceSize {
				content = content[:maxResourceSize] + "\n\n[... truncated ...]"
			}
			fmt.Fprintf(&sb, "\n--- File Contents ---\n%s\n--- End of File ---\n", content)
		}
	} else {
		sb.WriteString("\n[External resource - content not available]\n")
	}
	sb.WriteString("=== End Resource ===\n")
	return sb.String()
}

func readFileURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid URI: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported URI scheme: %s", u.Scheme)
	}
	content, err := os.ReadFile(u.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(content), nil
}
