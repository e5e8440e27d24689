// Package mcp exposes the agent's file tools over the Model Context Protocol,
// so an editor or another agent can drive them without the completion loop.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/errors"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/tools"
)

const (
	serverName    = "agent-file-tools"
	serverVersion = "v1.0.0"
)

// Server serves a tools.Dispatcher over MCP.
type Server struct {
	server     *mcpsdk.Server
	dispatcher *tools.Dispatcher
	logger     *slog.Logger
}

// NewServer registers every tool of d on a new MCP server.
func NewServer(d *tools.Dispatcher, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("mcp server needs a dispatcher")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		server:     mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: serverVersion}, nil),
		dispatcher: d,
		logger:     logger,
	}
	for _, t := range d.Tools() {
		desc := &mcpsdk.Tool{Name: string(t.Name()), Description: t.Description()}
		switch t.Name() {
		case tools.ReadFile:
			mcpsdk.AddTool(s.server, desc, handler[tools.ReadFileArgs](s, t.Name()))
		case tools.ListFiles:
			mcpsdk.AddTool(s.server, desc, handler[tools.ListFilesArgs](s, t.Name()))
		case tools.EditFile:
			mcpsdk.AddTool(s.server, desc, handler[tools.EditFileArgs](s, t.Name()))
		default:
			return nil, errors.New("tool %q has no MCP binding", t.Name())
		}
	}
	return s, nil
}

// Run serves on stdin/stdout until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving tools over MCP stdio", "tools", len(s.dispatcher.Tools()))
	return errors.Wrapf(s.server.Run(ctx, mcpsdk.NewStdioTransport()), "mcp server stopped")
}

// Connect serves a single session on t. Used with in-memory transports.
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	ss, err := s.server.Connect(ctx, t)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect MCP session")
	}
	return ss, nil
}

// handler re-encodes the decoded MCP arguments and sends them through the
// dispatcher, so argument checks and tool semantics match the agent loop.
// Tool failures are reported as error results, not protocol errors.
func handler[In any](s *Server, name tools.Name) mcpsdk.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[In]) (*mcpsdk.CallToolResultFor[any], error) {
		raw, err := json.Marshal(params.Arguments)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode arguments for %s", name)
		}
		out, err := s.dispatcher.Dispatch(ctx, string(name), string(raw))
		if err != nil {
			s.logger.Debug("mcp tool call failed", "tool", name, "kind", errors.KindOf(err).String(), "error", err)
			return &mcpsdk.CallToolResultFor[any]{
				IsError: true,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
			}, nil
		}
		s.logger.Debug("mcp tool call", "tool", name)
		return &mcpsdk.CallToolResultFor[any]{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: out}},
		}, nil
	}
}
