package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/config"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/errors"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/harmony"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/llm"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/session"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/tools"
)

type Mode string

const (
	ModeAuto   Mode = "auto"
	ModePrompt Mode = "prompt"
)

type ToolVerbosity string

const (
	ToolVerbosityNone ToolVerbosity = "none"
	ToolVerbosityInfo ToolVerbosity = "info"
	ToolVerbosityAll  ToolVerbosity = "all"
)

// ToolErrorPolicy decides what happens when a tool runs and fails.
type ToolErrorPolicy string

const (
	// ToolErrorsFatal ends the turn with the tool's error.
	ToolErrorsFatal ToolErrorPolicy = "fatal"
	// ToolErrorsReport feeds the error back to the model as the tool result.
	ToolErrorsReport ToolErrorPolicy = "report"
)

// ProcessCallbacks lets an interaction mode observe and steer a turn.
// Every field is optional.
type ProcessCallbacks struct {
	OnAssistantMessage func(message string)
	OnToolCall         func(call ToolCall)
	OnToolResult       func(call ToolCall, result string)
	// ShouldExecuteTool is asked before each tool call. A declined call is
	// reported to the model as the tool result.
	ShouldExecuteTool func(call ToolCall) bool
	OnWarning         func(warning string)
}

type Agent struct {
	Config       *config.Config
	Conversation *session.Conversation
	Client       llm.CompletionClient
	Tools        *tools.Dispatcher
	Mode         Mode
	Verbosity    ToolVerbosity
	ToolErrors   ToolErrorPolicy
	// MaxToolSteps caps tool round-trips per turn; 0 means unbounded.
	MaxToolSteps int

	enc    *harmony.Encoding
	parser ResponseParser
	logger *slog.Logger
}

// New creates an agent whose conversation is seeded with the system message
// and a developer message declaring the dispatcher's tools.
func New(cfg *config.Config, client llm.CompletionClient, dispatcher *tools.Dispatcher, logger *slog.Logger) (*Agent, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if client == nil {
		return nil, errors.New("agent needs a completion client")
	}
	if dispatcher == nil {
		return nil, errors.New("agent needs a tool dispatcher")
	}
	if logger == nil {
		logger = slog.Default()
	}

	enc := harmony.NewEncoding()
	conv, err := session.NewConversation(systemMessage(cfg, time.Now()), developerMessage(cfg, dispatcher))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to seed conversation")
	}
	for i, m := range conv.Messages() {
		if err := enc.ValidateMessage(m); err != nil {
			return nil, errors.E(errors.KindEncoding, "render", fmt.Errorf("initial message %d: %w", i, err))
		}
	}

	return &Agent{
		Config:       cfg,
		Conversation: conv,
		Client:       client,
		Tools:        dispatcher,
		Mode:         Mode(cfg.Mode),
		Verbosity:    ToolVerbosity(cfg.ToolVerbosity),
		ToolErrors:   ToolErrorPolicy(cfg.ToolErrors),
		MaxToolSteps: cfg.MaxToolSteps,
		enc:          enc,
		parser:       NewFallbackParser(enc, logger),
		logger:       logger,
	}, nil
}

func systemMessage(cfg *config.Config, now time.Time) session.Message {
	sys := harmony.NewSystemContent()
	sys.KnowledgeCutoff = cfg.KnowledgeCutoff
	sys.CurrentDate = now.Format("2006-01-02")
	sys.Reasoning = harmony.ReasoningEffort(cfg.ReasoningEffort)
	sys.ToolNamespaces = []string{ToolNamespace}
	return session.NewMessage(session.RoleSystem, sys.Render())
}

func developerMessage(cfg *config.Config, d *tools.Dispatcher) session.Message {
	ns := harmony.ToolNamespace{Name: ToolNamespace}
	for _, t := range d.Tools() {
		ns.Tools = append(ns.Tools, harmony.ToolDescription{
			Name:        string(t.Name()),
			Description: t.Description(),
			Parameters:  t.InputSchema(),
		})
	}
	dev := harmony.DeveloperContent{Instructions: cfg.Instructions, Namespaces: []harmony.ToolNamespace{ns}}
	return session.NewMessage(session.RoleDeveloper, dev.Render())
}

type turnState int

const (
	stateRendering turnState = iota
	stateAwaitingCompletion
	stateParsing
	stateFinalReady
	stateToolRequested
)

func (s turnState) String() string {
	switch s {
	case stateRendering:
		return "rendering"
	case stateAwaitingCompletion:
		return "awaiting_completion"
	case stateParsing:
		return "parsing"
	case stateFinalReady:
		return "final_ready"
	case stateToolRequested:
		return "tool_requested"
	default:
		return "unknown"
	}
}

// ProcessUserInput runs one turn: the input becomes a user message, then the
// agent renders, completes and parses until the model gives a final answer.
// Tool calls in between are dispatched and their results appended. A
// returned error ends the turn; the conversation keeps what was appended.
func (a *Agent) ProcessUserInput(ctx context.Context, input string, cb ProcessCallbacks) error {
	log := a.logger.With("turn_id", uuid.NewString())

	if err := a.append(session.NewMessage(session.RoleUser, input)); err != nil {
		return err
	}

	steps := 0
	for {
		log.Debug("turn state", "state", stateRendering, "messages", a.Conversation.Len())
		prompt, err := a.enc.RenderConversationForCompletion(a.Conversation.Messages(), session.RoleAssistant)
		if err != nil {
			return errors.E(errors.KindEncoding, "render", err)
		}
		log.Log(ctx, config.LevelTrace, "prompt", "text", prompt)

		log.Debug("turn state", "state", stateAwaitingCompletion)
		raw, err := a.complete(ctx, prompt)
		if err != nil {
			return err
		}
		log.Log(ctx, config.LevelTrace, "completion", "text", raw)

		log.Debug("turn state", "state", stateParsing)
		msgs, err := a.parser.Parse(raw)
		if err != nil {
			log.Warn("response could not be parsed", "error", err)
			msgs = nil
		}
		outcome := Extract(msgs)

		switch outcome.Kind {
		case OutcomeFinal:
			log.Debug("turn state", "state", stateFinalReady)
			if err := a.appendAll(msgs[:outcome.Index+1]); err != nil {
				return err
			}
			if cb.OnAssistantMessage != nil {
				cb.OnAssistantMessage(outcome.Final)
			}
			return nil

		case OutcomeUnstructured:
			log.Debug("turn state", "state", stateFinalReady, "unstructured", true)
			if cb.OnWarning != nil {
				cb.OnWarning("response had no final answer or tool call; showing raw text")
			}
			stored := session.NewMessage(session.RoleAssistant, harmony.StripControlTokens(raw)).WithChannel("final")
			if err := a.append(stored); err != nil {
				return err
			}
			if cb.OnAssistantMessage != nil {
				cb.OnAssistantMessage(raw)
			}
			return nil
		}

		log.Debug("turn state", "state", stateToolRequested, "tool", outcome.Call.Name)
		steps++
		if a.MaxToolSteps > 0 && steps > a.MaxToolSteps {
			return errors.E(errors.KindStepLimit, "turn", fmt.Errorf("model requested more than %d tool calls in one turn", a.MaxToolSteps))
		}
		result, err := a.runTool(ctx, log, outcome.Call, cb)
		if err != nil {
			return err
		}
		// The call and its result enter the conversation together so a call
		// is never left without an answer.
		toolMsg := session.NewMessage(session.RoleTool, result).
			WithAuthorName(toolRecipientPrefix + outcome.Call.Name).
			WithRecipient(string(session.RoleAssistant)).
			WithChannel("commentary")
		if err := a.appendAll(append(msgs[:outcome.Index+1:outcome.Index+1], toolMsg)); err != nil {
			return err
		}
	}
}

func (a *Agent) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.Client.Complete(ctx, llm.CompletionRequest{
		Model:       a.Config.Model,
		Prompt:      prompt,
		MaxTokens:   a.Config.MaxTokens,
		Temperature: a.Config.Temperature,
		N:           1,
		Stop:        harmony.StopSequences(),
		Echo:        false,
	})
	if err != nil {
		if errors.KindOf(err) == errors.KindUnknown {
			err = errors.E(errors.KindTransport, "complete", err)
		}
		return "", err
	}
	return resp.FirstText()
}

// unrenderableOutput replaces tool output that contains Harmony control
// tokens. The output itself cannot be shown to the model.
const unrenderableOutput = "error: the tool output contains Harmony control tokens and cannot be returned"

// runTool dispatches call and returns the text to feed back to the model.
// Malformed arguments and declined calls are always fed back; tool failures
// follow a.ToolErrors; everything else ends the turn.
func (a *Agent) runTool(ctx context.Context, log *slog.Logger, call ToolCall, cb ProcessCallbacks) (string, error) {
	if cb.OnToolCall != nil {
		cb.OnToolCall(call)
	}
	if cb.ShouldExecuteTool != nil && !cb.ShouldExecuteTool(call) {
		log.Info("tool call declined", "tool", call.Name)
		result := "error: the user declined this tool call"
		if cb.OnToolResult != nil {
			cb.OnToolResult(call, result)
		}
		return result, nil
	}

	start := time.Now()
	result, err := a.Tools.Dispatch(ctx, call.Name, call.Arguments)
	log.Debug("tool executed", "tool", call.Name, "duration", time.Since(start), "error", err)
	if err != nil {
		if errors.IsFatal(err) || (errors.KindOf(err) == errors.KindTool && a.ToolErrors != ToolErrorsReport) {
			return "", err
		}
		result = "error: " + err.Error()
		if cb.OnWarning != nil {
			cb.OnWarning(fmt.Sprintf("tool %s failed: %v", call.Name, err))
		}
	}
	if harmony.StripControlTokens(result) != result {
		log.Warn("tool output contains control tokens", "tool", call.Name)
		result = unrenderableOutput
		if cb.OnWarning != nil {
			cb.OnWarning(fmt.Sprintf("tool %s returned text with Harmony control tokens", call.Name))
		}
	}
	if cb.OnToolResult != nil {
		cb.OnToolResult(call, result)
	}
	return result, nil
}

// append validates m against the encoding before storing it, so a message
// that cannot be rendered never enters the conversation.
func (a *Agent) append(m session.Message) error {
	if err := a.enc.ValidateMessage(m); err != nil {
		return errors.E(errors.KindEncoding, "render", err)
	}
	a.Conversation.Append(m)
	return nil
}

func (a *Agent) appendAll(msgs []session.Message) error {
	for _, m := range msgs {
		if err := a.enc.ValidateMessage(m); err != nil {
			return errors.E(errors.KindEncoding, "render", err)
		}
	}
	for _, m := range msgs {
		a.Conversation.Append(m)
	}
	return nil
}
