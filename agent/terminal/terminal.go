package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/agent"
)

// Terminal handles the terminal/CLI interaction mode for the agent
type Terminal struct {
	agent   *agent.Agent
	scanner *bufio.Scanner
	out     io.Writer
	errOut  io.Writer
}

// New creates a Terminal on the process's standard streams.
func New(a *agent.Agent) *Terminal {
	return NewWithIO(a, os.Stdin, os.Stdout, os.Stderr)
}

// NewWithIO creates a Terminal reading lines from in. Prompts, tool calls and
// answers go to out; errors and warnings go to errOut.
func NewWithIO(a *agent.Agent, in io.Reader, out, errOut io.Writer) *Terminal {
	return &Terminal{
		agent:   a,
		scanner: bufio.NewScanner(in),
		out:     out,
		errOut:  errOut,
	}
}

func isExit(line string) bool {
	switch line {
	case "exit", "/exit", "/quit":
		return true
	}
	return false
}

// Run starts the interactive terminal session. It returns at end of input or
// on an exit command. Turn errors are printed and the loop continues.
func (t *Terminal) Run(ctx context.Context, initialPrompt string) error {
	// If there's an initial prompt from the command line, use it first
	if initialPrompt = strings.TrimSpace(initialPrompt); initialPrompt != "" {
		fmt.Fprintf(t.out, "You: %s\n", initialPrompt)
		t.turn(ctx, initialPrompt)
	}

	for {
		fmt.Fprint(t.out, "You: ")
		if !t.scanner.Scan() {
			// EOF or read error ends the session
			fmt.Fprintln(t.out)
			break
		}

		userInput := strings.TrimSpace(t.scanner.Text())
		if userInput == "" {
			continue
		}
		if isExit(userInput) {
			break
		}
		t.turn(ctx, userInput)
	}

	return t.scanner.Err()
}

func (t *Terminal) turn(ctx context.Context, userInput string) {
	if err := t.processTurn(ctx, userInput); err != nil {
		fmt.Fprintf(t.errOut, "Error: %v\n", err)
	}
}

// processTurn handles a single user input turn
func (t *Terminal) processTurn(ctx context.Context, userInput string) error {
	callbacks := agent.ProcessCallbacks{
		OnAssistantMessage: func(message string) {
			fmt.Fprintf(t.out, "Assistant: %s\n", message)
		},
		OnToolCall: func(call agent.ToolCall) {
			if t.agent.Verbosity != agent.ToolVerbosityNone {
				fmt.Fprintf(t.out, "Tool call: %s %s\n", call.Name, call.Arguments)
			}
		},
		OnToolResult: func(call agent.ToolCall, result string) {
			if t.agent.Verbosity == agent.ToolVerbosityAll {
				fmt.Fprintf(t.out, "Tool result (%s): %s\n", call.Name, result)
			}
		},
		ShouldExecuteTool: func(call agent.ToolCall) bool {
			if t.agent.Mode != agent.ModePrompt {
				return true
			}
			fmt.Fprint(t.out, "Do you want to allow this? (y/n): ")
			if !t.scanner.Scan() {
				return false
			}
			return strings.ToLower(strings.TrimSpace(t.scanner.Text())) == "y"
		},
		OnWarning: func(warning string) {
			fmt.Fprintf(t.errOut, "Warning: %s\n", warning)
		},
	}

	return t.agent.ProcessUserInput(ctx, userInput, callbacks)
}
