// Package agent runs the conversation turn loop against a gpt-oss
// completion backend.
//
// A turn starts with one line of user input and moves through these states:
//
//	rendering -> awaiting_completion -> parsing -> final_ready
//	                                           \-> tool_requested -> rendering ...
//
// Rendering turns the whole conversation into a Harmony prompt ending in
// "<|start|>assistant". The completion is parsed by a FallbackParser: the
// strict Harmony parser (after RepairCall restores a stripped <|call|>)
// and, if that fails, a ScanParser that looks for markers in the raw text.
// Extract then decides between a tool call, a final answer and an
// unstructured reply. Unstructured replies are shown verbatim.
//
// # Usage
//
//	a, err := agent.New(cfg, client, dispatcher, logger)
//	if err != nil {
//	    // handle error
//	}
//	err = a.ProcessUserInput(ctx, "what is in main.go?", agent.ProcessCallbacks{
//	    OnAssistantMessage: func(message string) { fmt.Println(message) },
//	})
//
// # Errors
//
// Transport, encoding, unknown-tool and invalid-argument errors end the
// turn. Arguments that are not JSON are fed back to the model as the tool
// result so it can retry. Failures of the tool itself end the turn unless
// the agent's ToolErrors policy is ToolErrorsReport. MaxToolSteps, when
// set, bounds the number of tool calls in one turn.
//
// # Modes
//
//   - ModeAuto: Tools are executed automatically without confirmation
//   - ModePrompt: ShouldExecuteTool asks before each tool call
//
// The agent/terminal subpackage implements the interactive command-line
// mode on top of ProcessCallbacks.
package agent
