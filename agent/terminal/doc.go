// Package terminal implements the command-line interaction mode for the agent.
//
// Each input line becomes one user turn. Empty lines re-prompt; "exit",
// "/exit" and "/quit" end the session, as does end of input. Output uses
// stable labels:
//
//	You: <prompt>
//	Tool call: <name> <raw arguments>
//	Tool result (<name>): <text>     (tool verbosity "all" only)
//	Assistant: <answer>
//
// Errors and warnings go to the error stream prefixed "Error:" and
// "Warning:"; an error ends the turn, not the session.
//
// # Usage
//
//	term := terminal.New(a)
//	err = term.Run(ctx, initialPrompt)
//
// In prompt mode the user confirms each tool call with "y"; any other
// answer declines it and the model is told so.
package terminal
