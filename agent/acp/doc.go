// Package acp serves the agent over the Agent Client Protocol so editors such
// as Zed can drive it. Requests and responses are newline-delimited JSON-RPC
// 2.0 messages on stdio.
//
// Supported methods:
//   - initialize: protocol version and agent capabilities
//   - session/new: starts a session backed by its own agent and conversation
//   - session/prompt: runs one turn and streams session/update notifications
//     (agent_message_chunk, tool_call, tool_result)
//
// session/load is answered with an error: conversations live only as long as
// the process.
package acp
