// Package tools implements the file-system tools the model may call.
//
// The set of tools is closed: read_file, list_files and edit_file. A
// Dispatcher is built once at startup and refuses to start unless every
// Name has exactly one implementation. Arguments arrive as raw JSON text
// written by the model and are classified on failure:
//
//   - text that is not JSON: errors.KindMalformedArguments
//   - JSON of the wrong shape: errors.KindInvalidArguments
//   - a name outside the set: errors.KindUnknownTool
//   - a tool that ran and failed: errors.KindTool
//
// Paths are resolved against the dispatcher's directory without any
// containment check.
package tools
