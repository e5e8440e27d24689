// Package harmony implements the text form of the Harmony chat format used by
// gpt-oss models.
//
// A conversation is rendered as a sequence of messages
//
//	<|start|>{header}<|message|>{body}<|end|>
//
// where the header carries the role (or the tool author), an optional
// recipient written as "to=...", an optional <|channel|> tag and an optional
// content type such as "<|constrain|>json". Assistant messages addressed to a
// tool end with <|call|>; a finished assistant turn ends with <|return|>.
//
// The package works on the literal token strings. Token ids and BPE merges
// are the serving backend's concern: prompts are sent as text to a completions
// endpoint, which tokenizes them with the model's own vocabulary.
package harmony
