package harmony

import "strings"

const (
	TokenStart     = "<|start|>"
	TokenEnd       = "<|end|>"
	TokenMessage   = "<|message|>"
	TokenChannel   = "<|channel|>"
	TokenConstrain = "<|constrain|>"
	TokenReturn    = "<|return|>"
	TokenCall      = "<|call|>"
)

// controlTokens lists every token that may not appear in header fields or
// message bodies.
var controlTokens = []string{
	TokenStart,
	TokenEnd,
	TokenMessage,
	TokenChannel,
	TokenConstrain,
	TokenReturn,
	TokenCall,
}

// StopSequences returns the tokens a completion request should stop on: the
// return terminator (turn finished) and the call terminator (tool call).
func StopSequences() []string {
	return []string{TokenReturn, TokenCall}
}

// firstControlToken returns the earliest control token in s, or "".
func firstControlToken(s string) string {
	best, at := "", -1
	for _, tok := range controlTokens {
		if i := strings.Index(s, tok); i >= 0 && (at < 0 || i < at) {
			best, at = tok, i
		}
	}
	return best
}

// StripControlTokens removes every control token from s.
func StripControlTokens(s string) string {
	for _, tok := range controlTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	return s
}
