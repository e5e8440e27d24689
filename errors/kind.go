package errors

import "fmt"

// Kind classifies a failure so the turn loop can decide whether it ends the
// turn or is fed back to the model.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransport: the completion request failed.
	KindTransport
	// KindEncoding: rendering the prompt failed.
	KindEncoding
	// KindParse: structured decoding of a completion failed. Always recovered
	// by the manual fallback parser.
	KindParse
	// KindMalformedArguments: tool arguments are not valid JSON. Fed back to
	// the model so it can retry.
	KindMalformedArguments
	// KindInvalidArguments: tool arguments are JSON of the wrong shape.
	KindInvalidArguments
	// KindUnknownTool: the model addressed a tool outside the closed set.
	KindUnknownTool
	// KindTool: a tool ran and failed (missing file, old_str not found...).
	KindTool
	// KindStepLimit: the configured tool round-trip cap was reached.
	KindStepLimit
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindEncoding:
		return "encoding"
	case KindParse:
		return "parse"
	case KindMalformedArguments:
		return "malformed arguments"
	case KindInvalidArguments:
		return "invalid arguments"
	case KindUnknownTool:
		return "unknown tool"
	case KindTool:
		return "tool"
	case KindStepLimit:
		return "step limit"
	default:
		return "unknown"
	}
}

// Error is a classified error. Op names the operation that failed, e.g.
// "edit_file" or "complete".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the outermost classified error in err's chain,
// or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsFatal reports whether err must abort the current turn regardless of
// policy. Malformed arguments and parse failures are recoverable; tool
// execution failures depend on the configured policy and are not fatal here.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindMalformedArguments, KindParse, KindTool:
		return false
	default:
		return err != nil
	}
}
