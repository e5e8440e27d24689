package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestNewIncludesCallerLocation(t *testing.T) {
	err := New("boom %d", 42)
	if !strings.HasPrefix(err.Error(), "[errors_test.go:") {
		t.Fatalf("expected caller prefix, got %q", err.Error())
	}
	if !strings.HasSuffix(err.Error(), "boom 42") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapfNil(t *testing.T) {
	if Wrapf(nil, "context") != nil {
		t.Fatal("Wrapf(nil) should be nil")
	}
}

func TestWrapfUnwraps(t *testing.T) {
	base := stderrors.New("base")
	err := Wrapf(base, "reading %s", "x")
	if !Is(err, base) {
		t.Fatal("wrapped error should match base")
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	err := Wrapf(E(KindUnknownTool, "dispatch", stderrors.New("nope")), "turn")
	if got := KindOf(err); got != KindUnknownTool {
		t.Fatalf("KindOf = %v, want %v", got, KindUnknownTool)
	}
	if KindOf(stderrors.New("plain")) != KindUnknown {
		t.Fatal("plain errors have no kind")
	}
}

func TestEWithNil(t *testing.T) {
	if E(KindTool, "op", nil) != nil {
		t.Fatal("E with nil error should be nil")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindTransport, true},
		{KindEncoding, true},
		{KindParse, false},
		{KindMalformedArguments, false},
		{KindInvalidArguments, true},
		{KindUnknownTool, true},
		{KindTool, false},
		{KindStepLimit, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := IsFatal(E(tt.kind, "op", stderrors.New("x"))); got != tt.want {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
	if IsFatal(nil) {
		t.Error("nil is not fatal")
	}
}
