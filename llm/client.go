package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/errors"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/harmony"
)

// CompletionRequest is a raw-prompt completion request. The prompt is the
// fully rendered Harmony conversation; the backend applies no chat template.
type CompletionRequest struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
	N           int
	Stop        []string
	Echo        bool
}

// Choice is one generated continuation.
type Choice struct {
	Text         string
	FinishReason string
}

// CompletionResponse holds the generated choices. Only the first is used.
type CompletionResponse struct {
	Choices []Choice
}

// FirstText returns the text of the first choice. A response without
// choices is a transport error.
func (r *CompletionResponse) FirstText() (string, error) {
	if r == nil || len(r.Choices) == 0 {
		return "", errors.E(errors.KindTransport, "complete", fmt.Errorf("completion response has no choices"))
	}
	return r.Choices[0].Text, nil
}

// CompletionClient is the interface for a text completion backend.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// MockCompletionClient answers without a backend. It echoes the last user
// line of the prompt on the final channel.
type MockCompletionClient struct{}

func (m *MockCompletionClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	last := ""
	marker := harmony.TokenStart + "user" + harmony.TokenMessage
	if i := strings.LastIndex(req.Prompt, marker); i >= 0 {
		last = req.Prompt[i+len(marker):]
		if j := strings.Index(last, harmony.TokenEnd); j >= 0 {
			last = last[:j]
		}
	}
	text := fmt.Sprintf("%sfinal%sI am a mock model. You said: '%s'.%s",
		harmony.TokenChannel, harmony.TokenMessage, harmony.StripControlTokens(last), harmony.TokenReturn)
	return &CompletionResponse{Choices: []Choice{{Text: text, FinishReason: "stop"}}}, nil
}

// ScriptedClient replays canned completion texts in order and records every
// request it receives. Once the script runs out each call returns an error.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []string
	requests  []CompletionRequest
}

// NewScriptedClient returns a client that replies with responses in order.
func NewScriptedClient(responses ...string) *ScriptedClient {
	return &ScriptedClient{responses: responses}
}

func (s *ScriptedClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return nil, errors.E(errors.KindTransport, "complete", fmt.Errorf("scripted client has no response left for request %d", len(s.requests)))
	}
	text := s.responses[0]
	s.responses = s.responses[1:]
	return &CompletionResponse{Choices: []Choice{{Text: text, FinishReason: "stop"}}}, nil
}

// Requests returns a copy of the requests received so far.
func (s *ScriptedClient) Requests() []CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CompletionRequest(nil), s.requests...)
}
