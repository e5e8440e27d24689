package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/errors"
)

func TestOpenAICompletionClientRequest(t *testing.T) {
	var body map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"text_completion","created":1,"model":"openai/gpt-oss-20b",
			"choices":[{"index":0,"text":"<|channel|>final<|message|>hi","finish_reason":"stop","logprobs":null}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAICompletionClient(srv.URL+"/v1/", "not-needed")
	if err != nil {
		t.Fatalf("NewOpenAICompletionClient: %v", err)
	}
	resp, err := c.Complete(context.Background(), CompletionRequest{
		Model:       "openai/gpt-oss-20b",
		Prompt:      "<|start|>user<|message|>hi<|end|><|start|>assistant",
		MaxTokens:   512,
		Temperature: 0.7,
		N:           1,
		Stop:        []string{"<|return|>", "<|call|>"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	text, err := resp.FirstText()
	if err != nil || text != "<|channel|>final<|message|>hi" {
		t.Fatalf("FirstText = %q, %v", text, err)
	}

	if path != "/v1/completions" {
		t.Errorf("path = %q", path)
	}
	if body["model"] != "openai/gpt-oss-20b" || body["max_tokens"] != float64(512) || body["n"] != float64(1) {
		t.Errorf("unexpected body %v", body)
	}
	if body["echo"] != false {
		t.Errorf("echo = %v", body["echo"])
	}
	if _, ok := body["top_p"]; ok {
		t.Errorf("top_p must be omitted")
	}
	stop, _ := body["stop"].([]any)
	if len(stop) != 2 || stop[0] != "<|return|>" || stop[1] != "<|call|>" {
		t.Errorf("stop = %v", body["stop"])
	}
}

func TestOpenAICompletionClientTransportErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewOpenAICompletionClient(srv.URL+"/v1/", "not-needed")
	if err != nil {
		t.Fatalf("NewOpenAICompletionClient: %v", err)
	}
	_, err = c.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "p"})
	if errors.KindOf(err) != errors.KindTransport {
		t.Fatalf("err = %v, want transport error", err)
	}
	if calls != 1 {
		t.Fatalf("server saw %d requests, retries must be disabled", calls)
	}
}

func TestOpenAICompletionClientNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"text_completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	c, _ := NewOpenAICompletionClient(srv.URL+"/v1/", "k")
	if _, err := c.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "p"}); errors.KindOf(err) != errors.KindTransport {
		t.Fatalf("err = %v, want transport error", err)
	}
}

func TestNewOpenAICompletionClientNeedsBaseURL(t *testing.T) {
	if _, err := NewOpenAICompletionClient("", "k"); err == nil {
		t.Fatal("expected error")
	}
}

func TestMockCompletionClientEchoesLastUserLine(t *testing.T) {
	m := &MockCompletionClient{}
	resp, err := m.Complete(context.Background(), CompletionRequest{
		Prompt: "<|start|>user<|message|>first<|end|><|start|>user<|message|>second<|end|><|start|>assistant",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	text, _ := resp.FirstText()
	if !strings.HasPrefix(text, "<|channel|>final<|message|>") || !strings.Contains(text, "'second'") {
		t.Fatalf("text = %q", text)
	}
}

func TestScriptedClient(t *testing.T) {
	s := NewScriptedClient("one", "two")
	for _, want := range []string{"one", "two"} {
		resp, err := s.Complete(context.Background(), CompletionRequest{Prompt: want})
		if err != nil {
			t.Fatalf("Complete: %v", err)
		}
		if got, _ := resp.FirstText(); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
	if _, err := s.Complete(context.Background(), CompletionRequest{}); errors.KindOf(err) != errors.KindTransport {
		t.Fatalf("exhausted script: err = %v", err)
	}
	if n := len(s.Requests()); n != 3 {
		t.Fatalf("recorded %d requests", n)
	}
}
