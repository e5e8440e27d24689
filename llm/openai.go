package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/errors"
)

// OpenAICompletionClient talks to an OpenAI-compatible /v1/completions
// endpoint, such as LM Studio serving gpt-oss.
type OpenAICompletionClient struct {
	client *openai.Client
}

// NewOpenAICompletionClient creates a client for baseURL. Local servers
// accept any API key. The SDK's automatic retries are disabled: a failed
// request fails the turn.
func NewOpenAICompletionClient(baseURL, apiKey string, opts ...option.RequestOption) (*OpenAICompletionClient, error) {
	if baseURL == "" {
		return nil, errors.New("base URL for the completion endpoint is not set")
	}
	options := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	options = append(options, opts...)

	// The SDK returns a value; keep a pointer to it.
	c := openai.NewClient(options...)
	return &OpenAICompletionClient{client: &c}, nil
}

// Complete sends req to the completions endpoint.
func (o *OpenAICompletionClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	params := openai.CompletionNewParams{
		Model:  openai.CompletionNewParamsModel(req.Model),
		Prompt: openai.CompletionNewParamsPromptUnion{OfString: openai.String(req.Prompt)},
		Echo:   openai.Bool(req.Echo),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	params.Temperature = openai.Float(req.Temperature)
	if req.N > 0 {
		params.N = openai.Int(int64(req.N))
	}
	if len(req.Stop) > 0 {
		params.Stop = openai.CompletionNewParamsStopUnion{OfStringArray: req.Stop}
	}

	resp, err := o.client.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.E(errors.KindTransport, "complete", errors.Wrapf(err, "failed to send completion request"))
	}
	if len(resp.Choices) == 0 {
		return nil, errors.E(errors.KindTransport, "complete", fmt.Errorf("completion response has no choices"))
	}

	out := &CompletionResponse{Choices: make([]Choice, 0, len(resp.Choices))}
	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, Choice{Text: c.Text, FinishReason: string(c.FinishReason)})
	}
	return out, nil
}
