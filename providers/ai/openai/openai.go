// Package openai implements the ai.Provider interface against any
// OpenAI-compatible chat-completions endpoint, including the self-hosted
// small-model servers this engine is typically pointed at.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/refinelab/refinery/internal/utils"
	"github.com/refinelab/refinery/providers/ai"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	chatCompletionsEndpoint = "/chat/completions"
)

// Provider implements ai.Provider for OpenAI-compatible APIs.
type Provider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a provider reading OPENAI_API_KEY and OPENAI_API_BASE_URL from
// the environment when set.
func New() *Provider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider.
func (p *Provider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API.
func (p *Provider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client.
func (p *Provider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// SendMessage implements the Provider interface.
func (p *Provider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	resp, err := utils.DoPostSync[wireResponse](ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, requestFromGeneric(request))
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return responseToGeneric(resp), nil
}

// IsStopMessage reports whether the given chat response should be treated as a
// terminal completion.
func (p *Provider) IsStopMessage(message *ai.ChatResponse) bool {
	if message == nil {
		return true
	}
	if message.FinishReason == "stop" || message.FinishReason == "length" || message.FinishReason == "content_filter" {
		return true
	}
	return message.Content == "" && len(message.ToolCalls) == 0
}
