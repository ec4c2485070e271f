package ai

import (
	"context"
	"net/http"
)

// Provider is the reasoning-collaborator boundary: one text request in, one
// text response out. The engine never interprets provider semantics beyond
// tool calls and finish reasons; everything else is opaque text.
type Provider interface {
	// SendMessage sends a chat request and returns the completed response.
	// Returns an error if the call fails, the context is cancelled, or the
	// response cannot be decoded.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// IsStopMessage reports whether the response represents a terminal
	// completion, i.e. the collaborator has nothing more to say and no further
	// tool calls are expected.
	IsStopMessage(message *ChatResponse) bool

	// WithAPIKey sets the API key used for authenticating requests.
	WithAPIKey(apiKey string) Provider

	// WithBaseURL overrides the default base URL for API requests.
	WithBaseURL(baseURL string) Provider

	// WithHttpClient sets the HTTP client used for outbound requests.
	WithHttpClient(httpClient *http.Client) Provider
}
