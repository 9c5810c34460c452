// Package llm routes normalized completion requests to provider adapters.
package llm

import (
	"context"

	"github.com/playground-ai/chat-playground/internal/model"
)

// StreamCallback is called for each text delta during streaming.
type StreamCallback func(token string, index int) error

// ChatMessage is one turn of history in provider-neutral form.
type ChatMessage struct {
	Role    model.Role `json:"role"`
	Content string     `json:"content"`
}

// AttachmentRef describes a file accompanying a request. Content carries the
// full text for text-classified files.
type AttachmentRef struct {
	Name    string         `json:"name"`
	Type    model.FileType `json:"type"`
	Content string         `json:"content,omitempty"`
}

// CompletionRequest is the normalized request shape shared by all adapters.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Attachments []AttachmentRef

	// Zero values mean "apply the adapter's default".
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// CompletionResponse is the normalized result. Adapters fold provider and
// configuration failures into Content so the caller always has renderable
// text.
type CompletionResponse struct {
	Role      model.Role
	Content   string
	Model     string
	TokensIn  int
	TokensOut int
	LatencyMs int64

	// Err carries the classified underlying failure when Content is an
	// in-band error message. For logging and metrics, never for rendering.
	Err error
}

// Client is the interface implemented by each provider adapter.
type Client interface {
	// Complete sends one completion request. The returned response is always
	// renderable; transport and configuration failures are folded into it.
	Complete(ctx context.Context, req *CompletionRequest) *CompletionResponse

	// CompleteStream sends a streaming completion request, invoking the
	// callback per text delta. Adapters without native streaming deliver the
	// whole completion as a single terminal chunk.
	CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) *CompletionResponse

	// Name returns the provider name.
	Name() string
}

func assistantResponse(content string) *CompletionResponse {
	return &CompletionResponse{Role: model.RoleAssistant, Content: content}
}

func errorResponse(content string, err error) *CompletionResponse {
	return &CompletionResponse{Role: model.RoleAssistant, Content: content, Err: err}
}

// defaultInt returns v, or def when v is unset.
func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func defaultFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
