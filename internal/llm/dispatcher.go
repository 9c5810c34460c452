package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/playground-ai/chat-playground/internal/model"
	"github.com/playground-ai/chat-playground/pkg/logger"
	"github.com/playground-ai/chat-playground/pkg/metrics"
)

// ErrUnsupportedModel is returned when no provider claims a model id.
var ErrUnsupportedModel = errors.New("unsupported model")

// EmptyHistoryContent is the canned reply for a request with no messages.
// No provider is contacted in that case.
const EmptyHistoryContent = "I didn't receive any messages to respond to. How can I help you today?"

// genericFailureContent covers anything that escapes adapter normalization.
const genericFailureContent = "Failed to get a response from the AI model. Please try again."

// DefaultRequestTimeout bounds a single provider call.
const DefaultRequestTimeout = 60 * time.Second

// Dispatcher resolves a model id to a provider adapter and normalizes the
// outcome. It holds no per-request state; each call is pure request/response.
type Dispatcher struct {
	clients map[model.Provider]Client
	timeout time.Duration
	logger  *logger.Logger
}

// NewDispatcher creates a dispatcher over the given provider registry.
// A zero timeout falls back to DefaultRequestTimeout.
func NewDispatcher(clients map[model.Provider]Client, timeout time.Duration, log *logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if log == nil {
		log = logger.Global()
	}
	return &Dispatcher{
		clients: clients,
		timeout: timeout,
		logger:  log,
	}
}

// Route resolves the provider for a model id. Catalog entries carry their
// provider explicitly; off-catalog ids fall back to family markers in fixed
// precedence (gpt, claude, nova). Deterministic: equal ids always resolve to
// the same branch.
func (d *Dispatcher) Route(modelID string) (model.Provider, error) {
	if m, ok := model.CatalogModel(modelID); ok {
		return m.Provider, nil
	}

	id := strings.ToLower(modelID)
	switch {
	case strings.Contains(id, "gpt"):
		return model.ProviderOpenAI, nil
	case strings.Contains(id, "claude"):
		return model.ProviderAnthropic, nil
	case strings.Contains(id, "nova"):
		return model.ProviderAmazon, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedModel, modelID)
	}
}

// Dispatch routes the request and returns a normalized response. The only
// error it returns is a routing failure; every adapter-level failure is
// folded into the response content so the caller always has renderable text.
func (d *Dispatcher) Dispatch(ctx context.Context, req *CompletionRequest) (resp *CompletionResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("completion panicked", zap.Any("panic", r), zap.String("model", req.Model))
			resp = errorResponse(genericFailureContent, fmt.Errorf("completion panic: %v", r))
			err = nil
		}
	}()
	return d.dispatch(ctx, req, nil)
}

// DispatchStream is Dispatch with a per-delta callback. The final response
// carries the assembled content.
func (d *Dispatcher) DispatchStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (resp *CompletionResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("streaming completion panicked", zap.Any("panic", r), zap.String("model", req.Model))
			resp = errorResponse(genericFailureContent, fmt.Errorf("completion panic: %v", r))
			err = nil
		}
	}()
	return d.dispatch(ctx, req, callback)
}

func (d *Dispatcher) dispatch(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error) {
	if len(req.Messages) == 0 {
		return assistantResponse(EmptyHistoryContent), nil
	}

	provider, err := d.Route(req.Model)
	if err != nil {
		return nil, err
	}

	client, ok := d.clients[provider]
	if !ok || client == nil {
		return errorResponse(
			fmt.Sprintf("The %s provider is not configured on this server.", provider),
			fmt.Errorf("no client registered for provider %s", provider),
		), nil
	}

	sendReq := *req
	sendReq.Messages = foldAttachments(req.Messages, req.Attachments)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	var resp *CompletionResponse
	if callback != nil {
		resp = client.CompleteStream(ctx, &sendReq, callback)
	} else {
		resp = client.Complete(ctx, &sendReq)
	}
	if resp == nil {
		resp = errorResponse(genericFailureContent, errors.New("adapter returned no response"))
	}
	if resp.LatencyMs == 0 {
		resp.LatencyMs = time.Since(start).Milliseconds()
	}
	resp.Role = model.RoleAssistant
	if resp.Model == "" {
		resp.Model = req.Model
	}

	status := "success"
	if resp.Err != nil {
		status = "error"
		d.logger.Warn("completion degraded to in-band error",
			zap.String("provider", client.Name()),
			zap.String("model", req.Model),
			zap.Error(resp.Err),
		)
	}
	metrics.RecordCompletion(client.Name(), req.Model, status, float64(resp.LatencyMs)/1000.0, resp.TokensIn, resp.TokensOut)

	return resp, nil
}

// foldAttachments appends text-attachment contents to the last user turn so
// providers see them without provider-specific file plumbing.
func foldAttachments(messages []ChatMessage, attachments []AttachmentRef) []ChatMessage {
	var parts []string
	for _, att := range attachments {
		if att.Content == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[Attached file: %s]\n%s", att.Name, att.Content))
	}
	if len(parts) == 0 {
		return messages
	}

	out := make([]ChatMessage, len(messages))
	copy(out, messages)
	extra := "\n\n" + strings.Join(parts, "\n\n")
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role == model.RoleUser {
			out[i].Content += extra
			return out
		}
	}
	return append(out, ChatMessage{Role: model.RoleUser, Content: strings.TrimPrefix(extra, "\n\n")})
}
