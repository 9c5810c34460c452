package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/playground-ai/chat-playground/internal/model"
)

const (
	anthropicDefaultMaxTokens = 1024

	anthropicMissingKeyContent = "Error: You need to provide your Anthropic API key. Add it to your .env file as ANTHROPIC_API_KEY."
	anthropicEmptyReplyContent = "Claude returned an empty response. Please try again."
	anthropicErrContentFormat  = "Error communicating with Claude: %s. Please ensure your API key is correct."
)

// AnthropicClient adapts the normalized request shape to the Anthropic
// messages API.
type AnthropicClient struct {
	apiKey func() string
}

// NewAnthropicClient creates the Anthropic adapter. apiKey is consulted per
// call.
func NewAnthropicClient(apiKey func() string) *AnthropicClient {
	return &AnthropicClient{apiKey: apiKey}
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Complete sends a completion request.
func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) *CompletionResponse {
	key := c.apiKey()
	if key == "" {
		return errorResponse(anthropicMissingKeyContent, errors.New("anthropic: api key not configured"))
	}

	start := time.Now()
	client := anthropic.NewClient(option.WithAPIKey(key))

	resp, err := client.Messages.New(ctx, c.translate(req))
	if err != nil {
		return errorResponse(fmt.Sprintf(anthropicErrContentFormat, classifyAnthropicError(err)), err)
	}

	if len(resp.Content) == 0 {
		return assistantResponse(anthropicEmptyReplyContent)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}
	if content == "" {
		content = "No readable content received from Claude"
	}

	return &CompletionResponse{
		Role:      model.RoleAssistant,
		Content:   content,
		Model:     resp.Model,
		TokensIn:  int(resp.Usage.InputTokens),
		TokensOut: int(resp.Usage.OutputTokens),
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// CompleteStream sends a streaming completion request.
func (c *AnthropicClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) *CompletionResponse {
	key := c.apiKey()
	if key == "" {
		return errorResponse(anthropicMissingKeyContent, errors.New("anthropic: api key not configured"))
	}

	start := time.Now()
	client := anthropic.NewClient(option.WithAPIKey(key))

	stream := client.Messages.NewStreaming(ctx, c.translate(req))

	var content string
	var tokensOut int
	index := 0

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case anthropic.MessageStreamEventTypeContentBlockDelta:
			delta, ok := event.Delta.(anthropic.ContentBlockDeltaEventDelta)
			if ok && delta.Type == "text_delta" && delta.Text != "" {
				content += delta.Text
				if cbErr := callback(delta.Text, index); cbErr != nil {
					return errorResponse(fmt.Sprintf(anthropicErrContentFormat, cbErr.Error()), cbErr)
				}
				index++
			}
		case anthropic.MessageStreamEventTypeMessageDelta:
			tokensOut = int(event.Usage.OutputTokens)
		}
	}
	if err := stream.Err(); err != nil {
		return errorResponse(fmt.Sprintf(anthropicErrContentFormat, classifyAnthropicError(err)), err)
	}

	if content == "" {
		return assistantResponse(anthropicEmptyReplyContent)
	}
	return &CompletionResponse{
		Role:      model.RoleAssistant,
		Content:   content,
		Model:     req.Model,
		TokensOut: tokensOut,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// translate converts to the Anthropic wire shape. The messages API only
// accepts user/assistant turns and requires the final turn to be
// user-authored.
func (c *AnthropicClient) translate(req *CompletionRequest) anthropic.MessageNewParams {
	history := req.Messages
	if len(history) > 0 && history[len(history)-1].Role != model.RoleUser {
		history = append(history, ChatMessage{Role: model.RoleUser, Content: "Please continue."})
	}

	messages := make([]anthropic.MessageParam, len(history))
	for i, msg := range history {
		role := anthropic.MessageParamRoleAssistant
		if msg.Role == model.RoleUser {
			role = anthropic.MessageParamRoleUser
		}
		messages[i] = anthropic.MessageParam{
			Role: anthropic.F(role),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(msg.Content),
				},
			}),
		}
	}

	return anthropic.MessageNewParams{
		Model:       anthropic.F(req.Model),
		MaxTokens:   anthropic.F(int64(defaultInt(req.MaxTokens, anthropicDefaultMaxTokens))),
		Temperature: anthropic.F(defaultFloat(req.Temperature, 0.7)),
		Messages:    anthropic.F(messages),
	}
}

func classifyAnthropicError(err error) string {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401:
			return "Authentication failed: Invalid API key. Check your ANTHROPIC_API_KEY in .env file."
		case 400:
			return "Bad request: Check request parameters"
		case 404:
			return "Model not found: The specified model ID may be incorrect or not available."
		default:
			return "Anthropic API error: " + apiErr.Error()
		}
	}
	return "Anthropic API error: " + err.Error()
}
