package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/playground-ai/chat-playground/internal/model"
)

const (
	openaiDefaultMaxTokens   = 4096
	openaiDefaultTemperature = 0.7

	openaiMissingKeyContent  = "OpenAI API key is missing. Add it to your .env file as OPENAI_API_KEY."
	openaiEmptyReplyContent  = "OpenAI returned an empty response. Please try again."
	openaiErrContentTemplate = "Error communicating with OpenAI: %s"
)

// OpenAIClient adapts the normalized request shape to the OpenAI chat
// completions API. The credential is read at call time so key rotation needs
// no restart.
type OpenAIClient struct {
	apiKey func() string
}

// NewOpenAIClient creates the OpenAI adapter. apiKey is consulted per call.
func NewOpenAIClient(apiKey func() string) *OpenAIClient {
	return &OpenAIClient{apiKey: apiKey}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Complete sends a completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) *CompletionResponse {
	key := c.apiKey()
	if key == "" {
		return errorResponse(openaiMissingKeyContent, errors.New("openai: api key not configured"))
	}

	start := time.Now()
	client := openai.NewClient(key)

	resp, err := client.CreateChatCompletion(ctx, c.translate(req))
	if err != nil {
		return errorResponse(fmt.Sprintf(openaiErrContentTemplate, classifyOpenAIError(err)), err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		out := assistantResponse(openaiEmptyReplyContent)
		out.Model = resp.Model
		return out
	}

	return &CompletionResponse{
		Role:      model.RoleAssistant,
		Content:   resp.Choices[0].Message.Content,
		Model:     resp.Model,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// CompleteStream sends a streaming completion request.
func (c *OpenAIClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) *CompletionResponse {
	key := c.apiKey()
	if key == "" {
		return errorResponse(openaiMissingKeyContent, errors.New("openai: api key not configured"))
	}

	start := time.Now()
	client := openai.NewClient(key)

	wireReq := c.translate(req)
	wireReq.Stream = true

	stream, err := client.CreateChatCompletionStream(ctx, wireReq)
	if err != nil {
		return errorResponse(fmt.Sprintf(openaiErrContentTemplate, classifyOpenAIError(err)), err)
	}
	defer stream.Close()

	var content string
	index := 0
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errorResponse(fmt.Sprintf(openaiErrContentTemplate, classifyOpenAIError(err)), err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content += delta
		if cbErr := callback(delta, index); cbErr != nil {
			return errorResponse(fmt.Sprintf(openaiErrContentTemplate, cbErr.Error()), cbErr)
		}
		index++
	}

	if content == "" {
		return assistantResponse(openaiEmptyReplyContent)
	}
	return &CompletionResponse{
		Role:      model.RoleAssistant,
		Content:   content,
		Model:     req.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func (c *OpenAIClient) translate(req *CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}
	return openai.ChatCompletionRequest{
		Model:            req.Model,
		Messages:         messages,
		MaxTokens:        defaultInt(req.MaxTokens, openaiDefaultMaxTokens),
		Temperature:      float32(defaultFloat(req.Temperature, openaiDefaultTemperature)),
		TopP:             float32(req.TopP),
		FrequencyPenalty: float32(req.FrequencyPenalty),
		PresencePenalty:  float32(req.PresencePenalty),
	}
}

func classifyOpenAIError(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401:
			return "Authentication failed: Invalid API key. Check your OPENAI_API_KEY in .env file."
		case 400:
			return "Bad request: " + apiErr.Message
		case 404:
			return "Model not found: The specified model ID may be incorrect or not available."
		default:
			return "OpenAI API error: " + apiErr.Message
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("OpenAI request failed with status %d", reqErr.HTTPStatusCode)
	}
	return "OpenAI API error: " + err.Error()
}
