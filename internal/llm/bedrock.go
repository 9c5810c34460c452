package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/bedrockruntime"

	"github.com/playground-ai/chat-playground/internal/model"
)

const (
	bedrockDefaultMaxTokens   = 4096
	bedrockDefaultTemperature = 0.7

	bedrockMissingKeysContent = "AWS credentials are missing. Please add them to your .env file as AWS_ACCESS_KEY and AWS_SECRET_KEY"
	bedrockEmptyReplyContent  = "Amazon Bedrock returned an empty response. Please try again."
	bedrockErrContentFormat   = "There was an error processing your request with Amazon Bedrock: %s"
)

// BedrockCredentials are the AWS settings read at call time.
type BedrockCredentials struct {
	AccessKey string
	SecretKey string
	Region    string
}

// BedrockClient adapts the normalized request shape to the Amazon Bedrock
// runtime (Nova model family).
type BedrockClient struct {
	creds func() BedrockCredentials
}

// NewBedrockClient creates the Amazon adapter. creds is consulted per call.
func NewBedrockClient(creds func() BedrockCredentials) *BedrockClient {
	return &BedrockClient{creds: creds}
}

// Name returns the provider name.
func (c *BedrockClient) Name() string {
	return "amazon"
}

// bedrockModelIDs maps catalog ids to Bedrock runtime model ids.
var bedrockModelIDs = map[string]string{
	"amazon-nova-pro":    "amazon.nova-pro-v1:0",
	"amazon-nova-canvas": "amazon.nova-canvas-v1:0",
	"amazon-nova-lite":   "amazon.nova-lite-v1:0",
	"amazon-nova-micro":  "amazon.nova-micro-v1:0",
}

// BedrockModelID resolves a catalog id to the Bedrock runtime id, passing
// unknown ids through untouched.
func BedrockModelID(modelID string) string {
	if id, ok := bedrockModelIDs[modelID]; ok {
		return id
	}
	return modelID
}

// Nova messages-API wire shapes.
type novaContent struct {
	Text string `json:"text"`
}

type novaMessage struct {
	Role    string        `json:"role"`
	Content []novaContent `json:"content"`
}

type novaInferenceConfig struct {
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP,omitempty"`
}

type novaRequest struct {
	System          []novaContent       `json:"system,omitempty"`
	Messages        []novaMessage       `json:"messages"`
	InferenceConfig novaInferenceConfig `json:"inferenceConfig"`
}

type novaResponse struct {
	Output struct {
		Message struct {
			Content []novaContent `json:"content"`
		} `json:"message"`
	} `json:"output"`
	StopReason string `json:"stopReason"`
	Usage      struct {
		InputTokens  int `json:"inputTokens"`
		OutputTokens int `json:"outputTokens"`
	} `json:"usage"`
}

// Complete sends a completion request via Bedrock InvokeModel.
func (c *BedrockClient) Complete(ctx context.Context, req *CompletionRequest) *CompletionResponse {
	creds := c.creds()
	if creds.AccessKey == "" || creds.SecretKey == "" {
		return errorResponse(bedrockMissingKeysContent, errors.New("bedrock: aws credentials not configured"))
	}

	start := time.Now()

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(creds.AccessKey, creds.SecretKey, ""),
		Region:      aws.String(creds.Region),
	})
	if err != nil {
		return errorResponse(fmt.Sprintf(bedrockErrContentFormat, err.Error()), err)
	}

	body, err := json.Marshal(c.translate(req))
	if err != nil {
		return errorResponse(fmt.Sprintf(bedrockErrContentFormat, err.Error()), err)
	}

	runtime := bedrockruntime.New(sess)
	out, err := runtime.InvokeModelWithContext(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(BedrockModelID(req.Model)),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return errorResponse(fmt.Sprintf(bedrockErrContentFormat, classifyBedrockError(err)), err)
	}

	var parsed novaResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return errorResponse(fmt.Sprintf(bedrockErrContentFormat, "unexpected response shape"), err)
	}

	var content string
	for _, block := range parsed.Output.Message.Content {
		content += block.Text
	}
	if content == "" {
		return assistantResponse(bedrockEmptyReplyContent)
	}

	return &CompletionResponse{
		Role:      model.RoleAssistant,
		Content:   content,
		Model:     req.Model,
		TokensIn:  parsed.Usage.InputTokens,
		TokensOut: parsed.Usage.OutputTokens,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// CompleteStream degrades to a single terminal chunk; Bedrock streaming is
// not wired up.
func (c *BedrockClient) CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) *CompletionResponse {
	resp := c.Complete(ctx, req)
	if cbErr := callback(resp.Content, 0); cbErr != nil {
		return errorResponse(fmt.Sprintf(bedrockErrContentFormat, cbErr.Error()), cbErr)
	}
	return resp
}

func (c *BedrockClient) translate(req *CompletionRequest) novaRequest {
	out := novaRequest{
		InferenceConfig: novaInferenceConfig{
			MaxTokens:   defaultInt(req.MaxTokens, bedrockDefaultMaxTokens),
			Temperature: defaultFloat(req.Temperature, bedrockDefaultTemperature),
			TopP:        req.TopP,
		},
	}
	for _, msg := range req.Messages {
		if msg.Role == model.RoleSystem {
			out.System = append(out.System, novaContent{Text: msg.Content})
			continue
		}
		out.Messages = append(out.Messages, novaMessage{
			Role:    string(msg.Role),
			Content: []novaContent{{Text: msg.Content}},
		})
	}
	return out
}

func classifyBedrockError(err error) string {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		switch reqErr.StatusCode() {
		case 401, 403:
			return "Authentication failed: check your AWS credentials in .env file."
		case 400:
			return "Bad request: " + reqErr.Message()
		case 404:
			return "Model not found: The specified model ID may be incorrect or not available in this region."
		default:
			return reqErr.Message()
		}
	}
	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		return awsErr.Message()
	}
	return err.Error()
}
