package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OpenAIClient implements LLMClient against the OpenAI chat completions API
// (or any compatible endpoint via OPENAI_BASE_URL).
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a client from OPENAI_API_KEY, OPENAI_MODEL and the
// optional OPENAI_BASE_URL override.
func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4oMini
		slog.Warn("OPENAI_MODEL not set, using default", "model", model)
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// newChatRequest maps messages and params onto the wire request.
func (c *OpenAIClient) newChatRequest(messages []Message, params GenerationParams) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if params.MaxTokens != nil {
		req.MaxTokens = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}
	return req
}

// Generate implements the LLMClient interface with a single user message.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string,
	params GenerationParams) (string, error) {
	return c.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, params)
}

// Chat implements the LLMClient interface.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message,
	params GenerationParams) (string, error) {

	ctx, span := tracer.Start(ctx, "OpenAIClient.Chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", c.model),
		attribute.Int("llm.messages", len(messages)),
	)

	resp, err := c.client.CreateChatCompletion(ctx, c.newChatRequest(messages, params))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &APIError{Backend: "openai", Message: "response contained no choices"}
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatStream implements the LLMClient interface.
func (c *OpenAIClient) ChatStream(ctx context.Context, messages []Message,
	params GenerationParams, callback StreamCallback) error {

	ctx, span := tracer.Start(ctx, "OpenAIClient.ChatStream")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.model))

	req := c.newChatRequest(messages, params)
	req.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return wrapOpenAIError(err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A context abort surfaces here when the caller disconnects.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			span.RecordError(err)
			return wrapOpenAIError(err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		if err := callback(StreamEvent{Type: StreamEventToken, Content: content}); err != nil {
			return err
		}
	}
	return callback(StreamEvent{Type: StreamEventDone})
}

// wrapOpenAIError converts go-openai errors into APIError so the retry
// predicate can classify them.
func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Backend:    "openai",
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &APIError{Backend: "openai", Message: err.Error(), Err: err}
}
