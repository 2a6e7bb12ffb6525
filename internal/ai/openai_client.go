package ai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// Config — recognized model options. An empty APIKey means "unavailable",
// which is a valid configuration, not an error.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

type OpenAIClient struct {
	client *openai.Client
	cfg    Config
}

func NewOpenAIClient(cfg Config) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	c := &OpenAIClient{cfg: cfg}
	if cfg.APIKey != "" {
		oc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		c.client = openai.NewClientWithConfig(oc)
	}
	return c
}

func (c *OpenAIClient) Available() bool { return c.client != nil }

func (c *OpenAIClient) Complete(ctx context.Context, msgs []Message) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client is not configured")
	}

	resp, err := c.client.CreateChatCompletion(ctx, c.request(msgs))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, msgs []Message) (TokenStream, error) {
	if c.client == nil {
		return nil, errors.New("openai client is not configured")
	}

	s, err := c.client.CreateChatCompletionStream(ctx, c.request(msgs))
	if err != nil {
		return nil, err
	}
	return &openaiStream{s: s}, nil
}

func (c *OpenAIClient) request(msgs []Message) openai.ChatCompletionRequest {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Text,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    out,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
}

type openaiStream struct {
	s *openai.ChatCompletionStream
}

// Recv skips frames without choices and returns the next content delta.
// io.EOF signals normal completion.
func (o *openaiStream) Recv() (string, error) {
	for {
		resp, err := o.s.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (o *openaiStream) Close() error { return o.s.Close() }
