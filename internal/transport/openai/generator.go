package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/medevs/local-smart-portfolio/internal/domain"
)

// Generator produces chat completions via the OpenAI-compatible API.
type Generator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat completion provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Generator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// Generate implements domain.Generator. The prompt is sent as a single user message.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", parseGenerationError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices: %w", domain.ErrGenerationProviderError)
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream implements domain.Generator. The returned channel is closed
// after a terminal chunk with Done set, or a chunk carrying Err on failure.
func (g *Generator) GenerateStream(ctx context.Context, prompt string) (<-chan domain.StreamChunk, error) {
	streamCtx := ctx
	var cancel context.CancelFunc = func() {}
	if g.timeout > 0 {
		streamCtx, cancel = context.WithTimeout(ctx, g.timeout)
	}

	stream, err := g.client.CreateChatCompletionStream(streamCtx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		cancel()
		return nil, parseGenerationError(err)
	}

	out := make(chan domain.StreamChunk)
	go func() {
		defer close(out)
		defer cancel()
		defer stream.Close()

		// A consumer that stops reading cancels the context; every send
		// must race against it or the goroutine blocks forever.
		send := func(c domain.StreamChunk) bool {
			select {
			case out <- c:
				return true
			case <-streamCtx.Done():
				return false
			}
		}

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(domain.StreamChunk{Done: true})
				return
			}
			if err != nil {
				g.logger.Warn("completion stream interrupted", zap.Error(err))
				send(domain.StreamChunk{Err: parseGenerationError(err)})
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				if !send(domain.StreamChunk{Content: delta}) {
					return
				}
			}
		}
	}()

	return out, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func parseGenerationError(err error) error {
	wrap := domain.ErrGenerationProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("completion API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("completion API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("completion request failed: %w", wrap)
}
