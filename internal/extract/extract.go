// Package extract turns paper text into research atoms via an LLM call
// with a fixed instruction and lenient response normalization.
package extract

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Toyhom/PaperInsight/pkg/types"
)

// Backend abstracts the chat completions API so tests can supply a mock.
// It returns the raw response body for one extraction request.
type Backend interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAIBackend calls an OpenAI-compatible API in JSON-object mode.
type OpenAIBackend struct {
	client openai.Client
	model  string
}

// NewOpenAIBackend builds a backend from config.
func NewOpenAIBackend(cfg types.AIConfig) *OpenAIBackend {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIBackend{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Complete sends one extraction request and returns the raw JSON body.
func (b *OpenAIBackend) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("extraction completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("extraction completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// Extractor invokes the backend and normalizes the response.
type Extractor struct {
	Backend    Backend
	MaxRetries int
}

// Extract requests atoms for one paper. The backend call is retried with
// exponential backoff; a failure after all retries is fatal to the
// paper. An unparseable response body is not: it normalizes to zero
// atoms.
func (e *Extractor) Extract(ctx context.Context, title, text string) ([]types.ExtractedAtom, error) {
	maxRetries := e.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	user := buildUserMessage(title, text)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		raw, err := e.Backend.Complete(ctx, extractionSystemPrompt, user)
		if err == nil {
			return Normalize(raw), nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
