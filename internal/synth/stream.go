// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Toyhom/PaperInsight/pkg/types"
)

// OpenAIStreamer streams chat completions from an OpenAI-compatible API.
type OpenAIStreamer struct {
	client openai.Client
	model  string
}

// NewOpenAIStreamer builds a streamer from config.
func NewOpenAIStreamer(cfg types.AIConfig) *OpenAIStreamer {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIStreamer{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Stream sends one streaming completion request, delivering each
// non-empty content fragment to onFragment. An onFragment error aborts
// the stream; the accumulated text to that point is discarded.
func (s *OpenAIStreamer) Stream(ctx context.Context, system, user string, onFragment func(string) error) (string, error) {
	stream := s.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	defer stream.Close()

	var full string
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		full += content
		if err := onFragment(content); err != nil {
			return "", fmt.Errorf("delivering fragment: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("synthesis stream: %w", err)
	}
	return full, nil
}
