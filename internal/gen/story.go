package gen

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kimhaegyeong/ai-webtoon/internal/config"
)

// StoryGenerator produces continuation panels for an episode in one call.
type StoryGenerator interface {
	GeneratePanels(ctx context.Context, req StoryRequest) ([]StoryPanel, error)
}

type openAIStoryGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewStoryGenerator builds the OpenAI-backed story generator from config.
func NewStoryGenerator(cfg config.Config) (StoryGenerator, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}
	return &openAIStoryGenerator{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.OpenAIModel,
		timeout: time.Duration(cfg.StoryTimeoutSeconds) * time.Second,
	}, nil
}

func (g *openAIStoryGenerator) GeneratePanels(ctx context.Context, req StoryRequest) ([]StoryPanel, error) {
	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildStoryPrompt(req)},
		},
		Temperature: 0.9,
		MaxTokens:   1200,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("story generation request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, errors.New("story generation returned no content")
	}

	panels, err := ParseStoryPanels(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("story generation returned malformed panels: %w", err)
	}
	return panels, nil
}
