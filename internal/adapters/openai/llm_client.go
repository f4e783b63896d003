package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/llm"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/utils"
)

// chatCompleter is the part of the OpenAI client the scorer uses
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient is an implementation of the RemoteScorer interface using OpenAI
type OpenAIClient struct {
	client         chatCompleter
	modelName      string
	maxTokens      int
	temperature    float32
	topP           float32
	maxAddressSize int
	logger         *zap.Logger
	textProcessor  *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client. A non-empty baseURL points the
// client at an OpenAI compatible endpoint.
func NewOpenAIClient(
	apiKey string,
	baseURL string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxAddressSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientCfg),
		modelName:      modelName,
		maxTokens:      maxTokens,
		temperature:    temperature,
		topP:           topP,
		maxAddressSize: maxAddressSize,
		logger:         logger,
		textProcessor:  textProcessor,
	}
}

// ScoreAddress scores an address on its own
func (c *OpenAIClient) ScoreAddress(ctx context.Context, address string) (*core.RemoteResult, error) {
	return c.score(ctx, address, nil)
}

// ScoreContent scores an address together with its page signals
func (c *OpenAIClient) ScoreContent(ctx context.Context, address string, signals *features.ContentSignals) (*core.RemoteResult, error) {
	return c.score(ctx, address, signals)
}

func (c *OpenAIClient) score(ctx context.Context, address string, signals *features.ContentSignals) (*core.RemoteResult, error) {
	prompt := llm.BuildPrompt(address, signals, c.maxAddressSize, c.textProcessor)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: llm.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create chat completion with OpenAI: %v", core.ErrTransport, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response from OpenAI", core.ErrInvalidResponse)
	}

	c.logger.Debug("OpenAI scored address",
		zap.String("address", address),
		zap.String("response_id", resp.ID),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return llm.ToResult(resp.Choices[0].Message.Content, c.modelName)
}
