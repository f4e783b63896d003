package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/phishguard/internal/adapters/llm"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/utils"
)

// contentGenerator is the part of the Gemini model the scorer uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient is an implementation of the RemoteScorer interface using Google Gemini
type GeminiClient struct {
	client         *genai.Client
	model          contentGenerator
	modelName      string
	maxAddressSize int
	logger         *zap.Logger
	textProcessor  *utils.TextProcessor
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxAddressSize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(llm.SystemPrompt))

	return &GeminiClient{
		client:         client,
		model:          model,
		modelName:      modelName,
		maxAddressSize: maxAddressSize,
		logger:         logger,
		textProcessor:  textProcessor,
	}, nil
}

// Stop closes the Gemini client
func (c *GeminiClient) Stop() {
	if c.client == nil {
		return
	}
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Gemini client", zap.Error(err))
	}
}

// ScoreAddress scores an address on its own
func (c *GeminiClient) ScoreAddress(ctx context.Context, address string) (*core.RemoteResult, error) {
	return c.score(ctx, address, nil)
}

// ScoreContent scores an address together with its page signals
func (c *GeminiClient) ScoreContent(ctx context.Context, address string, signals *features.ContentSignals) (*core.RemoteResult, error) {
	return c.score(ctx, address, signals)
}

func (c *GeminiClient) score(ctx context.Context, address string, signals *features.ContentSignals) (*core.RemoteResult, error) {
	prompt := llm.BuildPrompt(address, signals, c.maxAddressSize, c.textProcessor)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate content with Gemini: %v", core.ErrTransport, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response from Gemini", core.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	c.logger.Debug("Gemini scored address", zap.String("address", address))

	return llm.ToResult(text.String(), c.modelName)
}
