package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/scoring"
	"github.com/mikey/phishguard/internal/utils"
)

type fakeGenerator struct {
	parts []genai.Part
	err   error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ ...genai.Part) (*genai.GenerateContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: f.parts}},
		},
	}, nil
}

func newTestClient(t *testing.T, gen contentGenerator) *GeminiClient {
	logger := zaptest.NewLogger(t)
	return &GeminiClient{
		model:          gen,
		modelName:      "gemini-1.5-flash",
		maxAddressSize: 512,
		logger:         logger,
		textProcessor:  utils.NewTextProcessor(logger),
	}
}

func TestScoreAddressJoinsTextParts(t *testing.T) {
	c := newTestClient(t, &fakeGenerator{parts: []genai.Part{
		genai.Text(`{"isPhishing": false, "threatLevel": "Low",`),
		genai.Text(` "score": 0.05, "explanations": []}`),
	}})

	result, err := c.ScoreAddress(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.False(t, result.IsPhishing)
	assert.Equal(t, scoring.RiskLow, result.ThreatLevel)
	assert.Equal(t, "gemini-1.5-flash", result.ModelUsed)
}

func TestScoreAddressFailures(t *testing.T) {
	c := newTestClient(t, &fakeGenerator{err: errors.New("quota exceeded")})
	_, err := c.ScoreAddress(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, core.ErrTransport)

	c = newTestClient(t, &fakeGenerator{})
	_, err = c.ScoreAddress(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, core.ErrInvalidResponse)
}
