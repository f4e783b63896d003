package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/scoring"
	"github.com/mikey/phishguard/internal/validation"
)

const (
	addressEndpoint = "/api/detect/url"
	contentEndpoint = "/api/detect/content"

	// maxResponseSize caps how much of a scoring response is read
	maxResponseSize = 1 << 20
)

type addressRequest struct {
	URL string `json:"url"`
}

type contentRequest struct {
	URL     string                   `json:"url"`
	Content *features.ContentSignals `json:"content"`
}

type detectResponse struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Result  *detectResult `json:"result"`
}

type detectResult struct {
	IsPhishing   *bool    `json:"isPhishing" validate:"required"`
	ThreatLevel  string   `json:"threatLevel" validate:"required,risklevel"`
	Score        *float64 `json:"score" validate:"required,min=0,max=1"`
	Confidence   float64  `json:"confidence" validate:"min=0,max=1"`
	Explanations []string `json:"explanations"`
}

// Client is an implementation of the RemoteScorer interface for the phishing
// detection HTTP service
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a new remote scoring client
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ScoreAddress scores an address on its own
func (c *Client) ScoreAddress(ctx context.Context, address string) (*core.RemoteResult, error) {
	return c.post(ctx, addressEndpoint, addressRequest{URL: address})
}

// ScoreContent scores an address together with its page signals
func (c *Client) ScoreContent(ctx context.Context, address string, signals *features.ContentSignals) (*core.RemoteResult, error) {
	return c.post(ctx, contentEndpoint, contentRequest{URL: address, Content: signals})
}

func (c *Client) post(ctx context.Context, endpoint string, body interface{}) (*core.RemoteResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", core.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Remote scorer responded",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, fmt.Errorf("%w: status %s", core.ErrTransport, resp.Status)
	}

	var decoded detectResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidResponse, err)
	}

	return toRemoteResult(&decoded)
}

func toRemoteResult(resp *detectResponse) (*core.RemoteResult, error) {
	if !resp.Success {
		return nil, fmt.Errorf("%w: service reported failure: %s", core.ErrInvalidResponse, resp.Error)
	}
	r := resp.Result
	if r == nil {
		return nil, fmt.Errorf("%w: result is required", core.ErrInvalidResponse)
	}
	if err := validation.Struct(r); err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidResponse, validation.Describe(err))
	}

	// validated above
	level, _ := scoring.ParseRiskLevel(r.ThreatLevel)

	explanations := r.Explanations
	if explanations == nil {
		explanations = make([]string, 0)
	}

	return &core.RemoteResult{
		IsPhishing:   *r.IsPhishing,
		ThreatLevel:  level,
		Score:        *r.Score,
		Confidence:   r.Confidence,
		Explanations: explanations,
		ModelUsed:    "remote",
	}, nil
}
