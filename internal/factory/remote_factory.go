package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/httpapi"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/utils"
)

// RemoteFactory creates the remote scorer selected by remote.provider
type RemoteFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewRemoteFactory creates a new remote scorer factory
func NewRemoteFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *RemoteFactory {
	return &RemoteFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateRemoteScorer creates the configured remote scorer. The "none"
// provider returns nil, which routes every scan to the local fallback.
func (f *RemoteFactory) CreateRemoteScorer() (core.RemoteScorer, error) {
	remoteCfg, err := f.cfg.GetRemote()
	if err != nil {
		return nil, err
	}

	switch remoteCfg.Provider {
	case "http":
		if remoteCfg.BaseURL == "" {
			return nil, fmt.Errorf("remote.base_url is required for the http provider")
		}
		return httpapi.NewClient(remoteCfg.BaseURL, remoteCfg.APIKey, remoteCfg.Timeout, f.logger), nil
	case "openai":
		client, err := NewOpenAIFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		client, err := NewGeminiFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	case "bedrock":
		client, err := NewBedrockFactory(f.cfg, f.logger, f.textProcessor).CreateClient(context.Background())
		if err != nil {
			return nil, err
		}
		return client, nil
	case "none", "":
		f.logger.Warn("No remote scorer configured, all scans use the local fallback")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported remote provider: %s", remoteCfg.Provider)
	}
}
