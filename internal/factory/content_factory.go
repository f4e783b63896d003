package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/content"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/utils"
)

// ContentFactory creates the page fetcher
type ContentFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewContentFactory creates a new content factory
func NewContentFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ContentFactory {
	return &ContentFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateFetcher creates the page fetcher, or nil when content analysis is
// disabled and scans run on address features alone.
func (f *ContentFactory) CreateFetcher() (core.ContentFetcher, error) {
	contentCfg, err := f.cfg.GetContent()
	if err != nil {
		return nil, err
	}
	if !contentCfg.Enabled {
		f.logger.Info("Content analysis disabled")
		return nil, nil
	}

	return content.NewHTTPFetcher(f.logger, f.textProcessor,
		content.WithUserAgent(contentCfg.UserAgent),
		content.WithMaxBodySize(contentCfg.MaxBodySize),
		content.WithAllowPrivateNetworks(contentCfg.AllowPrivateNetworks),
	), nil
}
