package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/scoring"
	"github.com/mikey/phishguard/internal/whitelist"
)

// ServiceFactory assembles the scan pipeline options from configuration
type ServiceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(cfg *config.Config, logger *zap.Logger) *ServiceFactory {
	return &ServiceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateScanOptions builds the pipeline options. Weight overrides naming an
// unknown feature are rejected.
func (f *ServiceFactory) CreateScanOptions() (core.ScanOptions, error) {
	remoteCfg, err := f.cfg.GetRemote()
	if err != nil {
		return core.ScanOptions{}, err
	}
	contentCfg, err := f.cfg.GetContent()
	if err != nil {
		return core.ScanOptions{}, err
	}
	overrides, err := f.cfg.GetWeightOverrides()
	if err != nil {
		return core.ScanOptions{}, err
	}
	weights, err := scoring.DefaultWeights().WithOverrides(overrides)
	if err != nil {
		return core.ScanOptions{}, err
	}
	if len(overrides) > 0 {
		f.logger.Info("Applied weight overrides", zap.Int("count", len(overrides)))
	}

	return core.ScanOptions{
		Weights:           weights,
		NotificationLevel: core.ParseNotificationLevel(f.cfg.GetString("notifications.level")),
		HighRiskOnly:      f.cfg.GetBool("notifications.high_risk_only"),
		RemoteTimeout:     remoteCfg.Timeout,
		ContentTimeout:    contentCfg.Timeout,
		RemoteRateLimit:   remoteCfg.RateLimit,
		RemoteBurst:       remoteCfg.Burst,
		Whitelist:         whitelist.NewChecker(f.cfg.GetTrustedHosts(), f.logger),
	}, nil
}
