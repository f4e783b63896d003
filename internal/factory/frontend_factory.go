package factory

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/frontend"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/ports"
	"github.com/mikey/phishguard/internal/status"
)

// FrontendFactory creates the scan front end based on configuration
type FrontendFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.ScanService
	feed    *status.Feed
}

// NewFrontendFactory creates a new front end factory
func NewFrontendFactory(cfg *config.Config, logger *zap.Logger, service *core.ScanService, feed *status.Feed) *FrontendFactory {
	return &FrontendFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
		feed:    feed,
	}
}

// CreateFrontend creates the front end named by server.frontend
func (f *FrontendFactory) CreateFrontend() (ports.ScanFrontend, error) {
	frontendType := f.cfg.GetString("server.frontend")

	switch frontendType {
	case "http":
		return frontend.NewHTTPFrontend(
			f.service,
			f.feed,
			f.logger,
			f.cfg.GetString("server.listen_address"),
		), nil
	case "cli":
		return frontend.NewCLIFrontend(
			f.service,
			f.logger,
			os.Stdout,
			f.cfg.GetBool("cli.verbose"),
			f.cfg.GetBool("cli.json"),
		), nil
	default:
		return nil, fmt.Errorf("unsupported frontend type: %s", frontendType)
	}
}
