package di

import (
	"io"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/frontend"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
)

// CLIOptions holds the output settings of the command line tool
type CLIOptions struct {
	Verbose bool
	JSON    bool
	Out     io.Writer
}

// BuildCLIContainer creates and configures a dependency injection container
// for the command line application. Configuration comes from the caller so
// command flags can override file and environment values.
func BuildCLIContainer(cfg *config.Config, logger *zap.Logger, opts CLIOptions) (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *zap.Logger { return logger }); err != nil {
		return nil, err
	}

	if err := provideScanService(container); err != nil {
		return nil, err
	}

	// Register CLI front end
	if err := container.Provide(func(service *core.ScanService, logger *zap.Logger) *frontend.CLIFrontend {
		return frontend.NewCLIFrontend(service, logger, opts.Out, opts.Verbose, opts.JSON)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
