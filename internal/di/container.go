package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/factory"
	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/logging"
	"github.com/mikey/phishguard/internal/ports"
	"github.com/mikey/phishguard/internal/status"
	"github.com/mikey/phishguard/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
// for the scanning daemon
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideScanService(container); err != nil {
		return nil, err
	}

	// Register front end
	if err := container.Provide(factory.NewFrontendFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FrontendFactory) (ports.ScanFrontend, error) {
		return f.CreateFrontend()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideScanService registers everything between configuration and the
// scan service. The container must already provide *config.Config and
// *zap.Logger.
func provideScanService(container *dig.Container) error {
	providers := []interface{}{
		utils.NewTextProcessor,
		features.NewExtractor,
		factory.NewRemoteFactory,
		factory.NewCacheFactory,
		factory.NewNotifierFactory,
		factory.NewContentFactory,
		factory.NewServiceFactory,

		// Register remote scorer
		func(f *factory.RemoteFactory) (core.RemoteScorer, error) {
			return f.CreateRemoteScorer()
		},

		// Register cache repository and its owner
		func(f *factory.CacheFactory) (core.CacheRepository, error) {
			return f.CreateCacheRepository()
		},
		func(f *factory.CacheFactory, repo core.CacheRepository) (*core.VerdictCache, error) {
			return f.CreateVerdictCache(repo)
		},

		// Register page fetcher
		func(f *factory.ContentFactory) (core.ContentFetcher, error) {
			return f.CreateFetcher()
		},

		// Register notifier
		func(f *factory.NotifierFactory) (core.Notifier, error) {
			return f.CreateNotifier()
		},

		// Register pipeline options
		func(f *factory.ServiceFactory) (core.ScanOptions, error) {
			return f.CreateScanOptions()
		},

		core.NewScanService,

		// Register status feed, subscribed to scan events
		func(service *core.ScanService, logger *zap.Logger) *status.Feed {
			feed := status.NewFeed(logger)
			service.Subscribe(feed)
			return feed
		},
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown releases the long lived resources created by the container
func Shutdown(container *dig.Container) error {
	return container.Invoke(func(cache *core.VerdictCache, remote core.RemoteScorer) {
		cache.Stop()
		if stopper, ok := remote.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	})
}
