package di

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/phishguard/internal/adapters/frontend"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/status"
)

func testConfig() *config.Config {
	v := config.NewEmptyViper()
	v.Set("remote.provider", "none")
	v.Set("cache.type", "memory")
	v.Set("content.enabled", false)
	v.Set("notifications.level", "none")
	v.Set("trusted_hosts", []string{"example.com"})
	return config.NewFromViper(v)
}

func TestBuildCLIContainer(t *testing.T) {
	var out bytes.Buffer
	container, err := BuildCLIContainer(testConfig(), zaptest.NewLogger(t), CLIOptions{JSON: true, Out: &out})
	require.NoError(t, err)
	defer func() { assert.NoError(t, Shutdown(container)) }()

	err = container.Invoke(func(cli *frontend.CLIFrontend, feed *status.Feed) error {
		var updates []status.Update
		feed.Subscribe(func(u status.Update) { updates = append(updates, u) })

		v, err := cli.Scan(context.Background(), "https://www.example.com/login", false)
		if err != nil {
			return err
		}
		assert.Equal(t, core.SourceWhitelist, v.Source)
		assert.Len(t, updates, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestBuildCLIContainerRejectsBadWeights(t *testing.T) {
	cfg := testConfig()
	cfg.GetViper().Set("scoring.weights", map[string]float64{"pageRank": 1})

	container, err := BuildCLIContainer(cfg, zaptest.NewLogger(t), CLIOptions{Out: &bytes.Buffer{}})
	require.NoError(t, err)

	err = container.Invoke(func(*core.ScanService) {})
	assert.Error(t, err)
}

func TestBuildCLIContainerRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.GetViper().Set("remote.provider", "carrier-pigeon")

	container, err := BuildCLIContainer(cfg, zaptest.NewLogger(t), CLIOptions{Out: &bytes.Buffer{}})
	require.NoError(t, err)

	err = container.Invoke(func(*core.ScanService) {})
	assert.Error(t, err)
}
