package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/frontend"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/di"
	"github.com/mikey/phishguard/internal/logging"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configFile string
	verbose    bool
	jsonOutput bool
	jsonLog    bool
}

// flagBindings maps persistent flags onto configuration keys. A flag only
// overrides the file and environment when it is set explicitly.
var flagBindings = map[string]string{
	"provider":      "remote.provider",
	"remote-url":    "remote.base_url",
	"api-key":       "remote.api_key",
	"timeout":       "remote.timeout",
	"cache":         "cache.type",
	"cache-path":    "cache.sqlite_path",
	"notify-level":  "notifications.level",
	"notify-high":   "notifications.high_risk_only",
	"openai-model":  "openai.model_name",
	"gemini-model":  "gemini.model_name",
	"bedrock-model": "bedrock.model_id",
}

// cliDefaults are flags whose defaults replace the daemon defaults when
// neither the config file nor the environment sets the key
var cliDefaults = map[string]bool{
	"cache":        true,
	"cache-path":   true,
	"notify-level": true,
}

// defaultCachePath is the per-user SQLite cache shared by CLI invocations
func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "phishguard", "cache.db")
	}
	return filepath.Join(home, ".phishguard", "cache.db")
}

func inEnv(key string) bool {
	_, ok := os.LookupEnv("PHISHGUARD_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	return ok
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "phish-detector",
		Short: "Scan URLs for phishing threats",
		Long: `phish-detector scans URLs for phishing threats. A remote scorer is
consulted first; when it is unavailable a local heuristic decides. Verdicts
are cached, and every verdict carries a per-feature explanation from the
local weighted model.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to config file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")
	flags.BoolVar(&opts.jsonLog, "json-log", false, "Output logs in JSON format")
	flags.String("provider", "http", "Remote scorer (http, openai, gemini, bedrock, none)")
	flags.String("remote-url", "", "Base URL of the remote scoring API")
	flags.String("api-key", "", "API key for the remote scorer")
	flags.Duration("timeout", 0, "Remote scorer timeout")
	flags.String("cache", "sqlite", "Cache backend (memory, sqlite, mysql, redis)")
	flags.String("cache-path", defaultCachePath(), "SQLite cache path")
	flags.Bool("no-content", false, "Skip fetching page content")
	flags.String("notify-level", "none", "Threat notifications (all, none)")
	flags.Bool("notify-high", false, "Only notify about High risk threats")
	flags.String("openai-model", "", "OpenAI model name")
	flags.String("gemini-model", "", "Gemini model name")
	flags.String("bedrock-model", "", "Bedrock model ID")

	cmd.AddCommand(newScanCmd(opts))
	cmd.AddCommand(newExplainCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newClearCmd(opts))
	cmd.AddCommand(newFeedbackCmd(opts))

	return cmd
}

// loadConfig reads configuration and applies explicitly set flags on top
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}
	v := cfg.GetViper()

	flags := cmd.Flags()
	for name, key := range flagBindings {
		if key == "" {
			continue
		}
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if f.Changed || (cliDefaults[name] && !v.InConfig(key) && !inEnv(key)) {
			v.Set(key, f.Value.String())
		}
	}
	if noContent, _ := flags.GetBool("no-content"); noContent {
		v.Set("content.enabled", false)
	}

	return cfg, nil
}

// withCLI builds the container and hands the CLI front end to fn
func withCLI(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, cli *frontend.CLIFrontend) error) error {
	logger, err := logging.InitConsoleLogger(opts.verbose, opts.jsonLog)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if used := cfg.GetViper().ConfigFileUsed(); used != "" {
		logger.Debug("Loaded configuration from file", zap.String("file", used))
	}

	container, err := di.BuildCLIContainer(cfg, logger, di.CLIOptions{
		Verbose: opts.verbose,
		JSON:    opts.jsonOutput,
		Out:     cmd.OutOrStdout(),
	})
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	runErr := container.Invoke(func(cli *frontend.CLIFrontend) error {
		return fn(cmd.Context(), cli)
	})
	if err := di.Shutdown(container); err != nil {
		logger.Warn("Shutdown failed", zap.Error(err))
	}
	return runErr
}
