package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey/phishguard/internal/adapters/frontend"
	"github.com/mikey/phishguard/internal/features"
)

func newScanCmd(opts *globalOptions) *cobra.Command {
	var rescan bool
	var file string

	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Scan one or more URLs",
		Long: `Scan URLs for phishing threats. Cached verdicts are returned without
rescanning unless --rescan is given. Use --file to read one URL per line,
or "-" to read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addresses, err := collectAddresses(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(addresses) == 0 {
				return fmt.Errorf("no URL given")
			}

			return withCLI(cmd, opts, func(ctx context.Context, cli *frontend.CLIFrontend) error {
				var failed int
				for _, address := range addresses {
					if _, err := cli.Scan(ctx, address, rescan); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", address, err)
						failed++
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d scans failed", failed, len(addresses))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&rescan, "rescan", false, "Ignore the cached verdict and scan again")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read URLs from a file, one per line")

	return cmd
}

func newExplainCmd(opts *globalOptions) *cobra.Command {
	var signals features.ContentSignals
	var withSignals bool

	cmd := &cobra.Command{
		Use:   "explain <url>",
		Short: "Show the local model assessment of a URL",
		Long: `Explain scores a URL with the local weighted model only. Nothing is
fetched, cached or sent to the remote scorer. Page signals can be supplied
with flags; without them the assessment uses address features alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var content *features.ContentSignals
			if withSignals || cmd.Flags().Changed("password-field") ||
				cmd.Flags().Changed("sensitive-keywords") ||
				cmd.Flags().Changed("form-action") ||
				cmd.Flags().Changed("certificate-issues") {
				content = &signals
				content.IsSecureScheme = strings.HasPrefix(strings.ToLower(args[0]), "https://")
			}

			return withCLI(cmd, opts, func(_ context.Context, cli *frontend.CLIFrontend) error {
				_, err := cli.Explain(args[0], content)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&withSignals, "signals", false, "Treat the flags below as fetched page signals")
	cmd.Flags().BoolVar(&signals.HasPasswordField, "password-field", false, "Page has a password field")
	cmd.Flags().BoolVar(&signals.HasSensitiveKeywords, "sensitive-keywords", false, "Page text has sensitive keywords")
	cmd.Flags().StringVar(&signals.FormActionAddress, "form-action", "", "Address the login form submits to")
	cmd.Flags().BoolVar(&signals.HasCertificateIssues, "certificate-issues", false, "Site certificate is invalid")

	return cmd
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <url>",
		Short: "Show the cached status of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCLI(cmd, opts, func(ctx context.Context, cli *frontend.CLIFrontend) error {
				_, err := cli.Status(ctx, args[0])
				return err
			})
		},
	}
}

func newStatsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show scan counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCLI(cmd, opts, func(ctx context.Context, cli *frontend.CLIFrontend) error {
				_, err := cli.Stats(ctx)
				return err
			})
		},
	}
}

func newListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached threats and safe URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCLI(cmd, opts, func(ctx context.Context, cli *frontend.CLIFrontend) error {
				return cli.List(ctx)
			})
		},
	}
}

func newClearCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached verdict and reset counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCLI(cmd, opts, func(ctx context.Context, cli *frontend.CLIFrontend) error {
				return cli.Clear(ctx)
			})
		},
	}
}

func newFeedbackCmd(opts *globalOptions) *cobra.Command {
	var correct, incorrect bool
	var comment string

	cmd := &cobra.Command{
		Use:   "feedback <url>",
		Short: "Record whether the cached verdict for a URL was right",
		Long: `Feedback attaches a user judgement to the cached verdict of a URL.
The URL must have been scanned first. Feedback is kept when the cache is
cleared.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if correct == incorrect {
				return fmt.Errorf("exactly one of --correct or --incorrect is required")
			}
			return withCLI(cmd, opts, func(ctx context.Context, cli *frontend.CLIFrontend) error {
				_, err := cli.Feedback(ctx, args[0], correct, comment)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&correct, "correct", false, "The verdict was right")
	cmd.Flags().BoolVar(&incorrect, "incorrect", false, "The verdict was wrong")
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Free text comment")

	return cmd
}

// collectAddresses merges positional URLs with those read from a file
func collectAddresses(args []string, file string, stdin io.Reader) ([]string, error) {
	addresses := append([]string(nil), args...)
	if file == "" {
		return addresses, nil
	}

	var r io.Reader
	if file == "-" {
		r = stdin
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open URL list: %w", err)
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addresses = append(addresses, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}
	return addresses, nil
}
