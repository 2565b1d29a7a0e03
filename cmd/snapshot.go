package cmd

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesnap/api/schemas"
	"github.com/xkilldash9x/pagesnap/internal/config"
	"github.com/xkilldash9x/pagesnap/internal/observability"
	"github.com/xkilldash9x/pagesnap/internal/service"
)

type snapshotFlags struct {
	urls        []string
	output      string
	format      string
	pretty      bool
	concurrency int
	headless    bool
	precise     bool
	timeout     time.Duration
}

// newSnapshotCmd creates the `snapshot` command.
func newSnapshotCmd() *cobra.Command {
	var f snapshotFlags

	cmd := &cobra.Command{
		Use:   "snapshot [files...]",
		Short: "Snapshots HTML files or live pages into a flat node map",
		Long: `Snapshots each source and writes the result as JSON, or as the indexed text
rendering with --format text. Sources are HTML files, file:// URLs, "-" for stdin, or
http(s) URLs given with --url, which are loaded in a headless browser.`,
		Example: `  pagesnap snapshot page.html
  pagesnap snapshot --url https://example.com --pretty
  cat page.html | pagesnap snapshot - --format text`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd)
			if err != nil {
				return err
			}
			applySnapshotFlags(cmd, cfg, f)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}

			sources := append(slices.Clone(args), f.urls...)
			if len(sources) == 0 {
				return errors.New("no sources given: pass files, - for stdin, or --url")
			}
			stdin := slices.Contains(sources, "-")
			if stdin && len(sources) > 1 {
				return errors.New("stdin (-) cannot be combined with other sources")
			}

			logger := observability.GetLogger()
			svc := service.New(cfg, logger)
			defer svc.Close()

			ctx := cmd.Context()
			var results []*schemas.PageSnapshot
			if stdin {
				ps, err := svc.FromReader(ctx, cmd.InOrStdin(), "stdin")
				if err != nil {
					return err
				}
				results = []*schemas.PageSnapshot{ps}
			} else {
				results, err = svc.Batch(ctx, sources)
				if err != nil {
					return err
				}
			}
			logger.Info("Snapshots taken.", zap.Int("count", len(results)))

			w, closeOutput, err := openOutput(cmd, f.output)
			if err != nil {
				return err
			}
			if err := writeSnapshots(w, results, cfg.Output(), len(sources) == 1); err != nil {
				closeOutput()
				return err
			}
			return closeOutput()
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&f.urls, "url", "u", nil, "live page to capture (repeatable)")
	flags.StringVarP(&f.output, "output", "o", "", "write to this file instead of stdout")
	flags.StringVarP(&f.format, "format", "f", "json", "output format: json or text")
	flags.BoolVar(&f.pretty, "pretty", false, "indent JSON output")
	flags.IntVar(&f.concurrency, "concurrency", 4, "sources processed in parallel")
	flags.BoolVar(&f.headless, "headless", true, "run the browser headless")
	flags.BoolVar(&f.precise, "precise", true, "use the style-tree visibility query for files")
	flags.DurationVar(&f.timeout, "timeout", 30*time.Second, "navigation timeout for live pages")
	return cmd
}

// applySnapshotFlags copies explicitly set flags over the loaded configuration.
func applySnapshotFlags(cmd *cobra.Command, cfg config.Interface, f snapshotFlags) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.SetOutputFormat(f.format)
	}
	if flags.Changed("pretty") {
		cfg.SetOutputPretty(f.pretty)
	}
	if flags.Changed("concurrency") {
		cfg.SetSnapshotConcurrency(f.concurrency)
	}
	if flags.Changed("headless") {
		cfg.SetBrowserHeadless(f.headless)
	}
	if flags.Changed("precise") {
		cfg.SetSnapshotPreciseVisibility(f.precise)
	}
	if flags.Changed("timeout") {
		cfg.SetBrowserNavigationTimeout(f.timeout)
	}
}
