// Package cmd wires the cobra command tree for pharmabot.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrwersa/saba-pharma-bot/internal/batch"
	"github.com/mrwersa/saba-pharma-bot/internal/config"
	"github.com/mrwersa/saba-pharma-bot/internal/fetch/headless"
	"github.com/mrwersa/saba-pharma-bot/internal/fetch/static"
	"github.com/mrwersa/saba-pharma-bot/internal/logging"
	"github.com/mrwersa/saba-pharma-bot/internal/pharma"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pharmabot",
		Short: "UK pharmacy lookup bot backed by pharmdata.co.uk",
		Long: `pharmabot answers UK postcode and pharmacy-code queries by scraping
pharmdata.co.uk, fetching candidate pharmacy pages concurrently under
per-target and global deadlines.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, optional)")

	cmd.AddCommand(newBotCmd())
	cmd.AddCommand(newLookupCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger and coordinator shared by
// the subcommands. The returned closer releases the fetcher's resources.
func setup() (config.Config, *zap.Logger, *batch.Coordinator, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, nil, nil, fmt.Errorf("build logger: %w", err)
	}

	fetcher, closer, err := buildFetcher(cfg)
	if err != nil {
		return config.Config{}, nil, nil, nil, err
	}

	coordinator := batch.New(fetcher, batch.Config{
		PerTargetTimeout:  cfg.PerTargetTimeout(),
		GlobalTimeout:     cfg.GlobalTimeout(),
		MaxConcurrency:    cfg.Lookup.MaxConcurrency,
		PreferredProvider: cfg.Lookup.PreferredProvider,
		MaxResults:        cfg.Lookup.MaxResults,
	}, logger)

	return cfg, logger, coordinator, closer, nil
}

func buildFetcher(cfg config.Config) (pharma.Fetcher, func(), error) {
	switch cfg.Fetcher.Mode {
	case config.ModeHeadless:
		f, err := headless.New(headless.Config{
			BaseURL:     cfg.Fetcher.BaseURL,
			UserAgent:   cfg.Fetcher.UserAgent,
			MaxParallel: cfg.Fetcher.MaxParallel,
			NavTimeout:  cfg.PerTargetTimeout(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build headless fetcher: %w", err)
		}
		return f, f.Close, nil
	case config.ModeStatic:
		f := static.New(static.Config{
			BaseURL:    cfg.Fetcher.BaseURL,
			SearchPath: cfg.Fetcher.SearchPath,
			UserAgent:  cfg.Fetcher.UserAgent,
			Timeout:    cfg.PerTargetTimeout(),
		})
		return f, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown fetcher mode %q", cfg.Fetcher.Mode)
	}
}
