package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrwersa/saba-pharma-bot/internal/api"
	"github.com/mrwersa/saba-pharma-bot/internal/gateway"
	"github.com/mrwersa/saba-pharma-bot/internal/metrics"
)

func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot and the ops HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, coordinator, closer, err := setup()
			if err != nil {
				return err
			}
			defer closer()
			defer func() { _ = logger.Sync() }()

			if cfg.Telegram.Token == "" {
				return fmt.Errorf("telegram.token is not set (PHARMABOT_TELEGRAM_TOKEN)")
			}

			metrics.Init()

			bot, err := gateway.New(cfg.Telegram.Token, coordinator, logger)
			if err != nil {
				return fmt.Errorf("connect telegram: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ops := api.NewServer(cfg.Server.Port, logger)
			go func() {
				if err := ops.Run(ctx); err != nil {
					logger.Error("ops server stopped", zap.Error(err))
				}
			}()

			logger.Info("bot started",
				zap.String("fetcher_mode", cfg.Fetcher.Mode),
				zap.Int("max_concurrency", cfg.Lookup.MaxConcurrency),
			)
			bot.Run(ctx)
			logger.Info("bot stopped")
			return nil
		},
	}
}
