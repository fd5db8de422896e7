package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/linechat-server/internal/app"
	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/log"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:          "linechat-server",
		Short:        "Room-based line protocol chat server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLog := log.New("info", "console")
			cfg, path, err := config.Load(bootLog, configPath)
			if err != nil {
				bootLog.Error().Err(err).Msg("failed to load config")
				return err
			}
			cfg.UpdateFrom(overrides)

			logger := log.New(cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				logger.Error().Err(err).Msg("failed to initialize server")
				return err
			}

			logger.Info().
				Str("config", path).
				Str("addr", cfg.Addr).
				Str("http_addr", cfg.HTTPAddr).
				Int("rooms", len(cfg.Rooms)).
				Msg("starting linechat server")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to config file (created with defaults if missing)")
	flags.StringVar(&overrides.Addr, "addr", "", "TCP listen address")
	flags.StringVar(&overrides.HTTPAddr, "http-addr", "", "admin API and WebSocket listen address")
	flags.DurationVar(&overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	flags.DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	flags.DurationVar(&overrides.WriteTimeout, "write-timeout", 0, "per-recipient write timeout")
	flags.IntVar(&overrides.SendBuffer, "send-buffer", 0, "outbound lines queued per connection")
	flags.IntVar(&overrides.MaxLineBytes, "max-line-bytes", 0, "maximum inbound line length")
	flags.IntVar(&overrides.RateLimitPerMinute, "rate-limit", 0, "inbound lines per minute per connection")
	flags.DurationVar(&overrides.StatusInterval, "status-interval", 0, "interval between status log lines")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&overrides.LogFormat, "log-format", "", "log format (console, json)")
	flags.StringVar(&overrides.DatabasePath, "db", "", "session ledger database path")

	return cmd
}
