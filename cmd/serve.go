package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gramo-ai/gramo-cli/internal/config"
	"github.com/gramo-ai/gramo-cli/internal/observability"
	"github.com/gramo-ai/gramo-cli/internal/ratelimit"
	"github.com/gramo-ai/gramo-cli/internal/server"
)

// newServeCmd creates and configures the `serve` command.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the analysis HTTP API",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			cfg := config.Get()

			// Re-unmarshal so flag overrides bound in PreRunE take effect.
			if err := viper.Unmarshal(cfg); err != nil {
				return fmt.Errorf("failed to re-unmarshal config with flag overrides: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			components, err := initializeComponents(cfg, logger)
			if err != nil {
				return err
			}
			defer components.Shutdown()

			requestLimiter := ratelimit.NewTokenBucket(cfg.Server.RequestsPerMinute)
			srv := server.New(cfg.Server, components.Analyzer, requestLimiter, logger)

			logger.Info("Starting analysis API", zap.String("addr", cfg.Server.Addr))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe()
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				logger.Info("Shutting down analysis API")
				return srv.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil && ctx.Err() == nil {
				logger.Error("Server exited with error", zap.Error(err))
				return err
			}
			return nil
		},
	}

	serveCmd.Flags().String("addr", "", "Listen address for the HTTP API. (Overrides config/env)")

	return serveCmd
}
