package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/finance-calculators/internal/config"
	"github.com/iwvelando/finance-calculators/internal/rates"
	"github.com/iwvelando/finance-calculators/internal/server"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	var (
		serverConfigPath string
		address          string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculators as a JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serverConf, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return err
			}
			if address != "" {
				serverConf.Address = address
			}

			// The server config's logging section wins over the app config when set.
			logger := a.logger
			if serverConf.Logging != (config.LoggingConfig{}) {
				if logger, err = initializeLogger(serverConf.Logging, a.logLevel); err != nil {
					return fmt.Errorf("failed to initialize server logger: %w", err)
				}
				defer func() { _ = logger.Sync() }()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, a, serverConf, logger)
		},
	}
	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&address, "address", "", "listen address override")
	return cmd
}

func runServer(ctx context.Context, a *app, serverConf *server.Config, logger *zap.Logger) error {
	svc, closeCache, err := rates.NewServiceFromConfig(a.conf, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeCache(); err != nil {
			logger.Warn("failed to close rate cache", zap.String("op", "cmd.runServer"), zap.Error(err))
		}
	}()

	refreshCtx, cancelRefresh := context.WithCancel(ctx)
	defer cancelRefresh()
	go svc.Run(refreshCtx, a.conf.Rates.RefreshInterval)

	limiter := server.NewRateLimiter(serverConf.RateLimit.Capacity, serverConf.RefillInterval())
	defer limiter.Stop()

	httpServer := &http.Server{
		Addr: serverConf.Address,
		Handler: server.NewHandler(logger, server.Options{
			MaxBodySize: serverConf.BodySizeBytes(),
			Version:     Version,
			Rates:       svc,
			Limiter:     limiter,
			Config:      a.conf,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			zap.String("op", "cmd.runServer"),
			zap.String("address", serverConf.Address),
			zap.Int64("maxBodySize", serverConf.BodySizeBytes()),
			zap.Int("rateLimit", serverConf.RateLimit.Capacity),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down HTTP server", zap.String("op", "cmd.runServer"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during server shutdown: %w", err)
	}
	logger.Info("server exited", zap.String("op", "cmd.runServer"))
	return nil
}
