// Command api serves the vault graph over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"vaultgraph/infrastructure/config"
	"vaultgraph/infrastructure/di"
)

const drainTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	logger := container.Logger

	if err := container.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           container.Router.Setup(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Listening",
			zap.String("address", srv.Addr),
			zap.String("vault", container.Graphs.CurrentVault()),
			zap.String("metadata_source", cfg.MetadataSource),
		)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Listener stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Signal received, draining")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := srv.Shutdown(drainCtx); err != nil {
		logger.Error("HTTP drain incomplete", zap.Error(err))
	}
	stop()
	container.Shutdown(drainCtx)
	return nil
}
