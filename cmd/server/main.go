package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inferloop/dataforge/internal/bootstrap"
	"github.com/inferloop/dataforge/internal/config"
	"github.com/inferloop/dataforge/internal/server"
)

func main() {
	var cfgFile string
	flag.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := bootstrap.NewLogger(cfg.Logging)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runtime, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to assemble pipeline")
	}
	defer runtime.Close()

	srv := server.NewServer(&server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}, runtime.Conductor, runtime.Metrics, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server error")
		}
	}

	if err := srv.Stop(context.Background()); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
