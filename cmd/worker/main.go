package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/internal/bootstrap"
	"github.com/inferloop/dataforge/internal/config"
)

type workerFlags struct {
	cfgFile       string
	workerID      string
	landingDir    string
	targetDataset string
	targetTable   string
	pollInterval  time.Duration
}

func main() {
	flags := parseFlags()

	cfg, err := config.Load(flags.cfgFile)
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := bootstrap.NewLogger(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"worker_id":   flags.workerID,
		"landing_dir": flags.landingDir,
		"concurrency": cfg.Pipeline.Workers,
	}).Info("Starting pipeline worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runtime, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to assemble pipeline")
	}
	defer runtime.Close()

	processor := newProcessor(runtime, flags, cfg.Pipeline.Workers, logger)
	go processor.Start(ctx)

	// Periodic health line while the worker runs.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.WithFields(logrus.Fields{
					"active":    processor.Active(),
					"completed": processor.Completed(),
					"failed":    processor.Failed(),
				}).Debug("Worker health check")
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("Shutdown signal received")

	cancel()
	processor.Wait()
	logger.Info("Worker stopped")
}

func parseFlags() *workerFlags {
	flags := &workerFlags{}
	flag.StringVar(&flags.cfgFile, "config", "", "Path to configuration file")
	flag.StringVar(&flags.workerID, "worker-id", "worker-"+uuid.New().String()[:8], "Unique worker ID")
	flag.StringVar(&flags.landingDir, "landing-dir", "./landing", "Directory to watch for new CSV files")
	flag.StringVar(&flags.targetDataset, "target-dataset", "analytics", "Warehouse dataset for loaded files")
	flag.StringVar(&flags.targetTable, "target-table", "", "Warehouse table; defaults to the file name")
	flag.DurationVar(&flags.pollInterval, "poll-interval", 5*time.Second, "Landing directory poll interval")
	flag.Parse()
	return flags
}
