package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/llm-scam-scanner/internal/adapters/alert"
	"github.com/mikey/llm-scam-scanner/internal/adapters/source"
	"github.com/mikey/llm-scam-scanner/internal/adapters/store"
	"github.com/mikey/llm-scam-scanner/internal/config"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"github.com/mikey/llm-scam-scanner/internal/di"
	"github.com/mikey/llm-scam-scanner/internal/ports"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Build the dependency injection container
	container, err := di.BuildContainer(*configFile)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	session *source.Session,
	scanner ports.Scanner,
	classifier core.Classifier,
	resultStore store.Store,
	alerts *alert.AsyncDispatcher,
) error {
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := session.Connect(ctx); err != nil {
		logger.Error("Failed to connect to conversation source", zap.Error(err))
		return err
	}

	// Start the scanner
	if err := scanner.Start(ctx); err != nil {
		logger.Error("Failed to start scanner", zap.Error(err))
		return err
	}

	if cfg.GetBool("scan.on_start") {
		go func() {
			if err := scanner.ScanAll(ctx); err != nil {
				logger.Error("Initial scan failed", zap.Error(err))
			}
		}()
	}

	// Handle graceful shutdown and configuration reloads
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			reload(logger, cfg, scanner)
			continue
		}
		break
	}
	logger.Info("Shutting down...")
	cancel()

	// Stop the scanner
	if err := scanner.Stop(); err != nil {
		logger.Error("Failed to stop scanner", zap.Error(err))
	}

	// Flush queued alerts
	if err := alerts.Close(); err != nil {
		logger.Error("Failed to close alert dispatcher", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := classifier.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}
	if err := resultStore.Close(); err != nil {
		logger.Error("Failed to close result store", zap.Error(err))
	}
	if err := session.Disconnect(); err != nil {
		logger.Error("Failed to disconnect from conversation source", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}

// reload re-reads the configuration file and applies the scan interval
func reload(logger *zap.Logger, cfg *config.Config, scanner ports.Scanner) {
	fresh, err := config.NewWithFile(cfg.GetViper().ConfigFileUsed())
	if err != nil {
		logger.Error("Failed to reload configuration", zap.Error(err))
		return
	}
	scanCfg, err := fresh.GetScan()
	if err != nil {
		logger.Error("Rejected reloaded configuration", zap.Error(err))
		return
	}
	if err := scanner.SetInterval(scanCfg.IntervalMinutes); err != nil {
		logger.Error("Failed to apply scan interval", zap.Error(err))
		return
	}
	logger.Info("Configuration reloaded", zap.Int("interval_minutes", scanCfg.IntervalMinutes))
}
