package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/mikey/llm-scam-scanner/internal/adapters/alert"
	"github.com/mikey/llm-scam-scanner/internal/adapters/source"
	"github.com/mikey/llm-scam-scanner/internal/adapters/store"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"github.com/mikey/llm-scam-scanner/internal/di"
	"github.com/mikey/llm-scam-scanner/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
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
	flags *di.CLIFlags,
	logger *zap.Logger,
	session *source.Session,
	scanner ports.Scanner,
	classifier core.Classifier,
	resultStore store.Store,
	alerts *alert.AsyncDispatcher,
) error {
	defer logger.Sync()
	defer resultStore.Close()
	if closer, ok := classifier.(io.Closer); ok {
		defer closer.Close()
	}

	ctx := context.Background()

	switch {
	case flags.Reset:
		if err := resultStore.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("Scan log and last-scan index cleared")
		return nil
	case flags.ShowLog:
		log, err := resultStore.LoadLog(ctx)
		if err != nil {
			return err
		}
		printRecords(log)
		return nil
	case flags.ShowLastScans:
		index, err := resultStore.LoadLastScans(ctx)
		if err != nil {
			return err
		}
		printLastScans(index)
		return nil
	}

	if err := session.Connect(ctx); err != nil {
		return err
	}
	defer session.Disconnect()

	if err := scanner.Start(ctx); err != nil {
		return err
	}
	defer scanner.Stop()

	startTime := time.Now()
	if flags.Conversation != "" {
		logger.Info("Scanning conversation", zap.String("conversation", flags.Conversation))
		err := scanner.ScanOne(ctx, flags.Conversation)
		if err != nil {
			return err
		}
	} else if err := scanner.ScanAll(ctx); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()
	if err := scanner.WaitIdle(waitCtx); err != nil {
		return fmt.Errorf("waiting for scan: %w", err)
	}
	duration := time.Since(startTime)

	// Let queued alerts go out before exit
	if err := alerts.Close(); err != nil {
		logger.Error("Failed to close alert dispatcher", zap.Error(err))
	}

	log, err := resultStore.LoadLog(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Results ===\n")
	printRecords(since(log, startTime))
	fmt.Printf("Processing time: %v\n", duration)
	return nil
}

// since returns the records written at or after start. Record times only
// carry whole seconds.
func since(log core.ScanLog, start time.Time) core.ScanLog {
	cutoff := start.Truncate(time.Second)
	var out core.ScanLog
	for _, record := range log {
		if record.Time.Before(cutoff) {
			break
		}
		out = append(out, record)
	}
	return out
}

func printRecords(log core.ScanLog) {
	if len(log) == 0 {
		fmt.Println("No scan results")
		return
	}
	for _, record := range log {
		fmt.Printf("%s  %-6s  %s\n", record.Time, record.Result, record.User)
	}
}

func printLastScans(index core.LastScanIndex) {
	if len(index) == 0 {
		fmt.Println("No conversations scanned yet")
		return
	}
	identities := make([]string, 0, len(index))
	for identity := range index {
		identities = append(identities, identity)
	}
	sort.Strings(identities)
	for _, identity := range identities {
		fmt.Printf("%s  %s\n", index[identity], identity)
	}
}
