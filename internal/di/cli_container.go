package di

import (
	"flag"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-scam-scanner/internal/config"
	"github.com/mikey/llm-scam-scanner/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Source flags
	ExportPath   string
	Conversation string
	Window       int

	// Classifier flags
	Provider  string
	Threshold float64

	// Store flags
	StoreType string
	DataDir   string

	// Actions
	ShowLog       bool
	ShowLastScans bool
	Reset         bool
	Timeout       time.Duration

	// Output flags
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Source flags
	flag.StringVar(&flags.ExportPath, "export", "", "Path to a Telegram Desktop result.json export")
	flag.StringVar(&flags.Conversation, "conversation", "", "Scan only the conversation with this identity")
	flag.IntVar(&flags.Window, "window", 0, "Number of recent messages per conversation (0 keeps the configured value)")

	// Classifier flags
	flag.StringVar(&flags.Provider, "provider", "", "Classifier provider (keyword, openai, gemini, bedrock)")
	flag.Float64Var(&flags.Threshold, "threshold", 0, "Score threshold for a SCAM verdict (0 keeps the configured value)")

	// Store flags
	flag.StringVar(&flags.StoreType, "store", "", "Result store (json, memory, sqlite, mysql)")
	flag.StringVar(&flags.DataDir, "data-dir", "", "Directory holding the scan log and last-scan index")

	// Actions
	flag.BoolVar(&flags.ShowLog, "log", false, "Print the scan log and exit")
	flag.BoolVar(&flags.ShowLastScans, "last-scans", false, "Print the last-scan index and exit")
	flag.BoolVar(&flags.Reset, "reset", false, "Clear the scan log and last-scan index and exit")
	flag.DurationVar(&flags.Timeout, "timeout", 10*time.Minute, "Maximum time to wait for the scan to finish")

	// Output flags
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (command line flags override it)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.NewWithFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideComponents(container); err != nil {
		return nil, err
	}
	return container, nil
}

// applyFlags overrides configuration values with the flags that were set
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	v := cfg.GetViper()

	// The CLI waits for its own scan, there is nothing to schedule
	v.Set("scan.on_start", false)

	if flags.ExportPath != "" {
		v.Set("source.type", "export")
		v.Set("source.export_path", flags.ExportPath)
	}
	if flags.Window > 0 {
		v.Set("scan.window", flags.Window)
	}
	if flags.Provider != "" {
		v.Set("classifier.provider", flags.Provider)
	}
	if flags.Threshold > 0 {
		v.Set("classifier.threshold", flags.Threshold)
	}
	if flags.StoreType != "" {
		v.Set("store.type", flags.StoreType)
	}
	if flags.DataDir != "" {
		v.Set("store.data_dir", flags.DataDir)
	}
}
