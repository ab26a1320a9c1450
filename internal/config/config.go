package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppDirectoryName is the per-user data directory name
const AppDirectoryName = "llm-scam-scanner"

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	return NewWithFile("")
}

// NewWithFile creates a new configuration instance. When path is empty the
// usual search paths are used; a missing config file is not an error then.
func NewWithFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/llm-scam-scanner/")
		v.AddConfigPath("$HOME/.llm-scam-scanner")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("SCAM_SCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// DefaultDataDir returns the per-user directory holding the scan log and
// last-scan index. SCAM_SCANNER_DATA_DIR overrides it.
func DefaultDataDir() string {
	if override := os.Getenv("SCAM_SCANNER_DATA_DIR"); override != "" {
		return override
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, AppDirectoryName)
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Scan defaults
	v.SetDefault("scan.interval_minutes", 5)
	v.SetDefault("scan.window", 10)
	v.SetDefault("scan.max_workers", 4)
	v.SetDefault("scan.queue_size", 64)
	v.SetDefault("scan.skip_periodic_when_busy", true)
	v.SetDefault("scan.on_start", true)
	v.SetDefault("scan.identity", "name")
	v.SetDefault("scan.classify_timeout", "2m")
	v.SetDefault("scan.trusted_peers", []string{})

	// Store defaults
	v.SetDefault("store.type", "json")
	v.SetDefault("store.log_cap", 100)
	v.SetDefault("store.data_dir", DefaultDataDir())
	v.SetDefault("store.log_file", "scan_log.json")
	v.SetDefault("store.last_scan_file", "last_scan.json")
	v.SetDefault("store.sqlite_path", filepath.Join(DefaultDataDir(), "scans.db"))
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/scam_scanner")

	// Source defaults
	v.SetDefault("source.type", "export")
	v.SetDefault("source.export_path", "result.json")

	// Classifier defaults
	v.SetDefault("classifier.provider", "keyword")
	v.SetDefault("classifier.threshold", 0.7)
	v.SetDefault("classifier.max_input_size", 4096)

	// Keyword defaults
	v.SetDefault("keyword.terms", DefaultKeywordTerms)
	v.SetDefault("keyword.min_hits", 2)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)

	// Alert defaults
	v.SetDefault("alert.type", "log")
	v.SetDefault("alert.queue_size", 32)
	v.SetDefault("alert.timeout", "30s")
	v.SetDefault("alert.smtp.address", "localhost:25")
	v.SetDefault("alert.smtp.from", "scam-scanner@localhost")
	v.SetDefault("alert.smtp.to", []string{})
	v.SetDefault("alert.smtp.subject_prefix", "[SCAM ALERT] ")
	v.SetDefault("alert.smtp.username", "")
	v.SetDefault("alert.smtp.password", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
