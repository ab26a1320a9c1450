package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mikey/llm-scam-scanner/internal/core"
)

// DefaultKeywordTerms are phrases commonly seen in romance-scam conversations
var DefaultKeywordTerms = []string{
	"send money",
	"wire transfer",
	"western union",
	"gift card",
	"bitcoin",
	"crypto investment",
	"investment opportunity",
	"customs fee",
	"inheritance",
	"bank account",
	"military deployment",
	"oil rig",
	"my darling",
	"송금",
	"투자",
	"비트코인",
	"코인",
	"계좌",
	"상품권",
	"관세",
}

// ScanConfig represents the configuration of the scan coordinator
type ScanConfig struct {
	IntervalMinutes      int
	Window               int
	MaxWorkers           int
	QueueSize            int
	SkipPeriodicWhenBusy bool
	OnStart              bool
	Identity             core.IdentityMode
	ClassifyTimeout      time.Duration
	TrustedPeers         []string
}

// StoreConfig represents the configuration of the result store
type StoreConfig struct {
	Type         string
	LogCap       int
	DataDir      string
	LogFile      string
	LastScanFile string
	SQLitePath   string
	MySQLDSN     string
}

// SourceConfig represents the configuration of the conversation source
type SourceConfig struct {
	Type       string
	ExportPath string
}

// ClassifierConfig represents the provider-independent classifier settings
type ClassifierConfig struct {
	Provider     string
	Threshold    float64
	MaxInputSize int
}

// KeywordConfig represents the configuration of the offline keyword classifier
type KeywordConfig struct {
	Terms   []string
	MinHits int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// SMTPConfig represents the configuration of e-mail alerts
type SMTPConfig struct {
	Address       string
	From          string
	To            []string
	SubjectPrefix string
	Username      string
	Password      string
}

// AlertConfig represents the configuration of the alert dispatcher
type AlertConfig struct {
	Type      string
	QueueSize int
	Timeout   time.Duration
	SMTP      SMTPConfig
}

// GetScan returns the validated scan configuration
func (c *Config) GetScan() (ScanConfig, error) {
	interval := c.GetInt("scan.interval_minutes")
	if interval < 1 {
		return ScanConfig{}, configError("scan.interval_minutes", fmt.Errorf("%w: %d", core.ErrInvalidInterval, interval))
	}
	window := c.GetInt("scan.window")
	if window < 1 {
		return ScanConfig{}, configError("scan.window", fmt.Errorf("%w: %d", core.ErrInvalidWindow, window))
	}

	mode := core.IdentityMode(c.GetString("scan.identity"))
	switch mode {
	case core.IdentityByName, core.IdentityByID:
	default:
		return ScanConfig{}, configError("scan.identity", fmt.Errorf("unsupported identity mode: %s", mode))
	}

	timeout, err := c.GetDuration("scan.classify_timeout")
	if err != nil {
		return ScanConfig{}, configError("scan.classify_timeout", err)
	}

	workers := c.GetInt("scan.max_workers")
	if workers < 1 {
		workers = 1
	}
	queueSize := c.GetInt("scan.queue_size")
	if queueSize < 1 {
		queueSize = 1
	}

	return ScanConfig{
		IntervalMinutes:      interval,
		Window:               window,
		MaxWorkers:           workers,
		QueueSize:            queueSize,
		SkipPeriodicWhenBusy: c.GetBool("scan.skip_periodic_when_busy"),
		OnStart:              c.GetBool("scan.on_start"),
		Identity:             mode,
		ClassifyTimeout:      timeout,
		TrustedPeers:         c.GetStringSlice("scan.trusted_peers"),
	}, nil
}

// CoordinatorConfig converts the scan configuration for the coordinator
func (s ScanConfig) CoordinatorConfig() core.CoordinatorConfig {
	return core.CoordinatorConfig{
		Interval:             time.Duration(s.IntervalMinutes) * time.Minute,
		Window:               s.Window,
		MaxWorkers:           s.MaxWorkers,
		QueueSize:            s.QueueSize,
		SkipPeriodicWhenBusy: s.SkipPeriodicWhenBusy,
		IdentityMode:         s.Identity,
		ClassifyTimeout:      s.ClassifyTimeout,
	}
}

// GetStore returns the result store configuration
func (c *Config) GetStore() StoreConfig {
	logCap := c.GetInt("store.log_cap")
	if logCap < 1 {
		logCap = core.DefaultLogCap
	}
	sqlitePath := c.GetString("store.sqlite_path")
	if sqlitePath == "" {
		sqlitePath = filepath.Join(c.GetString("store.data_dir"), "scans.db")
	}
	return StoreConfig{
		Type:         c.GetString("store.type"),
		LogCap:       logCap,
		DataDir:      c.GetString("store.data_dir"),
		LogFile:      c.GetString("store.log_file"),
		LastScanFile: c.GetString("store.last_scan_file"),
		SQLitePath:   sqlitePath,
		MySQLDSN:     c.GetString("store.mysql_dsn"),
	}
}

// GetSource returns the conversation source configuration
func (c *Config) GetSource() SourceConfig {
	return SourceConfig{
		Type:       c.GetString("source.type"),
		ExportPath: c.GetString("source.export_path"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Provider:     c.GetString("classifier.provider"),
		Threshold:    c.GetFloat64("classifier.threshold"),
		MaxInputSize: c.GetInt("classifier.max_input_size"),
	}
}

// GetKeyword returns the keyword classifier configuration
func (c *Config) GetKeyword() KeywordConfig {
	return KeywordConfig{
		Terms:   c.GetStringSlice("keyword.terms"),
		MinHits: c.GetInt("keyword.min_hits"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetAlert returns the alert dispatcher configuration
func (c *Config) GetAlert() (AlertConfig, error) {
	timeout, err := c.GetDuration("alert.timeout")
	if err != nil {
		return AlertConfig{}, configError("alert.timeout", err)
	}
	return AlertConfig{
		Type:      c.GetString("alert.type"),
		QueueSize: c.GetInt("alert.queue_size"),
		Timeout:   timeout,
		SMTP: SMTPConfig{
			Address:       c.GetString("alert.smtp.address"),
			From:          c.GetString("alert.smtp.from"),
			To:            c.GetStringSlice("alert.smtp.to"),
			SubjectPrefix: c.GetString("alert.smtp.subject_prefix"),
			Username:      c.GetString("alert.smtp.username"),
			Password:      c.GetString("alert.smtp.password"),
		},
	}, nil
}

func configError(key string, err error) error {
	return core.NewScanError(core.KindConfiguration, "config "+key, "", err)
}
