package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Inbox      InboxConfig      `mapstructure:"inbox"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Server     ServerConfig     `mapstructure:"server"`
	Journal    JournalConfig    `mapstructure:"journal"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// InboxConfig describes the watched folder and the scan cadence
type InboxConfig struct {
	Root         string        `mapstructure:"root"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// ClassifierConfig holds the vision service connection and retry policy
type ClassifierConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	MaxPages          int           `mapstructure:"max_pages"`
}

// PipelineConfig holds processing behavior
type PipelineConfig struct {
	OwnName string `mapstructure:"own_name"`
	Workers int    `mapstructure:"workers"`
}

// ServerConfig holds the status HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// JournalConfig holds the processing journal database configuration
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Inbox defaults
	viper.SetDefault("inbox.poll_interval", 120*time.Second)

	// Classifier defaults
	viper.SetDefault("classifier.model", "gpt-4o")
	viper.SetDefault("classifier.timeout", 180*time.Second)
	viper.SetDefault("classifier.max_attempts", 3)
	viper.SetDefault("classifier.retry_backoff", 2*time.Second)
	viper.SetDefault("classifier.requests_per_minute", 20)
	viper.SetDefault("classifier.max_pages", 2)

	// Pipeline defaults
	viper.SetDefault("pipeline.workers", 2)

	// Server defaults
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8750)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Journal defaults
	viper.SetDefault("journal.path", "data/faxsort.db")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("classifier.api_key", "OPENAI_API_KEY")
	viper.BindEnv("classifier.base_url", "OPENAI_BASE_URL")
	viper.BindEnv("inbox.root", "FAXSORT_INBOX")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Inbox.Root == "" {
		return fmt.Errorf("inbox.root is required")
	}
	if c.Inbox.PollInterval < time.Second {
		return fmt.Errorf("inbox.poll_interval must be at least 1s")
	}

	if c.Classifier.APIKey == "" {
		return fmt.Errorf("classifier.api_key is required")
	}
	if c.Classifier.Model == "" {
		return fmt.Errorf("classifier.model is required")
	}
	if c.Classifier.MaxAttempts < 1 {
		return fmt.Errorf("classifier.max_attempts must be at least 1")
	}
	if c.Classifier.MaxPages < 1 {
		return fmt.Errorf("classifier.max_pages must be at least 1")
	}

	if c.Pipeline.OwnName == "" {
		return fmt.Errorf("pipeline.own_name is required")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1")
	}

	return nil
}
