package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Survey   SurveyConfig   `mapstructure:"survey"`
	Results  ResultsConfig  `mapstructure:"results"`
	History  HistoryConfig  `mapstructure:"history"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SurveyConfig describes where survey files live and which junctions they cover
type SurveyConfig struct {
	DataDir        string   `mapstructure:"data_dir"`
	FilePattern    string   `mapstructure:"file_pattern"`
	JunctionA      string   `mapstructure:"junction_a"`
	JunctionB      string   `mapstructure:"junction_b"`
	KnownJunctions []string `mapstructure:"known_junctions"`
	MinYear        int      `mapstructure:"min_year"`
	MaxYear        int      `mapstructure:"max_year"`
}

// ResultsConfig holds the results file location
type ResultsConfig struct {
	FilePath string `mapstructure:"file_path"`
}

// HistoryConfig holds the report history database configuration
type HistoryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DBPath     string `mapstructure:"db_path"`
	MaxReports int    `mapstructure:"max_reports"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// ChartConfig holds terminal chart configuration
type ChartConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Width   int  `mapstructure:"width"`
}

// MetricsConfig holds metrics textfile configuration
type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	TextfilePath string `mapstructure:"textfile_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// TRAFFIC_SURVEY_RESULTS_FILE_PATH overrides results.file_path
	v.SetEnvPrefix("TRAFFIC_SURVEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Survey defaults
	v.SetDefault("survey.data_dir", ".")
	v.SetDefault("survey.file_pattern", "traffic_data%s.csv")
	v.SetDefault("survey.junction_a", "Elm Avenue/Rabbit Road")
	v.SetDefault("survey.junction_b", "Hanley Highway/Westway")
	v.SetDefault("survey.known_junctions", []string{})
	v.SetDefault("survey.min_year", 2000)
	v.SetDefault("survey.max_year", 2024)

	// Results defaults
	v.SetDefault("results.file_path", "results.txt")

	// History defaults
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.db_path", "./data/history.db")
	v.SetDefault("history.max_reports", 1000)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "2s")

	// Chart defaults
	v.SetDefault("chart.enabled", true)
	v.SetDefault("chart.width", 50)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile_path", "./data/trafficsurvey.prom")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Survey config
	if c.Survey.DataDir == "" {
		return fmt.Errorf("survey.data_dir is required")
	}
	if strings.Count(c.Survey.FilePattern, "%s") != 1 {
		return fmt.Errorf("survey.file_pattern must contain exactly one %%s")
	}
	if c.Survey.JunctionA == "" || c.Survey.JunctionB == "" {
		return fmt.Errorf("survey.junction_a and survey.junction_b are required")
	}
	if c.Survey.JunctionA == c.Survey.JunctionB {
		return fmt.Errorf("survey.junction_a and survey.junction_b must differ")
	}
	if c.Survey.MinYear < 1 || c.Survey.MaxYear > 9999 || c.Survey.MinYear > c.Survey.MaxYear {
		return fmt.Errorf("survey.min_year and survey.max_year must form a range within 1-9999")
	}

	// Validate Results config
	if c.Results.FilePath == "" {
		return fmt.Errorf("results.file_path is required")
	}

	// Validate History config
	if c.History.Enabled {
		if c.History.DBPath == "" {
			return fmt.Errorf("history.db_path is required when history is enabled")
		}
		if c.History.MaxReports < 0 {
			return fmt.Errorf("history.max_reports must not be negative")
		}
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
		if c.Telegram.MaxRetries < 1 {
			return fmt.Errorf("telegram.max_retries must be at least 1")
		}
		if c.Telegram.RetryDelayBase < 0 {
			return fmt.Errorf("telegram.retry_delay_base must not be negative")
		}
	}

	// Validate Chart config
	if c.Chart.Width < 1 {
		return fmt.Errorf("chart.width must be at least 1")
	}

	// Validate Metrics config
	if c.Metrics.Enabled && c.Metrics.TextfilePath == "" {
		return fmt.Errorf("metrics.textfile_path is required when metrics are enabled")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// GetSurveyConfig returns the Survey configuration
func (c *Config) GetSurveyConfig() SurveyConfig {
	return c.Survey
}

// GetTelegramConfig returns the Telegram configuration
func (c *Config) GetTelegramConfig() TelegramConfig {
	return c.Telegram
}

// GetLoggingConfig returns the Logging configuration
func (c *Config) GetLoggingConfig() LoggingConfig {
	return c.Logging
}
