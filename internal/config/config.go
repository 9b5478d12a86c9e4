package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Polymarket PolymarketConfig `mapstructure:"polymarket"`
	Tavily     TavilyConfig     `mapstructure:"tavily"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PolymarketConfig holds Polymarket API configuration
type PolymarketConfig struct {
	APIBaseURL string        `mapstructure:"api_base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// TavilyConfig holds Tavily web search API configuration
type TavilyConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LLMConfig holds generation backend configuration.
// Provider selects the primary backend; FallbackProvider (optional) is
// tried when the primary call fails.
type LLMConfig struct {
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	FallbackProvider string        `mapstructure:"fallback_provider"`
	FallbackModel    string        `mapstructure:"fallback_model"`
	CerebrasAPIKey   string        `mapstructure:"cerebras_api_key"`
	CerebrasBaseURL  string        `mapstructure:"cerebras_base_url"`
	GeminiAPIKey     string        `mapstructure:"gemini_api_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds decision store configuration
type StorageConfig struct {
	Path         string `mapstructure:"path"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

// TelegramConfig holds optional ops notification configuration
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	Enabled  bool   `mapstructure:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// A missing config file is not an error: defaults plus FELIPE_*
// environment variables are enough to run the service.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("FELIPE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
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
	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Polymarket defaults
	v.SetDefault("polymarket.api_base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("polymarket.timeout", "10s")

	// Tavily defaults
	v.SetDefault("tavily.api_url", "https://api.tavily.com/search")
	v.SetDefault("tavily.timeout", "5s")

	// LLM defaults
	v.SetDefault("llm.provider", "cerebras")
	v.SetDefault("llm.model", "openai/gpt-oss-120b")
	v.SetDefault("llm.fallback_provider", "gemini")
	v.SetDefault("llm.fallback_model", "gemini-2.5-flash")
	v.SetDefault("llm.cerebras_base_url", "https://api.cerebras.ai/v1")
	v.SetDefault("llm.timeout", "60s")

	// Storage defaults
	v.SetDefault("storage.path", "./data/felipe.db")
	v.SetDefault("storage.history_limit", 50)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if c.Polymarket.APIBaseURL == "" {
		return fmt.Errorf("polymarket.api_base_url is required")
	}
	if c.Polymarket.Timeout < time.Second {
		return fmt.Errorf("polymarket.timeout must be at least 1 second")
	}

	if c.Tavily.APIURL == "" {
		return fmt.Errorf("tavily.api_url is required")
	}
	if c.Tavily.Timeout < time.Second {
		return fmt.Errorf("tavily.timeout must be at least 1 second")
	}

	validProviders := map[string]bool{"cerebras": true, "gemini": true}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("llm.provider must be one of: cerebras, gemini")
	}
	if c.LLM.FallbackProvider != "" && !validProviders[c.LLM.FallbackProvider] {
		return fmt.Errorf("llm.fallback_provider must be one of: cerebras, gemini")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Timeout < time.Second {
		return fmt.Errorf("llm.timeout must be at least 1 second")
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Storage.HistoryLimit < 1 {
		return fmt.Errorf("storage.history_limit must be at least 1")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

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
