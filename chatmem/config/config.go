package config

import (
	"errors"
	"fmt"
	"path/filepath"

	internal "github.com/ZanzyTHEbar/chat-memstore/chatmem"

	"github.com/spf13/viper"
)

// ErrInvalidConfig marks configuration validation failures. Wrapped errors
// carry the offending field; detect with errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	ChatMem ChatMemConfig `mapstructure:"chatmem"`
}

// ChatMemConfig stores chat memory specific configurations.
type ChatMemConfig struct {
	Database DatabaseConfig `mapstructure:"database"`
	Memory   MemoryConfig   `mapstructure:"memory"`
}

// DatabaseConfig stores database connection details.
type DatabaseConfig struct {
	DSN       string `mapstructure:"dsn"`        // file: path for embedded mode, or a remote turso URL
	AuthToken string `mapstructure:"auth_token"` // remote connections only
}

// MemoryConfig stores the memory store limits and cache settings.
type MemoryConfig struct {
	MaxMessagesPerKey int    `mapstructure:"max_messages_per_key"` // Per-key interactive message limit
	CacheEnabled      bool   `mapstructure:"cache_enabled"`        // Enable the partition cache
	CacheCapacity     int    `mapstructure:"cache_capacity"`       // LRU capacity in keys
	TableName         string `mapstructure:"table_name"`           // Backing table identifier
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("..")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Set default values
	viper.SetDefault("chatmem.database.dsn", internal.DefaultDatabaseDSN)
	viper.SetDefault("chatmem.database.auth_token", "")
	viper.SetDefault("chatmem.memory.max_messages_per_key", internal.DefaultMaxMessagesPerKey)
	viper.SetDefault("chatmem.memory.cache_enabled", true)
	viper.SetDefault("chatmem.memory.cache_capacity", internal.DefaultCacheCapacity)
	viper.SetDefault("chatmem.memory.table_name", internal.DefaultTableName)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine; defaults and env apply.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.ChatMem.Memory.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the memory configuration for construction-time faults.
func (c *MemoryConfig) Validate() error {
	if !internal.ValidTableName(c.TableName) {
		return fmt.Errorf("%w: table name %q must match ^[A-Za-z_][A-Za-z0-9_]*$", ErrInvalidConfig, c.TableName)
	}
	if c.MaxMessagesPerKey < 1 {
		return fmt.Errorf("%w: max_messages_per_key must be >= 1, got %d", ErrInvalidConfig, c.MaxMessagesPerKey)
	}
	if c.CacheEnabled && c.CacheCapacity < 1 {
		return fmt.Errorf("%w: cache_capacity must be >= 1 when the cache is enabled, got %d", ErrInvalidConfig, c.CacheCapacity)
	}
	return nil
}
