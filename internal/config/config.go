package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Billing backend modes
const (
	BillingModeLocal  = "local"
	BillingModeRemote = "remote"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Billing      BillingConfig      `mapstructure:"billing"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// BillingConfig selects and tunes the invoicing backend.
// In local mode chats issue invoices in-process; in remote mode they call URL.
type BillingConfig struct {
	Mode        string        `mapstructure:"mode"`
	URL         string        `mapstructure:"url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PointOfSale int           `mapstructure:"point_of_sale"`
	Environment string        `mapstructure:"environment"`
}

// ConversationConfig holds chat session settings
type ConversationConfig struct {
	TestModeDefaults bool          `mapstructure:"test_mode_defaults"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file, a .env file and environment variables.
// An empty configPath uses defaults plus environment.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.path", "data/facturas.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)

	// Billing defaults
	v.SetDefault("billing.mode", BillingModeLocal)
	v.SetDefault("billing.url", "http://localhost:3001")
	v.SetDefault("billing.timeout", 30*time.Second)
	v.SetDefault("billing.point_of_sale", 1)
	v.SetDefault("billing.environment", "development")

	// Conversation defaults
	v.SetDefault("conversation.test_mode_defaults", false)
	v.SetDefault("conversation.session_ttl", 30*time.Minute)
	v.SetDefault("conversation.sweep_interval", time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
	_ = v.BindEnv("billing.mode", "BILLING_MODE")
	_ = v.BindEnv("billing.url", "BILLING_URL")
	_ = v.BindEnv("billing.environment", "BILLING_ENVIRONMENT")
	_ = v.BindEnv("conversation.test_mode_defaults", "TEST_MODE_DEFAULTS")
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Billing.Mode {
	case BillingModeLocal:
	case BillingModeRemote:
		if c.Billing.URL == "" {
			return fmt.Errorf("billing.url is required in remote mode")
		}
	default:
		return fmt.Errorf("billing.mode must be %q or %q, got %q", BillingModeLocal, BillingModeRemote, c.Billing.Mode)
	}
	if c.Billing.Timeout <= 0 {
		return fmt.Errorf("billing.timeout must be positive")
	}
	if c.Billing.PointOfSale < 1 || c.Billing.PointOfSale > 999 {
		return fmt.Errorf("billing.point_of_sale must be between 1 and 999, got %d", c.Billing.PointOfSale)
	}

	if c.Conversation.SessionTTL > 0 && c.Conversation.SweepInterval <= 0 {
		return fmt.Errorf("conversation.sweep_interval must be positive when session_ttl is set")
	}

	return nil
}
