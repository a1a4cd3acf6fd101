// Package container wires the invoicing chat together: storage, billing backend,
// conversation sessions and background workers, started in order and closed in reverse.
package container

import (
	"fmt"
	"time"
)

// Billing backend modes
const (
	BillingModeLocal  = "local"
	BillingModeRemote = "remote"
)

// Config holds all configuration for the Container.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Billing backend configuration
	Billing BillingConfig

	// Conversation configuration
	Conversation ConversationConfig

	// Server configuration
	Server ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// BillingConfig holds invoicing backend settings.
type BillingConfig struct {
	// Mode is "local" (issue in-process) or "remote" (call URL)
	Mode string

	// URL of the remote billing backend
	URL string

	// Timeout bounds a single submission or probe
	Timeout time.Duration

	// PointOfSale is the 3-digit point of sale printed in invoice numbers
	PointOfSale int

	// Environment reported by the authority status endpoint
	Environment string
}

// ConversationConfig holds chat session settings.
type ConversationConfig struct {
	// TestModeDefaults fills sample data for "prueba"/"test" requests
	TestModeDefaults bool

	// SessionTTL is how long an idle session is kept; zero keeps sessions forever
	SessionTTL time.Duration

	// SweepInterval is how often idle sessions are looked for
	SweepInterval time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	// AllowedOrigins for CORS; "*" allows any
	AllowedOrigins []string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "data/facturas.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Billing: BillingConfig{
			Mode:        BillingModeLocal,
			URL:         "http://localhost:3001",
			Timeout:     30 * time.Second,
			PointOfSale: 1,
			Environment: "development",
		},
		Conversation: ConversationConfig{
			SessionTTL:    30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           3001,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			AllowedOrigins: []string{"*"},
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
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
		return fmt.Errorf("unknown billing mode: %q", c.Billing.Mode)
	}

	if c.Conversation.SessionTTL > 0 && c.Conversation.SweepInterval <= 0 {
		return fmt.Errorf("conversation.sweep_interval must be positive")
	}

	return nil
}
