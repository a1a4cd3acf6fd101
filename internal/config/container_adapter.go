package config

import (
	"github.com/garyjia/factura-chat/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	origins := make([]string, len(c.Server.AllowedOrigins))
	copy(origins, c.Server.AllowedOrigins)

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Billing: container.BillingConfig{
			Mode:        c.Billing.Mode,
			URL:         c.Billing.URL,
			Timeout:     c.Billing.Timeout,
			PointOfSale: c.Billing.PointOfSale,
			Environment: c.Billing.Environment,
		},
		Conversation: container.ConversationConfig{
			TestModeDefaults: c.Conversation.TestModeDefaults,
			SessionTTL:       c.Conversation.SessionTTL,
			SweepInterval:    c.Conversation.SweepInterval,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			AllowedOrigins: origins,
		},
	}
}
