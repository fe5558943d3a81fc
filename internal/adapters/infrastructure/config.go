package infrastructure

import (
	"snowalert.app/internal/config"
	"snowalert.app/internal/ports"
)

// ConfigProviderAdapter implements the ConfigProvider port
type ConfigProviderAdapter struct {
	config *config.Config
}

// NewConfigProviderAdapter creates a new config provider adapter
func NewConfigProviderAdapter(cfg *config.Config) *ConfigProviderAdapter {
	return &ConfigProviderAdapter{
		config: cfg,
	}
}

// GetForecastConfig returns the forecast location and window
func (c *ConfigProviderAdapter) GetForecastConfig() ports.ForecastConfig {
	return ports.ForecastConfig{
		Location: c.config.Weather.Location,
		Days:     c.config.Weather.Days,
	}
}

// GetNotificationConfig returns sender and recipients of the report
func (c *ConfigProviderAdapter) GetNotificationConfig() ports.NotificationConfig {
	recipients := make([]string, len(c.config.Email.Recipients))
	copy(recipients, c.config.Email.Recipients)

	return ports.NotificationConfig{
		FromAddress: c.config.Email.Address,
		Recipients:  recipients,
	}
}
