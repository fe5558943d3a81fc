package app

import (
	"crypto/tls"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus/push"
	"snowalert.app/internal/adapters/external"
	"snowalert.app/internal/adapters/infrastructure"
	"snowalert.app/internal/config"
	"snowalert.app/internal/ports"
	"snowalert.app/pkg/logger"
)

type DependencyContainer struct {
	config  DependencyConfig
	logger  *logger.Logger
	metrics *infrastructure.PrometheusMetricsCollector
	ports   *ports.ApplicationPorts
}

type DependencyConfig struct {
	Weather config.WeatherConfig
	Email   config.EmailConfig
	Metrics config.MetricsConfig

	// Logger defaults to slog.Default()
	Logger *logger.Logger

	// Optional overrides, mostly for tests
	WeatherClient external.HTTPClient
	PushClient    push.HTTPDoer
	SMTPTLSConfig *tls.Config
}

func NewDependencyContainer(depConfig DependencyConfig, appConfig *config.Config) (*DependencyContainer, error) {
	container := &DependencyContainer{
		config: depConfig,
	}

	container.initializePorts(appConfig)

	return container, nil
}

func (c *DependencyContainer) initializePorts(appConfig *config.Config) {
	slog.Info("Initializing ports...")

	c.logger = c.config.Logger
	if c.logger == nil {
		c.logger = &logger.Logger{Logger: slog.Default()}
	}
	log := c.ComponentLogger("app")

	forecastProvider := external.NewWeatherAPIProviderAdapter(external.WeatherAPIProviderParams{
		APIKey:  c.config.Weather.APIKey,
		BaseURL: c.config.Weather.BaseURL,
		Logger:  c.ComponentLogger("weatherapi"),
		Client:  c.config.WeatherClient,
	})
	forecastProvider = external.NewForecastProviderLoggingDecorator(forecastProvider, c.ComponentLogger("weatherapi"))

	emailProvider := external.NewSMTPEmailProviderAdapter(external.EmailProviderConfig{
		Host:      c.config.Email.SMTPHost,
		Port:      c.config.Email.SMTPPort,
		Username:  c.config.Email.Address,
		Password:  c.config.Email.Password,
		FromName:  c.config.Email.FromName,
		FromAddr:  c.config.Email.Address,
		Logger:    c.ComponentLogger("smtp"),
		TLSConfig: c.config.SMTPTLSConfig,
	})
	if err := emailProvider.ValidateConfiguration(); err != nil {
		slog.Warn("Email provider configuration is incomplete", "error", err)
	}

	c.metrics = infrastructure.NewMetricsCollectorAdapter(infrastructure.MetricsCollectorConfig{
		PushgatewayURL: c.config.Metrics.PushgatewayURL,
		JobName:        c.config.Metrics.JobName,
		Logger:         c.ComponentLogger("metrics"),
		Client:         c.config.PushClient,
	})
	if c.config.Metrics.PushEnabled() {
		slog.Info("Metrics push enabled", "pushgateway", c.config.Metrics.PushgatewayURL, "job", c.config.Metrics.JobName)
	}

	configProvider := infrastructure.NewConfigProviderAdapter(appConfig)

	c.ports = &ports.ApplicationPorts{
		// Forecast
		ForecastProvider: forecastProvider,

		// Communication
		EmailProvider: emailProvider,

		// Infrastructure
		ConfigProvider: configProvider,
		Logger:         log,
		Metrics:        c.metrics,
	}

	slog.Info("Ports initialized successfully")
}

func (c *DependencyContainer) ApplicationPorts() *ports.ApplicationPorts {
	return c.ports
}

// ComponentLogger returns a port logger tagged with the component name
func (c *DependencyContainer) ComponentLogger(name string) ports.Logger {
	return infrastructure.NewSlogLoggerAdapter(c.logger.WithField("component", name).Logger)
}

// MetricsCollector exposes the concrete collector so callers can read its registry
func (c *DependencyContainer) MetricsCollector() *infrastructure.PrometheusMetricsCollector {
	return c.metrics
}

// DependencyConfigFrom selects the sections of cfg the container needs
func DependencyConfigFrom(cfg *config.Config) DependencyConfig {
	return DependencyConfig{
		Weather: cfg.Weather,
		Email:   cfg.Email,
		Metrics: cfg.Metrics,
		Logger: logger.NewWithLevel(logger.ParseLevel(cfg.LogLevel)).WithFields(map[string]interface{}{
			"service":  cfg.Metrics.JobName,
			"location": cfg.Weather.Location,
		}),
	}
}
