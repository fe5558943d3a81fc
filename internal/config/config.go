package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"snowalert.app/pkg/errors"
	"snowalert.app/pkg/validation"
)

const (
	maxForecastDays = 14
	maxPortNumber   = 65535
)

// Config represents the application configuration structure
type Config struct {
	Weather   WeatherConfig   `split_words:"true"`
	Email     EmailConfig     `split_words:"true"`
	Scheduler SchedulerConfig `split_words:"true"`
	Metrics   MetricsConfig   `split_words:"true"`
	LogLevel  string          `envconfig:"LOG_LEVEL" default:"info"`
}

type WeatherConfig struct {
	APIKey   string `envconfig:"WEATHER_API_KEY"`
	BaseURL  string `envconfig:"WEATHER_API_BASE_URL" default:"http://api.weatherapi.com/v1"`
	Location string `envconfig:"WEATHER_LOCATION" default:"Pas de la Casa"`
	Days     int    `envconfig:"WEATHER_FORECAST_DAYS" default:"7"`
}

type EmailConfig struct {
	Address    string   `envconfig:"EMAIL"`
	Password   string   `envconfig:"EMAIL_PASSWORD"`
	SMTPHost   string   `envconfig:"EMAIL_SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort   int      `envconfig:"EMAIL_SMTP_PORT" default:"587"`
	FromName   string   `envconfig:"EMAIL_FROM_NAME" default:"Snow Alert"`
	Recipients []string `envconfig:"EMAIL_RECIPIENTS"`
}

type SchedulerConfig struct {
	Times        []string      `envconfig:"SCHEDULE_TIMES" default:"08:00,20:00"`
	Timezone     string        `envconfig:"SCHEDULE_TIMEZONE" default:"Local"`
	PollInterval time.Duration `envconfig:"SCHEDULE_POLL_INTERVAL" default:"1s"`
}

type MetricsConfig struct {
	PushgatewayURL string `envconfig:"METRICS_PUSHGATEWAY_URL"`
	JobName        string `envconfig:"METRICS_JOB_NAME" default:"snow_alert"`
}

func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// normalize trims list values and falls back to the sender when no recipients are set
func (c *Config) normalize() {
	c.Email.Recipients = trimAll(c.Email.Recipients)
	if len(c.Email.Recipients) == 0 && c.Email.Address != "" {
		c.Email.Recipients = []string{c.Email.Address}
	}
	c.Scheduler.Times = trimAll(c.Scheduler.Times)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed, ok := validation.TrimAndValidate(v); ok {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if err := c.validateRequired(); err != nil {
		return err
	}
	if err := c.Weather.Validate(); err != nil {
		return err
	}
	if err := c.Email.Validate(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return nil
}

// validateRequired checks the three secrets the service cannot start without, in a fixed order
func (c *Config) validateRequired() error {
	required := []struct {
		key   string
		value string
	}{
		{"WEATHER_API_KEY", c.Weather.APIKey},
		{"EMAIL", c.Email.Address},
		{"EMAIL_PASSWORD", c.Email.Password},
	}
	for _, r := range required {
		if !validation.IsNotEmpty(r.value) {
			return errors.NewConfigurationError(fmt.Sprintf("environment variable %s is not set", r.key), nil)
		}
	}
	return nil
}

func (w *WeatherConfig) Validate() error {
	if w.BaseURL == "" {
		return errors.NewConfigurationError("WEATHER_API_BASE_URL cannot be empty", nil)
	}
	if !strings.HasPrefix(w.BaseURL, "http://") && !strings.HasPrefix(w.BaseURL, "https://") {
		return errors.NewConfigurationError("WEATHER_API_BASE_URL must start with http:// or https://", nil)
	}
	if !validation.IsNotEmpty(w.Location) {
		return errors.NewConfigurationError("WEATHER_LOCATION cannot be empty", nil)
	}
	if w.Days < 1 || w.Days > maxForecastDays {
		return errors.NewConfigurationError("WEATHER_FORECAST_DAYS must be between 1 and 14", nil)
	}
	return nil
}

func (e *EmailConfig) Validate() error {
	if !validation.IsValidEmail(e.Address) {
		return errors.NewConfigurationError("EMAIL must be a valid email address", nil)
	}
	if e.SMTPHost == "" {
		return errors.NewConfigurationError("EMAIL_SMTP_HOST cannot be empty", nil)
	}
	if e.SMTPPort < 1 || e.SMTPPort > maxPortNumber {
		return errors.NewConfigurationError("EMAIL_SMTP_PORT must be between 1 and 65535", nil)
	}
	if e.FromName == "" {
		return errors.NewConfigurationError("EMAIL_FROM_NAME cannot be empty", nil)
	}
	if len(e.Recipients) == 0 {
		return errors.NewConfigurationError("EMAIL_RECIPIENTS must contain at least one address", nil)
	}
	for _, to := range e.Recipients {
		if !validation.IsValidEmail(to) {
			return errors.NewConfigurationError(fmt.Sprintf("EMAIL_RECIPIENTS contains an invalid address: %s", to), nil)
		}
	}
	return nil
}

func (s *SchedulerConfig) Validate() error {
	if len(s.Times) == 0 {
		return errors.NewConfigurationError("SCHEDULE_TIMES must contain at least one time", nil)
	}
	seen := make(map[string]bool, len(s.Times))
	for _, at := range s.Times {
		if !validation.IsValidClockTime(at) {
			return errors.NewConfigurationError(fmt.Sprintf("SCHEDULE_TIMES contains an invalid time %q, expected HH:MM", at), nil)
		}
		if seen[at] {
			return errors.NewConfigurationError(fmt.Sprintf("SCHEDULE_TIMES contains %s twice", at), nil)
		}
		seen[at] = true
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	if s.PollInterval < 100*time.Millisecond || s.PollInterval > time.Minute {
		return errors.NewConfigurationError("SCHEDULE_POLL_INTERVAL must be between 100ms and 1m", nil)
	}
	return nil
}

// Location resolves the configured timezone; "Local" and "" mean the process timezone
func (s *SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("SCHEDULE_TIMEZONE %q is not a known timezone", s.Timezone), err)
	}
	return loc, nil
}

func (m *MetricsConfig) Validate() error {
	if m.PushgatewayURL == "" {
		return nil
	}
	if !strings.HasPrefix(m.PushgatewayURL, "http://") && !strings.HasPrefix(m.PushgatewayURL, "https://") {
		return errors.NewConfigurationError("METRICS_PUSHGATEWAY_URL must start with http:// or https://", nil)
	}
	if m.JobName == "" {
		return errors.NewConfigurationError("METRICS_JOB_NAME cannot be empty when METRICS_PUSHGATEWAY_URL is set", nil)
	}
	return nil
}

// PushEnabled reports whether run metrics should be pushed after each run
func (m *MetricsConfig) PushEnabled() bool {
	return m.PushgatewayURL != ""
}
