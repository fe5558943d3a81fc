package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"snowalert.app/pkg/errors"
)

var configKeys = []string{
	"WEATHER_API_KEY", "WEATHER_API_BASE_URL", "WEATHER_LOCATION", "WEATHER_FORECAST_DAYS",
	"EMAIL", "EMAIL_PASSWORD", "EMAIL_SMTP_HOST", "EMAIL_SMTP_PORT", "EMAIL_FROM_NAME", "EMAIL_RECIPIENTS",
	"SCHEDULE_TIMES", "SCHEDULE_TIMEZONE", "SCHEDULE_POLL_INTERVAL",
	"METRICS_PUSHGATEWAY_URL", "METRICS_JOB_NAME", "LOG_LEVEL",
}

// clearConfigEnv unsets every config variable for the duration of the test
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("WEATHER_API_KEY", "test-api-key")
	t.Setenv("EMAIL", "sender@example.com")
	t.Setenv("EMAIL_PASSWORD", "app-password")
}

func TestLoadConfig(t *testing.T) {
	t.Run("DefaultValues", func(t *testing.T) {
		clearConfigEnv(t)
		setRequired(t)

		config, err := LoadConfig()

		require.NoError(t, err)
		assert.Equal(t, "test-api-key", config.Weather.APIKey)
		assert.Equal(t, "http://api.weatherapi.com/v1", config.Weather.BaseURL)
		assert.Equal(t, "Pas de la Casa", config.Weather.Location)
		assert.Equal(t, 7, config.Weather.Days)
		assert.Equal(t, "sender@example.com", config.Email.Address)
		assert.Equal(t, "app-password", config.Email.Password)
		assert.Equal(t, "smtp.gmail.com", config.Email.SMTPHost)
		assert.Equal(t, 587, config.Email.SMTPPort)
		assert.Equal(t, "Snow Alert", config.Email.FromName)
		assert.Equal(t, []string{"sender@example.com"}, config.Email.Recipients)
		assert.Equal(t, []string{"08:00", "20:00"}, config.Scheduler.Times)
		assert.Equal(t, "Local", config.Scheduler.Timezone)
		assert.Equal(t, time.Second, config.Scheduler.PollInterval)
		assert.Equal(t, "snow_alert", config.Metrics.JobName)
		assert.False(t, config.Metrics.PushEnabled())
		assert.Equal(t, "info", config.LogLevel)
	})

	t.Run("CustomValues", func(t *testing.T) {
		clearConfigEnv(t)
		setRequired(t)
		t.Setenv("WEATHER_LOCATION", "Andorra la Vella")
		t.Setenv("WEATHER_FORECAST_DAYS", "3")
		t.Setenv("EMAIL_RECIPIENTS", "a@example.com, b@example.com")
		t.Setenv("EMAIL_SMTP_HOST", "mail.example.com")
		t.Setenv("EMAIL_SMTP_PORT", "2525")
		t.Setenv("SCHEDULE_TIMES", "06:30,18:45")
		t.Setenv("SCHEDULE_TIMEZONE", "Europe/Andorra")
		t.Setenv("SCHEDULE_POLL_INTERVAL", "500ms")
		t.Setenv("METRICS_PUSHGATEWAY_URL", "http://pushgateway:9091")

		config, err := LoadConfig()

		require.NoError(t, err)
		assert.Equal(t, "Andorra la Vella", config.Weather.Location)
		assert.Equal(t, 3, config.Weather.Days)
		assert.Equal(t, []string{"a@example.com", "b@example.com"}, config.Email.Recipients)
		assert.Equal(t, "mail.example.com", config.Email.SMTPHost)
		assert.Equal(t, 2525, config.Email.SMTPPort)
		assert.Equal(t, []string{"06:30", "18:45"}, config.Scheduler.Times)
		assert.Equal(t, 500*time.Millisecond, config.Scheduler.PollInterval)
		assert.True(t, config.Metrics.PushEnabled())

		loc, err := config.Scheduler.Location()
		require.NoError(t, err)
		assert.Equal(t, "Europe/Andorra", loc.String())
	})
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		message string
	}{
		{"MissingWeatherAPIKey", "WEATHER_API_KEY", "environment variable WEATHER_API_KEY is not set"},
		{"MissingEmail", "EMAIL", "environment variable EMAIL is not set"},
		{"MissingEmailPassword", "EMAIL_PASSWORD", "environment variable EMAIL_PASSWORD is not set"},
	}

	seen := make(map[string]bool)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			setRequired(t)
			require.NoError(t, os.Unsetenv(tt.unset))

			config, err := LoadConfig()

			require.Error(t, err)
			assert.Nil(t, config)
			assert.True(t, errors.IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.message)

			assert.False(t, seen[err.Error()], "each missing variable must produce a distinct error")
			seen[err.Error()] = true
		})
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		message string
	}{
		{"BadBaseURL", "WEATHER_API_BASE_URL", "api.weatherapi.com", "WEATHER_API_BASE_URL must start with"},
		{"TooManyDays", "WEATHER_FORECAST_DAYS", "15", "WEATHER_FORECAST_DAYS must be between 1 and 14"},
		{"ZeroDays", "WEATHER_FORECAST_DAYS", "0", "WEATHER_FORECAST_DAYS must be between 1 and 14"},
		{"BadPort", "EMAIL_SMTP_PORT", "70000", "EMAIL_SMTP_PORT must be between 1 and 65535"},
		{"BadRecipient", "EMAIL_RECIPIENTS", "ok@example.com,nope", "invalid address: nope"},
		{"BadTime", "SCHEDULE_TIMES", "08:00,25:00", "invalid time \"25:00\""},
		{"DuplicateTime", "SCHEDULE_TIMES", "08:00,08:00", "contains 08:00 twice"},
		{"BadTimezone", "SCHEDULE_TIMEZONE", "Mars/Olympus", "is not a known timezone"},
		{"PollTooFast", "SCHEDULE_POLL_INTERVAL", "1ms", "SCHEDULE_POLL_INTERVAL must be between"},
		{"BadPushgateway", "METRICS_PUSHGATEWAY_URL", "pushgateway:9091", "METRICS_PUSHGATEWAY_URL must start with"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			config, err := LoadConfig()

			require.Error(t, err)
			assert.Nil(t, config)
			assert.True(t, errors.IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadConfig_UnparsableValue(t *testing.T) {
	clearConfigEnv(t)
	setRequired(t)
	t.Setenv("WEATHER_FORECAST_DAYS", "seven")

	config, err := LoadConfig()

	require.Error(t, err)
	assert.Nil(t, config)
	assert.True(t, errors.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "error processing config")
}
