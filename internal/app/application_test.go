package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"snowalert.app/internal/config"
	mocks "snowalert.app/internal/mocks"
	"snowalert.app/internal/ports"
	"snowalert.app/pkg/logger"
)

const snowForecast = `{
	"forecast": {"forecastday": [
		{"date": "2026-01-10", "day": {
			"maxtemp_c": -1.5, "mintemp_c": -9.2, "avgtemp_c": -5.0, "maxwind_kph": 22.3,
			"totalprecip_mm": 4.1, "totalsnow_cm": 3.2,
			"daily_will_it_rain": 0, "daily_chance_of_rain": 0,
			"daily_will_it_snow": 1, "daily_chance_of_snow": 87,
			"condition": {"text": "Moderate snow", "icon": "//cdn.weatherapi.com/332.png", "code": 1219}
		}},
		{"date": "2026-01-11", "day": {
			"maxtemp_c": 2.0, "mintemp_c": -3.0, "avgtemp_c": 0, "maxwind_kph": 10,
			"totalprecip_mm": 0, "totalsnow_cm": 0,
			"daily_will_it_rain": 0, "daily_chance_of_rain": 0,
			"daily_will_it_snow": 0, "daily_chance_of_snow": 50,
			"condition": {"text": "Sunny", "icon": "//cdn.weatherapi.com/113.png", "code": 1000}
		}}
	]}
}`

func newWeatherServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/forecast.json", func(c *gin.Context) {
		assert.Equal(t, "test-api-key", c.Query("key"))
		assert.Equal(t, "Pas de la Casa", c.Query("q"))
		c.Data(http.StatusOK, "application/json", []byte(snowForecast))
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Weather: config.WeatherConfig{
			APIKey:   "test-api-key",
			BaseURL:  baseURL,
			Location: "Pas de la Casa",
			Days:     7,
		},
		Email: config.EmailConfig{
			Address:    "sender@example.com",
			Password:   "app-password",
			SMTPHost:   "127.0.0.1",
			SMTPPort:   2525,
			FromName:   "Snow Alert",
			Recipients: []string{"a@example.com", "b@example.com"},
		},
		Scheduler: config.SchedulerConfig{
			Times:        []string{"08:00", "20:00"},
			Timezone:     "UTC",
			PollInterval: time.Second,
		},
		Metrics: config.MetricsConfig{JobName: "snow_alert"},
	}
}

func newTestApplication(t *testing.T, cfg *config.Config, clock clockwork.Clock) (*Application, *DependencyContainer, *mocks.EmailProvider) {
	t.Helper()
	return newTestApplicationWithLog(t, cfg, clock, io.Discard)
}

func newTestApplicationWithLog(t *testing.T, cfg *config.Config, clock clockwork.Clock, w io.Writer) (*Application, *DependencyContainer, *mocks.EmailProvider) {
	t.Helper()
	depConfig := DependencyConfigFrom(cfg)
	depConfig.Logger = logger.NewWithWriter(w, slog.LevelDebug).WithFields(map[string]interface{}{
		"service": cfg.Metrics.JobName,
	})

	deps, err := NewDependencyContainer(depConfig, cfg)
	require.NoError(t, err)

	email := mocks.NewEmailProvider(t)
	deps.ApplicationPorts().EmailProvider = email

	application, err := NewApplicationWithDependencies(cfg, deps, clock)
	require.NoError(t, err)
	return application, deps, email
}

func TestNewApplicationWithDependencies_SchedulesConfiguredTimes(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC))
	application, _, _ := newTestApplication(t, testConfig("http://127.0.0.1:1"), clock)

	jobs := application.Scheduler().Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "snow-alert@08:00", jobs[0].Name)
	assert.Equal(t, time.Date(2026, time.January, 11, 8, 0, 0, 0, time.UTC), jobs[0].NextRun)
	assert.Equal(t, "snow-alert@20:00", jobs[1].Name)
	assert.Equal(t, time.Date(2026, time.January, 10, 20, 0, 0, 0, time.UTC), jobs[1].NextRun)
	assert.NotNil(t, application.GetAlertUseCase())
	assert.Equal(t, "Pas de la Casa", application.Config().Weather.Location)
}

func TestNewApplicationWithDependencies_InvalidTimezone(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Scheduler.Timezone = "Mars/Olympus"

	deps, err := NewDependencyContainer(DependencyConfigFrom(cfg), cfg)
	require.NoError(t, err)

	application, err := NewApplicationWithDependencies(cfg, deps, clockwork.NewFakeClock())

	assert.Nil(t, application)
	assert.Contains(t, err.Error(), "initialize scheduler")
}

func TestApplication_ScheduledRunSendsAlert(t *testing.T) {
	server := newWeatherServer(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.January, 10, 7, 59, 59, 0, time.UTC))
	application, deps, email := newTestApplication(t, testConfig(server.URL), clock)

	sent := make(chan ports.EmailParams, 1)
	email.On("SendEmail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent <- args.Get(1).(ports.EmailParams) }).
		Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- application.Start(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(time.Second)

	select {
	case params := <-sent:
		assert.Equal(t, []string{"a@example.com", "b@example.com"}, params.To)
		assert.Equal(t, "Snow Alert! 🌨️ It will snow in the next 7 days 🥳", params.Subject)
		assert.Contains(t, params.Body, `"date": "2026-01-10"`)
		assert.Contains(t, params.Body, `"date": "2026-01-11"`)
	case <-time.After(5 * time.Second):
		t.Fatal("alert was not sent at 08:00")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	require.NoError(t, application.Shutdown(shutdownCtx))
	require.NoError(t, <-done)

	expected := `
# HELP snow_alert_snow_detected_total The total number of runs whose forecast predicted snow
# TYPE snow_alert_snow_detected_total counter
snow_alert_snow_detected_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(deps.MetricsCollector().Registry(),
		strings.NewReader(expected), "snow_alert_snow_detected_total"))
}

func TestApplication_ShutdownBeforeStart(t *testing.T) {
	application, _, _ := newTestApplication(t, testConfig("http://127.0.0.1:1"), clockwork.NewFakeClock())

	assert.NoError(t, application.Shutdown(context.Background()))
}

func TestApplication_ComponentLoggers(t *testing.T) {
	var buf bytes.Buffer
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC))
	newTestApplicationWithLog(t, testConfig("http://127.0.0.1:1"), clock, &buf)

	var scheduled []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "Job scheduled" {
			scheduled = append(scheduled, entry)
		}
	}

	require.Len(t, scheduled, 2)
	for _, entry := range scheduled {
		assert.Equal(t, "scheduler", entry["component"])
		assert.Equal(t, "snow_alert", entry["service"])
	}
}

func TestApplication_StartTwice(t *testing.T) {
	clock := clockwork.NewFakeClock()
	application, _, _ := newTestApplication(t, testConfig("http://127.0.0.1:1"), clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Start(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	err := application.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("application did not stop")
	}
}

func TestApplication_ShutdownCancelsRunInProgress(t *testing.T) {
	fetching := make(chan struct{})
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/forecast.json", func(c *gin.Context) {
		close(fetching)
		select {
		case <-c.Request.Context().Done():
		case <-time.After(10 * time.Second):
		}
		c.Data(http.StatusOK, "application/json", []byte(snowForecast))
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	clock := clockwork.NewFakeClockAt(time.Date(2026, time.January, 10, 7, 59, 59, 0, time.UTC))
	// No SendEmail expectation: the mock fails the test if the cancelled run sends
	application, deps, _ := newTestApplication(t, testConfig(server.URL), clock)

	done := make(chan error, 1)
	go func() { done <- application.Start(context.Background()) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(time.Second)

	select {
	case <-fetching:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run did not start")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	require.NoError(t, application.Shutdown(shutdownCtx))
	require.NoError(t, <-done)

	expected := `
# HELP snow_alert_runs_total The total number of scheduled runs by outcome
# TYPE snow_alert_runs_total counter
snow_alert_runs_total{outcome="compose_failed"} 0
snow_alert_runs_total{outcome="fetch_failed"} 1
snow_alert_runs_total{outcome="send_failed"} 0
snow_alert_runs_total{outcome="sent"} 0
`
	assert.NoError(t, testutil.GatherAndCompare(deps.MetricsCollector().Registry(),
		strings.NewReader(expected), "snow_alert_runs_total"))
}
