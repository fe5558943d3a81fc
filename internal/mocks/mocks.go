// Package mocks holds testify mocks for the ports used by the core use cases.
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"snowalert.app/internal/ports"
)

// testingT is the subset of *testing.T the constructors need
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// ForecastProvider is a mock of ports.ForecastProvider
type ForecastProvider struct {
	mock.Mock
}

func NewForecastProvider(t testingT) *ForecastProvider {
	m := &ForecastProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ForecastProvider) GetForecast(ctx context.Context, location string, days int) ([]ports.ForecastDayData, error) {
	args := m.Called(ctx, location, days)
	data, _ := args.Get(0).([]ports.ForecastDayData)
	return data, args.Error(1)
}

func (m *ForecastProvider) GetProviderName() string {
	return "mock"
}

// ConfigProvider is a mock of ports.ConfigProvider
type ConfigProvider struct {
	mock.Mock
}

func NewConfigProvider(t testingT) *ConfigProvider {
	m := &ConfigProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ConfigProvider) GetForecastConfig() ports.ForecastConfig {
	return m.Called().Get(0).(ports.ForecastConfig)
}

func (m *ConfigProvider) GetNotificationConfig() ports.NotificationConfig {
	return m.Called().Get(0).(ports.NotificationConfig)
}

// EmailProvider is a mock of ports.EmailProvider
type EmailProvider struct {
	mock.Mock
}

func NewEmailProvider(t testingT) *EmailProvider {
	m := &EmailProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *EmailProvider) SendEmail(ctx context.Context, params ports.EmailParams) error {
	return m.Called(ctx, params).Error(0)
}

// MetricsCollector is a mock of ports.MetricsCollector
type MetricsCollector struct {
	mock.Mock
}

func NewMetricsCollector(t testingT) *MetricsCollector {
	m := &MetricsCollector{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MetricsCollector) RecordRun(ctx context.Context, result ports.RunResult) {
	m.Called(ctx, result)
}

// LogEntry is one recorded log call
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// Logger records every entry in memory
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) Debug(msg string, fields ...ports.Field) { l.record("DEBUG", msg, fields) }
func (l *Logger) Info(msg string, fields ...ports.Field)  { l.record("INFO", msg, fields) }
func (l *Logger) Warn(msg string, fields ...ports.Field)  { l.record("WARN", msg, fields) }
func (l *Logger) Error(msg string, fields ...ports.Field) { l.record("ERROR", msg, fields) }

func (l *Logger) record(level, msg string, fields []ports.Field) {
	entry := LogEntry{Level: level, Message: msg, Fields: make(map[string]interface{}, len(fields))}
	for _, f := range fields {
		entry.Fields[f.Key] = f.Value
	}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Find returns the entries logged with msg, in call order
func (l *Logger) Find(msg string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEntry
	for _, e := range l.entries {
		if e.Message == msg {
			out = append(out, e)
		}
	}
	return out
}

var (
	_ ports.ForecastProvider = (*ForecastProvider)(nil)
	_ ports.ConfigProvider   = (*ConfigProvider)(nil)
	_ ports.EmailProvider    = (*EmailProvider)(nil)
	_ ports.MetricsCollector = (*MetricsCollector)(nil)
	_ ports.Logger           = (*Logger)(nil)
)
