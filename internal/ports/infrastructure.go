package ports

import (
	"context"
	"time"
)

// ForecastConfig represents forecast request configuration
type ForecastConfig struct {
	Location string
	Days     int
}

// NotificationConfig represents who the report is sent from and to
type NotificationConfig struct {
	FromAddress string
	Recipients  []string
}

// ConfigProvider defines the contract for configuration management
type ConfigProvider interface {
	GetForecastConfig() ForecastConfig
	GetNotificationConfig() NotificationConfig
}

// Logger defines the contract for structured logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a log field
type Field struct {
	Key   string
	Value interface{}
}

// F creates a log field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// RunOutcome labels how a scheduled run ended
type RunOutcome string

const (
	RunOutcomeSent          RunOutcome = "sent"
	RunOutcomeFetchFailed   RunOutcome = "fetch_failed"
	RunOutcomeComposeFailed RunOutcome = "compose_failed"
	RunOutcomeSendFailed    RunOutcome = "send_failed"
)

// RunResult summarizes one pipeline invocation for metrics
type RunResult struct {
	Outcome      RunOutcome
	Snow         bool
	ForecastDays int
	FinishedAt   time.Time
}

// MetricsCollector defines the contract for run metrics collection
type MetricsCollector interface {
	RecordRun(ctx context.Context, result RunResult)
}
