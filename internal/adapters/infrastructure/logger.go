package infrastructure

import (
	"context"
	"log/slog"

	"snowalert.app/internal/ports"
)

// SlogLoggerAdapter implements the Logger port using slog
type SlogLoggerAdapter struct {
	logger *slog.Logger
}

// NewSlogLoggerAdapter creates a logger adapter; a nil logger means slog.Default()
func NewSlogLoggerAdapter(logger *slog.Logger) *SlogLoggerAdapter {
	return &SlogLoggerAdapter{logger: logger}
}

// Debug logs a debug message
func (l *SlogLoggerAdapter) Debug(msg string, fields ...ports.Field) {
	l.log(slog.LevelDebug, msg, fields)
}

// Info logs an info message
func (l *SlogLoggerAdapter) Info(msg string, fields ...ports.Field) {
	l.log(slog.LevelInfo, msg, fields)
}

// Warn logs a warning message
func (l *SlogLoggerAdapter) Warn(msg string, fields ...ports.Field) {
	l.log(slog.LevelWarn, msg, fields)
}

// Error logs an error message
func (l *SlogLoggerAdapter) Error(msg string, fields ...ports.Field) {
	l.log(slog.LevelError, msg, fields)
}

func (l *SlogLoggerAdapter) log(level slog.Level, msg string, fields []ports.Field) {
	logger := l.logger
	if logger == nil {
		logger = slog.Default()
	}

	args := make([]interface{}, 0, len(fields)*2)
	for _, field := range fields {
		args = append(args, field.Key, field.Value)
	}
	logger.Log(context.Background(), level, msg, args...)
}
