package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"snowalert.app/internal/core/forecast"
	"snowalert.app/internal/ports"
	"snowalert.app/pkg/errors"
)

type UseCase struct {
	forecastUseCase *forecast.UseCase
	emailProvider   ports.EmailProvider
	config          ports.ConfigProvider
	logger          ports.Logger
	metrics         ports.MetricsCollector
	now             func() time.Time
}

type UseCaseDependencies struct {
	ForecastUseCase *forecast.UseCase
	EmailProvider   ports.EmailProvider
	Config          ports.ConfigProvider
	Logger          ports.Logger
	Metrics         ports.MetricsCollector
	// Now defaults to time.Now
	Now func() time.Time
}

// RunReport describes a completed run
type RunReport struct {
	RunID      string
	Snow       bool
	SnowDates  []string
	Days       int
	Recipients int
}

func NewUseCase(deps UseCaseDependencies) (*UseCase, error) {
	if deps.ForecastUseCase == nil {
		return nil, errors.NewValidationError("forecast use case is required")
	}
	if deps.EmailProvider == nil {
		return nil, errors.NewValidationError("email provider is required")
	}
	if deps.Config == nil {
		return nil, errors.NewValidationError("config is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}
	if deps.Metrics == nil {
		return nil, errors.NewValidationError("metrics collector is required")
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &UseCase{
		forecastUseCase: deps.ForecastUseCase,
		emailProvider:   deps.EmailProvider,
		config:          deps.Config,
		logger:          deps.Logger,
		metrics:         deps.Metrics,
		now:             now,
	}, nil
}

// Run fetches the forecast, evaluates it and emails the report.
// Any failure aborts the run; nothing is sent when the fetch fails.
func (uc *UseCase) Run(ctx context.Context) (*RunReport, error) {
	runID := uuid.NewString()
	start := uc.now()
	window := uc.config.GetForecastConfig().Days

	uc.logger.Info("Snow alert run started", ports.F("run_id", runID))

	days, err := uc.forecastUseCase.GetForecast(ctx)
	if err != nil {
		uc.finish(ctx, runID, start, ports.RunResult{Outcome: ports.RunOutcomeFetchFailed}, err)
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}

	eval := forecast.Evaluate(days)
	uc.logger.Info("Forecast evaluated",
		ports.F("run_id", runID),
		ports.F("days", len(eval.Days)),
		ports.F("snow", eval.Snow),
		ports.F("snow_dates", eval.SnowDates()))

	result := ports.RunResult{Snow: eval.Snow, ForecastDays: len(eval.Days)}

	notification := uc.config.GetNotificationConfig()
	msg, err := Compose(eval, window, notification.Recipients)
	if err != nil {
		result.Outcome = ports.RunOutcomeComposeFailed
		uc.finish(ctx, runID, start, result, err)
		return nil, fmt.Errorf("compose alert: %w", err)
	}

	uc.logger.Info("Sending snow alert",
		ports.F("run_id", runID),
		ports.F("from", notification.FromAddress),
		ports.F("recipients", len(msg.Recipients)),
		ports.F("subject", msg.Subject))

	if err := uc.emailProvider.SendEmail(ctx, ports.EmailParams{
		To:      msg.Recipients,
		Subject: msg.Subject,
		Body:    msg.Body,
	}); err != nil {
		result.Outcome = ports.RunOutcomeSendFailed
		uc.finish(ctx, runID, start, result, err)
		return nil, fmt.Errorf("send alert: %w", err)
	}

	result.Outcome = ports.RunOutcomeSent
	uc.finish(ctx, runID, start, result, nil)

	return &RunReport{
		RunID:      runID,
		Snow:       eval.Snow,
		SnowDates:  eval.SnowDates(),
		Days:       len(eval.Days),
		Recipients: len(msg.Recipients),
	}, nil
}

func (uc *UseCase) finish(ctx context.Context, runID string, start time.Time, result ports.RunResult, err error) {
	result.FinishedAt = uc.now()
	uc.metrics.RecordRun(ctx, result)

	fields := []ports.Field{
		ports.F("run_id", runID),
		ports.F("outcome", string(result.Outcome)),
		ports.F("duration_ms", result.FinishedAt.Sub(start).Milliseconds()),
	}
	if err != nil {
		uc.logger.Error("Snow alert run failed", append(fields, ports.F("error", err.Error()))...)
		return
	}
	uc.logger.Info("Snow alert run completed", append(fields, ports.F("snow", result.Snow))...)
}
