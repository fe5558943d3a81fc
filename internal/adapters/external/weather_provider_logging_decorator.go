package external

import (
	"context"
	"time"

	"snowalert.app/internal/ports"
)

// ForecastProviderLoggingDecorator decorates forecast providers with structured logging
type ForecastProviderLoggingDecorator struct {
	provider ports.ForecastProvider
	logger   ports.Logger
}

// NewForecastProviderLoggingDecorator creates a new logging decorator for forecast providers
func NewForecastProviderLoggingDecorator(provider ports.ForecastProvider, logger ports.Logger) ports.ForecastProvider {
	return &ForecastProviderLoggingDecorator{
		provider: provider,
		logger:   logger,
	}
}

// GetForecast wraps the provider call with structured logging
func (d *ForecastProviderLoggingDecorator) GetForecast(ctx context.Context, location string, days int) ([]ports.ForecastDayData, error) {
	providerName := d.provider.GetProviderName()

	d.logger.Info("Forecast request started",
		ports.F("provider", providerName),
		ports.F("location", location),
		ports.F("days", days),
		ports.F("event", "request"))

	startTime := time.Now()
	forecast, err := d.provider.GetForecast(ctx, location, days)
	duration := time.Since(startTime)

	if err != nil {
		d.logger.Error("Forecast request failed",
			ports.F("provider", providerName),
			ports.F("location", location),
			ports.F("event", "error"),
			ports.F("duration_ms", duration.Milliseconds()),
			ports.F("error", err.Error()))
		return nil, err
	}

	d.logger.Info("Forecast request completed",
		ports.F("provider", providerName),
		ports.F("location", location),
		ports.F("event", "response"),
		ports.F("duration_ms", duration.Milliseconds()),
		ports.F("forecast_days", len(forecast)))

	return forecast, nil
}

// GetProviderName returns the name of the wrapped provider with logging indication
func (d *ForecastProviderLoggingDecorator) GetProviderName() string {
	return "logged(" + d.provider.GetProviderName() + ")"
}
