package forecast

import (
	"context"
	"fmt"

	"snowalert.app/internal/ports"
	"snowalert.app/pkg/errors"
)

type UseCase struct {
	provider ports.ForecastProvider
	config   ports.ConfigProvider
	logger   ports.Logger
}

type UseCaseDependencies struct {
	Provider ports.ForecastProvider
	Config   ports.ConfigProvider
	Logger   ports.Logger
}

func NewUseCase(deps UseCaseDependencies) (*UseCase, error) {
	if deps.Provider == nil {
		return nil, errors.NewValidationError("forecast provider is required")
	}
	if deps.Config == nil {
		return nil, errors.NewValidationError("config is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}

	return &UseCase{
		provider: deps.Provider,
		config:   deps.Config,
		logger:   deps.Logger,
	}, nil
}

// GetForecast fetches the configured forecast window, one Day per provider day in provider order
func (uc *UseCase) GetForecast(ctx context.Context) ([]Day, error) {
	cfg := uc.config.GetForecastConfig()
	uc.logger.Debug("Fetching forecast",
		ports.F("location", cfg.Location),
		ports.F("days", cfg.Days))

	data, err := uc.provider.GetForecast(ctx, cfg.Location, cfg.Days)
	if err != nil {
		return nil, fmt.Errorf("get forecast for %s: %w", cfg.Location, err)
	}

	if len(data) > cfg.Days {
		return nil, errors.NewValidationError(
			fmt.Sprintf("provider returned %d forecast days, requested %d", len(data), cfg.Days))
	}

	days := make([]Day, 0, len(data))
	for _, d := range data {
		day := uc.convertFromPortsForecastDay(d)
		if err := day.IsValid(); err != nil {
			return nil, errors.NewValidationError("invalid forecast day from provider: " + err.Error())
		}
		uc.logger.Debug("Forecast day", ports.F("day", day.String()), ports.F("snow", day.IsSnowLikely()))
		days = append(days, day)
	}

	if len(days) < cfg.Days {
		uc.logger.Warn("Provider returned a shorter forecast than requested",
			ports.F("location", cfg.Location),
			ports.F("requested", cfg.Days),
			ports.F("returned", len(days)))
	}

	return days, nil
}

func (uc *UseCase) convertFromPortsForecastDay(data ports.ForecastDayData) Day {
	return Day{
		Date:              data.Date,
		MaxTempC:          data.MaxTempC,
		MinTempC:          data.MinTempC,
		AvgTempC:          data.AvgTempC,
		MaxWindKph:        data.MaxWindKph,
		TotalPrecipMm:     data.TotalPrecipMm,
		TotalSnowCm:       data.TotalSnowCm,
		DailyWillItRain:   data.DailyWillItRain,
		DailyChanceOfRain: data.DailyChanceOfRain,
		DailyWillItSnow:   data.DailyWillItSnow,
		DailyChanceOfSnow: data.DailyChanceOfSnow,
		Condition: Condition{
			Text: data.Condition.Text,
			Icon: data.Condition.Icon,
			Code: data.Condition.Code,
		},
	}
}
