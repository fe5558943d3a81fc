package ports

import "context"

// ConditionData represents the qualitative weather state of a forecast day
type ConditionData struct {
	Text string
	Icon string
	Code int
}

// ForecastDayData represents one calendar day returned by a forecast provider
type ForecastDayData struct {
	Date              string
	MaxTempC          float64
	MinTempC          float64
	AvgTempC          float64
	MaxWindKph        float64
	TotalPrecipMm     float64
	TotalSnowCm       float64
	DailyWillItRain   int
	DailyChanceOfRain int
	DailyWillItSnow   int
	DailyChanceOfSnow int
	Condition         ConditionData
}

// ForecastProvider defines the contract for multi-day forecast providers
type ForecastProvider interface {
	GetForecast(ctx context.Context, location string, days int) ([]ForecastDayData, error)
	GetProviderName() string
}
