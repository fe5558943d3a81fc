// Package external provides adapters for external services
// These adapters implement ports for the forecast provider and the SMTP relay.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"snowalert.app/internal/ports"
	"snowalert.app/pkg/errors"
)

const maxErrorBodyBytes = 4096

// WeatherAPIProviderAdapter implements ForecastProvider port for WeatherAPI.com
type WeatherAPIProviderAdapter struct {
	apiKey   string
	baseURL  string
	client   HTTPClient
	logger   ports.Logger
	validate *validator.Validate
}

// WeatherAPIProviderParams holds parameters for creating WeatherAPI provider
type WeatherAPIProviderParams struct {
	APIKey  string
	BaseURL string
	Logger  ports.Logger
	// Client defaults to an http.Client with a 10 second timeout
	Client HTTPClient
}

// HTTPClient interface for HTTP requests (for testing)
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WeatherAPIForecastResponse represents the forecast.json response from WeatherAPI.com.
// Pointer fields let zero values through while still rejecting absent keys.
type WeatherAPIForecastResponse struct {
	Forecast *WeatherAPIForecast `json:"forecast" validate:"required"`
}

type WeatherAPIForecast struct {
	ForecastDay []WeatherAPIForecastDay `json:"forecastday" validate:"required,dive"`
}

type WeatherAPIForecastDay struct {
	Date string         `json:"date" validate:"required,datetime=2006-01-02"`
	Day  *WeatherAPIDay `json:"day" validate:"required"`
}

type WeatherAPIDay struct {
	MaxTempC          *float64             `json:"maxtemp_c" validate:"required"`
	MinTempC          *float64             `json:"mintemp_c" validate:"required"`
	AvgTempC          *float64             `json:"avgtemp_c" validate:"required"`
	MaxWindKph        *float64             `json:"maxwind_kph" validate:"required"`
	TotalPrecipMm     *float64             `json:"totalprecip_mm" validate:"required"`
	TotalSnowCm       *float64             `json:"totalsnow_cm" validate:"required"`
	DailyWillItRain   *int                 `json:"daily_will_it_rain" validate:"required,oneof=0 1"`
	DailyChanceOfRain *int                 `json:"daily_chance_of_rain" validate:"required,min=0,max=100"`
	DailyWillItSnow   *int                 `json:"daily_will_it_snow" validate:"required,oneof=0 1"`
	DailyChanceOfSnow *int                 `json:"daily_chance_of_snow" validate:"required,min=0,max=100"`
	Condition         *WeatherAPICondition `json:"condition" validate:"required"`
}

type WeatherAPICondition struct {
	Text string `json:"text" validate:"required"`
	Icon string `json:"icon" validate:"required"`
	Code *int   `json:"code" validate:"required"`
}

// weatherAPIErrorResponse is the body WeatherAPI.com sends with 4xx responses
type weatherAPIErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewWeatherAPIProviderAdapter creates a new WeatherAPI provider adapter
func NewWeatherAPIProviderAdapter(params WeatherAPIProviderParams) ports.ForecastProvider {
	client := params.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &WeatherAPIProviderAdapter{
		apiKey:   params.APIKey,
		baseURL:  strings.TrimRight(params.BaseURL, "/"),
		client:   client,
		logger:   params.Logger,
		validate: newResponseValidator(),
	}
}

// newResponseValidator reports failing fields by their JSON names
func newResponseValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// GetForecast retrieves a multi-day forecast from WeatherAPI.com
func (p *WeatherAPIProviderAdapter) GetForecast(ctx context.Context, location string, days int) ([]ports.ForecastDayData, error) {
	if strings.TrimSpace(location) == "" {
		return nil, errors.NewValidationError("location cannot be empty")
	}
	if days < 1 {
		return nil, errors.NewValidationError("days must be positive")
	}

	query := url.Values{}
	query.Set("key", p.apiKey)
	query.Set("q", location)
	query.Set("days", strconv.Itoa(days))
	endpoint := fmt.Sprintf("%s/forecast.json?%s", p.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewRequestError("failed to build WeatherAPI request", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.NewRequestError("failed to call WeatherAPI", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.logger.Warn("Failed to close WeatherAPI response body", ports.F("error", closeErr))
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.NewRequestError(p.statusMessage(resp), nil)
	}

	var apiResp WeatherAPIForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, errors.WrapValidationError("failed to decode WeatherAPI response", err)
	}

	if err := p.validate.Struct(&apiResp); err != nil {
		return nil, errors.WrapValidationError("WeatherAPI response is missing forecast fields", err)
	}

	result := make([]ports.ForecastDayData, 0, len(apiResp.Forecast.ForecastDay))
	for _, fd := range apiResp.Forecast.ForecastDay {
		result = append(result, toForecastDayData(fd))
	}

	return result, nil
}

// statusMessage includes the provider's error message when the body carries one
func (p *WeatherAPIProviderAdapter) statusMessage(resp *http.Response) string {
	msg := fmt.Sprintf("WeatherAPI returned status %d", resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return msg
	}

	var apiErr weatherAPIErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = fmt.Sprintf("%s: %s (code %d)", msg, apiErr.Error.Message, apiErr.Error.Code)
	}
	return msg
}

// toForecastDayData flattens a validated day; every pointer is known to be non-nil
func toForecastDayData(fd WeatherAPIForecastDay) ports.ForecastDayData {
	d := fd.Day
	return ports.ForecastDayData{
		Date:              fd.Date,
		MaxTempC:          *d.MaxTempC,
		MinTempC:          *d.MinTempC,
		AvgTempC:          *d.AvgTempC,
		MaxWindKph:        *d.MaxWindKph,
		TotalPrecipMm:     *d.TotalPrecipMm,
		TotalSnowCm:       *d.TotalSnowCm,
		DailyWillItRain:   *d.DailyWillItRain,
		DailyChanceOfRain: *d.DailyChanceOfRain,
		DailyWillItSnow:   *d.DailyWillItSnow,
		DailyChanceOfSnow: *d.DailyChanceOfSnow,
		Condition: ports.ConditionData{
			Text: d.Condition.Text,
			Icon: d.Condition.Icon,
			Code: *d.Condition.Code,
		},
	}
}

// GetProviderName returns the name of this forecast provider
func (p *WeatherAPIProviderAdapter) GetProviderName() string {
	return "weatherapi"
}
