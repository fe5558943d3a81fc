package forecast

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// SnowChanceThreshold is the chance of snow a day must exceed to trigger an alert
const SnowChanceThreshold = 50

const dateLayout = "2006-01-02"

// Condition describes the qualitative weather state of a day
type Condition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}

// Day is one calendar day's prediction. JSON names match the provider's field names
// so the emailed report reads the same as the WeatherAPI payload.
type Day struct {
	Date              string    `json:"date"`
	MaxTempC          float64   `json:"maxtemp_c"`
	MinTempC          float64   `json:"mintemp_c"`
	AvgTempC          float64   `json:"avgtemp_c"`
	MaxWindKph        float64   `json:"maxwind_kph"`
	TotalPrecipMm     float64   `json:"totalprecip_mm"`
	TotalSnowCm       float64   `json:"totalsnow_cm"`
	DailyWillItRain   int       `json:"daily_will_it_rain"`
	DailyChanceOfRain int       `json:"daily_chance_of_rain"`
	DailyWillItSnow   int       `json:"daily_will_it_snow"`
	DailyChanceOfSnow int       `json:"daily_chance_of_snow"`
	Condition         Condition `json:"condition"`
}

// IsValid validates a forecast day
func (d Day) IsValid() error {
	if strings.TrimSpace(d.Date) == "" {
		return fmt.Errorf("date cannot be empty")
	}
	if _, err := time.Parse(dateLayout, d.Date); err != nil {
		return fmt.Errorf("date %q is not in YYYY-MM-DD format", d.Date)
	}
	if d.DailyChanceOfSnow < 0 || d.DailyChanceOfSnow > 100 {
		return fmt.Errorf("chance of snow must be between 0 and 100")
	}
	if d.DailyChanceOfRain < 0 || d.DailyChanceOfRain > 100 {
		return fmt.Errorf("chance of rain must be between 0 and 100")
	}
	return nil
}

// decimal encodes a float the way the provider writes it, always with a fractional part
type decimal float64

func (f decimal) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("unsupported float value %v", v)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return []byte(s), nil
}

// MarshalJSON keeps whole-number measurements such as 2.0 from being written as 2
func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date              string    `json:"date"`
		MaxTempC          decimal   `json:"maxtemp_c"`
		MinTempC          decimal   `json:"mintemp_c"`
		AvgTempC          decimal   `json:"avgtemp_c"`
		MaxWindKph        decimal   `json:"maxwind_kph"`
		TotalPrecipMm     decimal   `json:"totalprecip_mm"`
		TotalSnowCm       decimal   `json:"totalsnow_cm"`
		DailyWillItRain   int       `json:"daily_will_it_rain"`
		DailyChanceOfRain int       `json:"daily_chance_of_rain"`
		DailyWillItSnow   int       `json:"daily_will_it_snow"`
		DailyChanceOfSnow int       `json:"daily_chance_of_snow"`
		Condition         Condition `json:"condition"`
	}{
		Date:              d.Date,
		MaxTempC:          decimal(d.MaxTempC),
		MinTempC:          decimal(d.MinTempC),
		AvgTempC:          decimal(d.AvgTempC),
		MaxWindKph:        decimal(d.MaxWindKph),
		TotalPrecipMm:     decimal(d.TotalPrecipMm),
		TotalSnowCm:       decimal(d.TotalSnowCm),
		DailyWillItRain:   d.DailyWillItRain,
		DailyChanceOfRain: d.DailyChanceOfRain,
		DailyWillItSnow:   d.DailyWillItSnow,
		DailyChanceOfSnow: d.DailyChanceOfSnow,
		Condition:         d.Condition,
	})
}

// IsSnowLikely reports whether the day triggers a snow alert:
// the provider flags snow, or the chance of snow is strictly above the threshold.
func (d Day) IsSnowLikely() bool {
	return d.DailyWillItSnow == 1 || d.DailyChanceOfSnow > SnowChanceThreshold
}

// String returns a string representation of the day
func (d Day) String() string {
	return fmt.Sprintf("%s: %.1f/%.1f°C, %d%% snow, %s",
		d.Date, d.MinTempC, d.MaxTempC, d.DailyChanceOfSnow, d.Condition.Text)
}

// Evaluation is the outcome of checking a forecast window for snow
type Evaluation struct {
	Snow     bool
	SnowDays []Day
	Days     []Day
}

// Evaluate selects the days that trigger a snow alert. Days always holds the full input in order.
func Evaluate(days []Day) Evaluation {
	eval := Evaluation{Days: days}
	for _, day := range days {
		if day.IsSnowLikely() {
			eval.SnowDays = append(eval.SnowDays, day)
		}
	}
	eval.Snow = len(eval.SnowDays) > 0
	return eval
}

// SnowDates lists the dates of the triggering days
func (e Evaluation) SnowDates() []string {
	dates := make([]string, 0, len(e.SnowDays))
	for _, day := range e.SnowDays {
		dates = append(dates, day.Date)
	}
	return dates
}
