package alert

import (
	"encoding/json"
	"fmt"

	"snowalert.app/internal/core/forecast"
	"snowalert.app/pkg/errors"
)

const subjectPrefix = "Snow Alert! 🌨️"

// Alert is a composed report ready to hand to the email provider
type Alert struct {
	Subject    string
	Body       string
	Recipients []string
}

// Subject returns the report subject for a forecast window of the given length
func Subject(snow bool, days int) string {
	if snow {
		return fmt.Sprintf("%s It will snow in the next %d days 🥳", subjectPrefix, days)
	}
	return fmt.Sprintf("%s No snow in the next %d days 🫤", subjectPrefix, days)
}

// Body renders every forecast day as an indented JSON array, in forecast order
func Body(days []forecast.Day) (string, error) {
	if days == nil {
		days = []forecast.Day{}
	}
	out, err := json.MarshalIndent(days, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal forecast report: %w", err)
	}
	return string(out), nil
}

// Compose builds the alert for an evaluation. window is the configured forecast length
// and is what the subject reports, even when the provider returned fewer days.
func Compose(eval forecast.Evaluation, window int, recipients []string) (*Alert, error) {
	if len(recipients) == 0 {
		return nil, errors.NewValidationError("at least one recipient is required")
	}
	if window < 1 {
		return nil, errors.NewValidationError("forecast window must be positive")
	}

	body, err := Body(eval.Days)
	if err != nil {
		return nil, err
	}

	to := make([]string, len(recipients))
	copy(to, recipients)

	return &Alert{
		Subject:    Subject(eval.Snow, window),
		Body:       body,
		Recipients: to,
	}, nil
}
