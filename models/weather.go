package models

import (
	"time"

	"fitpickapi/matching"
)

// WeatherSnapshot is what the rest of the app sees from the weather
// gateway, already converted to imperial units.
type WeatherSnapshot struct {
	TemperatureF float64 `json:"temperature_f"`
	Description  string  `json:"description"`
	Humidity     int     `json:"humidity"`
	WindSpeedMph float64 `json:"wind_speed_mph"`
	City         string  `json:"city,omitempty"`

	FetchedAt time.Time `json:"-"`
}

// MatchingInfo is nil-safe so a failed lookup can be passed through
// directly, the engine scores without weather then.
func (w *WeatherSnapshot) MatchingInfo() *matching.WeatherInfo {
	if w == nil {
		return nil
	}
	return &matching.WeatherInfo{
		TemperatureF: w.TemperatureF,
		Description:  w.Description,
	}
}
