// internal/workers/meetup/calculate-travel-cost/config.go
package calculatetravelcost

import (
	"time"

	"meetup-workers/internal/models"
)

type Config struct {
	Mode           models.TravelMode
	WalkingKmh     float64
	DrivingKmh     float64
	TransitKmh     float64
	MaxConcurrency int
	Timeout        time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Mode:           models.ModeTransit,
		WalkingKmh:     5,
		DrivingKmh:     25,
		TransitKmh:     20,
		MaxConcurrency: 8,
		Timeout:        10 * time.Second,
	}
}
