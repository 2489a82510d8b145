// internal/workers/meetup/assess-area-safety/config.go
package assessareasafety

import "time"

type Config struct {
	RadiusMeters   int
	NightStartHour int
	NightEndHour   int
	Timeout        time.Duration
}

func LoadConfig() *Config {
	return &Config{
		RadiusMeters:   1000,
		NightStartHour: 20,
		NightEndHour:   6,
		Timeout:        10 * time.Second,
	}
}
