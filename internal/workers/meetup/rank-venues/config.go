// internal/workers/meetup/rank-venues/config.go
package rankvenues

import "time"

type Weights struct {
	Quality  float64 `json:"quality"`
	Fairness float64 `json:"fairness"`
	Safety   float64 `json:"safety"`
}

type Config struct {
	Weights Weights
	TopN    int
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Weights: Weights{Quality: 1.0 / 3, Fairness: 1.0 / 3, Safety: 1.0 / 3},
		TopN:    3,
		Timeout: 5 * time.Second,
	}
}
