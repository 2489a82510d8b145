// internal/workers/ai-conversation/explain-recommendations/config.go
package explainrecommendations

import "time"

type Config struct {
	CallTimeout    time.Duration
	MaxConcurrency int
	Timeout        time.Duration
}

func LoadConfig() *Config {
	return &Config{
		CallTimeout:    5 * time.Second,
		MaxConcurrency: 8,
		Timeout:        15 * time.Second,
	}
}
