// internal/workers/ai-conversation/parse-group-intent/config.go
package parsegroupintent

import "time"

type Config struct {
	LLMTimeout time.Duration
	Timeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		LLMTimeout: 8 * time.Second,
		Timeout:    10 * time.Second,
	}
}
