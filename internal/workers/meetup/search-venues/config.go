// internal/workers/meetup/search-venues/config.go
package searchvenues

import "time"

type Config struct {
	RadiusMeters       int
	MaxRadiusMeters    int
	MaxResults         int
	GenericCategories  []string
	DetailsEnrichLimit int
	Timeout            time.Duration
}

func LoadConfig() *Config {
	return &Config{
		RadiusMeters:       3000,
		MaxRadiusMeters:    10000,
		MaxResults:         10,
		GenericCategories:  []string{"restaurant", "cafe"},
		DetailsEnrichLimit: 5,
		Timeout:            20 * time.Second,
	}
}
