// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Coordination  CoordinationConfig      `mapstructure:"coordination"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	RegistryPath  string                  `mapstructure:"registry_path"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPPort    int    `mapstructure:"http_port"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

// PostgresConfig backs the locality gazetteer.
type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ElasticsearchConfig backs the venue index.
type ElasticsearchConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"`
	VenueIndex string   `mapstructure:"venue_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// RedisConfig backs the geocode cache.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL int    `mapstructure:"cache_ttl"` // seconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// APIsConfig holds settings for external HTTP collaborators.
type APIsConfig struct {
	GenAI struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Model   string `mapstructure:"model"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
		// Consecutive failures before the breaker opens.
		BreakerFailures int `mapstructure:"breaker_failures"`
		BreakerCooldown int `mapstructure:"breaker_cooldown"` // milliseconds
	} `mapstructure:"genai"`

	Foursquare struct {
		BaseURL           string  `mapstructure:"base_url"`
		APIKey            string  `mapstructure:"api_key"`
		Timeout           int     `mapstructure:"timeout"` // milliseconds
		RequestsPerSecond float64 `mapstructure:"requests_per_second"`
		Burst             int     `mapstructure:"burst"`
	} `mapstructure:"foursquare"`

	Nominatim struct {
		Enabled   bool   `mapstructure:"enabled"`
		BaseURL   string `mapstructure:"base_url"`
		UserAgent string `mapstructure:"user_agent"`
		Timeout   int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"nominatim"`
}

// CoordinationConfig tunes the meetup pipeline.
type CoordinationConfig struct {
	VenueBackend          string  `mapstructure:"venue_backend"` // foursquare | elasticsearch
	RadiusMeters          int     `mapstructure:"radius_meters"`
	MaxRadiusMeters       int     `mapstructure:"max_radius_meters"`
	SafetyRadiusMeters    int     `mapstructure:"safety_radius_meters"`
	MaxResults            int     `mapstructure:"max_results"`
	TopN                  int     `mapstructure:"top_n"`
	TravelMode            string  `mapstructure:"travel_mode"`
	DivergenceThresholdKm float64 `mapstructure:"divergence_threshold_km"`
	MaxConcurrency        int     `mapstructure:"max_concurrency"`
	RequestDeadline       int     `mapstructure:"request_deadline"`    // milliseconds
	ExplanationTimeout    int     `mapstructure:"explanation_timeout"` // milliseconds
	DetailsEnrichLimit    int     `mapstructure:"details_enrich_limit"`
	GenericCategories     string  `mapstructure:"generic_categories"`

	Weights struct {
		Quality  float64 `mapstructure:"quality"`
		Fairness float64 `mapstructure:"fairness"`
		Safety   float64 `mapstructure:"safety"`
	} `mapstructure:"weights"`

	Speeds struct {
		WalkingKmh float64 `mapstructure:"walking_kmh"`
		DrivingKmh float64 `mapstructure:"driving_kmh"`
		TransitKmh float64 `mapstructure:"transit_kmh"`
	} `mapstructure:"speeds"`

	NightWindow struct {
		StartHour int `mapstructure:"start_hour"`
		EndHour   int `mapstructure:"end_hour"`
	} `mapstructure:"night_window"`

	DefaultLocation struct {
		Lat float64 `mapstructure:"lat"`
		Lng float64 `mapstructure:"lng"`
	} `mapstructure:"default_location"`

	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig is the shared backoff policy for external calls.
type RetryConfig struct {
	RateLimitRetries int     `mapstructure:"rate_limit_retries"`
	ErrorRetries     int     `mapstructure:"error_retries"`
	InitialInterval  int     `mapstructure:"initial_interval"` // milliseconds
	Multiplier       float64 `mapstructure:"multiplier"`
	MaxInterval      int     `mapstructure:"max_interval"` // milliseconds
}

// NotificationConfig holds settings for the notify-members worker.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
