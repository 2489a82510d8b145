// internal/common/config/loader.go
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // overlay is optional

	return decode(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from well-known env vars when the yaml left them blank.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.APIs.Foursquare.APIKey, "FOURSQUARE_API_KEY")
	setIfEmpty(&cfg.APIs.GenAI.APIKey, "GENAI_API_KEY")
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
}

func setIfEmpty(field *string, envKey string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.HTTPPort == 0 {
		cfg.App.HTTPPort = 8080
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.VenueIndex == "" {
		cfg.Database.Elasticsearch.VenueIndex = "venues"
	}
	if cfg.Database.Redis.CacheTTL == 0 {
		cfg.Database.Redis.CacheTTL = 86400
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	if cfg.APIs.GenAI.Timeout == 0 {
		cfg.APIs.GenAI.Timeout = 10000
	}
	if cfg.APIs.GenAI.BreakerFailures == 0 {
		cfg.APIs.GenAI.BreakerFailures = 5
	}
	if cfg.APIs.GenAI.BreakerCooldown == 0 {
		cfg.APIs.GenAI.BreakerCooldown = 30000
	}
	if cfg.APIs.Foursquare.BaseURL == "" {
		cfg.APIs.Foursquare.BaseURL = "https://api.foursquare.com/v3"
	}
	if cfg.APIs.Foursquare.Timeout == 0 {
		cfg.APIs.Foursquare.Timeout = 10000
	}
	if cfg.APIs.Foursquare.RequestsPerSecond == 0 {
		cfg.APIs.Foursquare.RequestsPerSecond = 10
	}
	if cfg.APIs.Foursquare.Burst == 0 {
		cfg.APIs.Foursquare.Burst = 5
	}
	if cfg.APIs.Nominatim.BaseURL == "" {
		cfg.APIs.Nominatim.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.APIs.Nominatim.UserAgent == "" {
		cfg.APIs.Nominatim.UserAgent = "meetup-workers/1.0"
	}
	if cfg.APIs.Nominatim.Timeout == 0 {
		cfg.APIs.Nominatim.Timeout = 5000
	}

	applyCoordinationDefaults(&cfg.Coordination)

	if cfg.RegistryPath == "" {
		cfg.RegistryPath = "configs/activity-registry.json"
	}
}

func applyCoordinationDefaults(c *CoordinationConfig) {
	if c.VenueBackend == "" {
		c.VenueBackend = "foursquare"
	}
	if c.RadiusMeters == 0 {
		c.RadiusMeters = 3000
	}
	if c.MaxRadiusMeters == 0 {
		c.MaxRadiusMeters = 10000
	}
	if c.SafetyRadiusMeters == 0 {
		c.SafetyRadiusMeters = 1000
	}
	if c.MaxResults == 0 {
		c.MaxResults = 10
	}
	if c.TopN == 0 {
		c.TopN = 3
	}
	if c.TravelMode == "" {
		c.TravelMode = "transit"
	}
	if c.DivergenceThresholdKm == 0 {
		c.DivergenceThresholdKm = 2
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = 8
	}
	if c.RequestDeadline == 0 {
		c.RequestDeadline = 20000
	}
	if c.ExplanationTimeout == 0 {
		c.ExplanationTimeout = 5000
	}
	if c.DetailsEnrichLimit == 0 {
		c.DetailsEnrichLimit = 5
	}
	if c.GenericCategories == "" {
		c.GenericCategories = "restaurant,cafe"
	}
	if c.Weights.Quality == 0 && c.Weights.Fairness == 0 && c.Weights.Safety == 0 {
		c.Weights.Quality, c.Weights.Fairness, c.Weights.Safety = 1.0/3, 1.0/3, 1.0/3
	}
	if c.Speeds.WalkingKmh == 0 {
		c.Speeds.WalkingKmh = 5
	}
	if c.Speeds.DrivingKmh == 0 {
		c.Speeds.DrivingKmh = 25
	}
	if c.Speeds.TransitKmh == 0 {
		c.Speeds.TransitKmh = 20
	}
	if c.NightWindow.StartHour == 0 && c.NightWindow.EndHour == 0 {
		c.NightWindow.StartHour, c.NightWindow.EndHour = 20, 6
	}
	if c.DefaultLocation.Lat == 0 && c.DefaultLocation.Lng == 0 {
		c.DefaultLocation.Lat, c.DefaultLocation.Lng = 12.9716, 77.5946
	}
	if c.Retry.RateLimitRetries == 0 {
		c.Retry.RateLimitRetries = 2
	}
	if c.Retry.ErrorRetries == 0 {
		c.Retry.ErrorRetries = 1
	}
	if c.Retry.InitialInterval == 0 {
		c.Retry.InitialInterval = 1000
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = 2
	}
	if c.Retry.MaxInterval == 0 {
		c.Retry.MaxInterval = 8000
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required when postgres is enabled")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required when postgres is enabled")
		}
	}
	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when redis is enabled")
	}

	c := cfg.Coordination
	switch c.VenueBackend {
	case "foursquare":
	case "elasticsearch":
		if !cfg.Database.Elasticsearch.Enabled || cfg.Database.Elasticsearch.GetURL() == "" {
			return fmt.Errorf("coordination.venue_backend=elasticsearch requires database.elasticsearch")
		}
	default:
		return fmt.Errorf("coordination.venue_backend must be foursquare or elasticsearch, got %q", c.VenueBackend)
	}

	if c.RadiusMeters > c.MaxRadiusMeters {
		return fmt.Errorf("coordination.radius_meters (%d) exceeds max_radius_meters (%d)", c.RadiusMeters, c.MaxRadiusMeters)
	}
	if c.Weights.Quality < 0 || c.Weights.Fairness < 0 || c.Weights.Safety < 0 {
		return fmt.Errorf("coordination.weights must be non-negative")
	}
	if c.NightWindow.StartHour < 0 || c.NightWindow.StartHour > 23 || c.NightWindow.EndHour < 0 || c.NightWindow.EndHour > 23 {
		return fmt.Errorf("coordination.night_window hours must be within 0-23")
	}
	if math.Abs(c.DefaultLocation.Lat) > 90 || math.Abs(c.DefaultLocation.Lng) > 180 {
		return fmt.Errorf("coordination.default_location is out of range")
	}
	switch c.TravelMode {
	case "walking", "driving", "transit":
	default:
		return fmt.Errorf("coordination.travel_mode must be walking, driving or transit, got %q", c.TravelMode)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
