// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, "camunda:\n  broker_address: localhost:26500\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.HTTPPort)
	assert.Equal(t, "foursquare", cfg.Coordination.VenueBackend)
	assert.Equal(t, 3000, cfg.Coordination.RadiusMeters)
	assert.Equal(t, 3, cfg.Coordination.TopN)
	assert.Equal(t, "transit", cfg.Coordination.TravelMode)
	assert.Equal(t, 2.0, cfg.Coordination.DivergenceThresholdKm)
	assert.Equal(t, 20, cfg.Coordination.NightWindow.StartHour)
	assert.Equal(t, 6, cfg.Coordination.NightWindow.EndHour)
	assert.InDelta(t, 1.0, cfg.Coordination.Weights.Quality+cfg.Coordination.Weights.Fairness+cfg.Coordination.Weights.Safety, 1e-9)
	assert.Equal(t, 12.9716, cfg.Coordination.DefaultLocation.Lat)
	assert.Equal(t, "restaurant,cafe", cfg.Coordination.GenericCategories)
	assert.Equal(t, 2, cfg.Coordination.Retry.RateLimitRetries)
	assert.Equal(t, 1, cfg.Coordination.Retry.ErrorRetries)
	assert.Equal(t, "configs/activity-registry.json", cfg.RegistryPath)
	assert.Equal(t, 86400, cfg.Database.Redis.CacheTTL)
}

func TestLoadFromFile_Overrides(t *testing.T) {
	t.Setenv("FOURSQUARE_API_KEY", "fsq-key")
	t.Setenv("MEETUP_TEST_GAZETTEER_HOST", "db.internal")

	cfg, err := LoadFromFile(writeConfig(t, `
camunda:
  broker_address: zeebe:26500
database:
  postgres:
    enabled: true
    host: ${MEETUP_TEST_GAZETTEER_HOST}
    database: meetup
coordination:
  top_n: 5
  travel_mode: walking
  night_window:
    start_hour: 22
    end_hour: 5
workers:
  search-venues:
    enabled: true
`))
	require.NoError(t, err)

	assert.Equal(t, "fsq-key", cfg.APIs.Foursquare.APIKey)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, 5, cfg.Coordination.TopN)
	assert.Equal(t, "walking", cfg.Coordination.TravelMode)
	assert.Equal(t, 22, cfg.Coordination.NightWindow.StartHour)

	w := GetWorkerConfig(cfg, "search-venues")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)

	unknown := GetWorkerConfig(cfg, "notify-members")
	assert.True(t, unknown.Enabled)
	assert.True(t, IsWorkerEnabled(cfg, "notify-members"))
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing broker", "app:\n  name: meetup\n", "broker_address"},
		{"postgres without host", "camunda:\n  broker_address: z:1\ndatabase:\n  postgres:\n    enabled: true\n", "postgres.host"},
		{"redis without address", "camunda:\n  broker_address: z:1\ndatabase:\n  redis:\n    enabled: true\n", "redis.address"},
		{"unknown backend", "camunda:\n  broker_address: z:1\ncoordination:\n  venue_backend: yelp\n", "venue_backend"},
		{"index backend without es", "camunda:\n  broker_address: z:1\ncoordination:\n  venue_backend: elasticsearch\n", "requires database.elasticsearch"},
		{"radius above max", "camunda:\n  broker_address: z:1\ncoordination:\n  radius_meters: 20000\n", "exceeds max_radius_meters"},
		{"negative weight", "camunda:\n  broker_address: z:1\ncoordination:\n  weights:\n    quality: -1\n", "non-negative"},
		{"bad mode", "camunda:\n  broker_address: z:1\ncoordination:\n  travel_mode: teleport\n", "travel_mode"},
		{"bad hour", "camunda:\n  broker_address: z:1\ncoordination:\n  night_window:\n    start_hour: 25\n", "night_window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Zero(t, GetDuration(0))
}
