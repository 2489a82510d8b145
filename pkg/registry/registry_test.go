// pkg/registry/registry_test.go
package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegistry(t *testing.T) {
	reg, err := ParseRegistry([]byte(`{
		"version": "1.0.0",
		"activities": [
			{"id": "meetup.geo.compute-fair-point", "taskType": "compute-fair-point", "inputSchema": {"type": "object"}},
			{"id": "meetup.venue.rank-venues", "taskType": "rank-venues"}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, reg.Activities, 2)

	a, ok := reg.FindByTaskType("rank-venues")
	require.True(t, ok)
	assert.Equal(t, "meetup.venue.rank-venues", a.ID)

	_, ok = reg.FindByTaskType("missing")
	assert.False(t, ok)

	_, err = ParseRegistry([]byte(`{"activities": [`))
	assert.ErrorContains(t, err, "parse registry")
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	reg := &ActivityRegistry{
		Version:    "1.0.0",
		Activities: []Activity{{ID: "meetup.geo.compute-fair-point", TaskType: "compute-fair-point", Retries: 3}},
	}
	require.NoError(t, reg.Save(path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, reg.Activities[0].ID, loaded.Activities[0].ID)
	assert.Equal(t, 3, loaded.Activities[0].Retries)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFindByTaskType_ReturnsPointerIntoRegistry(t *testing.T) {
	reg := &ActivityRegistry{Activities: []Activity{{TaskType: "notify-members"}}}
	a, ok := reg.FindByTaskType("notify-members")
	require.True(t, ok)
	a.ImplementationStatus = StatusCompleted
	assert.Equal(t, StatusCompleted, reg.Activities[0].ImplementationStatus)
}

func TestJobTimeout(t *testing.T) {
	tests := []struct {
		timeout string
		want    time.Duration
		wantErr bool
	}{
		{timeout: "", want: 0},
		{timeout: "45s", want: 45 * time.Second},
		{timeout: "2m", want: 2 * time.Minute},
		{timeout: "soon", wantErr: true},
		{timeout: "-5s", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.timeout, func(t *testing.T) {
			d, err := Activity{ID: "meetup.venue.rank-venues", Timeout: tt.timeout}.JobTimeout()
			if tt.wantErr {
				assert.ErrorContains(t, err, "meetup.venue.rank-venues")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPlanned))
	assert.True(t, ValidStatus(StatusVerified))
	assert.False(t, ValidStatus("done"))
	assert.False(t, ValidStatus(""))
}
