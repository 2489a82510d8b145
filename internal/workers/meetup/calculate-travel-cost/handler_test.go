// internal/workers/meetup/calculate-travel-cost/handler_test.go
package calculatetravelcost

import (
	"context"
	"testing"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coord(lat, lng float64) *models.Coordinate {
	return &models.Coordinate{Lat: lat, Lng: lng}
}

// ==========================
// Distance
// ==========================

func TestDistance(t *testing.T) {
	a := models.Coordinate{Lat: 12.9716, Lng: 77.5946}
	b := models.Coordinate{Lat: 12.9352, Lng: 77.6245}

	t.Run("identity", func(t *testing.T) {
		assert.Equal(t, 0.0, Distance(a, a))
	})
	t.Run("symmetry", func(t *testing.T) {
		assert.Equal(t, Distance(a, b), Distance(b, a))
	})
	t.Run("one degree of longitude at the equator", func(t *testing.T) {
		assert.InDelta(t, 111.19, Distance(models.Coordinate{}, models.Coordinate{Lat: 0, Lng: 1}), 0.01)
	})
	t.Run("antipodes do not overflow", func(t *testing.T) {
		assert.InDelta(t, 20015.09, Distance(models.Coordinate{Lat: 0, Lng: 0}, models.Coordinate{Lat: 0, Lng: 180}), 0.01)
	})
}

func TestEstimateTravelTime(t *testing.T) {
	calc := NewCalculator(LoadConfig())

	tests := []struct {
		mode models.TravelMode
		km   float64
		want float64
	}{
		{models.ModeWalking, 5, 60},
		{models.ModeDriving, 25, 60},
		{models.ModeTransit, 10, 30},
		{"teleport", 10, 30},
		{models.ModeWalking, 0, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.InDelta(t, tt.want, calc.EstimateTravelTime(tt.km, tt.mode), 1e-9)
		})
	}
}

// ==========================
// Matrix
// ==========================

func TestMatrix_OrderMatchesInput(t *testing.T) {
	cfg := LoadConfig()
	cfg.MaxConcurrency = 2
	calc := NewCalculator(cfg)

	members := []models.Member{
		{ID: "m1", ResolvedCoordinate: coord(12.93, 77.62)},
		{ID: "m2", ResolvedCoordinate: coord(12.97, 77.64)},
		{ID: "m3", ResolvedCoordinate: coord(12.92, 77.59)},
	}
	venues := []models.VenueCandidate{
		{ID: "v1", Coordinate: models.Coordinate{Lat: 12.95, Lng: 77.62}},
		{ID: "v2", Coordinate: models.Coordinate{Lat: 12.96, Lng: 77.60}},
	}

	matrix, err := calc.Matrix(context.Background(), members, venues, models.ModeDriving)
	require.NoError(t, err)
	require.Len(t, matrix, 2)

	for vi, row := range matrix {
		require.Len(t, row, 3)
		for mi, cell := range row {
			assert.Equal(t, venues[vi].ID, cell.VenueID)
			assert.Equal(t, members[mi].ID, cell.MemberID)
			assert.Equal(t, models.ModeDriving, cell.Mode)
			assert.InDelta(t, Distance(*members[mi].ResolvedCoordinate, venues[vi].Coordinate), cell.DistanceKm, 1e-12)
		}
	}
}

func TestMatrix_CancelledContext(t *testing.T) {
	calc := NewCalculator(LoadConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := calc.Matrix(ctx,
		[]models.Member{{ID: "m1", ResolvedCoordinate: coord(0, 0)}},
		[]models.VenueCandidate{{ID: "v1"}},
		"")
	assert.ErrorIs(t, err, context.Canceled)
}

// ==========================
// Handler
// ==========================

func TestExecute(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))

	tests := []struct {
		name           string
		input          *Input
		expectError    bool
		errorCode      apperrors.ErrorCode
		validateOutput func(t *testing.T, out *Output)
	}{
		{
			name: "flattens matrix venue by venue",
			input: &Input{
				Members: []models.Member{
					{ID: "a", ResolvedCoordinate: coord(0, 0)},
					{ID: "b", ResolvedCoordinate: coord(0, 2)},
				},
				Venues: []models.VenueCandidate{
					{ID: "v1", Coordinate: models.Coordinate{Lat: 0, Lng: 1}},
				},
				Mode: models.ModeDriving,
			},
			validateOutput: func(t *testing.T, out *Output) {
				require.Len(t, out.Travel, 2)
				assert.Equal(t, "a", out.Travel[0].MemberID)
				assert.InDelta(t, out.Travel[0].DistanceKm, out.Travel[1].DistanceKm, 1e-9)
			},
		},
		{
			name: "unresolved member is invalid input",
			input: &Input{
				Members: []models.Member{{ID: "a"}},
			},
			expectError: true,
			errorCode:   apperrors.ErrCodeInvalidInput,
		},
		{
			name: "unknown mode is invalid input",
			input: &Input{
				Members: []models.Member{{ID: "a", ResolvedCoordinate: coord(0, 0)}},
				Mode:    "rocket",
			},
			expectError: true,
			errorCode:   apperrors.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Execute(context.Background(), tt.input)
			if tt.expectError {
				require.Error(t, err)
				stdErr, ok := apperrors.AsStandardError(err)
				require.True(t, ok)
				assert.Equal(t, tt.errorCode, stdErr.Code)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, out)
		})
	}
}
