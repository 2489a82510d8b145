// internal/workers/meetup/coordinate-group-meetup/handler_test.go
package coordinategroupmeetup

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/common/geocoding"
	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/common/retry"
	"meetup-workers/internal/models"
	explainrecommendations "meetup-workers/internal/workers/ai-conversation/explain-recommendations"
	parsegroupintent "meetup-workers/internal/workers/ai-conversation/parse-group-intent"
	assessareasafety "meetup-workers/internal/workers/meetup/assess-area-safety"
	calculatetravelcost "meetup-workers/internal/workers/meetup/calculate-travel-cost"
	computefairpoint "meetup-workers/internal/workers/meetup/compute-fair-point"
	rankvenues "meetup-workers/internal/workers/meetup/rank-venues"
	resolvememberlocations "meetup-workers/internal/workers/meetup/resolve-member-locations"
	searchvenues "meetup-workers/internal/workers/meetup/search-venues"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var (
	nearPoint = models.Coordinate{Lat: 12.9600, Lng: 77.6200}
	farPoint  = models.Coordinate{Lat: 13.0500, Lng: 77.6200}
)

type fakePlaces struct {
	mu     sync.Mutex
	venues []models.VenueCandidate
	err    error
	calls  int
}

func (f *fakePlaces) Search(context.Context, models.PlaceSearch) ([]models.VenueCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.venues, f.err
}

func (f *fakePlaces) Details(_ context.Context, id string) (models.VenueCandidate, error) {
	return models.VenueCandidate{}, apperrors.ErrNotFound
}

// fakeCounter reports a busy neighbourhood everywhere except near farPoint.
type fakeCounter struct {
	err error
}

func (f fakeCounter) CountNearby(_ context.Context, at models.Coordinate, _ string, _ int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if calculatetravelcost.Distance(at, farPoint) < 0.5 {
		return 0, nil
	}
	return 4, nil
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func venue(id string, at models.Coordinate, rating float64) models.VenueCandidate {
	return models.VenueCandidate{
		ID:           id,
		Name:         "Venue " + id,
		Coordinate:   at,
		RatingRaw:    floatPtr(rating),
		PriceTier:    intPtr(2),
		CategoryTags: []string{"cafe"},
	}
}

func testMembers() []models.Member {
	return []models.Member{
		{ID: "m1", DisplayName: "Asha", RawLocation: "12.9716,77.5946", PreferencesText: "good coffee"},
		{ID: "m2", DisplayName: "Ravi", RawLocation: "12.9352,77.6245", PreferencesText: "quiet place"},
		{ID: "m3", DisplayName: "Meera", RawLocation: "12.9784,77.6408"},
	}
}

func newTestCoordinator(t *testing.T, places searchvenues.PlaceSearchClient, counter assessareasafety.NearbyCounter) *Coordinator {
	t.Helper()
	log := logger.NewTestLogger(t)
	policy := &retry.Policy{
		RateLimitRetries: 2,
		ErrorRetries:     1,
		InitialInterval:  time.Millisecond,
		Multiplier:       2,
		MaxInterval:      5 * time.Millisecond,
	}

	searchCfg := searchvenues.LoadConfig()
	components := Components{
		Resolver:  resolvememberlocations.NewResolver(geocoding.NewChain(), policy, resolvememberlocations.LoadConfig(), log),
		FairPoint: computefairpoint.NewCalculator(computefairpoint.LoadConfig()),
		Intent:    parsegroupintent.NewNormalizer(nil, parsegroupintent.LoadConfig(), log),
		Search:    searchvenues.NewOrchestrator(places, policy, searchCfg, log),
		Travel:    calculatetravelcost.NewCalculator(calculatetravelcost.LoadConfig()),
		Safety:    assessareasafety.NewScorer(counter, policy, assessareasafety.LoadConfig(), log),
		Ranker:    rankvenues.NewRanker(rankvenues.LoadConfig()),
		Explainer: explainrecommendations.NewExplainer(nil, explainrecommendations.LoadConfig(), log),
	}

	cfg := LoadConfig()
	cfg.RequestDeadline = 2 * time.Second
	co := NewCoordinator(components, cfg, nil, log)
	co.newID = func() string { return "req-1" }
	return co
}

func meeting(members []models.Member) models.MeetingContext {
	return models.MeetingContext{
		Members:            members,
		MeetingTimeISO8601: "2026-10-16T12:00:00",
		PurposeText:        "catch up over coffee",
	}
}

// ==========================
// Validation
// ==========================

func TestValidateMeetingContext(t *testing.T) {
	tests := []struct {
		name         string
		members      []models.Member
		expectedCode apperrors.ErrorCode
	}{
		{"no members", nil, apperrors.ErrCodeInsufficientMembers},
		{"one member", testMembers()[:1], apperrors.ErrCodeInsufficientMembers},
		{"missing id", []models.Member{{RawLocation: "a"}, {ID: "b", RawLocation: "b"}}, apperrors.ErrCodeInvalidInput},
		{"duplicate id", []models.Member{{ID: "a", RawLocation: "a"}, {ID: "a", RawLocation: "b"}}, apperrors.ErrCodeInvalidInput},
		{"no location", []models.Member{{ID: "a", RawLocation: "a"}, {ID: "b"}}, apperrors.ErrCodeInvalidInput},
		{
			"preset coordinate out of range",
			[]models.Member{{ID: "a", RawLocation: "a"}, {ID: "b", ResolvedCoordinate: &models.Coordinate{Lat: 91}}},
			apperrors.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMeetingContext(models.MeetingContext{Members: tt.members})
			require.Error(t, err)
			assert.Equal(t, tt.expectedCode, apperrors.Normalize(err).Code)
			assert.True(t, apperrors.IsFatal(err))
		})
	}

	assert.NoError(t, ValidateMeetingContext(meeting(testMembers())))
}

// ==========================
// Coordinator
// ==========================

func TestCoordinate_HappyPath(t *testing.T) {
	places := &fakePlaces{venues: []models.VenueCandidate{
		venue("low", nearPoint, 6.0),
		venue("high", nearPoint, 9.0),
	}}
	co := newTestCoordinator(t, places, fakeCounter{})

	result, err := co.Coordinate(context.Background(), meeting(testMembers()))
	require.NoError(t, err)

	assert.Equal(t, "req-1", result.RequestID)
	assert.Equal(t, models.MethodGeometricMedian, result.FairPoint.Method)
	assert.Equal(t, models.IntentSourceFallback, result.Intent.Source)
	assert.Contains(t, result.Intent.CategoryHints, "cafe")
	assert.False(t, result.NoVenuesFound)
	assert.Empty(t, result.PartialFailures)

	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, "high", result.Recommendations[0].Venue.ID)
	assert.Equal(t, 1, result.Recommendations[0].Rank)
	assert.Equal(t, "low", result.Recommendations[1].Venue.ID)

	for _, rec := range result.Recommendations {
		assert.Len(t, rec.PerMemberTravel, 3)
		assert.Len(t, rec.PerMemberExplanation, 3)
		assert.InDelta(t, 0.78, rec.SafetyScoreNormalized, 1e-9)
	}
	assert.Equal(t, 4, result.Safety.EmergencyServiceCount)
	assert.False(t, result.Safety.IsNight)
}

func TestCoordinate_MemberOrderDoesNotChangeResult(t *testing.T) {
	places := &fakePlaces{venues: []models.VenueCandidate{
		venue("a", nearPoint, 7.0),
		venue("b", models.Coordinate{Lat: 12.9650, Lng: 77.6100}, 7.0),
	}}
	co := newTestCoordinator(t, places, fakeCounter{})

	members := testMembers()
	reversed := []models.Member{members[2], members[1], members[0]}

	first, err := co.Coordinate(context.Background(), meeting(members))
	require.NoError(t, err)
	second, err := co.Coordinate(context.Background(), meeting(reversed))
	require.NoError(t, err)

	assert.Equal(t, first.FairPoint, second.FairPoint)
	assert.Equal(t, first.Intent, second.Intent)
	assert.Equal(t, "catch up over coffee good coffee quiet place", first.Intent.SearchQuery)
	require.Len(t, second.Recommendations, len(first.Recommendations))
	for i := range first.Recommendations {
		assert.Equal(t, first.Recommendations[i].Venue.ID, second.Recommendations[i].Venue.ID)
		assert.InDelta(t, first.Recommendations[i].CompositeScore, second.Recommendations[i].CompositeScore, 1e-9)
	}
}

func TestCoordinate_DivergingVenueGetsOwnSafety(t *testing.T) {
	places := &fakePlaces{venues: []models.VenueCandidate{
		venue("near", nearPoint, 8.0),
		venue("far", farPoint, 8.0),
	}}
	co := newTestCoordinator(t, places, fakeCounter{})

	result, err := co.Coordinate(context.Background(), meeting(testMembers()))
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 2)

	byID := map[string]models.RankedRecommendation{}
	for _, r := range result.Recommendations {
		byID[r.Venue.ID] = r
	}
	assert.InDelta(t, 0.78, byID["near"].SafetyScoreNormalized, 1e-9)
	assert.InDelta(t, 0.50, byID["far"].SafetyScoreNormalized, 1e-9)
	assert.Equal(t, "near", result.Recommendations[0].Venue.ID)
}

func TestCoordinate_UnresolvedMemberUsesDefault(t *testing.T) {
	places := &fakePlaces{venues: []models.VenueCandidate{venue("a", nearPoint, 8.0)}}
	co := newTestCoordinator(t, places, fakeCounter{})

	members := testMembers()
	members[2].RawLocation = "somewhere unknown"

	result, err := co.Coordinate(context.Background(), meeting(members))
	require.NoError(t, err)

	require.Len(t, result.PartialFailures, 1)
	assert.Equal(t, "geocoder", result.PartialFailures[0].Collaborator)
	assert.Equal(t, "resolve:m3", result.PartialFailures[0].Operation)
	require.Len(t, result.Recommendations, 1)
	assert.Len(t, result.Recommendations[0].PerMemberTravel, 3)
}

func TestCoordinate_NoVenuesFound(t *testing.T) {
	co := newTestCoordinator(t, &fakePlaces{}, fakeCounter{})

	result, err := co.Coordinate(context.Background(), meeting(testMembers()))
	require.NoError(t, err)

	assert.True(t, result.NoVenuesFound)
	assert.NotNil(t, result.Recommendations)
	assert.Empty(t, result.Recommendations)
	assert.Equal(t, result.FairPoint.Coordinate(), result.Safety.Coordinate)
}

func TestCoordinate_CollaboratorsDownStillReturnsResult(t *testing.T) {
	places := &fakePlaces{err: apperrors.ErrUnavailable}
	co := newTestCoordinator(t, places, fakeCounter{err: apperrors.ErrTimeout})

	result, err := co.Coordinate(context.Background(), meeting(testMembers()))
	require.NoError(t, err)

	assert.True(t, result.NoVenuesFound)
	assert.Equal(t, 0, result.Safety.EmergencyServiceCount)
	assert.Equal(t, 50.0, result.Safety.SafetyScore)

	collaborators := map[string]bool{}
	for _, f := range result.PartialFailures {
		collaborators[f.Collaborator] = true
	}
	assert.True(t, collaborators["place_search"])
	assert.True(t, collaborators["activity_lookup"])
}

func TestCoordinate_InsufficientMembers(t *testing.T) {
	places := &fakePlaces{}
	co := newTestCoordinator(t, places, fakeCounter{})

	_, err := co.Coordinate(context.Background(), meeting(testMembers()[:1]))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInsufficientMembers, apperrors.Normalize(err).Code)
	assert.Zero(t, places.calls)
}

// ==========================
// Handler
// ==========================

func TestExecute(t *testing.T) {
	places := &fakePlaces{venues: []models.VenueCandidate{venue("a", nearPoint, 8.0)}}
	co := newTestCoordinator(t, places, fakeCounter{})

	h := NewHandler(LoadConfig(), co.c, nil, nil, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{
		Members:     testMembers(),
		MeetingTime: "2026-10-16T12:00:00",
		Purpose:     "coffee",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Result.RequestID)
	require.Len(t, out.Result.Recommendations, 1)
	assert.Equal(t, "a", out.Result.Recommendations[0].Venue.ID)
}
