// internal/workers/meetup/search-venues/handler_test.go
package searchvenues

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/common/retry"
	"meetup-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type searchCall struct {
	req models.PlaceSearch
}

// fakePlaces answers each Search call from a queue of scripted responses.
type fakePlaces struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     []searchCall
	details   map[string]models.VenueCandidate
	detailErr error
}

type fakeResponse struct {
	venues []models.VenueCandidate
	err    error
}

func (f *fakePlaces) Search(_ context.Context, req models.PlaceSearch) ([]models.VenueCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, searchCall{req: req})
	if len(f.responses) == 0 {
		return nil, nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r.venues, r.err
}

func (f *fakePlaces) Details(_ context.Context, id string) (models.VenueCandidate, error) {
	if f.detailErr != nil {
		return models.VenueCandidate{}, f.detailErr
	}
	if v, ok := f.details[id]; ok {
		return v, nil
	}
	return models.VenueCandidate{}, apperrors.ErrNotFound
}

func fastPolicy() *retry.Policy {
	return &retry.Policy{
		RateLimitRetries: 2,
		ErrorRetries:     1,
		InitialInterval:  time.Millisecond,
		Multiplier:       2,
		MaxInterval:      5 * time.Millisecond,
	}
}

func testConfig() *Config {
	cfg := LoadConfig()
	cfg.DetailsEnrichLimit = 0
	return cfg
}

func fullIntent() models.IntentProfile {
	return models.IntentProfile{
		SearchQuery:   "quiet cafe",
		CategoryHints: []string{"cafe", "bakery"},
	}
}

var fairPoint = models.Coordinate{Lat: 12.95, Lng: 77.62}

func venue(id string) models.VenueCandidate {
	return models.VenueCandidate{ID: id, Name: "Venue " + id, Coordinate: fairPoint}
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

// ==========================
// Fallback chain
// ==========================

func TestSearch_ExhaustionMakesExactlyFourCalls(t *testing.T) {
	places := &fakePlaces{}
	var events []StageEvent
	o := NewOrchestrator(places, fastPolicy(), testConfig(), logger.NewTestLogger(t)).
		WithObserver(func(ev StageEvent) { events = append(events, ev) })

	res := o.Search(context.Background(), fairPoint, fullIntent(), 3000, 10)

	assert.True(t, res.NoVenuesFound)
	assert.NotNil(t, res.Venues)
	assert.Empty(t, res.Venues)
	assert.Empty(t, res.PartialFailures)
	require.Len(t, places.calls, 4)

	assert.Equal(t, []string{"cafe"}, places.calls[0].req.Categories)
	assert.Equal(t, "quiet cafe", places.calls[1].req.Query)
	assert.Equal(t, 6000, places.calls[2].req.RadiusMeters)
	assert.Equal(t, places.calls[1].req.Query, places.calls[2].req.Query)
	assert.Empty(t, places.calls[2].req.Categories)
	assert.Equal(t, []string{"restaurant", "cafe"}, places.calls[3].req.Categories)

	require.Len(t, events, 5)
	assert.Equal(t, StageExhausted, events[4].Stage)
}

func TestSearch_StopsAtFirstProductiveStage(t *testing.T) {
	places := &fakePlaces{responses: []fakeResponse{
		{venues: nil},
		{venues: []models.VenueCandidate{venue("a"), venue("b")}},
	}}
	o := NewOrchestrator(places, fastPolicy(), testConfig(), logger.NewTestLogger(t))

	res := o.Search(context.Background(), fairPoint, fullIntent(), 3000, 10)

	assert.False(t, res.NoVenuesFound)
	assert.Equal(t, StageQuery, res.Stage)
	assert.Len(t, res.Venues, 2)
	assert.Len(t, places.calls, 2)
}

func TestSearch_WidenedRadiusIsCapped(t *testing.T) {
	places := &fakePlaces{}
	o := NewOrchestrator(places, fastPolicy(), testConfig(), logger.NewTestLogger(t))

	o.Search(context.Background(), fairPoint, fullIntent(), 8000, 10)
	require.Len(t, places.calls, 4)
	assert.Equal(t, 10000, places.calls[2].req.RadiusMeters)
}

func TestSearch_SkipsCategoryStageWithoutHints(t *testing.T) {
	places := &fakePlaces{}
	var skipped []Stage
	o := NewOrchestrator(places, fastPolicy(), testConfig(), logger.NewTestLogger(t)).
		WithObserver(func(ev StageEvent) {
			if ev.Skipped {
				skipped = append(skipped, ev.Stage)
			}
		})

	o.Search(context.Background(), fairPoint, models.IntentProfile{SearchQuery: "board games"}, 3000, 10)

	assert.Equal(t, []Stage{StageCategory}, skipped)
	require.Len(t, places.calls, 3)
	assert.Equal(t, "board games", places.calls[1].req.Query, "widened stage reuses the query")
}

func TestSearch_SkipsQueryAndWidenedStagesWithoutQuery(t *testing.T) {
	places := &fakePlaces{}
	var skipped []Stage
	o := NewOrchestrator(places, fastPolicy(), testConfig(), logger.NewTestLogger(t)).
		WithObserver(func(ev StageEvent) {
			if ev.Skipped {
				skipped = append(skipped, ev.Stage)
			}
		})

	o.Search(context.Background(), fairPoint, models.IntentProfile{CategoryHints: []string{"cafe", "bakery"}}, 3000, 10)

	assert.Equal(t, []Stage{StageQuery, StageWidened}, skipped)
	require.Len(t, places.calls, 2)
	assert.Equal(t, []string{"cafe"}, places.calls[0].req.Categories)
	assert.Equal(t, []string{"restaurant", "cafe"}, places.calls[1].req.Categories)
	assert.Equal(t, 6000, places.calls[1].req.RadiusMeters)
}

func TestSearch_DedupesAndTruncates(t *testing.T) {
	places := &fakePlaces{responses: []fakeResponse{
		{venues: []models.VenueCandidate{venue("a"), venue("b"), venue("a"), venue("c"), venue("d")}},
	}}
	o := NewOrchestrator(places, fastPolicy(), testConfig(), logger.NewTestLogger(t))

	res := o.Search(context.Background(), fairPoint, fullIntent(), 3000, 3)

	require.Len(t, res.Venues, 3)
	assert.Equal(t, "a", res.Venues[0].ID)
	assert.Equal(t, "b", res.Venues[1].ID)
	assert.Equal(t, "c", res.Venues[2].ID)
}

func TestSearch_BudgetBecomesPriceRange(t *testing.T) {
	places := &fakePlaces{}
	o := NewOrchestrator(places, fastPolicy(), testConfig(), logger.NewTestLogger(t))

	intent := fullIntent()
	intent.BudgetTier = models.BudgetLow
	o.Search(context.Background(), fairPoint, intent, 3000, 10)

	require.Len(t, places.calls, 4)
	assert.Equal(t, 1, places.calls[0].req.MinPrice)
	assert.Equal(t, 2, places.calls[0].req.MaxPrice)
	assert.Equal(t, 0, places.calls[3].req.MaxPrice, "generic stage drops the price filter")
}

// ==========================
// Retries
// ==========================

func TestSearch_RateLimitedIsRetriedTwice(t *testing.T) {
	places := &fakePlaces{responses: []fakeResponse{
		{err: apperrors.ErrRateLimited},
		{err: apperrors.ErrRateLimited},
		{venues: []models.VenueCandidate{venue("a")}},
	}}
	var first StageEvent
	o := NewOrchestrator(places, fastPolicy(), testConfig(), logger.NewTestLogger(t)).
		WithObserver(func(ev StageEvent) {
			if ev.Stage == StageCategory {
				first = ev
			}
		})

	res := o.Search(context.Background(), fairPoint, fullIntent(), 3000, 10)

	assert.Equal(t, StageCategory, res.Stage)
	assert.Equal(t, 3, first.Attempts)
	assert.Empty(t, res.PartialFailures)
}

func TestSearch_RateLimitBudgetExhaustedMovesOn(t *testing.T) {
	places := &fakePlaces{responses: []fakeResponse{
		{err: apperrors.ErrRateLimited},
		{err: apperrors.ErrRateLimited},
		{err: apperrors.ErrRateLimited},
		{venues: []models.VenueCandidate{venue("q")}},
	}}
	o := NewOrchestrator(places, fastPolicy(), testConfig(), logger.NewTestLogger(t))

	res := o.Search(context.Background(), fairPoint, fullIntent(), 3000, 10)

	assert.Equal(t, StageQuery, res.Stage)
	assert.Len(t, places.calls, 4)
	require.Len(t, res.PartialFailures, 1)
	assert.Equal(t, string(apperrors.ErrCodeCollaboratorRateLimited), res.PartialFailures[0].Code)
	assert.Equal(t, string(StageCategory), res.PartialFailures[0].Operation)
}

func TestSearch_OtherErrorsRetriedOnce(t *testing.T) {
	boom := errors.New("connection reset")
	places := &fakePlaces{responses: []fakeResponse{
		{err: boom},
		{err: boom},
		{venues: []models.VenueCandidate{venue("q")}},
	}}
	o := NewOrchestrator(places, fastPolicy(), testConfig(), logger.NewTestLogger(t))

	res := o.Search(context.Background(), fairPoint, fullIntent(), 3000, 10)

	assert.Equal(t, StageQuery, res.Stage)
	assert.Len(t, places.calls, 3)
	require.Len(t, res.PartialFailures, 1)
	assert.Equal(t, string(apperrors.ErrCodeCollaboratorUnavailable), res.PartialFailures[0].Code)
}

// ==========================
// Details enrichment
// ==========================

func TestSearch_EnrichesMissingRating(t *testing.T) {
	rated := venue("b")
	rated.RatingRaw = ptrFloat(7.5)
	rated.PriceTier = ptrInt(2)

	places := &fakePlaces{
		responses: []fakeResponse{{venues: []models.VenueCandidate{venue("a"), rated}}},
		details: map[string]models.VenueCandidate{
			"a": {ID: "a", RatingRaw: ptrFloat(9.1), PriceTier: ptrInt(3)},
		},
	}
	cfg := testConfig()
	cfg.DetailsEnrichLimit = 5
	o := NewOrchestrator(places, fastPolicy(), cfg, logger.NewTestLogger(t))

	res := o.Search(context.Background(), fairPoint, fullIntent(), 3000, 10)

	require.Len(t, res.Venues, 2)
	require.NotNil(t, res.Venues[0].RatingRaw)
	assert.Equal(t, 9.1, *res.Venues[0].RatingRaw)
	assert.Equal(t, "Venue a", res.Venues[0].Name)
	assert.Equal(t, 7.5, *res.Venues[1].RatingRaw)
}

func TestSearch_EnrichmentFailureIsPartial(t *testing.T) {
	places := &fakePlaces{
		responses: []fakeResponse{{venues: []models.VenueCandidate{venue("a")}}},
		detailErr: apperrors.ErrTimeout,
	}
	cfg := testConfig()
	cfg.DetailsEnrichLimit = 1
	o := NewOrchestrator(places, fastPolicy(), cfg, logger.NewTestLogger(t))

	res := o.Search(context.Background(), fairPoint, fullIntent(), 3000, 10)

	require.Len(t, res.Venues, 1)
	assert.Nil(t, res.Venues[0].RatingRaw)
	require.Len(t, res.PartialFailures, 1)
	assert.Equal(t, "details", res.PartialFailures[0].Operation)
	assert.Equal(t, string(apperrors.ErrCodeCollaboratorTimeout), res.PartialFailures[0].Code)
}

// ==========================
// Handler
// ==========================

func TestExecute_InvalidFairPoint(t *testing.T) {
	h := NewHandler(testConfig(), &fakePlaces{}, fastPolicy(), logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{FairPoint: models.FairPoint{Lat: 123, Lng: 0}})
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, stdErr.Code)
}

func TestExecute_NoVenuesIsNotAnError(t *testing.T) {
	h := NewHandler(testConfig(), &fakePlaces{}, fastPolicy(), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{
		FairPoint: models.FairPoint{Lat: fairPoint.Lat, Lng: fairPoint.Lng},
		Intent:    fullIntent(),
	})
	require.NoError(t, err)
	assert.True(t, out.NoVenuesFound)
	assert.Empty(t, out.Venues)
}
