// internal/workers/meetup/rank-venues/handler_test.go
package rankvenues

import (
	"context"
	"testing"

	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func rating(v float64) *float64 { return &v }

func candidate(id string, r *float64, tags ...string) models.VenueCandidate {
	return models.VenueCandidate{ID: id, Name: "Venue " + id, RatingRaw: r, CategoryTags: tags}
}

// travelFor builds per-member travel with the given minutes; distance mirrors time.
func travelFor(venueID string, minutes ...float64) []models.MemberTravel {
	out := make([]models.MemberTravel, len(minutes))
	for i, m := range minutes {
		out[i] = models.MemberTravel{
			MemberID:          string(rune('a' + i)),
			VenueID:           venueID,
			DistanceKm:        m / 3,
			TravelTimeMinutes: m,
			Mode:              models.ModeTransit,
		}
	}
	return out
}

func defaultSafety() models.SafetyAssessment {
	return models.SafetyAssessment{SafetyScore: 60}
}

// ==========================
// Component scores
// ==========================

func TestQualityScore(t *testing.T) {
	assert.Equal(t, 0.5, QualityScore(candidate("x", nil)))
	assert.InDelta(t, 0.87, QualityScore(candidate("x", rating(8.7))), 1e-12)
	assert.Equal(t, 1.0, QualityScore(candidate("x", rating(11))))
	assert.Equal(t, 0.0, QualityScore(candidate("x", rating(-1))))
}

func TestFairnessScore(t *testing.T) {
	tests := []struct {
		name    string
		minutes []float64
		want    float64
	}{
		{"no travel", nil, 1},
		{"all zero", []float64{0, 0, 0}, 1},
		{"equal times", []float64{20, 20, 20}, 1},
		{"spread", []float64{10, 30}, 0.75},
		{"extreme spread clamps at zero", []float64{0, 0, 0, 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FairnessScore(travelFor("v", tt.minutes...)), 1e-12)
		})
	}
}

func TestFairnessScore_ZeroVarianceIsStrictlyHigher(t *testing.T) {
	even := FairnessScore(travelFor("v", 25, 25, 25))
	uneven := FairnessScore(travelFor("v", 15, 25, 35))
	assert.Greater(t, even, uneven)
}

func TestNormalizeWeights(t *testing.T) {
	w := NormalizeWeights(Weights{Quality: 2, Fairness: 1, Safety: 1})
	assert.InDelta(t, 0.5, w.Quality, 1e-12)
	assert.InDelta(t, 0.25, w.Safety, 1e-12)

	zero := NormalizeWeights(Weights{})
	assert.InDelta(t, 1.0/3, zero.Fairness, 1e-12)
}

// ==========================
// Rank
// ==========================

func TestRank_HigherRatedFirst(t *testing.T) {
	r := NewRanker(LoadConfig())
	recs := r.Rank(Request{
		Candidates: []models.VenueCandidate{candidate("low", rating(6)), candidate("high", rating(9))},
		Travel: map[string][]models.MemberTravel{
			"low":  travelFor("low", 20, 20),
			"high": travelFor("high", 20, 20),
		},
		Safety: defaultSafety(),
	})

	require.Len(t, recs, 2)
	assert.Equal(t, "high", recs[0].Venue.ID)
	assert.Equal(t, 1, recs[0].Rank)
	assert.Equal(t, 2, recs[1].Rank)
	assert.InDelta(t, (0.9+1+0.6)/3, recs[0].CompositeScore, 1e-12)
}

func TestRank_TieBreaks(t *testing.T) {
	r := NewRanker(&Config{Weights: Weights{Quality: 1}})

	tests := []struct {
		name   string
		travel map[string][]models.MemberTravel
		want   []string
	}{
		{
			name: "lower max travel time wins",
			travel: map[string][]models.MemberTravel{
				"a": travelFor("a", 10, 40),
				"b": travelFor("b", 10, 30),
			},
			want: []string{"b", "a"},
		},
		{
			name: "lower mean distance wins",
			travel: map[string][]models.MemberTravel{
				"a": {{VenueID: "a", TravelTimeMinutes: 30, DistanceKm: 9}},
				"b": {{VenueID: "b", TravelTimeMinutes: 30, DistanceKm: 5}},
			},
			want: []string{"b", "a"},
		},
		{
			name: "input order breaks the final tie",
			travel: map[string][]models.MemberTravel{
				"a": travelFor("a", 30),
				"b": travelFor("b", 30),
			},
			want: []string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := r.Rank(Request{
				Candidates: []models.VenueCandidate{candidate("a", rating(8)), candidate("b", rating(8))},
				Travel:     tt.travel,
				TopN:       2,
			})
			require.Len(t, recs, 2)
			assert.Equal(t, tt.want, []string{recs[0].Venue.ID, recs[1].Venue.ID})
		})
	}
}

func TestRank_TopN(t *testing.T) {
	r := NewRanker(LoadConfig())
	var cands []models.VenueCandidate
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		cands = append(cands, candidate(id, rating(5)))
	}
	assert.Len(t, r.Rank(Request{Candidates: cands}), 3)
	assert.Len(t, r.Rank(Request{Candidates: cands, TopN: 1}), 1)
	assert.Empty(t, r.Rank(Request{}))
}

func TestRank_IsDeterministic(t *testing.T) {
	r := NewRanker(LoadConfig())
	req := Request{
		Candidates: []models.VenueCandidate{candidate("a", rating(7)), candidate("b", nil), candidate("c", rating(7))},
		Travel: map[string][]models.MemberTravel{
			"a": travelFor("a", 12, 18),
			"b": travelFor("b", 15, 15),
			"c": travelFor("c", 12, 18),
		},
		Safety: defaultSafety(),
	}
	first := r.Rank(req)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, r.Rank(req))
	}
}

func TestRank_DivergingVenueUsesOwnSafety(t *testing.T) {
	r := NewRanker(&Config{Weights: Weights{Safety: 1}})
	recs := r.Rank(Request{
		Candidates:  []models.VenueCandidate{candidate("near", nil), candidate("far", nil)},
		Safety:      models.SafetyAssessment{SafetyScore: 50},
		VenueSafety: map[string]models.SafetyAssessment{"far": {SafetyScore: 90}},
	})
	require.Len(t, recs, 2)
	assert.Equal(t, "far", recs[0].Venue.ID)
	assert.Equal(t, 0.9, recs[0].SafetyScoreNormalized)
	assert.Equal(t, 0.5, recs[1].SafetyScoreNormalized)
}

func TestRank_MustAvoid(t *testing.T) {
	r := NewRanker(LoadConfig())
	cands := []models.VenueCandidate{
		candidate("bar", rating(9.5), "pub", "bar"),
		candidate("cafe1", rating(7)),
		candidate("cafe2", rating(7.5)),
		candidate("cafe3", rating(6)),
	}

	t.Run("excluded when enough remain", func(t *testing.T) {
		recs := r.Rank(Request{Candidates: cands, Intent: models.IntentProfile{MustAvoid: []string{"Bar"}}})
		require.Len(t, recs, 3)
		for _, rec := range recs {
			assert.NotEqual(t, "bar", rec.Venue.ID)
		}
	})

	t.Run("demoted when exclusion leaves too few", func(t *testing.T) {
		recs := r.Rank(Request{Candidates: cands[:2], Intent: models.IntentProfile{MustAvoid: []string{"pub"}}})
		require.Len(t, recs, 2)
		assert.Equal(t, "cafe1", recs[0].Venue.ID)
		assert.Equal(t, "bar", recs[1].Venue.ID)
	})
}

// ==========================
// Handler
// ==========================

func TestExecute_GroupsFlatTravel(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))

	travel := append(travelFor("a", 10, 50), travelFor("b", 30, 30)...)
	out, err := h.Execute(context.Background(), &Input{
		Candidates: []models.VenueCandidate{candidate("a", rating(8)), candidate("b", rating(8))},
		Travel:     travel,
		Safety:     defaultSafety(),
	})
	require.NoError(t, err)
	require.Len(t, out.Recommendations, 2)
	assert.Equal(t, "b", out.Recommendations[0].Venue.ID)
	assert.Len(t, out.Recommendations[0].PerMemberTravel, 2)
}

func TestExecute_NegativeTopN(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))
	_, err := h.Execute(context.Background(), &Input{TopN: -1})
	assert.Error(t, err)
}
