// internal/workers/meetup/rank-venues/ranker.go
package rankvenues

import (
	"math"
	"sort"
	"strings"

	"meetup-workers/internal/models"
)

const unratedQuality = 0.5

// Request carries everything one ranking needs. Travel is keyed by venue id.
// VenueSafety overrides Safety for candidates that diverge from the fair point.
type Request struct {
	Candidates  []models.VenueCandidate
	Intent      models.IntentProfile
	Travel      map[string][]models.MemberTravel
	Safety      models.SafetyAssessment
	VenueSafety map[string]models.SafetyAssessment
	TopN        int
}

type Ranker struct {
	weights Weights
	topN    int
}

func NewRanker(cfg *Config) *Ranker {
	return &Ranker{weights: NormalizeWeights(cfg.Weights), topN: cfg.TopN}
}

// NormalizeWeights scales weights to sum to one. Non-positive totals fall
// back to equal thirds.
func NormalizeWeights(w Weights) Weights {
	if w.Quality < 0 {
		w.Quality = 0
	}
	if w.Fairness < 0 {
		w.Fairness = 0
	}
	if w.Safety < 0 {
		w.Safety = 0
	}
	sum := w.Quality + w.Fairness + w.Safety
	if sum <= 0 {
		return Weights{Quality: 1.0 / 3, Fairness: 1.0 / 3, Safety: 1.0 / 3}
	}
	return Weights{Quality: w.Quality / sum, Fairness: w.Fairness / sum, Safety: w.Safety / sum}
}

type scored struct {
	rec       models.RankedRecommendation
	index     int
	maxTravel float64
	meanDist  float64
	avoided   bool
}

// Rank scores every candidate and returns the top N. It is a pure function
// of its input.
func (r *Ranker) Rank(req Request) []models.RankedRecommendation {
	topN := req.TopN
	if topN <= 0 {
		topN = r.topN
	}
	if topN <= 0 {
		topN = 3
	}

	all := make([]scored, 0, len(req.Candidates))
	for i, v := range req.Candidates {
		travel := req.Travel[v.ID]
		safety := req.Safety
		if s, ok := req.VenueSafety[v.ID]; ok {
			safety = s
		}

		q := QualityScore(v)
		f := FairnessScore(travel)
		s := safety.SafetyScore / 100

		all = append(all, scored{
			rec: models.RankedRecommendation{
				Venue:                 v,
				QualityScore:          q,
				FairnessScore:         f,
				SafetyScoreNormalized: s,
				CompositeScore:        r.weights.Quality*q + r.weights.Fairness*f + r.weights.Safety*s,
				PerMemberTravel:       travel,
			},
			index:     i,
			maxTravel: maxTravelTime(travel),
			meanDist:  meanDistance(travel),
			avoided:   matchesAny(v, req.Intent.MustAvoid),
		})
	}

	kept := make([]scored, 0, len(all))
	var avoided []scored
	for _, s := range all {
		if s.avoided {
			avoided = append(avoided, s)
		} else {
			kept = append(kept, s)
		}
	}

	sortScored(kept)
	if len(kept) < topN {
		sortScored(avoided)
		kept = append(kept, avoided...)
	}
	if len(kept) > topN {
		kept = kept[:topN]
	}

	out := make([]models.RankedRecommendation, len(kept))
	for i, s := range kept {
		out[i] = s.rec
		out[i].Rank = i + 1
	}
	return out
}

func sortScored(list []scored) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.rec.CompositeScore != b.rec.CompositeScore {
			return a.rec.CompositeScore > b.rec.CompositeScore
		}
		if a.maxTravel != b.maxTravel {
			return a.maxTravel < b.maxTravel
		}
		if a.meanDist != b.meanDist {
			return a.meanDist < b.meanDist
		}
		return a.index < b.index
	})
}

// QualityScore maps a 0-10 rating onto 0-1. Unrated venues score 0.5.
func QualityScore(v models.VenueCandidate) float64 {
	if v.RatingRaw == nil {
		return unratedQuality
	}
	return math.Max(0, math.Min(1, *v.RatingRaw/10))
}

// FairnessScore is 1 - var/mean^2 of member travel times, clamped to [0,1].
func FairnessScore(travel []models.MemberTravel) float64 {
	if len(travel) == 0 {
		return 1
	}
	var sum float64
	for _, t := range travel {
		sum += t.TravelTimeMinutes
	}
	mean := sum / float64(len(travel))
	if mean == 0 {
		return 1
	}
	var variance float64
	for _, t := range travel {
		d := t.TravelTimeMinutes - mean
		variance += d * d
	}
	variance /= float64(len(travel))
	return math.Max(0, math.Min(1, 1-variance/(mean*mean)))
}

func maxTravelTime(travel []models.MemberTravel) float64 {
	var m float64
	for _, t := range travel {
		m = math.Max(m, t.TravelTimeMinutes)
	}
	return m
}

func meanDistance(travel []models.MemberTravel) float64 {
	if len(travel) == 0 {
		return 0
	}
	var sum float64
	for _, t := range travel {
		sum += t.DistanceKm
	}
	return sum / float64(len(travel))
}

// matchesAny reports whether any term appears in the venue name or categories.
func matchesAny(v models.VenueCandidate, terms []string) bool {
	name := strings.ToLower(v.Name)
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.Contains(name, term) {
			return true
		}
		for _, c := range v.CategoryTags {
			if strings.Contains(strings.ToLower(c), term) {
				return true
			}
		}
	}
	return false
}

// GroupTravel indexes a flat travel list by venue id, preserving order.
func GroupTravel(travel []models.MemberTravel) map[string][]models.MemberTravel {
	out := make(map[string][]models.MemberTravel)
	for _, t := range travel {
		out[t.VenueID] = append(out[t.VenueID], t)
	}
	return out
}
