// internal/workers/meetup/assess-area-safety/scorer.go
package assessareasafety

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/common/foursquare"
	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/common/metrics"
	"meetup-workers/internal/common/retry"
	"meetup-workers/internal/models"

	"golang.org/x/sync/errgroup"
)

const (
	baselineScore      = 50.0
	emergencyWeight    = 5.0
	emergencyCap       = 20.0
	openVenueWeight    = 2.0
	openVenueCap       = 20.0
	nightPenalty       = 15.0
	collaboratorLookup = "activity_lookup"
)

// NearbyCounter is the emergency and activity lookup collaborator.
type NearbyCounter interface {
	CountNearby(ctx context.Context, coord models.Coordinate, category string, radiusMeters int) (int, error)
}

// Scorer assesses how safe a meeting point is at a given time. It never
// fails: a failed lookup counts as zero and is reported.
type Scorer struct {
	lookup NearbyCounter
	policy *retry.Policy
	config *Config
	now    func() time.Time
	logger logger.Logger
}

func NewScorer(lookup NearbyCounter, policy *retry.Policy, config *Config, log logger.Logger) *Scorer {
	return &Scorer{lookup: lookup, policy: policy, config: config, now: time.Now, logger: log}
}

// WithClock replaces the clock used when no meeting time is given.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Assess runs both lookups concurrently and scores the result.
func (s *Scorer) Assess(ctx context.Context, at models.Coordinate, meetingTime string) (models.SafetyAssessment, []models.CollaboratorFailure) {
	when := s.meetingTime(meetingTime)
	night := s.isNight(when)

	var (
		emergency, open       int
		emergencyErr, openErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		emergency, emergencyErr = s.count(gctx, at, foursquare.CategoryEmergency)
		return nil
	})
	g.Go(func() error {
		open, openErr = s.count(gctx, at, foursquare.CategoryOpenVenue)
		return nil
	})
	_ = g.Wait()

	var failures []models.CollaboratorFailure
	if emergencyErr != nil {
		emergency = 0
		failures = append(failures, s.failure("count_emergency_services", emergencyErr))
	}
	if openErr != nil {
		open = 0
		failures = append(failures, s.failure("count_open_venues", openErr))
	}

	score := Score(emergency, open, night)
	assessment := models.SafetyAssessment{
		Coordinate:            at,
		IsNight:               night,
		EmergencyServiceCount: emergency,
		OpenVenueNearbyCount:  open,
		SafetyScore:           score,
		SafetyLevel:           Level(score),
	}
	assessment.Explanation = Explain(assessment)
	return assessment, failures
}

// count runs one lookup under the shared retry policy.
func (s *Scorer) count(ctx context.Context, at models.Coordinate, category string) (int, error) {
	var n int
	attempts, err := s.policy.Do(ctx, func(ctx context.Context) error {
		c, err := s.lookup.CountNearby(ctx, at, category, s.config.RadiusMeters)
		if err != nil {
			return err
		}
		n = c
		return nil
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("%s lookup after %d attempts: %w", category, attempts, err)
	}
	return n, nil
}

// Score combines the counts into a 0-100 score.
func Score(emergency, open int, night bool) float64 {
	score := baselineScore +
		math.Min(float64(emergency)*emergencyWeight, emergencyCap) +
		math.Min(float64(open)*openVenueWeight, openVenueCap)
	if night {
		score -= nightPenalty
	}
	return math.Max(0, math.Min(100, score))
}

func Level(score float64) models.SafetyLevel {
	switch {
	case score >= 80:
		return models.SafetyVerySafe
	case score >= 65:
		return models.SafetySafe
	case score >= 50:
		return models.SafetyModerate
	case score >= 35:
		return models.SafetyCaution
	default:
		return models.SafetyHighCaution
	}
}

// Explain summarises the assessment in one or two sentences.
func Explain(a models.SafetyAssessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s area: %d emergency service%s and %d open venue%s nearby.",
		a.SafetyLevel,
		a.EmergencyServiceCount, plural(a.EmergencyServiceCount),
		a.OpenVenueNearbyCount, plural(a.OpenVenueNearbyCount))
	if a.IsNight {
		b.WriteString(" Meeting after dark, so prefer well-lit venues and travel together.")
	}
	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// isNight reports whether the hour falls in [start, end) wrapping midnight.
func (s *Scorer) isNight(t time.Time) bool {
	h := t.Hour()
	start, end := s.config.NightStartHour, s.config.NightEndHour
	if start == end {
		return false
	}
	if start < end {
		return h >= start && h < end
	}
	return h >= start || h < end
}

var meetingTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// meetingTime parses the requested time, falling back to the clock. A bare
// "15:04" is taken as today on the clock's date.
func (s *Scorer) meetingTime(raw string) time.Time {
	now := s.now()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now
	}
	for _, layout := range meetingTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	if t, err := time.Parse("15:04", raw); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	}
	s.logger.Warn("unparseable meeting time, using current time", map[string]interface{}{
		"meetingTime": raw,
	})
	return now
}

func (s *Scorer) failure(operation string, err error) models.CollaboratorFailure {
	f := apperrors.NewCollaboratorFailure(collaboratorLookup, operation, "counted as zero", err)
	metrics.RecordCollaboratorFailure(f.Collaborator, f.Code)
	s.logger.Warn("safety lookup failed", map[string]interface{}{
		"operation": operation,
		"error":     err.Error(),
	})
	return f
}
