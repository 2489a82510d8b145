// internal/workers/meetup/coordinate-group-meetup/coordinator.go
package coordinategroupmeetup

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/common/metrics"
	"meetup-workers/internal/common/observability"
	"meetup-workers/internal/models"
	explainrecommendations "meetup-workers/internal/workers/ai-conversation/explain-recommendations"
	parsegroupintent "meetup-workers/internal/workers/ai-conversation/parse-group-intent"
	assessareasafety "meetup-workers/internal/workers/meetup/assess-area-safety"
	calculatetravelcost "meetup-workers/internal/workers/meetup/calculate-travel-cost"
	computefairpoint "meetup-workers/internal/workers/meetup/compute-fair-point"
	rankvenues "meetup-workers/internal/workers/meetup/rank-venues"
	resolvememberlocations "meetup-workers/internal/workers/meetup/resolve-member-locations"
	searchvenues "meetup-workers/internal/workers/meetup/search-venues"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	outcomeOK       = "ok"
	outcomeNoVenues = "no_venues"
)

// Components are the pipeline stages. Every field is required.
type Components struct {
	Resolver  *resolvememberlocations.Resolver
	FairPoint *computefairpoint.Calculator
	Intent    *parsegroupintent.Normalizer
	Search    *searchvenues.Orchestrator
	Travel    *calculatetravelcost.Calculator
	Safety    *assessareasafety.Scorer
	Ranker    *rankvenues.Ranker
	Explainer *explainrecommendations.Explainer
}

// Coordinator runs one meetup coordination request end to end. Past input
// validation it always returns a result; collaborator failures are absorbed
// and reported in PartialFailures.
type Coordinator struct {
	c      Components
	config *Config
	obs    *observability.Observability
	logger logger.Logger
	newID  func() string
}

func NewCoordinator(components Components, config *Config, obs *observability.Observability, log logger.Logger) *Coordinator {
	return &Coordinator{
		c:      components,
		config: config,
		obs:    obs,
		logger: log,
		newID:  uuid.NewString,
	}
}

// failureLog collects partial failures from concurrent stages. all() is
// ordered by collaborator and operation.
type failureLog struct {
	mu   sync.Mutex
	list []models.CollaboratorFailure
}

func (f *failureLog) add(items ...models.CollaboratorFailure) {
	if len(items) == 0 {
		return
	}
	f.mu.Lock()
	f.list = append(f.list, items...)
	f.mu.Unlock()
}

func (f *failureLog) all() []models.CollaboratorFailure {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.CollaboratorFailure, len(f.list))
	copy(out, f.list)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Collaborator != out[j].Collaborator {
			return out[i].Collaborator < out[j].Collaborator
		}
		return out[i].Operation < out[j].Operation
	})
	return out
}

// ValidateMeetingContext rejects requests that cannot be coordinated.
func ValidateMeetingContext(mc models.MeetingContext) error {
	if len(mc.Members) < 2 {
		return apperrors.NewInsufficientMembersError(len(mc.Members))
	}
	seen := make(map[string]bool, len(mc.Members))
	for i, m := range mc.Members {
		if m.ID == "" {
			return apperrors.NewInvalidInputError("member id is required").WithMetadata("index", i)
		}
		if seen[m.ID] {
			return apperrors.NewInvalidInputError("duplicate member id " + m.ID)
		}
		seen[m.ID] = true
		if m.RawLocation == "" && m.ResolvedCoordinate == nil {
			return apperrors.NewInvalidInputError("member " + m.ID + " has no location")
		}
		if m.ResolvedCoordinate != nil && !m.ResolvedCoordinate.Valid() {
			return apperrors.NewInvalidInputError("member " + m.ID + " coordinate out of range")
		}
	}
	return nil
}

// Coordinate resolves members, finds the fair point, searches and ranks
// venues and explains the shortlist.
func (co *Coordinator) Coordinate(ctx context.Context, mc models.MeetingContext) (*models.CoordinationResult, error) {
	start := time.Now()
	if err := ValidateMeetingContext(mc); err != nil {
		co.obs.RecordCoordination(ctx, string(apperrors.Normalize(err).Code), time.Since(start), 0)
		return nil, err
	}

	requestID := co.newID()
	log := co.logger.WithFields(map[string]interface{}{"requestId": requestID})

	if co.config.RequestDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, co.config.RequestDeadline)
		defer cancel()
	}

	failures := &failureLog{}

	members, providers, resolveFailures := co.c.Resolver.Resolve(ctx, mc.Members)
	failures.add(resolveFailures...)
	log.Info("members resolved", map[string]interface{}{
		"members":   len(members),
		"providers": providers,
	})

	coords := make([]models.Coordinate, 0, len(members))
	for _, m := range members {
		if m.ResolvedCoordinate != nil {
			coords = append(coords, *m.ResolvedCoordinate)
		}
	}
	fairPoint, iterations := co.c.FairPoint.Compute(coords)
	metrics.FairPointMethods.WithLabelValues(string(fairPoint.Method)).Inc()
	log.Info("fair point computed", map[string]interface{}{
		"fairPoint":  fairPoint.Coordinate().String(),
		"method":     fairPoint.Method,
		"iterations": iterations,
	})

	intent, intentFailure := co.c.Intent.Normalize(ctx, members, mc.PurposeText, mc.MeetingTimeISO8601)
	if intentFailure != nil {
		failures.add(*intentFailure)
	}

	search := co.c.Search.Search(ctx, fairPoint.Coordinate(), intent, co.config.RadiusMeters, co.config.MaxResults)
	failures.add(search.PartialFailures...)

	travel, safety, venueSafety := co.travelAndSafety(ctx, members, search.Venues, fairPoint, mc.MeetingTimeISO8601, failures)

	recs := co.c.Ranker.Rank(rankvenues.Request{
		Candidates:  search.Venues,
		Intent:      intent,
		Travel:      travel,
		Safety:      safety,
		VenueSafety: venueSafety,
		TopN:        co.config.TopN,
	})

	if len(recs) > 0 {
		explained, explainFailures := co.c.Explainer.Explain(ctx, recs, members, intent)
		recs = explained
		failures.add(explainFailures...)
	}

	result := &models.CoordinationResult{
		RequestID:       requestID,
		FairPoint:       fairPoint,
		Intent:          intent,
		Recommendations: recs,
		Safety:          safety,
		PartialFailures: failures.all(),
		NoVenuesFound:   search.NoVenuesFound,
	}
	if result.Recommendations == nil {
		result.Recommendations = []models.RankedRecommendation{}
	}

	outcome := outcomeOK
	if result.NoVenuesFound {
		outcome = outcomeNoVenues
	}
	duration := time.Since(start)
	co.obs.RecordCoordination(ctx, outcome, duration, len(result.PartialFailures))

	log.Info("coordination finished", map[string]interface{}{
		"outcome":         outcome,
		"searchStage":     search.Stage,
		"candidates":      len(search.Venues),
		"recommendations": len(result.Recommendations),
		"partialFailures": len(result.PartialFailures),
		"durationMs":      duration.Milliseconds(),
	})
	return result, nil
}

// travelAndSafety computes the travel matrix while the safety lookups run.
// Candidates farther than the divergence threshold from the fair point get
// their own assessment.
func (co *Coordinator) travelAndSafety(ctx context.Context, members []models.Member, venues []models.VenueCandidate, fp models.FairPoint, meetingTime string, failures *failureLog) (map[string][]models.MemberTravel, models.SafetyAssessment, map[string]models.SafetyAssessment) {
	var (
		matrix      [][]models.MemberTravel
		safety      models.SafetyAssessment
		venueSafety = map[string]models.SafetyAssessment{}
		mu          sync.Mutex
	)

	var g errgroup.Group
	g.Go(func() error {
		// Pure computation; it must finish even when the deadline has passed.
		m, err := co.c.Travel.Matrix(context.WithoutCancel(ctx), members, venues, co.config.TravelMode)
		matrix = m
		return err
	})
	g.Go(func() error {
		a, f := co.c.Safety.Assess(ctx, fp.Coordinate(), meetingTime)
		safety = a
		failures.add(f...)
		return nil
	})

	diverging := co.divergingVenues(venues, fp.Coordinate())
	if len(diverging) > 0 {
		sg, sctx := errgroup.WithContext(ctx)
		if co.config.MaxConcurrency > 0 {
			sg.SetLimit(co.config.MaxConcurrency)
		}
		g.Go(func() error {
			for _, v := range diverging {
				v := v
				sg.Go(func() error {
					a, f := co.c.Safety.Assess(sctx, v.Coordinate, meetingTime)
					failures.add(f...)
					mu.Lock()
					venueSafety[v.ID] = a
					mu.Unlock()
					return nil
				})
			}
			return sg.Wait()
		})
	}

	if err := g.Wait(); err != nil {
		co.logger.Warn("travel matrix incomplete", map[string]interface{}{"error": err.Error()})
	}

	travel := make(map[string][]models.MemberTravel, len(venues))
	for i, v := range venues {
		if i < len(matrix) {
			travel[v.ID] = matrix[i]
		}
	}
	return travel, safety, venueSafety
}

func (co *Coordinator) divergingVenues(venues []models.VenueCandidate, fp models.Coordinate) []models.VenueCandidate {
	if co.config.DivergenceThresholdKm <= 0 {
		return nil
	}
	var out []models.VenueCandidate
	for _, v := range venues {
		if calculatetravelcost.Distance(fp, v.Coordinate) > co.config.DivergenceThresholdKm {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
