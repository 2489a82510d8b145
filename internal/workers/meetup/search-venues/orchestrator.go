// internal/workers/meetup/search-venues/orchestrator.go
package searchvenues

import (
	"context"
	"strings"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/common/metrics"
	"meetup-workers/internal/common/retry"
	"meetup-workers/internal/models"

	"golang.org/x/sync/errgroup"
)

const collaboratorPlaceSearch = "place_search"

// PlaceSearchClient is satisfied by the Foursquare client and the
// Elasticsearch venue index.
type PlaceSearchClient interface {
	Search(ctx context.Context, req models.PlaceSearch) ([]models.VenueCandidate, error)
	Details(ctx context.Context, id string) (models.VenueCandidate, error)
}

// Observer receives every stage transition.
type Observer func(StageEvent)

// Orchestrator runs the venue search fallback chain. Each stage runs only
// when every earlier stage produced nothing.
type Orchestrator struct {
	places   PlaceSearchClient
	policy   *retry.Policy
	config   *Config
	logger   logger.Logger
	observer Observer
}

func NewOrchestrator(places PlaceSearchClient, policy *retry.Policy, config *Config, log logger.Logger) *Orchestrator {
	if policy == nil {
		policy = retry.DefaultPolicy()
	}
	return &Orchestrator{
		places: places,
		policy: policy,
		config: config,
		logger: log,
	}
}

// WithObserver registers an extra stage observer.
func (o *Orchestrator) WithObserver(obs Observer) *Orchestrator {
	o.observer = obs
	return o
}

type stage struct {
	name Stage
	req  models.PlaceSearch
	skip bool
}

// Search never fails. Collaborator errors end the stage they happened in
// and are reported as partial failures.
func (o *Orchestrator) Search(ctx context.Context, at models.Coordinate, intent models.IntentProfile, radiusMeters, maxResults int) Result {
	if radiusMeters <= 0 {
		radiusMeters = o.config.RadiusMeters
	}
	if maxResults <= 0 {
		maxResults = o.config.MaxResults
	}

	var failures []models.CollaboratorFailure
	for _, st := range o.stages(at, intent, radiusMeters, maxResults) {
		if st.skip {
			o.observe(StageEvent{Stage: st.name, Skipped: true})
			continue
		}

		venues, attempts, err := o.run(ctx, st)
		o.observe(StageEvent{Stage: st.name, Attempts: attempts, Results: len(venues), Err: err})
		if err != nil {
			failures = append(failures, o.failure(string(st.name), "next fallback stage", err))
		}

		venues = dedupe(venues, maxResults)
		if len(venues) > 0 {
			enriched, enrichFailures := o.enrich(ctx, venues)
			return Result{
				Venues:          enriched,
				Stage:           st.name,
				PartialFailures: append(failures, enrichFailures...),
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	o.observe(StageEvent{Stage: StageExhausted})
	return Result{
		Venues:          []models.VenueCandidate{},
		NoVenuesFound:   true,
		Stage:           StageExhausted,
		PartialFailures: failures,
	}
}

func (o *Orchestrator) stages(at models.Coordinate, intent models.IntentProfile, radiusMeters, maxResults int) []stage {
	minPrice, maxPrice := intent.PriceRange()
	base := models.PlaceSearch{
		Coordinate:   at,
		RadiusMeters: radiusMeters,
		Limit:        maxResults,
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
	}

	hints := nonEmpty(intent.CategoryHints)
	query := strings.TrimSpace(intent.SearchQuery)

	category := base
	if len(hints) > 0 {
		category.Categories = hints[:1]
	}

	byQuery := base
	byQuery.Query = query

	// widened repeats the query stage at a larger radius.
	widened := byQuery
	widened.RadiusMeters = widenRadius(radiusMeters, o.config.MaxRadiusMeters)

	generic := base
	generic.RadiusMeters = widened.RadiusMeters
	generic.Categories = o.config.GenericCategories
	generic.MinPrice, generic.MaxPrice = 0, 0

	return []stage{
		{name: StageCategory, req: category, skip: len(hints) == 0},
		{name: StageQuery, req: byQuery, skip: query == ""},
		{name: StageWidened, req: widened, skip: query == ""},
		{name: StageGeneric, req: generic, skip: len(generic.Categories) == 0},
	}
}

func (o *Orchestrator) run(ctx context.Context, st stage) ([]models.VenueCandidate, int, error) {
	var venues []models.VenueCandidate
	attempts, err := o.policy.Do(ctx, func(ctx context.Context) error {
		res, err := o.places.Search(ctx, st.req)
		if err != nil {
			return err
		}
		venues = res
		return nil
	}, func(a retry.Attempt) {
		o.logger.Warn("place search attempt failed", map[string]interface{}{
			"stage":   st.name,
			"attempt": a.Number,
			"waitMs":  a.Wait.Milliseconds(),
			"error":   a.Err.Error(),
		})
	})
	if err != nil {
		return nil, attempts, err
	}
	return venues, attempts, nil
}

// enrich fills rating and price from the details endpoint for the leading
// venues that lack them.
func (o *Orchestrator) enrich(ctx context.Context, venues []models.VenueCandidate) ([]models.VenueCandidate, []models.CollaboratorFailure) {
	limit := o.config.DetailsEnrichLimit
	if limit <= 0 {
		return venues, nil
	}
	if limit > len(venues) {
		limit = len(venues)
	}

	errs := make([]error, limit)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < limit; i++ {
		i := i
		if venues[i].RatingRaw != nil && venues[i].PriceTier != nil {
			continue
		}
		g.Go(func() error {
			_, err := o.policy.Do(gctx, func(ctx context.Context) error {
				detail, err := o.places.Details(ctx, venues[i].ID)
				if err != nil {
					return err
				}
				venues[i] = mergeDetails(venues[i], detail)
				return nil
			}, nil)
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	var failures []models.CollaboratorFailure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, o.failure("details", "search result kept", err))
			o.logger.Warn("venue details enrichment failed", map[string]interface{}{
				"venueId": venues[i].ID,
				"error":   err.Error(),
			})
		}
	}
	return venues, failures
}

func (o *Orchestrator) failure(operation, fallback string, err error) models.CollaboratorFailure {
	f := apperrors.NewCollaboratorFailure(collaboratorPlaceSearch, operation, fallback, err)
	metrics.RecordCollaboratorFailure(f.Collaborator, f.Code)
	return f
}

func (o *Orchestrator) observe(ev StageEvent) {
	outcome := "empty"
	switch {
	case ev.Skipped:
		outcome = "skipped"
	case ev.Err != nil:
		outcome = "error"
	case ev.Results > 0:
		outcome = "results"
	}
	metrics.SearchStageAttempts.WithLabelValues(string(ev.Stage), outcome).Add(float64(ev.Attempts))

	fields := map[string]interface{}{
		"stage":    ev.Stage,
		"outcome":  outcome,
		"attempts": ev.Attempts,
		"results":  ev.Results,
	}
	if ev.Err != nil {
		fields["error"] = ev.Err.Error()
	}
	o.logger.Debug("venue search stage", fields)

	if o.observer != nil {
		o.observer(ev)
	}
}

// mergeDetails fills only the fields the search result left empty.
func mergeDetails(v, detail models.VenueCandidate) models.VenueCandidate {
	if v.RatingRaw == nil {
		v.RatingRaw = detail.RatingRaw
	}
	if v.PriceTier == nil {
		v.PriceTier = detail.PriceTier
	}
	if v.OpenNow == nil {
		v.OpenNow = detail.OpenNow
	}
	if v.Address == "" {
		v.Address = detail.Address
	}
	if len(v.CategoryTags) == 0 {
		v.CategoryTags = detail.CategoryTags
	}
	return v
}

// dedupe keeps the first occurrence of each id and truncates to max.
func dedupe(venues []models.VenueCandidate, max int) []models.VenueCandidate {
	seen := make(map[string]bool, len(venues))
	out := make([]models.VenueCandidate, 0, len(venues))
	for _, v := range venues {
		if v.ID == "" || seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		out = append(out, v)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

func widenRadius(radius, max int) int {
	widened := radius * 2
	if max > 0 && widened > max {
		return max
	}
	return widened
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
