// internal/workers/meetup/search-venues/models.go
package searchvenues

import "meetup-workers/internal/models"

type Input struct {
	FairPoint    models.FairPoint     `json:"fairPoint"`
	Intent       models.IntentProfile `json:"intent"`
	RadiusMeters int                  `json:"radiusMeters,omitempty"`
	MaxResults   int                  `json:"maxResults,omitempty"`
}

type Output struct {
	Venues          []models.VenueCandidate      `json:"venues"`
	NoVenuesFound   bool                         `json:"noVenuesFound"`
	PartialFailures []models.CollaboratorFailure `json:"partialFailures,omitempty"`
}

// Stage names a fallback step of the venue search.
type Stage string

const (
	StageCategory  Stage = "category"
	StageQuery     Stage = "query"
	StageWidened   Stage = "widened_radius"
	StageGeneric   Stage = "generic_categories"
	StageExhausted Stage = "exhausted"
)

// StageEvent reports one stage transition. Attempts counts calls to the
// place search client, including retries.
type StageEvent struct {
	Stage    Stage
	Attempts int
	Results  int
	Skipped  bool
	Err      error
}

// Result is what one orchestrated search produced.
type Result struct {
	Venues          []models.VenueCandidate
	NoVenuesFound   bool
	Stage           Stage
	PartialFailures []models.CollaboratorFailure
}
