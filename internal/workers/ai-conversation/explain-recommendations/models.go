// internal/workers/ai-conversation/explain-recommendations/models.go
package explainrecommendations

import "meetup-workers/internal/models"

type Input struct {
	Recommendations []models.RankedRecommendation `json:"recommendations"`
	Members         []models.Member               `json:"members"`
	Intent          models.IntentProfile          `json:"intent"`
}

type Output struct {
	Recommendations []models.RankedRecommendation `json:"recommendations"`
	PartialFailures []models.CollaboratorFailure  `json:"partialFailures,omitempty"`
}
