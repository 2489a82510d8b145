// internal/workers/meetup/rank-venues/models.go
package rankvenues

import "meetup-workers/internal/models"

type Input struct {
	Candidates  []models.VenueCandidate            `json:"candidates"`
	Intent      models.IntentProfile               `json:"intent"`
	Travel      []models.MemberTravel              `json:"travel"`
	Safety      models.SafetyAssessment            `json:"safety"`
	VenueSafety map[string]models.SafetyAssessment `json:"venueSafety,omitempty"`
	TopN        int                                `json:"topN,omitempty"`
}

type Output struct {
	Recommendations []models.RankedRecommendation `json:"recommendations"`
}
