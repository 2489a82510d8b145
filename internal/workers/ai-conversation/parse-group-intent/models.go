// internal/workers/ai-conversation/parse-group-intent/models.go
package parsegroupintent

import "meetup-workers/internal/models"

type Input struct {
	Members     []models.Member `json:"members"`
	Purpose     string          `json:"purpose,omitempty"`
	MeetingTime string          `json:"meetingTime,omitempty"`
}

type Output struct {
	Intent          models.IntentProfile         `json:"intent"`
	PartialFailures []models.CollaboratorFailure `json:"partialFailures,omitempty"`
}

// llmIntent is the JSON object the model is asked to return.
type llmIntent struct {
	PrimaryIntent string   `json:"primary_intent"`
	SearchQuery   string   `json:"search_query"`
	CategoryHints []string `json:"category_hints"`
	Preferences   struct {
		Budget           string   `json:"budget"`
		Atmosphere       []string `json:"atmosphere"`
		SpecificFeatures []string `json:"specific_features"`
	} `json:"preferences"`
	Constraints struct {
		MustHave  []string `json:"must_have"`
		MustAvoid []string `json:"must_avoid"`
	} `json:"constraints"`
}
