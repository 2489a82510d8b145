// internal/workers/meetup/calculate-travel-cost/models.go
package calculatetravelcost

import "meetup-workers/internal/models"

type Input struct {
	Members []models.Member         `json:"members"`
	Venues  []models.VenueCandidate `json:"venues"`
	Mode    models.TravelMode       `json:"mode,omitempty"`
}

type Output struct {
	Travel []models.MemberTravel `json:"travel"`
}
