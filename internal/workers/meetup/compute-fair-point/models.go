// internal/workers/meetup/compute-fair-point/models.go
package computefairpoint

import "meetup-workers/internal/models"

type Input struct {
	Coordinates []models.Coordinate `json:"coordinates"`
}

type Output struct {
	FairPoint  models.FairPoint `json:"fairPoint"`
	Iterations int              `json:"iterations"`
}
