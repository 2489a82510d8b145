// internal/workers/meetup/resolve-member-locations/models.go
package resolvememberlocations

import "meetup-workers/internal/models"

type Input struct {
	Members []models.Member `json:"members"`
}

type Output struct {
	Members         []models.Member              `json:"members"`
	Providers       map[string]string            `json:"providers"`
	PartialFailures []models.CollaboratorFailure `json:"partialFailures,omitempty"`
}
