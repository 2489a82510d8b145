// internal/workers/meetup/assess-area-safety/models.go
package assessareasafety

import "meetup-workers/internal/models"

type Input struct {
	Coordinate  models.Coordinate `json:"coordinate"`
	MeetingTime string            `json:"meetingTime,omitempty"`
}

type Output struct {
	Safety          models.SafetyAssessment      `json:"safety"`
	PartialFailures []models.CollaboratorFailure `json:"partialFailures,omitempty"`
}
