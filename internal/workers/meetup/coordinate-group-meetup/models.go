// internal/workers/meetup/coordinate-group-meetup/models.go
package coordinategroupmeetup

import "meetup-workers/internal/models"

// Input is the MeetingContext as process variables.
type Input struct {
	Members     []models.Member `json:"members"`
	MeetingTime string          `json:"meetingTime,omitempty"`
	Purpose     string          `json:"purpose,omitempty"`
}

func (in Input) MeetingContext() models.MeetingContext {
	return models.MeetingContext{
		Members:            in.Members,
		MeetingTimeISO8601: in.MeetingTime,
		PurposeText:        in.Purpose,
	}
}

type Output struct {
	Result models.CoordinationResult `json:"coordination"`
}
