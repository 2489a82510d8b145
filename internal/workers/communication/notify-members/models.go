// internal/workers/communication/notify-members/models.go
package notifymembers

import (
	"context"

	"meetup-workers/internal/models"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
	StatusSkipped  = "skipped"
)

// EmailSender is satisfied by aws.SESClient.
type EmailSender interface {
	SendText(ctx context.Context, from, to, subject, body string) (string, error)
}

// SMSSender is satisfied by aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, body string) (string, error)
}

type Input struct {
	Members      []models.Member           `json:"members"`
	Coordination models.CoordinationResult `json:"coordination"`
}

type Output struct {
	Notifications []models.Notification `json:"notifications"`
	Sent          int                   `json:"sent"`
	Failed        int                   `json:"failed"`
}
