// internal/models/notification.go
package models

type Notification struct {
	ID        string `json:"id"`
	MemberID  string `json:"memberId"`
	Channel   string `json:"channel"` // "email", "sms"
	Status    string `json:"status"`  // "sent", "failed", "disabled", "skipped"
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
	SentAt    string `json:"sentAt,omitempty"`
}
