// internal/workers/communication/notify-members/service.go
package notifymembers

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/common/validation"
	"meetup-workers/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const smsMaxLength = 160

type ServiceDependencies struct {
	Email  EmailSender
	SMS    SMSSender
	Logger logger.Logger
}

// Service sends each member the shortlist over every channel they have a
// contact for. A disabled channel is reported, never attempted.
type Service struct {
	config *Config
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config: config,
		email:  deps.Email,
		sms:    deps.SMS,
		logger: deps.Logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

type delivery struct {
	member  models.Member
	channel string
	address string
}

// Notify delivers to every member contact. It fails only when every
// attempted delivery failed.
func (s *Service) Notify(ctx context.Context, members []models.Member, result models.CoordinationResult) (*Output, error) {
	var deliveries []delivery
	for _, m := range members {
		if m.Contact == nil {
			continue
		}
		if m.Contact.Email != "" {
			deliveries = append(deliveries, delivery{member: m, channel: ChannelEmail, address: m.Contact.Email})
		}
		if m.Contact.Phone != "" {
			deliveries = append(deliveries, delivery{member: m, channel: ChannelSMS, address: m.Contact.Phone})
		}
	}

	notes := make([]models.Notification, len(deliveries))
	g, gctx := errgroup.WithContext(ctx)
	if s.config.MaxConcurrency > 0 {
		g.SetLimit(s.config.MaxConcurrency)
	}
	for i, d := range deliveries {
		i, d := i, d
		g.Go(func() error {
			notes[i] = s.deliver(gctx, d, result)
			return nil
		})
	}
	_ = g.Wait()

	out := &Output{Notifications: notes}
	var lastErr string
	for _, n := range notes {
		switch n.Status {
		case StatusSent:
			out.Sent++
		case StatusFailed:
			out.Failed++
			lastErr = n.Error
		}
	}

	s.logger.Info("members notified", map[string]interface{}{
		"requestId":     result.RequestID,
		"notifications": len(notes),
		"sent":          out.Sent,
		"failed":        out.Failed,
	})

	if out.Failed > 0 && out.Sent == 0 {
		return nil, apperrors.NewNotificationSendFailedError("all", fmt.Errorf("%d deliveries failed: %s", out.Failed, lastErr))
	}
	return out, nil
}

func (s *Service) deliver(ctx context.Context, d delivery, result models.CoordinationResult) models.Notification {
	n := models.Notification{
		ID:       s.newID(),
		MemberID: d.member.ID,
		Channel:  d.channel,
	}

	var (
		messageID string
		err       error
	)
	switch d.channel {
	case ChannelEmail:
		if !s.config.EmailEnabled || s.email == nil {
			n.Status = StatusDisabled
			return n
		}
		if !validation.ValidateEmail(d.address) {
			n.Status = StatusSkipped
			n.Error = "invalid email address"
			return n
		}
		messageID, err = s.email.SendText(ctx, s.config.FromEmail, d.address, s.config.Subject, EmailBody(d.member, result))
	case ChannelSMS:
		if !s.config.SMSEnabled || s.sms == nil {
			n.Status = StatusDisabled
			return n
		}
		if !validation.ValidatePhone(d.address) {
			n.Status = StatusSkipped
			n.Error = "invalid phone number"
			return n
		}
		messageID, err = s.sms.SendSMS(ctx, d.address, SMSBody(result))
	}

	if err != nil {
		n.Status = StatusFailed
		n.Error = err.Error()
		s.logger.Warn("notification failed", map[string]interface{}{
			"memberId": d.member.ID,
			"channel":  d.channel,
			"error":    err.Error(),
		})
		return n
	}
	n.Status = StatusSent
	n.MessageID = messageID
	n.SentAt = s.now().UTC().Format(time.RFC3339)
	return n
}

// EmailBody lists the shortlist with the member's own explanation.
func EmailBody(member models.Member, result models.CoordinationResult) string {
	var b strings.Builder
	name := member.DisplayName
	if name == "" {
		name = member.ID
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)

	if len(result.Recommendations) == 0 {
		b.WriteString("We could not find a venue near the group's meeting point this time.\n")
		return b.String()
	}

	b.WriteString("Here is the shortlist for your group meetup:\n\n")
	for _, rec := range result.Recommendations {
		fmt.Fprintf(&b, "%d. %s", rec.Rank, rec.Venue.Name)
		if rec.Venue.Address != "" {
			fmt.Fprintf(&b, " (%s)", rec.Venue.Address)
		}
		b.WriteString("\n")
		if text := rec.PerMemberExplanation[member.ID]; text != "" {
			fmt.Fprintf(&b, "   %s\n", text)
		}
	}
	fmt.Fprintf(&b, "\nArea safety: %s.\n", result.Safety.SafetyLevel)
	return b.String()
}

// SMSBody is a single-segment summary of the top pick.
func SMSBody(result models.CoordinationResult) string {
	if len(result.Recommendations) == 0 {
		return "Meetup: no venue found near your group's meeting point."
	}
	top := result.Recommendations[0]
	msg := fmt.Sprintf("Meetup pick: %s", top.Venue.Name)
	if len(result.Recommendations) > 1 {
		msg += fmt.Sprintf(" (+%d more by email)", len(result.Recommendations)-1)
	}
	if len(msg) > smsMaxLength {
		msg = msg[:smsMaxLength]
	}
	return msg
}
