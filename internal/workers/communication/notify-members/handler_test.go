// internal/workers/communication/notify-members/handler_test.go
package notifymembers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"meetup-workers/internal/common/aws"
	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSES struct {
	mu     sync.Mutex
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: awssdk.String("ses-1")}, nil
}

type fakeSNS struct {
	mu     sync.Mutex
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: awssdk.String("sns-1")}, nil
}

func createTestConfig() *Config {
	cfg := LoadConfig()
	cfg.EmailEnabled = true
	cfg.SMSEnabled = true
	cfg.Timeout = time.Second
	return cfg
}

func newTestService(t *testing.T, cfg *Config, sesAPI *fakeSES, snsAPI *fakeSNS) *Service {
	t.Helper()
	deps := ServiceDependencies{Logger: logger.NewTestLogger(t)}
	if sesAPI != nil {
		deps.Email = aws.NewSESClientFromAPI(sesAPI)
	}
	if snsAPI != nil {
		deps.SMS = aws.NewSNSClientFromAPI(snsAPI, "MEETUP")
	}
	s := NewService(deps, cfg)
	s.newID = func() string { return "n-1" }
	s.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
	return s
}

func sampleResult() models.CoordinationResult {
	return models.CoordinationResult{
		RequestID: "req-1",
		Recommendations: []models.RankedRecommendation{
			{
				Rank:                 1,
				Venue:                models.VenueCandidate{ID: "v1", Name: "Third Wave Coffee", Address: "100 Feet Rd"},
				PerMemberExplanation: map[string]string{"m1": "12 min away for you."},
			},
			{Rank: 2, Venue: models.VenueCandidate{ID: "v2", Name: "Corner Library"}},
		},
		Safety: models.SafetyAssessment{SafetyLevel: models.SafetySafe},
	}
}

func sampleMembers() []models.Member {
	return []models.Member{
		{ID: "m1", DisplayName: "Asha", Contact: &models.Contact{Email: "asha@example.com", Phone: "+919800000001"}},
		{ID: "m2", DisplayName: "Ravi", Contact: &models.Contact{Email: "not-an-email"}},
		{ID: "m3", DisplayName: "Meera"},
	}
}

func byChannel(notes []models.Notification, member, channel string) models.Notification {
	for _, n := range notes {
		if n.MemberID == member && n.Channel == channel {
			return n
		}
	}
	return models.Notification{}
}

// ==========================
// Message bodies
// ==========================

func TestEmailBody(t *testing.T) {
	body := EmailBody(sampleMembers()[0], sampleResult())
	assert.True(t, strings.HasPrefix(body, "Hi Asha,"))
	assert.Contains(t, body, "1. Third Wave Coffee (100 Feet Rd)")
	assert.Contains(t, body, "12 min away for you.")
	assert.Contains(t, body, "2. Corner Library")
	assert.Contains(t, body, "Area safety: Safe.")

	empty := EmailBody(models.Member{ID: "m9"}, models.CoordinationResult{})
	assert.Contains(t, empty, "Hi m9,")
	assert.Contains(t, empty, "could not find a venue")
}

func TestSMSBody(t *testing.T) {
	assert.Equal(t, "Meetup pick: Third Wave Coffee (+1 more by email)", SMSBody(sampleResult()))
	assert.Contains(t, SMSBody(models.CoordinationResult{}), "no venue found")

	long := sampleResult()
	long.Recommendations[0].Venue.Name = strings.Repeat("x", 300)
	assert.Len(t, SMSBody(long), smsMaxLength)
}

// ==========================
// Service
// ==========================

func TestNotify_SendsOnEveryChannel(t *testing.T) {
	sesAPI, snsAPI := &fakeSES{}, &fakeSNS{}
	s := newTestService(t, createTestConfig(), sesAPI, snsAPI)

	out, err := s.Notify(context.Background(), sampleMembers(), sampleResult())
	require.NoError(t, err)

	require.Len(t, out.Notifications, 3)
	assert.Equal(t, 2, out.Sent)
	assert.Equal(t, 0, out.Failed)

	email := byChannel(out.Notifications, "m1", ChannelEmail)
	assert.Equal(t, StatusSent, email.Status)
	assert.Equal(t, "ses-1", email.MessageID)
	assert.Equal(t, "2026-10-16T09:30:00Z", email.SentAt)

	sms := byChannel(out.Notifications, "m1", ChannelSMS)
	assert.Equal(t, StatusSent, sms.Status)
	assert.Equal(t, "sns-1", sms.MessageID)

	invalid := byChannel(out.Notifications, "m2", ChannelEmail)
	assert.Equal(t, StatusSkipped, invalid.Status)

	require.Len(t, sesAPI.inputs, 1)
	in := sesAPI.inputs[0]
	assert.Equal(t, "meetups@example.com", awssdk.ToString(in.Source))
	assert.Equal(t, []string{"asha@example.com"}, in.Destination.ToAddresses)
	assert.Contains(t, awssdk.ToString(in.Message.Body.Text.Data), "Third Wave Coffee")

	require.Len(t, snsAPI.inputs, 1)
	assert.Equal(t, "+919800000001", awssdk.ToString(snsAPI.inputs[0].PhoneNumber))
	assert.Equal(t, "MEETUP", awssdk.ToString(snsAPI.inputs[0].MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
}

func TestNotify_DisabledChannels(t *testing.T) {
	cfg := createTestConfig()
	cfg.SMSEnabled = false
	sesAPI, snsAPI := &fakeSES{}, &fakeSNS{}
	s := newTestService(t, cfg, sesAPI, snsAPI)

	out, err := s.Notify(context.Background(), sampleMembers(), sampleResult())
	require.NoError(t, err)

	assert.Equal(t, StatusDisabled, byChannel(out.Notifications, "m1", ChannelSMS).Status)
	assert.Equal(t, StatusSent, byChannel(out.Notifications, "m1", ChannelEmail).Status)
	assert.Empty(t, snsAPI.inputs)
}

func TestNotify_MissingSenderIsDisabled(t *testing.T) {
	s := newTestService(t, createTestConfig(), nil, nil)

	out, err := s.Notify(context.Background(), sampleMembers()[:1], sampleResult())
	require.NoError(t, err)
	for _, n := range out.Notifications {
		assert.Equal(t, StatusDisabled, n.Status)
	}
	assert.Zero(t, out.Sent)
}

func TestNotify_PartialFailure(t *testing.T) {
	sesAPI := &fakeSES{err: errors.New("throttled")}
	s := newTestService(t, createTestConfig(), sesAPI, &fakeSNS{})

	out, err := s.Notify(context.Background(), sampleMembers(), sampleResult())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Sent)
	assert.Equal(t, 1, out.Failed)

	failed := byChannel(out.Notifications, "m1", ChannelEmail)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Contains(t, failed.Error, "throttled")
}

func TestNotify_AllFailed(t *testing.T) {
	s := newTestService(t, createTestConfig(), &fakeSES{err: errors.New("down")}, &fakeSNS{err: errors.New("down")})

	_, err := s.Notify(context.Background(), sampleMembers(), sampleResult())
	require.Error(t, err)
	stdErr := apperrors.Normalize(err)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

// ==========================
// Handler
// ==========================

func TestExecute_RequiresMembers(t *testing.T) {
	h := NewHandler(createTestConfig(), nil, nil, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{Coordination: sampleResult()})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.Normalize(err).Code)
}

func TestExecute_NoContacts(t *testing.T) {
	h := NewHandler(createTestConfig(), nil, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{
		Members:      []models.Member{{ID: "m1"}, {ID: "m2"}},
		Coordination: sampleResult(),
	})
	require.NoError(t, err)
	assert.Empty(t, out.Notifications)
}
