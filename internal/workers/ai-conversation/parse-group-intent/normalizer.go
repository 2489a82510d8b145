// internal/workers/ai-conversation/parse-group-intent/normalizer.go
package parsegroupintent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/common/genai"
	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/common/metrics"
	"meetup-workers/internal/models"
)

const collaboratorLLM = "llm"

// TextCompleter is the LLM text service.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Normalizer turns member preferences into a search intent. The LLM is
// optional; any failure falls back to the keyword tables.
type Normalizer struct {
	llm     TextCompleter
	timeout time.Duration
	logger  logger.Logger
}

func NewNormalizer(llm TextCompleter, config *Config, log logger.Logger) *Normalizer {
	return &Normalizer{llm: llm, timeout: config.LLMTimeout, logger: log}
}

// Normalize never fails. A non-nil failure means the keyword fallback was used
// because the LLM call did not produce a usable intent.
func (n *Normalizer) Normalize(ctx context.Context, members []models.Member, purpose, meetingTime string) (models.IntentProfile, *models.CollaboratorFailure) {
	fallback := keywordIntent(members, purpose)
	if n.llm == nil {
		return fallback, nil
	}

	intent, err := n.fromLLM(ctx, members, purpose, meetingTime)
	if err != nil {
		f := apperrors.NewCollaboratorFailure(collaboratorLLM, "normalize_intent", "keyword fallback", err)
		metrics.RecordCollaboratorFailure(f.Collaborator, f.Code)
		n.logger.Warn("intent LLM failed, using keyword fallback", map[string]interface{}{
			"error": err.Error(),
		})
		return fallback, &f
	}

	// Constraints parsed locally always apply.
	intent.MustAvoid = appendUnique(intent.MustAvoid, fallback.MustAvoid...)
	return intent, nil
}

func (n *Normalizer) fromLLM(ctx context.Context, members []models.Member, purpose, meetingTime string) (models.IntentProfile, error) {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	text, err := n.llm.Complete(ctx, buildPrompt(members, purpose, meetingTime))
	if err != nil {
		return models.IntentProfile{}, err
	}

	raw, ok := genai.ExtractJSON(text)
	if !ok {
		return models.IntentProfile{}, fmt.Errorf("%w: reply has no JSON object", apperrors.ErrUnavailable)
	}
	var parsed llmIntent
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return models.IntentProfile{}, fmt.Errorf("%w: unparseable intent: %v", apperrors.ErrUnavailable, err)
	}

	intent := models.IntentProfile{
		PrimaryIntent:  strings.TrimSpace(parsed.PrimaryIntent),
		SearchQuery:    strings.TrimSpace(parsed.SearchQuery),
		CategoryHints:  cleanList(parsed.CategoryHints),
		BudgetTier:     budgetTier(parsed.Preferences.Budget),
		AtmosphereTags: cleanList(parsed.Preferences.Atmosphere),
		MustHave:       cleanList(append(parsed.Constraints.MustHave, parsed.Preferences.SpecificFeatures...)),
		MustAvoid:      cleanList(parsed.Constraints.MustAvoid),
		Source:         models.IntentSourceLLM,
	}
	if intent.SearchQuery == "" && len(intent.CategoryHints) == 0 {
		return models.IntentProfile{}, fmt.Errorf("%w: intent has neither query nor categories", apperrors.ErrUnavailable)
	}
	if intent.PrimaryIntent == "" {
		intent.PrimaryIntent = "hangout"
	}
	return intent, nil
}

func buildPrompt(members []models.Member, purpose, meetingTime string) string {
	var b strings.Builder
	b.WriteString("Extract the shared intent of a group planning to meet.\n\nMembers:\n")
	for _, m := range byMemberID(members) {
		fmt.Fprintf(&b, "- %s: prefers %q; constraints %q\n", displayName(m), m.PreferencesText, m.ConstraintsText)
	}
	if purpose != "" {
		fmt.Fprintf(&b, "\nPurpose: %s\n", purpose)
	}
	if meetingTime != "" {
		fmt.Fprintf(&b, "Meeting time: %s\n", meetingTime)
	}
	b.WriteString(`
Return strictly one JSON object:
{
  "primary_intent": "study | dining | coffee | entertainment | nightlife | shopping | fitness | hangout",
  "search_query": "short place search query",
  "category_hints": ["most specific place category first"],
  "preferences": {"budget": "budget | moderate | premium | flexible", "atmosphere": ["quiet"], "specific_features": ["wifi"]},
  "constraints": {"must_have": [], "must_avoid": []}
}`)
	return b.String()
}

func displayName(m models.Member) string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.ID
}

func budgetTier(s string) models.BudgetTier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "budget", "cheap", "affordable", "low":
		return models.BudgetLow
	case "moderate", "medium", "mid-range":
		return models.BudgetModerate
	case "premium", "expensive", "upscale", "high":
		return models.BudgetPremium
	default:
		return models.BudgetAny
	}
}

func cleanList(in []string) []string {
	out := []string{}
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = appendUnique(out, s)
		}
	}
	return out
}
