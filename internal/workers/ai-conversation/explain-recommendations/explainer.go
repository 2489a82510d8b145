// internal/workers/ai-conversation/explain-recommendations/explainer.go
package explainrecommendations

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/common/metrics"
	"meetup-workers/internal/models"

	"golang.org/x/sync/errgroup"
)

const (
	collaboratorLLM = "llm"
	maxReplyLength  = 600
)

// TextCompleter is the LLM text service.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Explainer writes one rationale per (member, venue) pair. Calls run on a
// bounded pool with a per-call timeout; failures use a template.
type Explainer struct {
	llm            TextCompleter
	callTimeout    time.Duration
	maxConcurrency int
	logger         logger.Logger
}

func NewExplainer(llm TextCompleter, config *Config, log logger.Logger) *Explainer {
	return &Explainer{
		llm:            llm,
		callTimeout:    config.CallTimeout,
		maxConcurrency: config.MaxConcurrency,
		logger:         log,
	}
}

type pair struct {
	rec    int
	member int
}

// Explain returns copies of recs with PerMemberExplanation filled for every
// member. It never fails; LLM failures are folded into one partial failure.
func (e *Explainer) Explain(ctx context.Context, recs []models.RankedRecommendation, members []models.Member, intent models.IntentProfile) ([]models.RankedRecommendation, []models.CollaboratorFailure) {
	out := make([]models.RankedRecommendation, len(recs))
	copy(out, recs)

	var pairs []pair
	for ri := range out {
		for mi := range members {
			pairs = append(pairs, pair{rec: ri, member: mi})
		}
	}
	texts := make([]string, len(pairs))
	errs := make([]error, len(pairs))

	limit := e.maxConcurrency
	if limit <= 0 || limit > len(pairs) {
		limit = len(pairs)
	}

	if e.llm != nil && len(pairs) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for i, p := range pairs {
			i, p := i, p
			g.Go(func() error {
				texts[i], errs[i] = e.complete(gctx, out[p.rec], members[p.member], intent)
				return nil
			})
		}
		_ = g.Wait()
	}

	var (
		failed   int
		firstErr error
	)
	for i, p := range pairs {
		if e.llm != nil && errs[i] != nil {
			failed++
			if firstErr == nil {
				firstErr = errs[i]
			}
		}
		if texts[i] == "" {
			texts[i] = Template(out[p.rec], members[p.member], intent)
		}
	}

	for ri := range out {
		explanations := make(map[string]string, len(members))
		for k, v := range out[ri].PerMemberExplanation {
			explanations[k] = v
		}
		out[ri].PerMemberExplanation = explanations
	}
	for i, p := range pairs {
		out[p.rec].PerMemberExplanation[members[p.member].ID] = texts[i]
	}

	if failed == 0 {
		return out, nil
	}
	f := apperrors.NewCollaboratorFailure(collaboratorLLM, "explain_recommendations",
		fmt.Sprintf("template for %d of %d explanations", failed, len(pairs)), firstErr)
	metrics.RecordCollaboratorFailure(f.Collaborator, f.Code)
	e.logger.Warn("explanations fell back to template", map[string]interface{}{
		"failed": failed,
		"total":  len(pairs),
		"error":  firstErr.Error(),
	})
	return out, []models.CollaboratorFailure{f}
}

func (e *Explainer) complete(ctx context.Context, rec models.RankedRecommendation, member models.Member, intent models.IntentProfile) (string, error) {
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}
	text, err := e.llm.Complete(ctx, buildPrompt(rec, member, intent))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty explanation", apperrors.ErrUnavailable)
	}
	return truncate(text, maxReplyLength), nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func buildPrompt(rec models.RankedRecommendation, member models.Member, intent models.IntentProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "In one or two friendly sentences, tell %s why %s suits them for a group meetup.\n", name(member), rec.Venue.Name)
	if t, ok := travelFor(rec, member.ID); ok {
		fmt.Fprintf(&b, "Their trip: %.1f km, about %.0f minutes by %s.\n", t.DistanceKm, t.TravelTimeMinutes, t.Mode)
	}
	if rec.Venue.RatingRaw != nil {
		fmt.Fprintf(&b, "Rating: %.1f/10.\n", *rec.Venue.RatingRaw)
	}
	if len(rec.Venue.CategoryTags) > 0 {
		fmt.Fprintf(&b, "Venue type: %s.\n", strings.Join(rec.Venue.CategoryTags, ", "))
	}
	if member.PreferencesText != "" {
		fmt.Fprintf(&b, "Their preferences: %s.\n", member.PreferencesText)
	}
	if intent.PrimaryIntent != "" {
		fmt.Fprintf(&b, "Group intent: %s.\n", intent.PrimaryIntent)
	}
	b.WriteString("Reply with plain text only.")
	return b.String()
}

// Template is the deterministic explanation used without the LLM. It
// mentions travel time, rating and matched preferences.
func Template(rec models.RankedRecommendation, member models.Member, intent models.IntentProfile) string {
	var parts []string
	if t, ok := travelFor(rec, member.ID); ok {
		parts = append(parts, fmt.Sprintf("%s is about %.0f min from %s by %s (%.1f km).",
			rec.Venue.Name, t.TravelTimeMinutes, name(member), t.Mode, t.DistanceKm))
	} else {
		parts = append(parts, fmt.Sprintf("%s is close to the group's fair meeting point.", rec.Venue.Name))
	}

	if rec.Venue.RatingRaw != nil {
		parts = append(parts, fmt.Sprintf("Rated %.1f/10.", *rec.Venue.RatingRaw))
	} else {
		parts = append(parts, "Not yet rated.")
	}

	if matched := matchedPreferences(rec.Venue, member, intent); len(matched) > 0 {
		parts = append(parts, "Matches: "+strings.Join(matched, ", ")+".")
	}
	return strings.Join(parts, " ")
}

// matchedPreferences lists intent terms found on the venue or in the member's
// own preferences.
func matchedPreferences(v models.VenueCandidate, member models.Member, intent models.IntentProfile) []string {
	haystack := strings.ToLower(v.Name + " " + strings.Join(v.CategoryTags, " ") + " " + member.PreferencesText)

	var terms []string
	terms = append(terms, intent.CategoryHints...)
	terms = append(terms, intent.AtmosphereTags...)
	terms = append(terms, intent.MustHave...)

	seen := map[string]bool{}
	var out []string
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if strings.Contains(haystack, t) {
			out = append(out, t)
		}
	}
	return out
}

func travelFor(rec models.RankedRecommendation, memberID string) (models.MemberTravel, bool) {
	for _, t := range rec.PerMemberTravel {
		if t.MemberID == memberID {
			return t, true
		}
	}
	return models.MemberTravel{}, false
}

func name(m models.Member) string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.ID
}
