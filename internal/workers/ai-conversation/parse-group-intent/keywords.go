// internal/workers/ai-conversation/parse-group-intent/keywords.go
package parsegroupintent

import (
	"sort"
	"strings"
	"unicode"

	"meetup-workers/internal/models"
)

type intentKeywords struct {
	intent string
	hints  []string
	words  []string
}

// intentTable is ordered most specific first; the first match becomes the
// primary intent and hints keep this order.
var intentTable = []intentKeywords{
	{intent: "coffee", hints: []string{"cafe"}, words: []string{"coffee", "cafe", "café", "tea", "espresso", "latte"}},
	{intent: "study", hints: []string{"coworking", "library"}, words: []string{"study", "studying", "laptop", "wifi", "library", "coworking", "work session", "exam"}},
	{intent: "fitness", hints: []string{"gym", "park"}, words: []string{"gym", "workout", "fitness", "yoga", "exercise", "run", "running", "sports"}},
	{intent: "shopping", hints: []string{"shopping", "mall"}, words: []string{"shop", "shopping", "mall", "market", "buy"}},
	{intent: "entertainment", hints: []string{"entertainment", "movie theater"}, words: []string{"movie", "movies", "film", "games", "bowling", "arcade", "concert", "fun", "entertainment", "party"}},
	{intent: "food", hints: []string{"restaurant"}, words: []string{"food", "eat", "eating", "dinner", "lunch", "breakfast", "brunch", "restaurant", "hungry", "meal", "biryani", "pizza"}},
}

var budgetWords = []struct {
	tier  models.BudgetTier
	words []string
}{
	{models.BudgetLow, []string{"cheap", "affordable", "budget", "inexpensive", "low cost", "student"}},
	{models.BudgetPremium, []string{"premium", "fancy", "upscale", "expensive", "luxury", "fine dining"}},
	{models.BudgetModerate, []string{"moderate", "mid range", "mid-range", "reasonable"}},
}

var atmosphereWords = []string{"quiet", "lively", "cozy", "romantic", "professional", "casual"}

var featureWords = []string{"wifi", "parking", "vegetarian", "vegan", "outdoor seating", "wheelchair", "power outlets", "metro"}

var avoidPrefixes = []string{"no ", "avoid ", "without ", "not ", "nothing ", "don't want ", "dont want "}

// keywordIntent builds an intent from fixed keyword tables. It never fails.
func keywordIntent(members []models.Member, purpose string) models.IntentProfile {
	preferences := []string{}
	if p := strings.TrimSpace(purpose); p != "" {
		preferences = append(preferences, p)
	}
	var constraints []string
	for _, m := range byMemberID(members) {
		if p := strings.TrimSpace(m.PreferencesText); p != "" {
			preferences = append(preferences, p)
		}
		if c := strings.TrimSpace(m.ConstraintsText); c != "" {
			constraints = append(constraints, c)
		}
	}

	all := append(append([]string{}, preferences...), constraints...)
	mustAvoid := avoidTerms(all)
	text := normalizeText(stripAvoidFragments(all))

	intent := models.IntentProfile{
		PrimaryIntent:  "hangout",
		SearchQuery:    strings.Join(preferences, " "),
		CategoryHints:  []string{},
		BudgetTier:     models.BudgetAny,
		AtmosphereTags: []string{},
		MustHave:       []string{},
		MustAvoid:      mustAvoid,
		Source:         models.IntentSourceFallback,
	}

	for _, row := range intentTable {
		if containsAny(text, row.words) {
			if intent.PrimaryIntent == "hangout" {
				intent.PrimaryIntent = row.intent
			}
			intent.CategoryHints = appendUnique(intent.CategoryHints, row.hints...)
		}
	}
	for _, b := range budgetWords {
		if containsAny(text, b.words) {
			intent.BudgetTier = b.tier
			break
		}
	}
	for _, a := range atmosphereWords {
		if containsWord(text, a) {
			intent.AtmosphereTags = append(intent.AtmosphereTags, a)
		}
	}
	for _, f := range featureWords {
		if containsWord(text, f) {
			intent.MustHave = append(intent.MustHave, f)
		}
	}
	return intent
}

// byMemberID returns a copy of members sorted by ID so request order never
// changes the derived intent.
func byMemberID(members []models.Member) []models.Member {
	sorted := append([]models.Member(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if a.PreferencesText != b.PreferencesText {
			return a.PreferencesText < b.PreferencesText
		}
		return a.ConstraintsText < b.ConstraintsText
	})
	return sorted
}

// fragments splits free text on clause punctuation and "and"/"but".
func fragments(texts []string) []string {
	var out []string
	for _, t := range texts {
		parts := strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return r == ',' || r == '.' || r == ';' || r == '!' || r == '\n'
		})
		for _, p := range parts {
			for _, sub := range splitWords(p, " and ", " but ") {
				if s := strings.TrimSpace(sub); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func splitWords(s string, seps ...string) []string {
	parts := []string{s}
	for _, sep := range seps {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	return parts
}

// avoidTerms extracts the object of "no X" and "avoid X" style fragments.
func avoidTerms(texts []string) []string {
	out := []string{}
	for _, f := range fragments(texts) {
		for _, prefix := range avoidPrefixes {
			if strings.HasPrefix(f, prefix) {
				term := strings.TrimSpace(strings.TrimPrefix(f, prefix))
				term = strings.TrimSuffix(term, " please")
				if term != "" {
					out = appendUnique(out, term)
				}
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// stripAvoidFragments drops avoid clauses so "no coffee" does not match coffee.
func stripAvoidFragments(texts []string) string {
	var kept []string
	for _, f := range fragments(texts) {
		avoid := false
		for _, prefix := range avoidPrefixes {
			if strings.HasPrefix(f, prefix) {
				avoid = true
				break
			}
		}
		if !avoid {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// normalizeText lowercases and pads so whole-word checks can use Contains.
func normalizeText(s string) string {
	var b strings.Builder
	b.WriteByte(' ')
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'' {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

func containsWord(text, word string) bool {
	return strings.Contains(text, " "+word+" ")
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if containsWord(text, w) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		dup := false
		for _, existing := range list {
			if existing == item {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, item)
		}
	}
	return list
}
