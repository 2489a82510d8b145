package foursquare

import "strings"

// categoryIDs maps common category names to Foursquare category ids.
var categoryIDs = map[string]string{
	"restaurant":    "13065",
	"cafe":          "13032",
	"coffee shop":   "13032",
	"coffee":        "13032",
	"bar":           "13003",
	"pub":           "13003",
	"fast food":     "13145",
	"food":          "13000",
	"bakery":        "13002",
	"pizza":         "13064",
	"dessert":       "13040",
	"grocery":       "17069",
	"grocery store": "17069",
	"shopping":      "17000",
	"mall":          "17114",
	"hotel":         "19014",
	"hospital":      "15014",
	"police":        "12072",
	"pharmacy":      "17057",
	"bank":          "17002",
	"gym":           "18021",
	"fitness":       "18000",
	"park":          "16032",
	"outdoors":      "16000",
	"nightlife":     "10032",
	"entertainment": "10000",
	"movie theater": "10024",
	"museum":        "10027",
	"library":       "12057",
	"coworking":     "11128",
	"office":        "12058",
	"school":        "12013",
	"train station": "19047",
	"airport":       "19040",
}

const (
	// CategoryEmergency counts hospitals and police stations.
	CategoryEmergency = "emergency"
	// CategoryOpenVenue counts venues open right now.
	CategoryOpenVenue = "open_venue"
)

var emergencyCategoryIDs = []string{categoryIDs["hospital"], categoryIDs["police"]}

const fuzzyCutoff = 0.6

// LookupCategoryID resolves a category name to its Foursquare id. Numeric ids
// pass through unchanged; unknown names fall back to the closest known name
// above the similarity cutoff.
func LookupCategoryID(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}
	if isNumeric(name) {
		return name, true
	}
	if id, ok := categoryIDs[name]; ok {
		return id, true
	}

	best, bestScore := "", 0.0
	for known := range categoryIDs {
		score := similarity(name, known)
		if score > bestScore || (score == bestScore && known < best) {
			best, bestScore = known, score
		}
	}
	if bestScore >= fuzzyCutoff {
		return categoryIDs[best], true
	}
	return "", false
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// similarity is 1 - levenshtein(a, b)/max(len(a), len(b)).
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
