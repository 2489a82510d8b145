// internal/models/meetup.go
package models

import "fmt"

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Valid reports whether the coordinate is within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Member struct {
	ID                 string      `json:"id"`
	DisplayName        string      `json:"displayName"`
	RawLocation        string      `json:"rawLocation"`
	ResolvedCoordinate *Coordinate `json:"resolvedCoordinate,omitempty"`
	PreferencesText    string      `json:"preferencesText,omitempty"`
	ConstraintsText    string      `json:"constraintsText,omitempty"`
	Contact            *Contact    `json:"contact,omitempty"`
}

// Resolve attaches a coordinate. It is a no-op once a coordinate is set.
func (m *Member) Resolve(c Coordinate) {
	if m.ResolvedCoordinate != nil {
		return
	}
	m.ResolvedCoordinate = &c
}

type MeetingContext struct {
	Members            []Member `json:"members"`
	MeetingTimeISO8601 string   `json:"meetingTime,omitempty"`
	PurposeText        string   `json:"purpose,omitempty"`
}

type FairPointMethod string

const (
	MethodGeometricMedian  FairPointMethod = "geometricMedian"
	MethodCoordinateMedian FairPointMethod = "coordinateMedian"
	MethodSingleFallback   FairPointMethod = "singleFallback"
)

type FairPoint struct {
	Lat    float64         `json:"lat"`
	Lng    float64         `json:"lng"`
	Method FairPointMethod `json:"method"`
}

func (f FairPoint) Coordinate() Coordinate {
	return Coordinate{Lat: f.Lat, Lng: f.Lng}
}

const (
	IntentSourceLLM      = "llm"
	IntentSourceFallback = "keyword_fallback"
)

type BudgetTier string

const (
	BudgetAny      BudgetTier = "any"
	BudgetLow      BudgetTier = "budget"
	BudgetModerate BudgetTier = "moderate"
	BudgetPremium  BudgetTier = "premium"
)

type IntentProfile struct {
	PrimaryIntent  string     `json:"primaryIntent"`
	SearchQuery    string     `json:"searchQuery"`
	CategoryHints  []string   `json:"categoryHints"`
	BudgetTier     BudgetTier `json:"budgetTier"`
	AtmosphereTags []string   `json:"atmosphereTags"`
	MustHave       []string   `json:"mustHave"`
	MustAvoid      []string   `json:"mustAvoid"`
	Source         string     `json:"source"`
}

// PriceRange maps the budget tier onto the 1-4 price scale. Zero means unbounded.
func (p IntentProfile) PriceRange() (min, max int) {
	switch p.BudgetTier {
	case BudgetLow:
		return 1, 2
	case BudgetModerate:
		return 2, 3
	case BudgetPremium:
		return 3, 4
	default:
		return 0, 0
	}
}

type VenueCandidate struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Coordinate   Coordinate `json:"coordinate"`
	Address      string     `json:"address,omitempty"`
	RatingRaw    *float64   `json:"rating,omitempty"`    // 0-10
	PriceTier    *int       `json:"priceTier,omitempty"` // 1-4
	OpenNow      *bool      `json:"openNow,omitempty"`   // nil = unknown
	CategoryTags []string   `json:"categoryTags,omitempty"`
}

type TravelMode string

const (
	ModeWalking TravelMode = "walking"
	ModeDriving TravelMode = "driving"
	ModeTransit TravelMode = "transit"
)

type MemberTravel struct {
	MemberID          string     `json:"memberId"`
	VenueID           string     `json:"venueId"`
	DistanceKm        float64    `json:"distanceKm"`
	TravelTimeMinutes float64    `json:"travelTimeMinutes"`
	Mode              TravelMode `json:"mode"`
}

type SafetyLevel string

const (
	SafetyVerySafe    SafetyLevel = "Very Safe"
	SafetySafe        SafetyLevel = "Safe"
	SafetyModerate    SafetyLevel = "Moderate"
	SafetyCaution     SafetyLevel = "Caution"
	SafetyHighCaution SafetyLevel = "High Caution"
)

type SafetyAssessment struct {
	Coordinate            Coordinate  `json:"coordinate"`
	IsNight               bool        `json:"isNight"`
	EmergencyServiceCount int         `json:"emergencyServiceCount"`
	OpenVenueNearbyCount  int         `json:"openVenueNearbyCount"`
	SafetyScore           float64     `json:"safetyScore"`
	SafetyLevel           SafetyLevel `json:"safetyLevel"`
	Explanation           string      `json:"explanation,omitempty"`
}

type RankedRecommendation struct {
	Rank                  int               `json:"rank"`
	Venue                 VenueCandidate    `json:"venue"`
	FairnessScore         float64           `json:"fairnessScore"`
	QualityScore          float64           `json:"qualityScore"`
	SafetyScoreNormalized float64           `json:"safetyScoreNormalized"`
	CompositeScore        float64           `json:"compositeScore"`
	PerMemberTravel       []MemberTravel    `json:"perMemberTravel"`
	PerMemberExplanation  map[string]string `json:"perMemberExplanation,omitempty"`
}

type CollaboratorFailure struct {
	Collaborator string `json:"collaborator"`
	Operation    string `json:"operation"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	Fallback     string `json:"fallback"`
}

type CoordinationResult struct {
	RequestID       string                 `json:"requestId"`
	FairPoint       FairPoint              `json:"fairPoint"`
	Intent          IntentProfile          `json:"intent"`
	Recommendations []RankedRecommendation `json:"recommendations"`
	Safety          SafetyAssessment       `json:"safety"`
	PartialFailures []CollaboratorFailure  `json:"partialFailures"`
	NoVenuesFound   bool                   `json:"noVenuesFound"`
}

// PlaceSearch describes one place search around a coordinate. Categories
// are names or provider ids. Zero prices mean unbounded.
type PlaceSearch struct {
	Coordinate   Coordinate
	RadiusMeters int
	Categories   []string
	Query        string
	Limit        int
	MinPrice     int
	MaxPrice     int
	OpenNow      bool
}
