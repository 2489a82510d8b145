// Package foursquare is the Places API client used for venue search, venue
// details, nearby counts and locality geotagging.
package foursquare

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "meetup-workers/internal/common/errors"
	httpclient "meetup-workers/internal/common/http"
	"meetup-workers/internal/models"

	"golang.org/x/time/rate"
)

const (
	apiVersion   = "2025-06-17"
	searchFields = "fsq_place_id,name,latitude,longitude,geocodes,location,categories,rating,price,hours"
	countLimit   = 50
)

type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

type Client struct {
	baseURL string
	http    *httpclient.Client
}

func NewClient(cfg Config) *Client {
	hc := httpclient.NewClient(cfg.Timeout).
		WithHeader("Authorization", "Bearer "+cfg.APIKey).
		WithHeader("X-Places-Api-Version", apiVersion)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		hc = hc.WithLimiter(rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst))
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
	}
}

// Search returns venues around the coordinate. A 429 surfaces as
// errors.ErrRateLimited.
func (c *Client) Search(ctx context.Context, req models.PlaceSearch) ([]models.VenueCandidate, error) {
	params := url.Values{}
	params.Set("ll", req.Coordinate.String())
	params.Set("fields", searchFields)
	if req.RadiusMeters > 0 {
		params.Set("radius", strconv.Itoa(req.RadiusMeters))
	}
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(req.Limit))
	}

	var unmatched []string
	var ids []string
	for _, name := range req.Categories {
		if id, ok := LookupCategoryID(name); ok {
			ids = append(ids, id)
		} else if strings.TrimSpace(name) != "" {
			unmatched = append(unmatched, strings.TrimSpace(name))
		}
	}
	if len(ids) > 0 {
		params.Set("fsq_category_ids", strings.Join(dedupe(ids), ","))
	}

	query := strings.TrimSpace(req.Query)
	if query == "" && len(unmatched) > 0 {
		query = strings.Join(unmatched, " ")
	}
	if query != "" {
		params.Set("query", query)
	}
	if len(ids) == 0 && query == "" {
		return nil, fmt.Errorf("%w: search needs a category or a query", apperrors.ErrInvalidRequest)
	}

	if req.MinPrice > 0 {
		params.Set("min_price", strconv.Itoa(req.MinPrice))
	}
	if req.MaxPrice > 0 {
		params.Set("max_price", strconv.Itoa(req.MaxPrice))
	}
	if req.OpenNow {
		params.Set("open_now", "true")
	}

	var resp searchResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/places/search?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("foursquare search: %w", err)
	}

	venues := make([]models.VenueCandidate, 0, len(resp.Results))
	for _, p := range resp.Results {
		if v, ok := p.toVenue(); ok {
			venues = append(venues, v)
		}
	}
	return venues, nil
}

// Details fetches a single venue by id.
func (c *Client) Details(ctx context.Context, id string) (models.VenueCandidate, error) {
	params := url.Values{}
	params.Set("fields", searchFields)

	var p place
	if err := c.http.GetJSON(ctx, c.baseURL+"/places/"+url.PathEscape(id)+"?"+params.Encode(), &p); err != nil {
		return models.VenueCandidate{}, fmt.Errorf("foursquare details: %w", err)
	}
	v, ok := p.toVenue()
	if !ok {
		return models.VenueCandidate{}, fmt.Errorf("%w: venue %s has no coordinate", apperrors.ErrNotFound, id)
	}
	return v, nil
}

// CountNearby counts places of a category within radius. CategoryEmergency
// and CategoryOpenVenue are recognised in addition to plain category names.
func (c *Client) CountNearby(ctx context.Context, coord models.Coordinate, category string, radiusMeters int) (int, error) {
	req := models.PlaceSearch{
		Coordinate:   coord,
		RadiusMeters: radiusMeters,
		Limit:        countLimit,
	}
	switch category {
	case CategoryEmergency:
		req.Categories = emergencyCategoryIDs
	case CategoryOpenVenue:
		req.Categories = []string{"food", "nightlife", "shopping"}
		req.OpenNow = true
	default:
		req.Categories = []string{category}
	}

	venues, err := c.Search(ctx, req)
	if err != nil {
		return 0, err
	}
	if category != CategoryOpenVenue {
		return len(venues), nil
	}

	// open_now is a filter hint; venues without hours do not count.
	open := 0
	for _, v := range venues {
		if v.OpenNow != nil && *v.OpenNow {
			open++
		}
	}
	return open, nil
}

// Geotag resolves free text to the best locality candidate.
func (c *Client) Geotag(ctx context.Context, text string) (models.Coordinate, error) {
	params := url.Values{}
	params.Set("query", text)
	params.Set("types", "neighborhood,locality,region")

	var resp geotagResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/geotagging/candidates?"+params.Encode(), &resp); err != nil {
		return models.Coordinate{}, fmt.Errorf("foursquare geotagging: %w", err)
	}
	for _, cand := range resp.Candidates {
		if coord, ok := coordinateOf(cand.Latitude, cand.Longitude, cand.Geocodes); ok {
			return coord, nil
		}
	}
	return models.Coordinate{}, fmt.Errorf("%w: no geotagging candidate for %q", apperrors.ErrNotFound, text)
}

func (p place) toVenue() (models.VenueCandidate, bool) {
	coord, ok := coordinateOf(p.Latitude, p.Longitude, p.Geocodes)
	if !ok {
		return models.VenueCandidate{}, false
	}
	id := p.ID
	if id == "" {
		id = p.LegacyID
	}
	if id == "" {
		return models.VenueCandidate{}, false
	}

	address := p.Location.FormattedAddress
	if address == "" {
		address = p.Location.Address
	}

	v := models.VenueCandidate{
		ID:         id,
		Name:       p.Name,
		Coordinate: coord,
		Address:    address,
		RatingRaw:  p.Rating,
		PriceTier:  p.Price,
	}
	if p.Hours != nil {
		v.OpenNow = p.Hours.OpenNow
	}
	for _, cat := range p.Categories {
		v.CategoryTags = append(v.CategoryTags, strings.ToLower(cat.Name))
	}
	return v, true
}

func coordinateOf(lat, lng *float64, g *geocodes) (models.Coordinate, bool) {
	if lat != nil && lng != nil {
		return models.Coordinate{Lat: *lat, Lng: *lng}, true
	}
	if g != nil && (g.Main.Latitude != 0 || g.Main.Longitude != 0) {
		return models.Coordinate{Lat: g.Main.Latitude, Lng: g.Main.Longitude}, true
	}
	return models.Coordinate{}, false
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
