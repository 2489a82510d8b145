// Package venueindex serves place search from an Elasticsearch venue index.
// It is the alternative to the Foursquare backend for deployments that
// maintain their own venue catalogue.
package venueindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const defaultIndex = "venues"

// document is the indexed venue shape.
type document struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Location geoPoint `json:"location"`
	Address  string   `json:"address,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Price    *int     `json:"price,omitempty"`
	OpenNow  *bool    `json:"open_now,omitempty"`
	Category []string `json:"categories,omitempty"`
}

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string   `json:"_id"`
			Source document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type getResponse struct {
	ID     string   `json:"_id"`
	Found  bool     `json:"found"`
	Source document `json:"_source"`
}

type countResponse struct {
	Count int `json:"count"`
}

type Client struct {
	es    *elasticsearch.Client
	index string
}

func NewClient(es *elasticsearch.Client, index string) *Client {
	if index == "" {
		index = defaultIndex
	}
	return &Client{es: es, index: index}
}

// Search runs a geo-bounded venue query.
func (c *Client) Search(ctx context.Context, req models.PlaceSearch) ([]models.VenueCandidate, error) {
	if len(normalizeCategories(req.Categories)) == 0 && req.Query == "" {
		return nil, fmt.Errorf("%w: search needs a category or a query", apperrors.ErrInvalidRequest)
	}

	body, err := json.Marshal(buildSearchQuery(req))
	if err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, apperrors.NewVenueIndexFailedError("search", transportError(ctx, err))
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewVenueIndexFailedError("search", statusError(res))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewVenueIndexFailedError("search", fmt.Errorf("%w: decode: %v", apperrors.ErrUnavailable, err))
	}

	venues := make([]models.VenueCandidate, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := hit.Source
		if doc.ID == "" {
			doc.ID = hit.ID
		}
		venues = append(venues, doc.toVenue())
	}
	return venues, nil
}

// Details fetches one venue by document id.
func (c *Client) Details(ctx context.Context, id string) (models.VenueCandidate, error) {
	res, err := c.es.Get(c.index, id, c.es.Get.WithContext(ctx))
	if err != nil {
		return models.VenueCandidate{}, apperrors.NewVenueIndexFailedError("get", transportError(ctx, err))
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return models.VenueCandidate{}, fmt.Errorf("%w: venue %s", apperrors.ErrNotFound, id)
	}
	if res.IsError() {
		return models.VenueCandidate{}, apperrors.NewVenueIndexFailedError("get", statusError(res))
	}

	var parsed getResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return models.VenueCandidate{}, apperrors.NewVenueIndexFailedError("get", fmt.Errorf("%w: decode: %v", apperrors.ErrUnavailable, err))
	}
	if !parsed.Found {
		return models.VenueCandidate{}, fmt.Errorf("%w: venue %s", apperrors.ErrNotFound, id)
	}
	if parsed.Source.ID == "" {
		parsed.Source.ID = parsed.ID
	}
	return parsed.Source.toVenue(), nil
}

// CountNearby counts indexed venues of a category within radius.
func (c *Client) CountNearby(ctx context.Context, coord models.Coordinate, category string, radiusMeters int) (int, error) {
	body, err := json.Marshal(buildCountQuery(coord, category, radiusMeters))
	if err != nil {
		return 0, err
	}

	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(c.index),
		c.es.Count.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return 0, apperrors.NewVenueIndexFailedError("count", transportError(ctx, err))
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, apperrors.NewVenueIndexFailedError("count", statusError(res))
	}

	var parsed countResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, apperrors.NewVenueIndexFailedError("count", fmt.Errorf("%w: decode: %v", apperrors.ErrUnavailable, err))
	}
	return parsed.Count, nil
}

func (d document) toVenue() models.VenueCandidate {
	return models.VenueCandidate{
		ID:           d.ID,
		Name:         d.Name,
		Coordinate:   models.Coordinate{Lat: d.Location.Lat, Lng: d.Location.Lon},
		Address:      d.Address,
		RatingRaw:    d.Rating,
		PriceTier:    d.Price,
		OpenNow:      d.OpenNow,
		CategoryTags: normalizeCategories(d.Category),
	}
}

func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
}

func statusError(res *esapi.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	switch res.StatusCode {
	case 429:
		return fmt.Errorf("%w: %s", apperrors.ErrRateLimited, raw)
	case 404:
		return fmt.Errorf("%w: index not found: %s", apperrors.ErrUnavailable, raw)
	default:
		return fmt.Errorf("%w: status %d: %s", apperrors.ErrUnavailable, res.StatusCode, raw)
	}
}

func formatMeters(m int) string {
	if m <= 0 {
		m = 1000
	}
	return strconv.Itoa(m) + "m"
}
