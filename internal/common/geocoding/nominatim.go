package geocoding

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

const ProviderNominatim = "nominatim"

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NominatimGeocoder queries an OpenStreetMap Nominatim instance. The public
// instance allows one request per second, so calls are paced.
type NominatimGeocoder struct {
	baseURL string
	http    *httpclient.Client
}

func NewNominatimGeocoder(baseURL, userAgent string, timeout time.Duration) *NominatimGeocoder {
	hc := httpclient.NewClient(timeout).
		WithHeader("User-Agent", userAgent).
		WithLimiter(rate.NewLimiter(rate.Every(time.Second), 1))
	return &NominatimGeocoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

func (g *NominatimGeocoder) Resolve(ctx context.Context, text string) (*Result, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("format", "json")
	params.Set("limit", "1")

	var places []nominatimPlace
	if err := g.http.GetJSON(ctx, g.baseURL+"/search?"+params.Encode(), &places); err != nil {
		return nil, fmt.Errorf("nominatim search: %w", err)
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("%w: nominatim has no match for %q", apperrors.ErrNotFound, text)
	}

	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(places[0].Lon, 64)
	if errLat != nil || errLng != nil {
		return nil, fmt.Errorf("%w: nominatim returned malformed coordinates", apperrors.ErrUnavailable)
	}
	return &Result{Coordinate: models.Coordinate{Lat: lat, Lng: lng}, Provider: ProviderNominatim}, nil
}
