package geocoding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	result *Result
	err    error
	calls  int
}

func (s *stubGeocoder) Resolve(_ context.Context, _ string) (*Result, error) {
	s.calls++
	return s.result, s.err
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		in     string
		want   models.Coordinate
		wantOK bool
	}{
		{"12.97,77.59", models.Coordinate{Lat: 12.97, Lng: 77.59}, true},
		{" 12.97 , 77.59 ", models.Coordinate{Lat: 12.97, Lng: 77.59}, true},
		{"-33.8688,151.2093", models.Coordinate{Lat: -33.8688, Lng: 151.2093}, true},
		{"91,0", models.Coordinate{}, false},
		{"0,181", models.Coordinate{}, false},
		{"Jayanagar, Bangalore", models.Coordinate{}, false},
		{"12.97", models.Coordinate{}, false},
		{"", models.Coordinate{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCoordinate(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChain_CoordinatePairSkipsProviders(t *testing.T) {
	provider := &stubGeocoder{err: errors.New("should not be called")}
	chain := NewChain(provider)

	res, err := chain.Resolve(context.Background(), "12.9,77.6")
	require.NoError(t, err)
	assert.Equal(t, ProviderCoordinatePair, res.Provider)
	assert.Equal(t, 0, provider.calls)
}

func TestChain_FirstSuccessWins(t *testing.T) {
	first := &stubGeocoder{err: apperrors.ErrNotFound}
	second := &stubGeocoder{result: &Result{Coordinate: models.Coordinate{Lat: 1, Lng: 2}, Provider: "second"}}
	third := &stubGeocoder{result: &Result{Provider: "third"}}

	res, err := NewChain(first, nil, second, third).Resolve(context.Background(), "Indiranagar")
	require.NoError(t, err)
	assert.Equal(t, "second", res.Provider)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, third.calls)
}

func TestChain_ReportsTransportFailureOverNotFound(t *testing.T) {
	chain := NewChain(
		&stubGeocoder{err: apperrors.ErrRateLimited},
		&stubGeocoder{err: apperrors.ErrNotFound},
	)
	_, err := chain.Resolve(context.Background(), "somewhere")
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)
}

func TestChain_EmptyText(t *testing.T) {
	_, err := NewChain(&stubGeocoder{}).Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNominatimGeocoder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "meetup-test", r.Header.Get("User-Agent"))
		switch r.URL.Query().Get("q") {
		case "Koramangala":
			_, _ = w.Write([]byte(`[{"lat":"12.9352","lon":"77.6245","display_name":"Koramangala"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer server.Close()

	g := NewNominatimGeocoder(server.URL, "meetup-test", time.Second)

	res, err := g.Resolve(context.Background(), "Koramangala")
	require.NoError(t, err)
	assert.Equal(t, ProviderNominatim, res.Provider)
	assert.InDelta(t, 12.9352, res.Coordinate.Lat, 1e-9)
	assert.InDelta(t, 77.6245, res.Coordinate.Lng, 1e-9)
}

func TestNominatimGeocoder_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := NewNominatimGeocoder(server.URL, "ua", time.Second).Resolve(context.Background(), "atlantis")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
