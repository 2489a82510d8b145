package geocoding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/models"
)

const ProviderGazetteer = "gazetteer"

const lookupLocalityQuery = `
	SELECT latitude, longitude
	FROM localities
	WHERE name_normalized = $1
	ORDER BY population DESC NULLS LAST
	LIMIT 1`

// GazetteerGeocoder looks locality names up in a Postgres table of known
// places. The full text is tried first, then its leading comma segment
// ("Jayanagar, Bangalore" -> "jayanagar").
type GazetteerGeocoder struct {
	db *sql.DB
}

func NewGazetteerGeocoder(db *sql.DB) *GazetteerGeocoder {
	return &GazetteerGeocoder{db: db}
}

func (g *GazetteerGeocoder) Resolve(ctx context.Context, text string) (*Result, error) {
	keys := []string{Normalize(text)}
	if head, _, found := strings.Cut(text, ","); found {
		if k := Normalize(head); k != "" && k != keys[0] {
			keys = append(keys, k)
		}
	}

	for _, key := range keys {
		var c models.Coordinate
		err := g.db.QueryRowContext(ctx, lookupLocalityQuery, key).Scan(&c.Lat, &c.Lng)
		switch {
		case err == nil:
			return &Result{Coordinate: c, Provider: ProviderGazetteer}, nil
		case errors.Is(err, sql.ErrNoRows):
			continue
		default:
			return nil, apperrors.NewGazetteerQueryFailedError(fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err))
		}
	}
	return nil, fmt.Errorf("%w: %q not in gazetteer", apperrors.ErrNotFound, text)
}
