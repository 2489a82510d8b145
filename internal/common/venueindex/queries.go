package venueindex

import (
	"strings"

	"meetup-workers/internal/common/foursquare"
	"meetup-workers/internal/models"
)

// emergencyCategories are the category names indexed for emergency services.
var emergencyCategories = []string{"hospital", "police", "police station", "fire station", "pharmacy", "clinic"}

func geoDistanceFilter(coord models.Coordinate, radiusMeters int) map[string]interface{} {
	return map[string]interface{}{
		"geo_distance": map[string]interface{}{
			"distance": formatMeters(radiusMeters),
			"location": map[string]interface{}{
				"lat": coord.Lat,
				"lon": coord.Lng,
			},
		},
	}
}

// buildSearchQuery builds the venue search body. Categories filter on the
// keyword field, the free-text query scores against name and categories,
// and results are always bounded by distance.
func buildSearchQuery(req models.PlaceSearch) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{geoDistanceFilter(req.Coordinate, req.RadiusMeters)}

	if cats := normalizeCategories(req.Categories); len(cats) > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"terms": map[string]interface{}{"categories": cats},
		})
	}

	if q := strings.TrimSpace(req.Query); q != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q,
				"fields": []string{"name^3", "categories^2", "address"},
				"type":   "best_fields",
			},
		})
	}

	if req.MinPrice > 0 || req.MaxPrice > 0 {
		rng := map[string]interface{}{}
		if req.MinPrice > 0 {
			rng["gte"] = req.MinPrice
		}
		if req.MaxPrice > 0 {
			rng["lte"] = req.MaxPrice
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{"price": rng},
		})
	}

	if req.OpenNow {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"open_now": true},
		})
	}

	boolQuery := map[string]interface{}{"filter": filterClauses}
	if len(mustClauses) > 0 {
		boolQuery["must"] = mustClauses
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{
				"_geo_distance": map[string]interface{}{
					"location": map[string]interface{}{"lat": req.Coordinate.Lat, "lon": req.Coordinate.Lng},
					"order":    "asc",
					"unit":     "m",
				},
			},
		},
	}
	if req.Limit > 0 {
		body["size"] = req.Limit
	}
	return body
}

// buildCountQuery builds the body for a nearby count.
func buildCountQuery(coord models.Coordinate, category string, radiusMeters int) map[string]interface{} {
	filterClauses := []interface{}{geoDistanceFilter(coord, radiusMeters)}

	switch category {
	case foursquare.CategoryEmergency:
		filterClauses = append(filterClauses, map[string]interface{}{
			"terms": map[string]interface{}{"categories": emergencyCategories},
		})
	case foursquare.CategoryOpenVenue:
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"open_now": true},
		})
	default:
		filterClauses = append(filterClauses, map[string]interface{}{
			"terms": map[string]interface{}{"categories": normalizeCategories([]string{category})},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filterClauses},
		},
	}
}

func normalizeCategories(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
