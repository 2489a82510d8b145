// internal/workers/meetup/resolve-member-locations/resolver.go
package resolvememberlocations

import (
	"context"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/common/geocoding"
	"meetup-workers/internal/common/logger"
	"meetup-workers/internal/common/metrics"
	"meetup-workers/internal/common/retry"
	"meetup-workers/internal/models"

	"golang.org/x/sync/errgroup"
)

const (
	collaboratorGeocoder = "geocoder"
	// ProviderDefault marks a member placed at the default coordinate.
	ProviderDefault = "default"
)

// Resolver geocodes every member concurrently. A member that cannot be
// resolved is placed at the default coordinate.
type Resolver struct {
	geocoder geocoding.Geocoder
	policy   *retry.Policy
	fallback models.Coordinate
	logger   logger.Logger
}

func NewResolver(geocoder geocoding.Geocoder, policy *retry.Policy, config *Config, log logger.Logger) *Resolver {
	return &Resolver{geocoder: geocoder, policy: policy, fallback: config.DefaultLocation, logger: log}
}

// Resolve returns a copy of members with coordinates set, the provider that
// resolved each member keyed by id, and any absorbed failures.
func (r *Resolver) Resolve(ctx context.Context, members []models.Member) ([]models.Member, map[string]string, []models.CollaboratorFailure) {
	out := make([]models.Member, len(members))
	copy(out, members)
	providers := make([]string, len(out))
	errs := make([]error, len(out))

	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		i := i
		if out[i].ResolvedCoordinate != nil {
			providers[i] = "preset"
			continue
		}
		g.Go(func() error {
			var res *geocoding.Result
			_, err := r.policy.Do(gctx, func(ctx context.Context) error {
				found, err := r.geocoder.Resolve(ctx, out[i].RawLocation)
				if err != nil {
					return err
				}
				res = found
				return nil
			}, nil)
			if err != nil {
				errs[i] = err
				return nil
			}
			out[i].Resolve(res.Coordinate)
			providers[i] = res.Provider
			return nil
		})
	}
	_ = g.Wait()

	byMember := make(map[string]string, len(out))
	var failures []models.CollaboratorFailure
	for i := range out {
		if errs[i] != nil {
			out[i].Resolve(r.fallback)
			providers[i] = ProviderDefault

			f := apperrors.NewCollaboratorFailure(collaboratorGeocoder, "resolve:"+out[i].ID, "default coordinate", errs[i])
			metrics.RecordCollaboratorFailure(f.Collaborator, f.Code)
			failures = append(failures, f)
			r.logger.Warn("member location unresolved, using default", map[string]interface{}{
				"memberId":    out[i].ID,
				"rawLocation": out[i].RawLocation,
				"error":       errs[i].Error(),
			})
		}
		byMember[out[i].ID] = providers[i]
	}
	return out, byMember, failures
}
