// internal/common/camunda/client_test.go
package camunda

import (
	"errors"
	"testing"

	apperrors "meetup-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"write: broken pipe", true},
		{"rpc error: code = NotFound desc = process not found", false},
		{"rpc error: code = InvalidArgument", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(errors.New(tt.msg)))
		})
	}
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		msg      string
		sentinel error
		code     apperrors.ErrorCode
	}{
		{"context deadline exceeded", apperrors.ErrTimeout, apperrors.ErrCodeCollaboratorTimeout},
		{"rpc error: code = RESOURCE_EXHAUSTED", apperrors.ErrRateLimited, apperrors.ErrCodeCollaboratorRateLimited},
		{"connection refused", apperrors.ErrUnavailable, apperrors.ErrCodeCollaboratorUnavailable},
		{"job not found", apperrors.ErrNotFound, apperrors.ErrCodeCollaboratorUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := mapZeebeError(errors.New(tt.msg), "topology")
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.code, apperrors.Normalize(err).Code)
			assert.Contains(t, err.Error(), "zeebe")
		})
	}
}
