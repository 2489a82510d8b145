// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "meetup-workers/internal/common/errors"
	"meetup-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/cenkalti/backoff/v4"
)

// Client wraps the Zeebe gRPC client with connection retry and a health check.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

// ClientConfig holds configuration for the Camunda/Zeebe client.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig bounds connection attempts at startup.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// NewClientWithConfig connects to the gateway, retrying transient failures
// with exponential backoff until the retry budget is spent.
func NewClientWithConfig(ctx context.Context, config *ClientConfig, log logger.Logger) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: config}
	err = c.ExecuteWithRetry(ctx, "topology", func(ctx context.Context) error {
		return c.HealthCheck(ctx)
	}, func(err error, wait time.Duration) {
		log.Warn("zeebe gateway not reachable, retrying", map[string]interface{}{
			"gateway": config.GatewayAddress,
			"error":   err.Error(),
			"retryIn": wait.String(),
		})
	})
	if err != nil {
		zeebeClient.Close()
		return nil, err
	}
	return c, nil
}

// GetClient returns the raw Zeebe client for job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ExecuteWithRetry runs op with exponential backoff. Only transient gateway
// errors are retried.
func (c *Client) ExecuteWithRetry(ctx context.Context, operation string, op func(context.Context) error, notify backoff.Notify) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.RetryConfig.BaseDelay
	bo.MaxInterval = c.config.RetryConfig.MaxDelay
	bo.MaxElapsedTime = 0

	var policy backoff.BackOff = backoff.WithMaxRetries(bo, uint64(c.config.RetryConfig.MaxRetries))
	policy = backoff.WithContext(policy, ctx)

	err := backoff.RetryNotify(func() error {
		err := op(ctx)
		if err != nil && !isRetryableZeebeError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, notify)
	if err != nil {
		return mapZeebeError(err, operation)
	}
	return nil
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// mapZeebeError classifies a gateway error onto the collaborator sentinels.
func mapZeebeError(err error, operation string) error {
	lowerMsg := strings.ToLower(err.Error())
	wrapped := fmt.Errorf("zeebe operation '%s' failed: %w", operation, err)

	switch {
	case strings.Contains(lowerMsg, "timeout"), strings.Contains(lowerMsg, "deadline exceeded"):
		return apperrors.NewCollaboratorError("zeebe", fmt.Errorf("%w: %v", apperrors.ErrTimeout, wrapped))
	case strings.Contains(lowerMsg, "resource_exhausted"), strings.Contains(lowerMsg, "resource exhausted"):
		return apperrors.NewCollaboratorError("zeebe", fmt.Errorf("%w: %v", apperrors.ErrRateLimited, wrapped))
	case strings.Contains(lowerMsg, "not found"):
		return apperrors.NewCollaboratorError("zeebe", fmt.Errorf("%w: %v", apperrors.ErrNotFound, wrapped))
	default:
		return apperrors.NewCollaboratorError("zeebe", fmt.Errorf("%w: %v", apperrors.ErrUnavailable, wrapped))
	}
}

// HealthCheck asks the gateway for its topology.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
