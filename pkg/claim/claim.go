// Package claim serializes work on one execution across workers with short-lived leases.
package claim

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL bounds how long a crashed worker can hold an execution.
const DefaultTTL = 2 * time.Minute

// ErrHeld is returned by Acquire when another holder owns the key.
var ErrHeld = errors.New("claim held by another worker")

// Lease is proof of ownership of a key until it expires or is released.
type Lease struct {
	Key       string
	Token     string
	ExpiresAt time.Time
}

// Claimer hands out exclusive leases on keys.
type Claimer interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error)
	// Release gives the lease back. Releasing an expired or stolen lease is a no-op.
	Release(ctx context.Context, lease *Lease) error
}

// ExecutionKey is the claim key of an execution instance.
func ExecutionKey(executionID string) string {
	return "leadflow:claim:execution:" + executionID
}

// CampaignKey is the claim key of a campaign firing.
func CampaignKey(campaignID string) string {
	return "leadflow:claim:campaign:" + campaignID
}

func newToken() string {
	return uuid.NewString()
}
