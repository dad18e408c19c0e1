package claim

import (
	"context"
	"sync"
	"time"
)

// MemoryClaimer serializes claims within one process.
type MemoryClaimer struct {
	mu     sync.Mutex
	leases map[string]Lease
	now    func() time.Time
}

func NewMemoryClaimer() *MemoryClaimer {
	return &MemoryClaimer{
		leases: make(map[string]Lease),
		now:    time.Now,
	}
}

func (c *MemoryClaimer) Acquire(_ context.Context, key string, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if current, ok := c.leases[key]; ok && current.ExpiresAt.After(now) {
		return nil, ErrHeld
	}

	lease := Lease{Key: key, Token: newToken(), ExpiresAt: now.Add(ttl)}
	c.leases[key] = lease

	return &lease, nil
}

func (c *MemoryClaimer) Release(_ context.Context, lease *Lease) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current, ok := c.leases[lease.Key]; ok && current.Token == lease.Token {
		delete(c.leases, lease.Key)
	}

	return nil
}
