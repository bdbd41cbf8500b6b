package reminder

import (
	"context"
	"sync"
	"time"
)

// Cache serves the latest snapshot, refreshing it with a dry run once it is
// older than ttl. Concurrent callers share one refresh.
type Cache struct {
	svc  *Service
	opts Options
	ttl  time.Duration

	mu sync.Mutex
}

func NewCache(svc *Service, opts Options, ttl time.Duration) *Cache {
	opts.DryRun = true
	return &Cache{svc: svc, opts: opts, ttl: ttl}
}

func (c *Cache) Current(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap, ok := c.svc.Last(); ok && c.svc.now().Sub(snap.GeneratedAt) < c.ttl {
		return snap, nil
	}
	res, err := c.svc.Run(ctx, c.opts)
	if err != nil {
		if snap, ok := c.svc.Last(); ok {
			c.svc.logger.Warn("snapshot_refresh_failed", "error", err, "generated_at", snap.GeneratedAt)
			return snap, nil
		}
		return Snapshot{}, err
	}
	return res.Snapshot, nil
}
