package services

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// VersionSource reports the catalog version of the source of truth.
type VersionSource interface {
	Version(ctx context.Context) (uint64, error)
}

// RemoteVersionPoller bridges invalidations across processes: it watches a
// remote version and bumps the local broadcaster whenever the remote one
// moves, so local consumers refetch.
type RemoteVersionPoller struct {
	source      VersionSource
	broadcaster *Broadcaster
	interval    time.Duration

	// degraded reports whether local data is a fallback that should be
	// retried even though the remote version did not move.
	degraded func() bool

	mu         sync.RWMutex
	lastRemote uint64
	seen       bool
	failing    atomic.Bool
}

// PollerOption customizes a RemoteVersionPoller
type PollerOption func(*RemoteVersionPoller)

// WithDegradedCheck makes every successful check invalidate while degraded
// returns true, so fallback data is replaced once the remote can serve.
func WithDegradedCheck(degraded func() bool) PollerOption {
	return func(p *RemoteVersionPoller) { p.degraded = degraded }
}

// NewRemoteVersionPoller creates a poller checking source every interval
func NewRemoteVersionPoller(source VersionSource, broadcaster *Broadcaster, interval time.Duration, opts ...PollerOption) *RemoteVersionPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	p := &RemoteVersionPoller{
		source:      source,
		broadcaster: broadcaster,
		interval:    interval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling until ctx is done
func (p *RemoteVersionPoller) Start(ctx context.Context) {
	log.Printf("Version poller started: checking every %s", p.interval)

	p.Check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Version poller stopping...")
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Check fetches the remote version once and invalidates the local cache if
// the remote moved or just came back after failed checks. It also
// invalidates while the degraded hook reports fallback data. It returns
// whether it invalidated.
func (p *RemoteVersionPoller) Check(ctx context.Context) bool {
	version, err := p.source.Version(ctx)
	if err != nil {
		if p.failing.CompareAndSwap(false, true) {
			log.Printf("Version poller: failed to read remote version: %v", err)
		}
		return false
	}

	recovered := p.failing.CompareAndSwap(true, false)
	if recovered {
		log.Println("Version poller: remote reachable again")
	}

	p.mu.Lock()
	// A remote restart resets its counter; any difference means new data.
	moved := p.seen && version != p.lastRemote
	p.lastRemote = version
	p.seen = true
	p.mu.Unlock()

	invalidate := moved || recovered || (p.degraded != nil && p.degraded())
	if invalidate {
		p.broadcaster.Invalidate()
	}
	return invalidate
}

// LastRemoteVersion returns the most recently observed remote version.
func (p *RemoteVersionPoller) LastRemoteVersion() (uint64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastRemote, p.seen
}
