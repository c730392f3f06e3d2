package services

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/codyseavey/card-catalog/internal/metrics"
)

// InvalidationEvent is emitted after the catalog version is bumped.
type InvalidationEvent struct {
	NewVersion uint64 `json:"newVersion"`
}

// Broadcaster owns the global catalog version and fans invalidation signals
// out to in-process subscribers. It does not reach other processes; remote
// sessions converge through the version endpoint instead.
type Broadcaster struct {
	version atomic.Uint64

	mu     sync.Mutex
	subs   map[int]chan InvalidationEvent
	nextID int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]chan InvalidationEvent),
	}
}

// Version returns the current global catalog version.
func (b *Broadcaster) Version() uint64 {
	return b.version.Load()
}

// Invalidate bumps the version and signals every subscriber. A slow
// subscriber only ever holds the newest event; Invalidate never blocks on it.
func (b *Broadcaster) Invalidate() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	v := b.version.Add(1)
	ev := InvalidationEvent{NewVersion: v}
	for _, ch := range b.subs {
		sendLatest(ch, ev)
	}

	metrics.InvalidationsTotal.Inc()
	metrics.CatalogVersion.Set(float64(v))
	log.Printf("Catalog invalidated: version %d (%d subscribers)", v, len(b.subs))
	return v
}

// Subscribe registers a listener. The returned func unsubscribes and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan InvalidationEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan InvalidationEvent, 1)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// sendLatest delivers v on a buffered channel, replacing an unread older value.
func sendLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
