package arr

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum spacing between external calls across every
// client sharing it. Wait blocks the caller until its reserved slot arrives,
// providing backpressure rather than a call-count cap.
type Pacer struct {
	mu      sync.Mutex
	spacing time.Duration
	next    time.Time
}

// NewPacer returns a pacer with the given spacing. Zero or negative spacing
// disables pacing.
func NewPacer(spacing time.Duration) *Pacer {
	return &Pacer{spacing: spacing}
}

// Wait blocks until the next call slot, or until the context is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.spacing <= 0 {
		return ctx.Err()
	}

	p.mu.Lock()
	now := time.Now()
	wait := p.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	p.next = now.Add(wait + p.spacing)
	p.mu.Unlock()

	if wait == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
