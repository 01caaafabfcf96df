package live

import (
	"context"
	"time"

	"github.com/venueops/go-order-tracking/internal/tracking"
)

// Poller is the explicit polling strategy: it re-fetches snapshots on an
// interval and emits the same order-status events the push channel would.
// It is selected by configuration, never hidden behind a subscribe call.
type Poller struct {
	Client   *tracking.Client
	Interval time.Duration
	// Orders supplies the order numbers to poll on each tick.
	Orders func(ctx context.Context) []string

	events Emitter
	last   map[string]tracking.Status
}

func (p *Poller) Events() *Emitter { return &p.events }

// Run polls until ctx is done. Lookup failures are skipped silently, like
// every other read path in this client.
func (p *Poller) Run(ctx context.Context) {
	if p.Interval <= 0 {
		p.Interval = 15 * time.Second
	}
	p.last = make(map[string]tracking.Status)
	t := time.NewTicker(p.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	for _, n := range p.Orders(ctx) {
		snap := p.Client.Lookup(ctx, n)
		if snap == nil {
			continue
		}
		if prev, seen := p.last[n]; seen && prev == snap.Status {
			continue
		}
		p.last[n] = snap.Status
		p.events.orderStatus.emit(tracking.LiveOrderUpdate{
			OrderID:          snap.ID,
			Status:           snap.Status,
			EstimatedReadyAt: snap.EstimatedReadyAt,
			Timestamp:        time.Now().UTC(),
		})
	}
}
