// Package view renders tracking snapshots for the recently viewed orders.
// It is read-and-render only: no retries, no pagination, no push
// subscription of its own. Refresh is the manual refresh.
package view

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/venueops/go-order-tracking/internal/recent"
	"github.com/venueops/go-order-tracking/internal/tracking"
)

const barWidth = 28

type View struct {
	Client  *tracking.Client
	Recents recent.Store
	Out     io.Writer

	Currency string
	Locale   language.Tag
	// Now is swappable for tests.
	Now func() time.Time
}

func (v *View) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *View) currency() string {
	if v.Currency != "" {
		return v.Currency
	}
	return "INR"
}

// Refresh re-reads the recent list, resolves every snapshot and renders the
// result. Per-order failures are dropped from the output, never surfaced;
// only a failure to read the list itself is an error.
func (v *View) Refresh(ctx context.Context) error {
	nums, err := v.Recents.List(ctx)
	if err != nil {
		return fmt.Errorf("recent orders: %w", err)
	}
	snaps := v.resolve(ctx, nums)
	v.render(snaps)
	return nil
}

// resolve fetches all snapshots in parallel, one request per order, no
// concurrency cap. A failed lookup leaves a hole that is filtered out.
func (v *View) resolve(ctx context.Context, nums []string) []*tracking.OrderTracking {
	results := make([]*tracking.OrderTracking, len(nums))
	g, ctx := errgroup.WithContext(ctx)
	for i, n := range nums {
		i, n := i, n
		g.Go(func() error {
			results[i] = v.Client.Lookup(ctx, n)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*tracking.OrderTracking, 0, len(results))
	for _, t := range results {
		if t != nil {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PlacedAt.After(out[j].PlacedAt)
	})
	return out
}

func (v *View) render(snaps []*tracking.OrderTracking) {
	if len(snaps) == 0 {
		fmt.Fprintln(v.Out, "No recent orders to show.")
		fmt.Fprintln(v.Out, "Orders you place will appear here. Refresh to try again.")
		return
	}
	for i, t := range snaps {
		if i > 0 {
			fmt.Fprintln(v.Out)
		}
		v.renderOrder(t)
	}
}

func (v *View) renderOrder(t *tracking.OrderTracking) {
	d := tracking.Display(t.Status)
	pct := tracking.ProgressPercent(t.Status)

	fmt.Fprintf(v.Out, "%s  %s\n", t.OrderNumber, d.Label)
	fmt.Fprintf(v.Out, "  %s %.0f%%\n", progressBar(pct), pct)
	fmt.Fprintf(v.Out, "  %s\n", d.Description)
	if !t.PlacedAt.IsZero() {
		fmt.Fprintf(v.Out, "  Placed %s at %s\n",
			tracking.FormatElapsed(t.PlacedAt, v.now()), tracking.FormatClock(t.PlacedAt))
	}
	if t.EstimatedReadyAt != nil && !t.Status.Terminal() {
		fmt.Fprintf(v.Out, "  Estimated ready by %s\n", tracking.FormatClock(*t.EstimatedReadyAt))
	}

	for _, it := range t.Items {
		fmt.Fprintf(v.Out, "  %d x %-24s %s\n",
			it.Quantity, it.Name, v.money(it.UnitPrice*float64(it.Quantity)))
	}

	fmt.Fprintf(v.Out, "  Subtotal %s", v.money(t.Pricing.Subtotal))
	if t.Pricing.Tax > 0 {
		fmt.Fprintf(v.Out, "  Tax %s", v.money(t.Pricing.Tax))
	}
	if t.Pricing.Discount > 0 {
		fmt.Fprintf(v.Out, "  Discount -%s", v.money(t.Pricing.Discount))
	}
	if t.Pricing.DeliveryFee > 0 {
		fmt.Fprintf(v.Out, "  Delivery %s", v.money(t.Pricing.DeliveryFee))
	}
	fmt.Fprintf(v.Out, "  Total %s\n", v.money(t.Pricing.TotalAmount))

	for _, ev := range t.Timeline {
		mark := " "
		switch {
		case ev.IsCurrent:
			mark = ">"
		case ev.IsCompleted:
			mark = "x"
		}
		line := fmt.Sprintf("  [%s] %-18s %s", mark, tracking.Display(ev.Status).Label,
			tracking.FormatClock(ev.Timestamp))
		if ev.Message != "" {
			line += "  " + ev.Message
		}
		fmt.Fprintln(v.Out, line)
	}
}

func (v *View) money(amount float64) string {
	loc := v.Locale
	if loc == (language.Tag{}) {
		loc = language.English
	}
	return tracking.FormatCurrency(amount, v.currency(), loc)
}

func progressBar(pct float64) string {
	filled := int(pct / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}
