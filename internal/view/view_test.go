package view

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/venueops/go-order-tracking/internal/recent"
	"github.com/venueops/go-order-tracking/internal/tracking"
)

type memStore struct{ nums []string }

func (m *memStore) List(context.Context) ([]string, error) { return m.nums, nil }

func (m *memStore) Touch(_ context.Context, n string) error {
	m.nums = append([]string{n}, m.nums...)
	return nil
}

var _ recent.Store = (*memStore)(nil)

const ord1001 = `{
	"id": "9a1f",
	"order_number": "ORD-1001",
	"venue_id": "v1",
	"customer": {"name": "Asha", "phone": "+911234567890"},
	"status": "preparing",
	"payment_status": "paid",
	"items": [
		{"menu_item_id": "m1", "name": "Paneer Tikka", "quantity": 1, "unit_price": 250, "is_veg": true},
		{"menu_item_id": "m2", "name": "Butter Naan", "quantity": 2, "unit_price": 125, "is_veg": true}
	],
	"pricing": {"subtotal": 500, "tax": 90, "discount": 0, "delivery_fee": 0, "total_amount": 590},
	"timeline": [
		{"status": "placed", "timestamp": "2026-09-01T18:00:00Z", "is_completed": true},
		{"status": "preparing", "timestamp": "2026-09-01T18:05:00Z", "is_current": true}
	],
	"placed_at": "2026-09-01T18:00:00Z"
}`

func testBackend(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orders/public/ORD-1001/status":
			fmt.Fprint(w, ord1001)
		case "/orders/public/ORD-EMPTY/status":
			fmt.Fprint(w, `{"id":"e1","order_number":"ORD-EMPTY","status":"placed","items":[],"pricing":{"total_amount":0},"placed_at":"2026-09-01T17:00:00Z"}`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newView(t *testing.T, srv *httptest.Server, nums ...string) (*View, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return &View{
		Client:  tracking.NewClient(srv.URL),
		Recents: &memStore{nums: nums},
		Out:     &buf,
		Now:     func() time.Time { return time.Date(2026, 9, 1, 18, 30, 0, 0, time.UTC) },
	}, &buf
}

func TestRefreshRendersOrder(t *testing.T) {
	srv := testBackend(t)
	defer srv.Close()

	v, buf := newView(t, srv, "ORD-1001")
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"ORD-1001",
		"Preparing",
		"43%", // (3/7)*100, rendered to the nearest percent
		"Paneer Tikka",
		"Butter Naan",
		"Total ₹590", // exactly as returned, not recomputed
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRefreshDropsFailedLookups(t *testing.T) {
	srv := testBackend(t)
	defer srv.Close()

	v, buf := newView(t, srv, "ORD-1001", "ORD-GONE")
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "ORD-1001") {
		t.Error("reachable order missing from output")
	}
	if strings.Contains(out, "ORD-GONE") {
		t.Error("failed lookup leaked into output")
	}
}

func TestRefreshAllFailuresRendersEmptyState(t *testing.T) {
	srv := testBackend(t)
	defer srv.Close()

	v, buf := newView(t, srv, "ORD-GONE", "ORD-ALSO-GONE")
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !strings.Contains(buf.String(), "No recent orders") {
		t.Errorf("expected the empty state, got:\n%s", buf.String())
	}
}

func TestRefreshEmptyRecents(t *testing.T) {
	srv := testBackend(t)
	defer srv.Close()

	v, buf := newView(t, srv)
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !strings.Contains(buf.String(), "No recent orders") {
		t.Errorf("expected the empty state, got:\n%s", buf.String())
	}
}

func TestZeroItemOrderRenders(t *testing.T) {
	srv := testBackend(t)
	defer srv.Close()

	v, buf := newView(t, srv, "ORD-EMPTY")
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "ORD-EMPTY") {
		t.Errorf("zero-item order missing:\n%s", out)
	}
	if strings.Contains(out, "No recent orders") {
		t.Error("zero items is not the empty state")
	}
}

func TestNewestFirst(t *testing.T) {
	srv := testBackend(t)
	defer srv.Close()

	// ORD-EMPTY was placed before ORD-1001, so it renders second even
	// though it is listed first.
	v, buf := newView(t, srv, "ORD-EMPTY", "ORD-1001")
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	out := buf.String()
	if strings.Index(out, "ORD-1001") > strings.Index(out, "ORD-EMPTY") {
		t.Errorf("orders not newest-first:\n%s", out)
	}
}
