package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/venueops/go-order-tracking/internal/tracking"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// Repo assembles customer-facing tracking snapshots and applies status
// transitions. The orders/order_items/order_status_log tables are the
// source of truth; timeline flags are derived here, not stored.
type Repo struct{ DB *pgxpool.Pool }

// GetTracking loads the snapshot by order id or order number (the public
// endpoint accepts either). tracking.ErrNotFound on no match.
func (r *Repo) GetTracking(ctx context.Context, idOrNumber string) (*tracking.OrderTracking, error) {
	var t tracking.OrderTracking
	var estMinutes *int
	err := r.DB.QueryRow(ctx, `
		SELECT id, order_number, venue_id, COALESCE(table_id,''), COALESCE(table_number,''),
		       customer_name, customer_phone, COALESCE(customer_email,''),
		       status, payment_status,
		       subtotal, tax, discount, delivery_fee, total_amount,
		       estimated_minutes, placed_at
		FROM orders
		WHERE id::text = $1 OR order_number = $1`, idOrNumber).Scan(
		&t.ID, &t.OrderNumber, &t.VenueID, &t.TableID, &t.TableNumber,
		&t.Customer.Name, &t.Customer.Phone, &t.Customer.Email,
		&t.Status, &t.PaymentStatus,
		&t.Pricing.Subtotal, &t.Pricing.Tax, &t.Pricing.Discount,
		&t.Pricing.DeliveryFee, &t.Pricing.TotalAmount,
		&estMinutes, &t.PlacedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", tracking.ErrNotFound, idOrNumber)
	}
	if err != nil {
		return nil, err
	}
	if estMinutes != nil && !t.Status.Terminal() {
		ready := tracking.EstimatedReady(t.PlacedAt, *estMinutes)
		t.EstimatedReadyAt = &ready
	}

	if err := r.loadItems(ctx, &t); err != nil {
		return nil, err
	}
	if err := r.loadTimeline(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) loadItems(ctx context.Context, t *tracking.OrderTracking) error {
	rows, err := r.DB.Query(ctx, `
		SELECT menu_item_id, name, quantity, unit_price, is_veg, COALESCE(category,'')
		FROM order_items WHERE order_id = $1 ORDER BY position`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	t.Items = []tracking.OrderItem{}
	for rows.Next() {
		var it tracking.OrderItem
		if err := rows.Scan(&it.MenuItemID, &it.Name, &it.Quantity, &it.UnitPrice, &it.Veg, &it.Category); err != nil {
			return err
		}
		t.Items = append(t.Items, it)
	}
	return rows.Err()
}

// loadTimeline marks the last entry current and everything before it
// completed, the invariant clients rely on.
func (r *Repo) loadTimeline(ctx context.Context, t *tracking.OrderTracking) error {
	rows, err := r.DB.Query(ctx, `
		SELECT status, changed_at, COALESCE(notes,''), COALESCE(estimated_minutes,0)
		FROM order_status_log WHERE order_id = $1 ORDER BY changed_at`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	t.Timeline = []tracking.TimelineEvent{}
	for rows.Next() {
		var ev tracking.TimelineEvent
		if err := rows.Scan(&ev.Status, &ev.Timestamp, &ev.Message, &ev.EstimatedMinutes); err != nil {
			return err
		}
		t.Timeline = append(t.Timeline, ev)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range t.Timeline {
		if i == len(t.Timeline)-1 {
			t.Timeline[i].IsCurrent = true
		} else {
			t.Timeline[i].IsCompleted = true
			t.Timeline[i].ActualMinutes = int(t.Timeline[i+1].Timestamp.Sub(t.Timeline[i].Timestamp).Minutes())
		}
	}
	return nil
}

// Transition moves the order to a new status inside one transaction,
// appending to the status log. The current row is locked so concurrent
// updates serialize; an illegal move returns ErrInvalidTransition. The
// order number comes back with the venue id so callers can invalidate
// snapshots cached under either alias.
func (r *Repo) Transition(ctx context.Context, orderID string, to tracking.Status, changedBy, notes string) (*tracking.LiveOrderUpdate, string, string, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, "", "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id, venueID, orderNumber string
	var from tracking.Status
	err = tx.QueryRow(ctx, `
		SELECT id, venue_id, order_number, status FROM orders
		WHERE id::text = $1 OR order_number = $1 FOR UPDATE`, orderID).Scan(&id, &venueID, &orderNumber, &from)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", "", fmt.Errorf("%w: %s", tracking.ErrNotFound, orderID)
	}
	if err != nil {
		return nil, "", "", err
	}
	if !tracking.CanTransition(from, to) {
		return nil, "", "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`, id, to, now); err != nil {
		return nil, "", "", err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log(order_id, status, changed_by, changed_at, notes)
		VALUES ($1, $2, $3, $4, $5)`, id, to, changedBy, now, notes); err != nil {
		return nil, "", "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, "", "", err
	}

	return &tracking.LiveOrderUpdate{
		OrderID:   id,
		Status:    to,
		Message:   notes,
		Timestamp: now,
	}, venueID, orderNumber, nil
}
