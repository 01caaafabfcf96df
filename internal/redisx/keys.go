package redisx

import "time"

const (
	// Cached tracking snapshot: tracking:{order_id_or_number} -> OrderTracking JSON
	KeyTrackingSnapshot = "tracking:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Recently viewed orders per device/user: recent_orders:{owner} (list, newest first)
	KeyRecentOrders = "recent_orders:%s"
)

var (
	TTLSnapshotCache = 5 * time.Minute
	TTLDedup         = 48 * time.Hour
)
