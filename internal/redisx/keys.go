package redisx

import "time"

const (
	// Cache of order status, scoped to the requesting owner so a cached
	// entry never leaks across identities: order_status:{owner}:{order_number}
	KeyOrderStatus = "order_status:%s:%s"

	// Dedup of processed notification events: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
