package events

import (
	"context"
	"time"
)

// Collections that produce change notices.
const (
	CollectionOrders    = "orders"
	CollectionTables    = "restaurant_tables"
	CollectionMenuItems = "menu_items"
	CollectionStaff     = "restaurant_staff"
)

const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Notice says a record changed. It never carries the record itself; subscribers
// re-read what they need.
type Notice struct {
	ID           string    `json:"id"`
	Origin       string    `json:"origin"`
	RestaurantID uint      `json:"restaurant_id"`
	Collection   string    `json:"collection"`
	Action       string    `json:"action"`
	RecordID     uint      `json:"record_id"`
	At           time.Time `json:"at"`
}

// Publisher accepts notices after the corresponding write committed.
type Publisher interface {
	Publish(ctx context.Context, n Notice)
}

// Forwarder ships locally published notices elsewhere (e.g. Kafka).
type Forwarder interface {
	Forward(ctx context.Context, n Notice) error
}

// Discard drops every notice.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Notice) {}
