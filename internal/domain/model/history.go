package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	HistoryChangedByProvider = "provider"
	HistoryChangedBySystem   = "system"
)

// SubscriptionHistory is one immutable audit row. Rows are append-only and
// ordered by ChangedAt; the newest row's NewStatus always equals the
// subscription's current status.
type SubscriptionHistory struct {
	ID             string // ULID
	SubscriptionID string // UUID -> Subscription
	PreviousStatus SubscriptionStatus
	NewStatus      SubscriptionStatus
	PreviousPrice  decimal.Decimal
	NewPrice       decimal.Decimal
	Reason         string
	Meta           map[string]interface{} // opaque, stored as JSONB
	ChangedAt      time.Time
	ChangedBy      string // "provider" or "system"
}
