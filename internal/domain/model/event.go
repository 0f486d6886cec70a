package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventName is the internal identifier of a provider webhook event.
type EventName string

const (
	EventSubscriptionCreated          EventName = "subscription_created"
	EventSubscriptionUpdated          EventName = "subscription_updated"
	EventSubscriptionCancelled        EventName = "subscription_cancelled"
	EventSubscriptionResumed          EventName = "subscription_resumed"
	EventSubscriptionPaused           EventName = "subscription_paused"
	EventSubscriptionUnpaused         EventName = "subscription_unpaused"
	EventSubscriptionExpired          EventName = "subscription_expired"
	EventSubscriptionPaymentSuccess   EventName = "subscription_payment_success"
	EventSubscriptionPaymentFailed    EventName = "subscription_payment_failed"
	EventSubscriptionPaymentRecovered EventName = "subscription_payment_recovered"
	EventSubscriptionPaymentRefunded  EventName = "subscription_payment_refunded"
)

// IsPaymentEvent reports whether the event carries payment-attempt data and
// therefore drives Transaction (and possibly Invoice) ledger writes.
func (n EventName) IsPaymentEvent() bool {
	switch n {
	case EventSubscriptionPaymentSuccess, EventSubscriptionPaymentFailed,
		EventSubscriptionPaymentRecovered, EventSubscriptionPaymentRefunded:
		return true
	}
	return false
}

// ProductInfo carries the provider's product attributes so the catalog can be
// synced lazily when an event references an unseen product.
type ProductInfo struct {
	ProviderProductID string
	ProviderVariantID string
	Name              string
	Price             decimal.Decimal
	Currency          string
	Interval          BillingInterval
}

// PaymentInfo is the normalized payment-attempt portion of a billing event.
type PaymentInfo struct {
	ProviderTxnID string
	Amount        decimal.Decimal
	Currency      string
	RefundAmount  *decimal.Decimal
	RefundedAt    *time.Time
	PeriodStart   *time.Time
	PeriodEnd     *time.Time
	FailureReason string
}

// BillingEvent is a provider webhook translated into domain vocabulary by the
// normalizer. Amounts are decimal major units and the status is one of the
// seven internal statuses.
type BillingEvent struct {
	Name            EventName
	ProviderEventID string // empty when the provider does not send one
	ProviderSubID   string
	OrderID         string
	CustomerID      string
	UserID          string       // from custom_data, set by checkout
	ProductID       string       // resolved local product UUID, set during apply
	Product         *ProductInfo // provider product attributes, when present
	Status          SubscriptionStatus // empty when the event makes no status claim
	Price           decimal.Decimal
	Currency        string
	RenewsAt        *time.Time
	EndsAt          *time.Time
	TrialEndsAt     *time.Time
	CancelledReason string
	OccurredAt      time.Time // provider-side updated_at, used for recency
	Payment         *PaymentInfo
	Meta            map[string]interface{} // pass-through attributes we do not model
	DedupKey        string                 // idempotency key, see normalizer
}
