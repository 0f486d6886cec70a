package model

import (
	"time"

	"github.com/shopspring/decimal"

	"personal-vault/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusOnTrial   SubscriptionStatus = "on_trial"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusUnpaid    SubscriptionStatus = "unpaid"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// AllSubscriptionStatuses is used by tests and metrics to enumerate states.
var AllSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusActive,
	SubscriptionStatusOnTrial,
	SubscriptionStatusPaused,
	SubscriptionStatusPastDue,
	SubscriptionStatusUnpaid,
	SubscriptionStatusCancelled,
	SubscriptionStatusExpired,
}

// Subscription is the local projection of a provider-owned subscription.
// Rows are never hard-deleted; every change is a status transition.
type Subscription struct {
	ID              string // UUID
	ProviderSubID   string // provider's subscription id, unique
	OrderID         string
	CustomerID      string
	ProductID       string // UUID -> Product
	UserID          string // owning vault user
	Status          SubscriptionStatus
	Price           decimal.Decimal // major units
	Currency        string          // ISO 4217, upper case
	RenewsAt        *time.Time
	EndsAt          *time.Time
	TrialEndsAt     *time.Time
	CancelledReason string
	CancelledAt     *time.Time
	LastWebhookAt   *time.Time // provider timestamp of the last applied event
	WebhookCount    int64      // +1 per applied (non-duplicate) event
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// allowedTransitions is the explicit edge table of the reconciliation state
// machine. The provider is the source of truth, so terminal states still
// accept later corrections (e.g. cancelled -> active on resume).
var allowedTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusActive: {
		SubscriptionStatusPaused, SubscriptionStatusPastDue,
		SubscriptionStatusCancelled, SubscriptionStatusExpired,
	},
	SubscriptionStatusOnTrial: {
		SubscriptionStatusActive, SubscriptionStatusPastDue,
		SubscriptionStatusCancelled, SubscriptionStatusExpired,
	},
	SubscriptionStatusPaused: {
		SubscriptionStatusActive, SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	},
	SubscriptionStatusPastDue: {
		SubscriptionStatusActive, SubscriptionStatusUnpaid,
		SubscriptionStatusCancelled, SubscriptionStatusExpired,
	},
	SubscriptionStatusUnpaid: {
		SubscriptionStatusActive, SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	},
	SubscriptionStatusCancelled: {
		SubscriptionStatusActive, SubscriptionStatusExpired,
	},
	SubscriptionStatusExpired: {
		SubscriptionStatusActive,
	},
}

// CanTransition reports whether moving from the current status to next is an
// allowed edge. A same-status "transition" is always permitted (field-only
// updates do not change state).
func (s *Subscription) CanTransition(next SubscriptionStatus) bool {
	if s.Status == next {
		return true
	}
	for _, allowed := range allowedTransitions[s.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s *Subscription) IsTerminal() bool {
	return s.Status == SubscriptionStatusCancelled || s.Status == SubscriptionStatusExpired
}

// NewSubscription validates and constructs a subscription from a creation event.
func NewSubscription(id, providerSubID, userID, productID string, status SubscriptionStatus, price decimal.Decimal, currency string) (*Subscription, error) {
	if id == "" || providerSubID == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:            id,
		ProviderSubID: providerSubID,
		UserID:        userID,
		ProductID:     productID,
		Status:        status,
		Price:         price,
		Currency:      currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
