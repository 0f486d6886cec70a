package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending           TransactionStatus = "pending"
	TransactionStatusSuccess           TransactionStatus = "success"
	TransactionStatusFailed            TransactionStatus = "failed"
	TransactionStatusRefunded          TransactionStatus = "refunded"
	TransactionStatusPartiallyRefunded TransactionStatus = "partially_refunded"
)

// Transaction records one payment attempt reported by the provider. Amounts
// are taken verbatim from the normalized event attributes.
type Transaction struct {
	ID             string // UUID
	ProviderTxnID  string // provider's transaction id, unique
	SubscriptionID string // UUID -> Subscription
	InvoiceID      *string
	Amount         decimal.Decimal
	Currency       string
	Status         TransactionStatus
	PaidAt         *time.Time
	RefundAmount   *decimal.Decimal
	RefundedAt     *time.Time
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	FailureReason  string
	Meta           map[string]interface{} // opaque, stored as JSONB
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
