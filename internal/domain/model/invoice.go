package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is one billing-cycle entry of the ledger. It may exist before any
// transaction has been recorded for the period, and vice versa.
type Invoice struct {
	ID             string // UUID
	Number         string // ULID, lexically ordered by issue time
	SubscriptionID string // UUID -> Subscription
	Amount         decimal.Decimal
	Currency       string
	Status         InvoiceStatus
	DueAt          *time.Time
	PaidAt         *time.Time
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
