package repository

import (
	"context"
	"time"

	"personal-vault/internal/domain/model"
)

// InvoiceRepository is the port for the invoice side of the ledger.
type InvoiceRepository interface {
	Save(ctx context.Context, tx Tx, inv *model.Invoice) error

	// FindByPeriodStart returns the invoice covering the billing period that
	// starts at periodStart, or ErrNotFound.
	FindByPeriodStart(ctx context.Context, tx Tx, subscriptionID string, periodStart time.Time) (*model.Invoice, error)

	ListBySubscription(ctx context.Context, tx Tx, subscriptionID string, offset, limit int) ([]*model.Invoice, int, error)
}

// TransactionRepository is the port for the payment side of the ledger.
type TransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Transaction) error
	FindByProviderTxnID(ctx context.Context, tx Tx, providerTxnID string) (*model.Transaction, error)
	ListBySubscription(ctx context.Context, tx Tx, subscriptionID string, offset, limit int) ([]*model.Transaction, int, error)
}
