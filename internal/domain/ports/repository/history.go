package repository

import (
	"context"

	"personal-vault/internal/domain/model"
)

// HistoryRepository is the append-only port for the audit trail.
type HistoryRepository interface {
	Append(ctx context.Context, tx Tx, h *model.SubscriptionHistory) error

	// ListBySubscription returns rows newest-first.
	ListBySubscription(ctx context.Context, tx Tx, subscriptionID string, offset, limit int) ([]*model.SubscriptionHistory, int, error)
}
