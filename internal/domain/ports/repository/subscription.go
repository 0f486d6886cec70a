package repository

import (
	"context"

	"personal-vault/internal/domain/model"
)

// SubscriptionRepository is the port for the subscription aggregate.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error

	// SaveGuarded persists s only if the stored webhook_count still equals
	// expectedCount. Returns false when another handler won the race.
	SaveGuarded(ctx context.Context, tx Tx, s *model.Subscription, expectedCount int64) (bool, error)

	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)

	// FindByProviderSubID locks the row FOR UPDATE when called inside a
	// transaction; webhook application relies on that for per-subscription
	// serialization.
	FindByProviderSubID(ctx context.Context, tx Tx, providerSubID string) (*model.Subscription, error)

	// ListByUser returns one page of the user's subscriptions plus the total
	// count. status filters when non-empty.
	ListByUser(ctx context.Context, tx Tx, userID string, status model.SubscriptionStatus, offset, limit int) ([]*model.Subscription, int, error)

	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
