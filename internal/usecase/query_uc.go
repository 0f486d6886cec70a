// File: internal/usecase/query_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"personal-vault/internal/domain"
	"personal-vault/internal/domain/model"
	"personal-vault/internal/domain/ports/repository"
	"personal-vault/internal/infra/logging"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// QueryUC serves the read side: paginated, owner-scoped lookups. A
// subscription owned by someone else reads as absent, never as forbidden.
type QueryUC struct {
	subRepo     repository.SubscriptionRepository
	productRepo repository.ProductRepository
	invoiceRepo repository.InvoiceRepository
	txnRepo     repository.TransactionRepository
	historyRepo repository.HistoryRepository

	log *zerolog.Logger
}

func NewQueryUC(
	subRepo repository.SubscriptionRepository,
	productRepo repository.ProductRepository,
	invoiceRepo repository.InvoiceRepository,
	txnRepo repository.TransactionRepository,
	historyRepo repository.HistoryRepository,
	logger *zerolog.Logger,
) *QueryUC {
	return &QueryUC{
		subRepo:     subRepo,
		productRepo: productRepo,
		invoiceRepo: invoiceRepo,
		txnRepo:     txnRepo,
		historyRepo: historyRepo,
		log:         logger,
	}
}

// ListSubscriptions returns one page of the user's subscriptions, optionally
// filtered by status, plus the total count for pagination.
func (uc *QueryUC) ListSubscriptions(ctx context.Context, userID string, status model.SubscriptionStatus, page, limit int) ([]*model.Subscription, int, error) {
	if userID == "" {
		return nil, 0, domain.ErrInvalidArgument
	}
	if status != "" {
		if _, err := ProviderStatusLabel(status); err != nil {
			return nil, 0, fmt.Errorf("%w: unknown status filter %q", domain.ErrInvalidArgument, status)
		}
	}
	offset, limit := pageOffset(page, limit)
	return uc.subRepo.ListByUser(ctx, nil, userID, status, offset, limit)
}

// GetSubscription returns the subscription and its product, scoped to the
// requesting user.
func (uc *QueryUC) GetSubscription(ctx context.Context, userID, subID string) (*model.Subscription, *model.Product, error) {
	sub, err := uc.ownedSubscription(ctx, userID, subID)
	if err != nil {
		return nil, nil, err
	}

	var product *model.Product
	if sub.ProductID != "" {
		product, err = uc.productRepo.FindByID(ctx, nil, sub.ProductID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, err
		}
	}
	return sub, product, nil
}

func (uc *QueryUC) ListInvoices(ctx context.Context, userID, subID string, page, limit int) ([]*model.Invoice, int, error) {
	sub, err := uc.ownedSubscription(ctx, userID, subID)
	if err != nil {
		return nil, 0, err
	}
	offset, limit := pageOffset(page, limit)
	return uc.invoiceRepo.ListBySubscription(ctx, nil, sub.ID, offset, limit)
}

func (uc *QueryUC) ListTransactions(ctx context.Context, userID, subID string, page, limit int) ([]*model.Transaction, int, error) {
	sub, err := uc.ownedSubscription(ctx, userID, subID)
	if err != nil {
		return nil, 0, err
	}
	offset, limit := pageOffset(page, limit)
	return uc.txnRepo.ListBySubscription(ctx, nil, sub.ID, offset, limit)
}

// ListHistory returns the audit trail newest-first.
func (uc *QueryUC) ListHistory(ctx context.Context, userID, subID string, page, limit int) ([]*model.SubscriptionHistory, int, error) {
	sub, err := uc.ownedSubscription(ctx, userID, subID)
	if err != nil {
		return nil, 0, err
	}
	offset, limit := pageOffset(page, limit)
	return uc.historyRepo.ListBySubscription(ctx, nil, sub.ID, offset, limit)
}

// ownedSubscription loads the subscription and enforces ownership. A
// mismatch deliberately reads as ErrNotFound so existence never leaks.
func (uc *QueryUC) ownedSubscription(ctx context.Context, userID, subID string) (*model.Subscription, error) {
	if userID == "" || subID == "" {
		return nil, domain.ErrInvalidArgument
	}
	sub, err := uc.subRepo.FindByID(ctx, nil, subID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		logging.With(ctx, uc.log).Debug().
			Str("sub_id", subID).
			Msg("ownership mismatch on subscription read")
		return nil, domain.ErrNotFound
	}
	return sub, nil
}

// pageOffset normalizes 1-based page/limit query values into an offset.
func pageOffset(page, limit int) (offset, normalizedLimit int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return (page - 1) * limit, limit
}
