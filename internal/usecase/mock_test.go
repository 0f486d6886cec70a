//go:build !integration

// File: internal/usecase/mock_test.go
package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"personal-vault/internal/domain"
	"personal-vault/internal/domain/model"
	"personal-vault/internal/domain/ports/repository"
)

// Compile-time checks to ensure mocks satisfy the ports.
var (
	_ repository.TransactionManager     = (*mockTxManager)(nil)
	_ repository.SubscriptionRepository = (*mockSubscriptionRepo)(nil)
	_ repository.ProductRepository      = (*mockProductRepo)(nil)
	_ repository.InvoiceRepository      = (*mockInvoiceRepo)(nil)
	_ repository.TransactionRepository  = (*mockTransactionRepo)(nil)
	_ repository.HistoryRepository      = (*mockHistoryRepo)(nil)
	_ repository.DedupStore             = (*mockDedupStore)(nil)
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// mockTxManager runs the function inline with a nil handle by default, so
// use-case logic is exercised without a database.
type mockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
	Calls      int
}

func (m *mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.Calls++
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

type mockSubscriptionRepo struct {
	SaveFunc                func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	SaveGuardedFunc         func(ctx context.Context, tx repository.Tx, s *model.Subscription, expectedCount int64) (bool, error)
	FindByIDFunc            func(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error)
	FindByProviderSubIDFunc func(ctx context.Context, tx repository.Tx, providerSubID string) (*model.Subscription, error)
	ListByUserFunc          func(ctx context.Context, tx repository.Tx, userID string, status model.SubscriptionStatus, offset, limit int) ([]*model.Subscription, int, error)
	CountByStatusFunc       func(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error)

	Saved []*model.Subscription
}

func (m *mockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.Saved = append(m.Saved, s)
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, s)
	}
	return nil
}

func (m *mockSubscriptionRepo) SaveGuarded(ctx context.Context, tx repository.Tx, s *model.Subscription, expectedCount int64) (bool, error) {
	m.Saved = append(m.Saved, s)
	if m.SaveGuardedFunc != nil {
		return m.SaveGuardedFunc(ctx, tx, s, expectedCount)
	}
	return true, nil
}

func (m *mockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockSubscriptionRepo) FindByProviderSubID(ctx context.Context, tx repository.Tx, providerSubID string) (*model.Subscription, error) {
	if m.FindByProviderSubIDFunc != nil {
		return m.FindByProviderSubIDFunc(ctx, tx, providerSubID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockSubscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, status model.SubscriptionStatus, offset, limit int) ([]*model.Subscription, int, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, tx, userID, status, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	if m.CountByStatusFunc != nil {
		return m.CountByStatusFunc(ctx, tx)
	}
	return map[model.SubscriptionStatus]int{}, nil
}

type mockProductRepo struct {
	SaveFunc              func(ctx context.Context, tx repository.Tx, p *model.Product) error
	FindByIDFunc          func(ctx context.Context, tx repository.Tx, id string) (*model.Product, error)
	FindByProviderIDsFunc func(ctx context.Context, tx repository.Tx, providerProductID, providerVariantID string) (*model.Product, error)

	Saved []*model.Product
}

func (m *mockProductRepo) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	m.Saved = append(m.Saved, p)
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	return nil
}

func (m *mockProductRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockProductRepo) FindByProviderIDs(ctx context.Context, tx repository.Tx, providerProductID, providerVariantID string) (*model.Product, error) {
	if m.FindByProviderIDsFunc != nil {
		return m.FindByProviderIDsFunc(ctx, tx, providerProductID, providerVariantID)
	}
	return nil, domain.ErrNotFound
}

type mockInvoiceRepo struct {
	SaveFunc               func(ctx context.Context, tx repository.Tx, inv *model.Invoice) error
	FindByPeriodStartFunc  func(ctx context.Context, tx repository.Tx, subscriptionID string, periodStart time.Time) (*model.Invoice, error)
	ListBySubscriptionFunc func(ctx context.Context, tx repository.Tx, subscriptionID string, offset, limit int) ([]*model.Invoice, int, error)

	Saved []*model.Invoice
}

func (m *mockInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	m.Saved = append(m.Saved, inv)
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, inv)
	}
	return nil
}

func (m *mockInvoiceRepo) FindByPeriodStart(ctx context.Context, tx repository.Tx, subscriptionID string, periodStart time.Time) (*model.Invoice, error) {
	if m.FindByPeriodStartFunc != nil {
		return m.FindByPeriodStartFunc(ctx, tx, subscriptionID, periodStart)
	}
	return nil, domain.ErrNotFound
}

func (m *mockInvoiceRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, offset, limit int) ([]*model.Invoice, int, error) {
	if m.ListBySubscriptionFunc != nil {
		return m.ListBySubscriptionFunc(ctx, tx, subscriptionID, offset, limit)
	}
	return nil, 0, nil
}

type mockTransactionRepo struct {
	SaveFunc                func(ctx context.Context, tx repository.Tx, t *model.Transaction) error
	FindByProviderTxnIDFunc func(ctx context.Context, tx repository.Tx, providerTxnID string) (*model.Transaction, error)
	ListBySubscriptionFunc  func(ctx context.Context, tx repository.Tx, subscriptionID string, offset, limit int) ([]*model.Transaction, int, error)

	Saved []*model.Transaction
}

func (m *mockTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	m.Saved = append(m.Saved, t)
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, t)
	}
	return nil
}

func (m *mockTransactionRepo) FindByProviderTxnID(ctx context.Context, tx repository.Tx, providerTxnID string) (*model.Transaction, error) {
	if m.FindByProviderTxnIDFunc != nil {
		return m.FindByProviderTxnIDFunc(ctx, tx, providerTxnID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockTransactionRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, offset, limit int) ([]*model.Transaction, int, error) {
	if m.ListBySubscriptionFunc != nil {
		return m.ListBySubscriptionFunc(ctx, tx, subscriptionID, offset, limit)
	}
	return nil, 0, nil
}

type mockHistoryRepo struct {
	AppendFunc             func(ctx context.Context, tx repository.Tx, h *model.SubscriptionHistory) error
	ListBySubscriptionFunc func(ctx context.Context, tx repository.Tx, subscriptionID string, offset, limit int) ([]*model.SubscriptionHistory, int, error)

	Appended []*model.SubscriptionHistory
}

func (m *mockHistoryRepo) Append(ctx context.Context, tx repository.Tx, h *model.SubscriptionHistory) error {
	m.Appended = append(m.Appended, h)
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, h)
	}
	return nil
}

func (m *mockHistoryRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, offset, limit int) ([]*model.SubscriptionHistory, int, error) {
	if m.ListBySubscriptionFunc != nil {
		return m.ListBySubscriptionFunc(ctx, tx, subscriptionID, offset, limit)
	}
	return nil, 0, nil
}

// mockDedupStore remembers marked keys in-process, which is enough to assert
// the seen/mark contract in unit tests.
type mockDedupStore struct {
	SeenFunc func(ctx context.Context, key string) (bool, error)
	MarkFunc func(ctx context.Context, key string, ttl time.Duration) error

	Marked []string
}

func (m *mockDedupStore) Seen(ctx context.Context, key string) (bool, error) {
	if m.SeenFunc != nil {
		return m.SeenFunc(ctx, key)
	}
	for _, k := range m.Marked {
		if k == key {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDedupStore) Mark(ctx context.Context, key string, ttl time.Duration) error {
	m.Marked = append(m.Marked, key)
	if m.MarkFunc != nil {
		return m.MarkFunc(ctx, key, ttl)
	}
	return nil
}
