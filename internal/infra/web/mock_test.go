//go:build !integration

// File: internal/infra/web/mock_test.go
package web

import (
	"context"

	"github.com/rs/zerolog"

	"personal-vault/internal/domain"
	"personal-vault/internal/domain/model"
	"personal-vault/internal/usecase"
)

var (
	_ EventNormalizer     = (*mockNormalizer)(nil)
	_ BillingSyncer       = (*mockSyncer)(nil)
	_ SubscriptionQueries = (*mockQueries)(nil)
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type mockNormalizer struct {
	NormalizeFunc func(req *usecase.WebhookRequest) (*model.BillingEvent, error)
}

func (m *mockNormalizer) Normalize(req *usecase.WebhookRequest) (*model.BillingEvent, error) {
	if m.NormalizeFunc != nil {
		return m.NormalizeFunc(req)
	}
	// Default mirrors the real normalizer closely enough for handler tests.
	real := usecase.NewNormalizer(nil, false, testLogger())
	return real.Normalize(req)
}

type mockSyncer struct {
	ApplyFunc func(ctx context.Context, ev *model.BillingEvent) (*usecase.SyncResult, error)
	Applied   []*model.BillingEvent
}

func (m *mockSyncer) Apply(ctx context.Context, ev *model.BillingEvent) (*usecase.SyncResult, error) {
	m.Applied = append(m.Applied, ev)
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, ev)
	}
	return &usecase.SyncResult{Outcome: usecase.OutcomeApplied}, nil
}

type mockQueries struct {
	ListSubscriptionsFunc func(ctx context.Context, userID string, status model.SubscriptionStatus, page, limit int) ([]*model.Subscription, int, error)
	GetSubscriptionFunc   func(ctx context.Context, userID, subID string) (*model.Subscription, *model.Product, error)
	ListInvoicesFunc      func(ctx context.Context, userID, subID string, page, limit int) ([]*model.Invoice, int, error)
	ListTransactionsFunc  func(ctx context.Context, userID, subID string, page, limit int) ([]*model.Transaction, int, error)
	ListHistoryFunc       func(ctx context.Context, userID, subID string, page, limit int) ([]*model.SubscriptionHistory, int, error)
}

func (m *mockQueries) ListSubscriptions(ctx context.Context, userID string, status model.SubscriptionStatus, page, limit int) ([]*model.Subscription, int, error) {
	if m.ListSubscriptionsFunc != nil {
		return m.ListSubscriptionsFunc(ctx, userID, status, page, limit)
	}
	return nil, 0, nil
}

func (m *mockQueries) GetSubscription(ctx context.Context, userID, subID string) (*model.Subscription, *model.Product, error) {
	if m.GetSubscriptionFunc != nil {
		return m.GetSubscriptionFunc(ctx, userID, subID)
	}
	return nil, nil, domain.ErrNotFound
}

func (m *mockQueries) ListInvoices(ctx context.Context, userID, subID string, page, limit int) ([]*model.Invoice, int, error) {
	if m.ListInvoicesFunc != nil {
		return m.ListInvoicesFunc(ctx, userID, subID, page, limit)
	}
	return nil, 0, domain.ErrNotFound
}

func (m *mockQueries) ListTransactions(ctx context.Context, userID, subID string, page, limit int) ([]*model.Transaction, int, error) {
	if m.ListTransactionsFunc != nil {
		return m.ListTransactionsFunc(ctx, userID, subID, page, limit)
	}
	return nil, 0, domain.ErrNotFound
}

func (m *mockQueries) ListHistory(ctx context.Context, userID, subID string, page, limit int) ([]*model.SubscriptionHistory, int, error) {
	if m.ListHistoryFunc != nil {
		return m.ListHistoryFunc(ctx, userID, subID, page, limit)
	}
	return nil, 0, domain.ErrNotFound
}
