//go:build !integration

// File: internal/usecase/query_uc_test.go
package usecase

import (
	"context"
	"errors"
	"testing"

	"personal-vault/internal/domain"
	"personal-vault/internal/domain/model"
	"personal-vault/internal/domain/ports/repository"
)

func newQueryFixture() (*mockSubscriptionRepo, *mockProductRepo, *mockInvoiceRepo, *mockTransactionRepo, *mockHistoryRepo, *QueryUC) {
	subs := &mockSubscriptionRepo{}
	products := &mockProductRepo{}
	invoices := &mockInvoiceRepo{}
	txns := &mockTransactionRepo{}
	history := &mockHistoryRepo{}
	uc := NewQueryUC(subs, products, invoices, txns, history, testLogger())
	return subs, products, invoices, txns, history, uc
}

func ownedBy(userID string) *model.Subscription {
	return &model.Subscription{ID: "local-1", ProviderSubID: "sub-100", UserID: userID, ProductID: "prod-1", Status: model.SubscriptionStatusActive}
}

func TestQueryUC_GetSubscription(t *testing.T) {
	t.Run("owner reads subscription with product", func(t *testing.T) {
		subs, products, _, _, _, uc := newQueryFixture()
		subs.FindByIDFunc = func(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
			return ownedBy("user-1"), nil
		}
		products.FindByIDFunc = func(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
			return &model.Product{ID: "prod-1", Name: "Vault Premium"}, nil
		}

		sub, product, err := uc.GetSubscription(context.Background(), "user-1", "local-1")
		if err != nil {
			t.Fatalf("GetSubscription: %v", err)
		}
		if sub.ID != "local-1" || product == nil || product.Name != "Vault Premium" {
			t.Errorf("got sub=%+v product=%+v", sub, product)
		}
	})

	t.Run("ownership mismatch reads as not found", func(t *testing.T) {
		subs, _, _, _, _, uc := newQueryFixture()
		subs.FindByIDFunc = func(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
			return ownedBy("someone-else"), nil
		}

		_, _, err := uc.GetSubscription(context.Background(), "user-1", "local-1")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("missing product degrades to nil", func(t *testing.T) {
		subs, _, _, _, _, uc := newQueryFixture()
		subs.FindByIDFunc = func(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
			return ownedBy("user-1"), nil
		}

		sub, product, err := uc.GetSubscription(context.Background(), "user-1", "local-1")
		if err != nil {
			t.Fatalf("GetSubscription: %v", err)
		}
		if sub == nil || product != nil {
			t.Error("expected subscription without product")
		}
	})
}

func TestQueryUC_ListSubscriptions(t *testing.T) {
	t.Run("pagination is translated to offset/limit", func(t *testing.T) {
		subs, _, _, _, _, uc := newQueryFixture()
		var gotOffset, gotLimit int
		subs.ListByUserFunc = func(ctx context.Context, tx repository.Tx, userID string, status model.SubscriptionStatus, offset, limit int) ([]*model.Subscription, int, error) {
			gotOffset, gotLimit = offset, limit
			return []*model.Subscription{ownedBy(userID)}, 21, nil
		}

		items, total, err := uc.ListSubscriptions(context.Background(), "user-1", "", 3, 10)
		if err != nil {
			t.Fatalf("ListSubscriptions: %v", err)
		}
		if gotOffset != 20 || gotLimit != 10 {
			t.Errorf("offset/limit = %d/%d, want 20/10", gotOffset, gotLimit)
		}
		if len(items) != 1 || total != 21 {
			t.Errorf("items=%d total=%d", len(items), total)
		}
	})

	t.Run("out-of-range paging is normalized", func(t *testing.T) {
		subs, _, _, _, _, uc := newQueryFixture()
		var gotOffset, gotLimit int
		subs.ListByUserFunc = func(ctx context.Context, tx repository.Tx, userID string, status model.SubscriptionStatus, offset, limit int) ([]*model.Subscription, int, error) {
			gotOffset, gotLimit = offset, limit
			return nil, 0, nil
		}

		if _, _, err := uc.ListSubscriptions(context.Background(), "user-1", "", 0, 9999); err != nil {
			t.Fatal(err)
		}
		if gotOffset != 0 || gotLimit != maxPageSize {
			t.Errorf("offset/limit = %d/%d, want 0/%d", gotOffset, gotLimit, maxPageSize)
		}
	})

	t.Run("invalid status filter", func(t *testing.T) {
		_, _, _, _, _, uc := newQueryFixture()
		_, _, err := uc.ListSubscriptions(context.Background(), "user-1", "hibernating", 1, 10)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestQueryUC_SubResources_ScopedToOwner(t *testing.T) {
	subs, _, invoices, txns, history, uc := newQueryFixture()
	subs.FindByIDFunc = func(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
		return ownedBy("someone-else"), nil
	}
	invoices.ListBySubscriptionFunc = func(ctx context.Context, tx repository.Tx, subscriptionID string, offset, limit int) ([]*model.Invoice, int, error) {
		t.Fatal("invoice listing must not run for a foreign subscription")
		return nil, 0, nil
	}
	txns.ListBySubscriptionFunc = func(ctx context.Context, tx repository.Tx, subscriptionID string, offset, limit int) ([]*model.Transaction, int, error) {
		t.Fatal("transaction listing must not run for a foreign subscription")
		return nil, 0, nil
	}
	history.ListBySubscriptionFunc = func(ctx context.Context, tx repository.Tx, subscriptionID string, offset, limit int) ([]*model.SubscriptionHistory, int, error) {
		t.Fatal("history listing must not run for a foreign subscription")
		return nil, 0, nil
	}

	if _, _, err := uc.ListInvoices(context.Background(), "user-1", "local-1", 1, 10); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("invoices: expected ErrNotFound, got %v", err)
	}
	if _, _, err := uc.ListTransactions(context.Background(), "user-1", "local-1", 1, 10); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("transactions: expected ErrNotFound, got %v", err)
	}
	if _, _, err := uc.ListHistory(context.Background(), "user-1", "local-1", 1, 10); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("history: expected ErrNotFound, got %v", err)
	}
}
