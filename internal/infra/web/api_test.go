//go:build !integration

// File: internal/infra/web/api_test.go
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"personal-vault/internal/domain"
	"personal-vault/internal/domain/model"
)

func bearerToken(t *testing.T, secret, subject string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func getAPI(t *testing.T, handler http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAPI_Auth(t *testing.T) {
	handler := newTestServer(&mockSyncer{}, &mockQueries{}).Router()

	t.Run("missing token", func(t *testing.T) {
		if rec := getAPI(t, handler, "/api/v1/subscriptions", ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("token signed with the wrong secret", func(t *testing.T) {
		token := bearerToken(t, "some-other-secret", "user-1")
		if rec := getAPI(t, handler, "/api/v1/subscriptions", token); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
		if err != nil {
			t.Fatal(err)
		}
		if rec := getAPI(t, handler, "/api/v1/subscriptions", token); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestAPI_ListSubscriptions(t *testing.T) {
	// --- Arrange ---
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	queries := &mockQueries{
		ListSubscriptionsFunc: func(ctx context.Context, userID string, status model.SubscriptionStatus, page, limit int) ([]*model.Subscription, int, error) {
			if userID != "user-1" {
				t.Errorf("user id = %s", userID)
			}
			return []*model.Subscription{{
				ID:        "local-1",
				Status:    model.SubscriptionStatusActive,
				Price:     decimal.RequireFromString("9.99"),
				Currency:  "USD",
				CreatedAt: now,
				UpdatedAt: now,
			}}, 15, nil
		},
	}
	handler := newTestServer(&mockSyncer{}, queries).Router()
	token := bearerToken(t, testJWTSecret, "user-1")

	// --- Act ---
	rec := getAPI(t, handler, "/api/v1/subscriptions?page=1&limit=10", token)

	// --- Assert ---
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Items   []subscriptionDTO `json:"items"`
		Total   int               `json:"total"`
		HasMore bool              `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Total != 15 || !page.HasMore {
		t.Errorf("page = %+v", page)
	}
	if page.Items[0].Price != "9.99" || page.Items[0].Status != "active" {
		t.Errorf("item = %+v", page.Items[0])
	}
}

func TestAPI_ListSubscriptions_InvalidFilter(t *testing.T) {
	queries := &mockQueries{
		ListSubscriptionsFunc: func(ctx context.Context, userID string, status model.SubscriptionStatus, page, limit int) ([]*model.Subscription, int, error) {
			return nil, 0, domain.ErrInvalidArgument
		},
	}
	handler := newTestServer(&mockSyncer{}, queries).Router()
	token := bearerToken(t, testJWTSecret, "user-1")

	if rec := getAPI(t, handler, "/api/v1/subscriptions?status=hibernating", token); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAPI_GetSubscription_NotFoundForForeignOwner(t *testing.T) {
	// Default mockQueries behavior is ErrNotFound, which is exactly what an
	// ownership mismatch surfaces as.
	handler := newTestServer(&mockSyncer{}, &mockQueries{}).Router()
	token := bearerToken(t, testJWTSecret, "user-1")

	if rec := getAPI(t, handler, "/api/v1/subscriptions/local-9", token); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAPI_SubResources(t *testing.T) {
	paid := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	queries := &mockQueries{
		ListInvoicesFunc: func(ctx context.Context, userID, subID string, page, limit int) ([]*model.Invoice, int, error) {
			return []*model.Invoice{{ID: "inv-1", Number: "01K3", Amount: decimal.RequireFromString("9.99"), Currency: "USD", Status: model.InvoiceStatusPaid, PaidAt: &paid}}, 1, nil
		},
		ListHistoryFunc: func(ctx context.Context, userID, subID string, page, limit int) ([]*model.SubscriptionHistory, int, error) {
			return []*model.SubscriptionHistory{{
				ID:             "01K3H",
				PreviousStatus: model.SubscriptionStatusActive,
				NewStatus:      model.SubscriptionStatusCancelled,
				PreviousPrice:  decimal.RequireFromString("9.99"),
				NewPrice:       decimal.RequireFromString("9.99"),
				Reason:         "customer_request",
				ChangedAt:      paid,
				ChangedBy:      model.HistoryChangedByProvider,
			}}, 1, nil
		},
	}
	handler := newTestServer(&mockSyncer{}, queries).Router()
	token := bearerToken(t, testJWTSecret, "user-1")

	t.Run("invoices", func(t *testing.T) {
		rec := getAPI(t, handler, "/api/v1/subscriptions/local-1/invoices", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var page struct {
			Items []invoiceDTO `json:"items"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
			t.Fatal(err)
		}
		if len(page.Items) != 1 || page.Items[0].Status != "paid" {
			t.Errorf("items = %+v", page.Items)
		}
	})

	t.Run("history", func(t *testing.T) {
		rec := getAPI(t, handler, "/api/v1/subscriptions/local-1/history", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var page struct {
			Items []historyDTO `json:"items"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
			t.Fatal(err)
		}
		if len(page.Items) != 1 || page.Items[0].Reason != "customer_request" {
			t.Errorf("items = %+v", page.Items)
		}
	})

	t.Run("transactions default to not found", func(t *testing.T) {
		rec := getAPI(t, handler, "/api/v1/subscriptions/local-1/transactions", token)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}
