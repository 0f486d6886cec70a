// File: internal/infra/web/api.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"personal-vault/internal/domain"
	"personal-vault/internal/domain/model"
	"personal-vault/internal/infra/logging"
)

type pageDTO struct {
	Items   interface{} `json:"items"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	HasMore bool        `json:"has_more"`
}

type subscriptionDTO struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	Price           string     `json:"price"`
	Currency        string     `json:"currency"`
	ProductID       string     `json:"product_id,omitempty"`
	RenewsAt        *time.Time `json:"renews_at,omitempty"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
	TrialEndsAt     *time.Time `json:"trial_ends_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CancelledReason string     `json:"cancelled_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type productDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Interval string `json:"interval"`
}

type invoiceDTO struct {
	ID          string     `json:"id"`
	Number      string     `json:"number"`
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
}

type transactionDTO struct {
	ID            string     `json:"id"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	RefundAmount  string     `json:"refund_amount,omitempty"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

type historyDTO struct {
	ID             string    `json:"id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	PreviousPrice  string    `json:"previous_price"`
	NewPrice       string    `json:"new_price"`
	Reason         string    `json:"reason,omitempty"`
	ChangedAt      time.Time `json:"changed_at"`
	ChangedBy      string    `json:"changed_by"`
}

func toSubscriptionDTO(s *model.Subscription) subscriptionDTO {
	return subscriptionDTO{
		ID:              s.ID,
		Status:          string(s.Status),
		Price:           s.Price.String(),
		Currency:        s.Currency,
		ProductID:       s.ProductID,
		RenewsAt:        s.RenewsAt,
		EndsAt:          s.EndsAt,
		TrialEndsAt:     s.TrialEndsAt,
		CancelledAt:     s.CancelledAt,
		CancelledReason: s.CancelledReason,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	status := model.SubscriptionStatus(r.URL.Query().Get("status"))

	subs, total, err := s.queryUC.ListSubscriptions(r.Context(), UserID(r.Context()), status, page, limit)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	items := make([]subscriptionDTO, 0, len(subs))
	for _, sub := range subs {
		items = append(items, toSubscriptionDTO(sub))
	}
	writeJSON(w, http.StatusOK, newPage(items, total, page, limit))
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, product, err := s.queryUC.GetSubscription(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	resp := struct {
		Subscription subscriptionDTO `json:"subscription"`
		Product      *productDTO     `json:"product,omitempty"`
	}{Subscription: toSubscriptionDTO(sub)}
	if product != nil {
		resp.Product = &productDTO{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price.String(),
			Currency: product.Currency,
			Interval: string(product.Interval),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	invoices, total, err := s.queryUC.ListInvoices(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), page, limit)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	items := make([]invoiceDTO, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, invoiceDTO{
			ID:          inv.ID,
			Number:      inv.Number,
			Amount:      inv.Amount.String(),
			Currency:    inv.Currency,
			Status:      string(inv.Status),
			DueAt:       inv.DueAt,
			PaidAt:      inv.PaidAt,
			PeriodStart: inv.PeriodStart,
			PeriodEnd:   inv.PeriodEnd,
		})
	}
	writeJSON(w, http.StatusOK, newPage(items, total, page, limit))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	txns, total, err := s.queryUC.ListTransactions(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), page, limit)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	items := make([]transactionDTO, 0, len(txns))
	for _, txn := range txns {
		dto := transactionDTO{
			ID:            txn.ID,
			Amount:        txn.Amount.String(),
			Currency:      txn.Currency,
			Status:        string(txn.Status),
			PaidAt:        txn.PaidAt,
			RefundedAt:    txn.RefundedAt,
			FailureReason: txn.FailureReason,
		}
		if txn.RefundAmount != nil {
			dto.RefundAmount = txn.RefundAmount.String()
		}
		items = append(items, dto)
	}
	writeJSON(w, http.StatusOK, newPage(items, total, page, limit))
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	rows, total, err := s.queryUC.ListHistory(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"), page, limit)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	items := make([]historyDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, historyDTO{
			ID:             row.ID,
			PreviousStatus: string(row.PreviousStatus),
			NewStatus:      string(row.NewStatus),
			PreviousPrice:  row.PreviousPrice.String(),
			NewPrice:       row.NewPrice.String(),
			Reason:         row.Reason,
			ChangedAt:      row.ChangedAt,
			ChangedBy:      row.ChangedBy,
		})
	}
	writeJSON(w, http.StatusOK, newPage(items, total, page, limit))
}

func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Covers true absence and ownership mismatch alike.
		http.Error(w, "Not Found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("query failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	return page, limit
}

func newPage(items interface{}, total, page, limit int) pageDTO {
	if limit < 1 {
		limit = 20
	}
	return pageDTO{
		Items:   items,
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: page*limit < total,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
