// File: internal/infra/web/server.go
package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"personal-vault/internal/config"
	"personal-vault/internal/domain/model"
	"personal-vault/internal/usecase"
)

// EventNormalizer translates webhook envelopes into billing events.
type EventNormalizer interface {
	Normalize(req *usecase.WebhookRequest) (*model.BillingEvent, error)
}

// BillingSyncer applies one billing event to local state.
type BillingSyncer interface {
	Apply(ctx context.Context, ev *model.BillingEvent) (*usecase.SyncResult, error)
}

// SubscriptionQueries is the read side consumed by the API handlers.
type SubscriptionQueries interface {
	ListSubscriptions(ctx context.Context, userID string, status model.SubscriptionStatus, page, limit int) ([]*model.Subscription, int, error)
	GetSubscription(ctx context.Context, userID, subID string) (*model.Subscription, *model.Product, error)
	ListInvoices(ctx context.Context, userID, subID string, page, limit int) ([]*model.Invoice, int, error)
	ListTransactions(ctx context.Context, userID, subID string, page, limit int) ([]*model.Transaction, int, error)
	ListHistory(ctx context.Context, userID, subID string, page, limit int) ([]*model.SubscriptionHistory, int, error)
}

type Server struct {
	cfg           config.ServerConfig
	webhookSecret string
	webhookPath   string

	normalizer EventNormalizer
	syncUC     BillingSyncer
	queryUC    SubscriptionQueries
	auth       *Authenticator

	log  *zerolog.Logger
	http *http.Server
}

func NewServer(
	cfg config.ServerConfig,
	billing config.BillingConfig,
	auth *Authenticator,
	normalizer EventNormalizer,
	syncUC BillingSyncer,
	queryUC SubscriptionQueries,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		cfg:           cfg,
		webhookSecret: billing.WebhookSecret,
		webhookPath:   billing.WebhookPath,
		auth:          auth,
		normalizer:    normalizer,
		syncUC:        syncUC,
		queryUC:       queryUC,
		log:           logger,
	}
}

// Router assembles the full route tree. Exposed separately so tests can run
// it under httptest without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(s.log))
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Timeout(s.cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post(s.webhookPath, s.handleWebhook)

	r.Route("/api/v1/subscriptions", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Get("/", s.handleListSubscriptions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSubscription)
			r.Get("/invoices", s.handleListInvoices)
			r.Get("/transactions", s.handleListTransactions)
			r.Get("/history", s.handleListHistory)
		})
	})

	return r
}

func (s *Server) ListenAndServe() error {
	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.Router(),
	}
	s.log.Info().Int("port", s.cfg.Port).Str("webhook_path", s.webhookPath).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
