// File: internal/usecase/sync_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"personal-vault/internal/config"
	"personal-vault/internal/domain"
	"personal-vault/internal/domain/model"
	"personal-vault/internal/domain/ports/repository"
	"personal-vault/internal/infra/logging"
	"personal-vault/internal/infra/metrics"
)

// Outcome labels reported back to the gateway and to metrics.
const (
	OutcomeApplied    = "applied"
	OutcomeDuplicate  = "duplicate"
	OutcomeStale      = "stale"
	OutcomeConflict   = "conflict"
	OutcomeUnknownSub = "unknown_subscription"
	OutcomeError      = "error"
)

// SyncResult is what a single webhook application produced. Subscription is
// set only when a row was actually written.
type SyncResult struct {
	Outcome      string
	Subscription *model.Subscription
}

// Processed reports whether the event's effect is durably reflected locally,
// either by this delivery or an earlier one.
func (r *SyncResult) Processed() bool {
	return r.Outcome == OutcomeApplied || r.Outcome == OutcomeDuplicate
}

// SyncUC is the reconciliation engine: it applies one normalized billing
// event to local state inside a single transaction, honoring the status
// transition table, the recency guard and the idempotency guard.
type SyncUC struct {
	txManager   repository.TransactionManager
	subRepo     repository.SubscriptionRepository
	invoiceRepo repository.InvoiceRepository
	txnRepo     repository.TransactionRepository
	historyRepo repository.HistoryRepository
	dedup       repository.DedupStore
	normalizer  *Normalizer

	unknownSub config.UnknownSubscriptionPolicy
	dedupTTL   time.Duration

	log *zerolog.Logger
}

func NewSyncUC(
	txManager repository.TransactionManager,
	subRepo repository.SubscriptionRepository,
	invoiceRepo repository.InvoiceRepository,
	txnRepo repository.TransactionRepository,
	historyRepo repository.HistoryRepository,
	dedup repository.DedupStore,
	normalizer *Normalizer,
	billing config.BillingConfig,
	logger *zerolog.Logger,
) *SyncUC {
	return &SyncUC{
		txManager:   txManager,
		subRepo:     subRepo,
		invoiceRepo: invoiceRepo,
		txnRepo:     txnRepo,
		historyRepo: historyRepo,
		dedup:       dedup,
		normalizer:  normalizer,
		unknownSub:  billing.UnknownSubscription,
		dedupTTL:    billing.DedupTTL,
		log:         logger,
	}
}

// Apply reconciles one event. A non-nil error means nothing was committed and
// the provider should retry; every other case is acknowledged with the
// outcome describing what happened.
func (uc *SyncUC) Apply(ctx context.Context, ev *model.BillingEvent) (*SyncResult, error) {
	start := time.Now()
	ctx = logging.WithEvent(logging.WithSubID(ctx, ev.ProviderSubID), string(ev.Name))
	log := logging.With(ctx, uc.log)
	defer logging.TraceDuration(log, "SyncUC.Apply")()

	seen, err := uc.dedup.Seen(ctx, ev.DedupKey)
	if err != nil {
		// Guard outage is not fatal: the row lock plus the guarded save still
		// keep a racing duplicate from double-applying.
		log.Warn().Err(err).Msg("dedup lookup failed, continuing without guard")
	}
	if seen {
		log.Debug().Str("dedup_key", ev.DedupKey).Msg("duplicate delivery, short-circuit")
		metrics.IncWebhookEvent(string(ev.Name), OutcomeDuplicate)
		return &SyncResult{Outcome: OutcomeDuplicate}, nil
	}

	res := &SyncResult{Outcome: OutcomeApplied}
	err = uc.txManager.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return uc.applyTx(ctx, tx, ev, res)
	})
	if err != nil {
		metrics.IncWebhookEvent(string(ev.Name), OutcomeError)
		return nil, fmt.Errorf("apply %s: %w", ev.Name, err)
	}

	if res.Outcome == OutcomeApplied {
		// Marked only after commit. Mark failure is tolerable: a replay will
		// re-run and land on the recency guard or guarded save instead.
		if err := uc.dedup.Mark(ctx, ev.DedupKey, uc.dedupTTL); err != nil {
			log.Warn().Err(err).Msg("dedup mark failed after commit")
		}
	}

	metrics.IncWebhookEvent(string(ev.Name), res.Outcome)
	metrics.ObserveWebhookApply(time.Since(start).Milliseconds())
	return res, nil
}

func (uc *SyncUC) applyTx(ctx context.Context, tx repository.Tx, ev *model.BillingEvent, res *SyncResult) error {
	log := logging.With(ctx, uc.log)

	// Row is locked FOR UPDATE here; concurrent deliveries for the same
	// subscription serialize on this read.
	sub, err := uc.subRepo.FindByProviderSubID(ctx, tx, ev.ProviderSubID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if sub == nil || errors.Is(err, domain.ErrNotFound) {
		if ev.Name != model.EventSubscriptionCreated && uc.unknownSub == config.UnknownSubscriptionReject {
			log.Warn().Msg("event for unknown subscription rejected by policy")
			res.Outcome = OutcomeUnknownSub
			return nil
		}
		return uc.createFromEvent(ctx, tx, ev, res)
	}

	if sub.LastWebhookAt != nil && ev.OccurredAt.Before(*sub.LastWebhookAt) {
		log.Info().
			Time("occurred_at", ev.OccurredAt).
			Time("last_webhook_at", *sub.LastWebhookAt).
			Msg("stale event skipped")
		res.Outcome = OutcomeStale
		return nil
	}

	next := ev.Status
	if next == "" {
		next = sub.Status
	}
	if !sub.CanTransition(next) {
		// Out-of-order or conflicting delivery. Acknowledged without
		// mutation so the provider does not retry forever.
		metrics.IncInvalidTransition(sub.Status, next)
		log.Warn().
			Str("from", string(sub.Status)).
			Str("to", string(next)).
			Msg("transition not allowed, event acknowledged without mutation")
		res.Outcome = OutcomeConflict
		return nil
	}

	if err := uc.normalizer.ResolveProduct(ctx, tx, ev); err != nil {
		return err
	}

	prevStatus, prevPrice := sub.Status, sub.Price
	expectedCount := sub.WebhookCount

	uc.applyFields(sub, ev, next)
	sub.WebhookCount = expectedCount + 1
	occurred := ev.OccurredAt
	sub.LastWebhookAt = &occurred
	sub.UpdatedAt = time.Now()

	ok, err := uc.subRepo.SaveGuarded(ctx, tx, sub, expectedCount)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrVersionConflict
	}

	if ev.Payment != nil {
		if err := uc.writeLedger(ctx, tx, sub, ev); err != nil {
			return err
		}
	}

	if prevStatus != sub.Status || !prevPrice.Equal(sub.Price) {
		if err := uc.recordHistory(ctx, tx, sub, prevStatus, prevPrice, ev); err != nil {
			return err
		}
		metrics.IncTransition(prevStatus, sub.Status)
	}

	res.Subscription = sub
	return nil
}

// createFromEvent handles both the regular creation path and the placeholder
// upsert for a non-creation event that raced ahead of its creation webhook.
func (uc *SyncUC) createFromEvent(ctx context.Context, tx repository.Tx, ev *model.BillingEvent, res *SyncResult) error {
	log := logging.With(ctx, uc.log)

	if ev.UserID == "" {
		// Without the checkout's custom_data there is no owner to attach the
		// placeholder to. Acknowledge and wait for the creation webhook.
		log.Warn().Msg("unknown subscription and no user reference, event acknowledged")
		res.Outcome = OutcomeUnknownSub
		return nil
	}

	if err := uc.normalizer.ResolveProduct(ctx, tx, ev); err != nil {
		return err
	}

	status := ev.Status
	if status == "" {
		status = model.SubscriptionStatusActive
	}
	if ev.Name == model.EventSubscriptionCreated &&
		status != model.SubscriptionStatusActive && status != model.SubscriptionStatusOnTrial {
		log.Warn().Str("status", string(status)).Msg("unexpected initial status on creation event")
	}

	sub, err := model.NewSubscription(uuid.NewString(), ev.ProviderSubID, ev.UserID, ev.ProductID, status, ev.Price, ev.Currency)
	if err != nil {
		return err
	}
	uc.applyFields(sub, ev, status)
	sub.WebhookCount = 1
	occurred := ev.OccurredAt
	sub.LastWebhookAt = &occurred

	if err := uc.subRepo.Save(ctx, tx, sub); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost a creation race; the retry will find the row and take the
			// update path.
			return domain.ErrVersionConflict
		}
		return err
	}

	if ev.Payment != nil {
		if err := uc.writeLedger(ctx, tx, sub, ev); err != nil {
			return err
		}
	}

	// Initial history row so the audit trail starts at creation and the
	// newest row always matches the current status.
	if err := uc.recordHistory(ctx, tx, sub, sub.Status, sub.Price, ev); err != nil {
		return err
	}

	if ev.Name != model.EventSubscriptionCreated {
		log.Info().Msg("placeholder subscription upserted for out-of-order event")
	}
	res.Subscription = sub
	return nil
}

// applyFields copies event attributes onto the subscription. Price and
// currency move only on explicit creation/update events.
func (uc *SyncUC) applyFields(sub *model.Subscription, ev *model.BillingEvent, next model.SubscriptionStatus) {
	sub.Status = next

	if ev.Name == model.EventSubscriptionCreated || ev.Name == model.EventSubscriptionUpdated {
		if ev.Currency != "" {
			sub.Price = ev.Price
			sub.Currency = ev.Currency
		}
		if ev.ProductID != "" {
			sub.ProductID = ev.ProductID
		}
	}

	if ev.OrderID != "" {
		sub.OrderID = ev.OrderID
	}
	if ev.CustomerID != "" {
		sub.CustomerID = ev.CustomerID
	}
	if ev.RenewsAt != nil {
		sub.RenewsAt = ev.RenewsAt
	}
	if ev.EndsAt != nil {
		sub.EndsAt = ev.EndsAt
	}
	if ev.TrialEndsAt != nil {
		sub.TrialEndsAt = ev.TrialEndsAt
	}

	switch {
	case next == model.SubscriptionStatusCancelled:
		if sub.CancelledAt == nil {
			occurred := ev.OccurredAt
			sub.CancelledAt = &occurred
		}
		if ev.CancelledReason != "" {
			sub.CancelledReason = ev.CancelledReason
		}
	case next == model.SubscriptionStatusActive:
		// Resuming clears the cancellation bookkeeping.
		sub.CancelledAt = nil
		sub.CancelledReason = ""
	}
}

// writeLedger upserts the Transaction for the payment attempt and the Invoice
// for its billing period, linking the two when both exist.
func (uc *SyncUC) writeLedger(ctx context.Context, tx repository.Tx, sub *model.Subscription, ev *model.BillingEvent) error {
	payment := ev.Payment
	now := time.Now()

	txn, err := uc.txnRepo.FindByProviderTxnID(ctx, tx, payment.ProviderTxnID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		txn = &model.Transaction{
			ID:             uuid.NewString(),
			ProviderTxnID:  payment.ProviderTxnID,
			SubscriptionID: sub.ID,
			Status:         model.TransactionStatusPending,
			CreatedAt:      now,
		}
	case err != nil:
		return err
	}

	txn.Amount = payment.Amount
	txn.Currency = payment.Currency
	txn.PeriodStart = payment.PeriodStart
	txn.PeriodEnd = payment.PeriodEnd
	txn.Meta = ev.Meta

	switch ev.Name {
	case model.EventSubscriptionPaymentSuccess, model.EventSubscriptionPaymentRecovered:
		txn.Status = model.TransactionStatusSuccess
		occurred := ev.OccurredAt
		txn.PaidAt = &occurred
		txn.FailureReason = ""
	case model.EventSubscriptionPaymentFailed:
		txn.Status = model.TransactionStatusFailed
		txn.FailureReason = payment.FailureReason
	case model.EventSubscriptionPaymentRefunded:
		txn.RefundAmount = payment.RefundAmount
		txn.RefundedAt = payment.RefundedAt
		if txn.RefundedAt == nil {
			occurred := ev.OccurredAt
			txn.RefundedAt = &occurred
		}
		if payment.RefundAmount != nil && payment.RefundAmount.LessThan(txn.Amount) {
			txn.Status = model.TransactionStatusPartiallyRefunded
		} else {
			txn.Status = model.TransactionStatusRefunded
		}
	}

	if payment.PeriodStart != nil {
		invoice, err := uc.writeInvoice(ctx, tx, sub, ev)
		if err != nil {
			return err
		}
		txn.InvoiceID = &invoice.ID
	}

	txn.UpdatedAt = now
	if err := uc.txnRepo.Save(ctx, tx, txn); err != nil {
		return err
	}
	metrics.IncLedgerWrite("transaction", string(txn.Status))
	return nil
}

func (uc *SyncUC) writeInvoice(ctx context.Context, tx repository.Tx, sub *model.Subscription, ev *model.BillingEvent) (*model.Invoice, error) {
	payment := ev.Payment
	now := time.Now()

	invoice, err := uc.invoiceRepo.FindByPeriodStart(ctx, tx, sub.ID, *payment.PeriodStart)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		invoice = &model.Invoice{
			ID:             uuid.NewString(),
			Number:         newULID(ev.OccurredAt),
			SubscriptionID: sub.ID,
			Amount:         payment.Amount,
			Currency:       payment.Currency,
			Status:         model.InvoiceStatusPending,
			DueAt:          payment.PeriodStart,
			PeriodStart:    payment.PeriodStart,
			PeriodEnd:      payment.PeriodEnd,
			CreatedAt:      now,
		}
	case err != nil:
		return nil, err
	}

	switch ev.Name {
	case model.EventSubscriptionPaymentSuccess, model.EventSubscriptionPaymentRecovered:
		invoice.Status = model.InvoiceStatusPaid
		occurred := ev.OccurredAt
		invoice.PaidAt = &occurred
	case model.EventSubscriptionPaymentFailed:
		if invoice.Status != model.InvoiceStatusPaid {
			invoice.Status = model.InvoiceStatusOverdue
		}
	case model.EventSubscriptionPaymentRefunded:
		// The invoice keeps its paid state; the refund lives on the
		// transaction row.
		invoice.Notes = "refund recorded"
	}

	invoice.UpdatedAt = now
	if err := uc.invoiceRepo.Save(ctx, tx, invoice); err != nil {
		return nil, err
	}
	metrics.IncLedgerWrite("invoice", string(invoice.Status))
	return invoice, nil
}

func (uc *SyncUC) recordHistory(ctx context.Context, tx repository.Tx, sub *model.Subscription, prevStatus model.SubscriptionStatus, prevPrice decimal.Decimal, ev *model.BillingEvent) error {
	reason := ev.CancelledReason
	if reason == "" {
		reason = string(ev.Name)
	}
	return uc.historyRepo.Append(ctx, tx, &model.SubscriptionHistory{
		ID:             newULID(ev.OccurredAt),
		SubscriptionID: sub.ID,
		PreviousStatus: prevStatus,
		NewStatus:      sub.Status,
		PreviousPrice:  prevPrice,
		NewPrice:       sub.Price,
		Reason:         reason,
		Meta: map[string]interface{}{
			"event":             string(ev.Name),
			"provider_event_id": ev.ProviderEventID,
		},
		ChangedAt: ev.OccurredAt,
		ChangedBy: model.HistoryChangedByProvider,
	})
}

// newULID issues an id that sorts by the event's own timestamp, so history
// rows and invoice numbers order the way the provider saw them.
func newULID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}
