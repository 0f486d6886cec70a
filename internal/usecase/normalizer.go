// File: internal/usecase/normalizer.go
package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"personal-vault/internal/domain"
	"personal-vault/internal/domain/model"
	"personal-vault/internal/domain/ports/repository"
)

// WebhookRequest is the outer wire shape of a provider webhook body.
type WebhookRequest struct {
	Payload WebhookEnvelope `json:"payload"`
}

type WebhookEnvelope struct {
	Meta WebhookMeta `json:"meta"`
	Data WebhookData `json:"data"`
}

type WebhookMeta struct {
	EventName string `json:"event_name"`
	// WebhookID is the provider's delivery id. Some providers omit it, in
	// which case dedup falls back to hashing the attributes.
	WebhookID  string            `json:"webhook_id,omitempty"`
	CustomData map[string]string `json:"custom_data,omitempty"`
}

type WebhookData struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id"`
	Attributes map[string]interface{} `json:"attributes"`
}

// eventNames is the full catalog of provider events the engine understands.
// An unlisted name is acknowledged upstream without processing.
var eventNames = map[string]model.EventName{
	"subscription_created":           model.EventSubscriptionCreated,
	"subscription_updated":           model.EventSubscriptionUpdated,
	"subscription_cancelled":         model.EventSubscriptionCancelled,
	"subscription_resumed":           model.EventSubscriptionResumed,
	"subscription_paused":            model.EventSubscriptionPaused,
	"subscription_unpaused":          model.EventSubscriptionUnpaused,
	"subscription_expired":           model.EventSubscriptionExpired,
	"subscription_payment_success":   model.EventSubscriptionPaymentSuccess,
	"subscription_payment_failed":    model.EventSubscriptionPaymentFailed,
	"subscription_payment_recovered": model.EventSubscriptionPaymentRecovered,
	"subscription_payment_refunded":  model.EventSubscriptionPaymentRefunded,
}

// providerStatusToInternal maps every provider status string to exactly one
// internal status. An unmapped value is a hard error, never a fallthrough.
var providerStatusToInternal = map[string]model.SubscriptionStatus{
	"active":    model.SubscriptionStatusActive,
	"on_trial":  model.SubscriptionStatusOnTrial,
	"paused":    model.SubscriptionStatusPaused,
	"past_due":  model.SubscriptionStatusPastDue,
	"unpaid":    model.SubscriptionStatusUnpaid,
	"cancelled": model.SubscriptionStatusCancelled,
	"expired":   model.SubscriptionStatusExpired,
}

var internalStatusToProvider = map[model.SubscriptionStatus]string{
	model.SubscriptionStatusActive:    "active",
	model.SubscriptionStatusOnTrial:   "on_trial",
	model.SubscriptionStatusPaused:    "paused",
	model.SubscriptionStatusPastDue:   "past_due",
	model.SubscriptionStatusUnpaid:    "unpaid",
	model.SubscriptionStatusCancelled: "cancelled",
	model.SubscriptionStatusExpired:   "expired",
}

// MapProviderStatus translates the provider vocabulary into the internal one.
func MapProviderStatus(raw string) (model.SubscriptionStatus, error) {
	status, ok := providerStatusToInternal[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownProviderStatus, raw)
	}
	return status, nil
}

// ProviderStatusLabel is the reverse mapping, used when echoing state back in
// API responses and logs.
func ProviderStatusLabel(status model.SubscriptionStatus) (string, error) {
	label, ok := internalStatusToProvider[status]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownProviderStatus, status)
	}
	return label, nil
}

var billingIntervals = map[string]model.BillingInterval{
	"day":   model.BillingIntervalDay,
	"week":  model.BillingIntervalWeek,
	"month": model.BillingIntervalMonth,
	"year":  model.BillingIntervalYear,
}

func mapInterval(raw string) (model.BillingInterval, error) {
	if raw == "" {
		return model.BillingIntervalMonth, nil
	}
	interval, ok := billingIntervals[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("%w: unknown billing interval %q", domain.ErrInvalidArgument, raw)
	}
	return interval, nil
}

// MinorToMajor converts a provider minor-unit amount (cents) to decimal major
// units, e.g. 999 -> 9.99.
func MinorToMajor(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-2)
}

// Normalizer translates provider webhook envelopes into domain BillingEvents
// and resolves product references against the local catalog mirror.
type Normalizer struct {
	productRepo repository.ProductRepository
	catalogSync bool
	log         *zerolog.Logger
}

func NewNormalizer(productRepo repository.ProductRepository, catalogSync bool, logger *zerolog.Logger) *Normalizer {
	return &Normalizer{productRepo: productRepo, catalogSync: catalogSync, log: logger}
}

// Normalize is pure translation: no storage access, no side effects. Product
// resolution happens later, inside the apply transaction.
func (n *Normalizer) Normalize(req *WebhookRequest) (*model.BillingEvent, error) {
	env := req.Payload
	name, ok := eventNames[env.Meta.EventName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEventName, env.Meta.EventName)
	}

	attrs := env.Data.Attributes
	ev := &model.BillingEvent{
		Name:            name,
		ProviderEventID: env.Meta.WebhookID,
		UserID:          env.Meta.CustomData["user_id"],
		Meta:            attrs,
		OccurredAt:      occurredAt(attrs),
	}

	if name.IsPaymentEvent() {
		if err := n.normalizePayment(ev, env.Data); err != nil {
			return nil, err
		}
	} else {
		if err := n.normalizeSubscription(ev, env.Data); err != nil {
			return nil, err
		}
	}

	if ev.ProviderSubID == "" {
		return nil, fmt.Errorf("%w: event %q carries no subscription id", domain.ErrInvalidArgument, env.Meta.EventName)
	}

	ev.DedupKey = eventDedupKey(ev.ProviderSubID, ev.Name, ev.ProviderEventID, attrs)
	return ev, nil
}

func (n *Normalizer) normalizeSubscription(ev *model.BillingEvent, data WebhookData) error {
	attrs := data.Attributes
	ev.ProviderSubID = data.ID
	ev.OrderID = attrString(attrs, "order_id")
	ev.CustomerID = attrString(attrs, "customer_id")

	if raw := attrString(attrs, "status"); raw != "" {
		status, err := MapProviderStatus(raw)
		if err != nil {
			return err
		}
		ev.Status = status
	} else {
		ev.Status = statusFromEventName(ev.Name)
	}

	if currency := attrString(attrs, "currency"); currency != "" {
		ev.Price = MinorToMajor(attrInt(attrs, "price"))
		ev.Currency = strings.ToUpper(currency)
	}
	ev.RenewsAt = attrTime(attrs, "renews_at")
	ev.EndsAt = attrTime(attrs, "ends_at")
	ev.TrialEndsAt = attrTime(attrs, "trial_ends_at")
	ev.CancelledReason = attrString(attrs, "cancelled_reason")

	if productID := attrString(attrs, "product_id"); productID != "" {
		interval, err := mapInterval(attrString(attrs, "interval"))
		if err != nil {
			return err
		}
		ev.Product = &model.ProductInfo{
			ProviderProductID: productID,
			ProviderVariantID: attrString(attrs, "variant_id"),
			Name:              attrString(attrs, "product_name"),
			Price:             ev.Price,
			Currency:          ev.Currency,
			Interval:          interval,
		}
	}
	return nil
}

func (n *Normalizer) normalizePayment(ev *model.BillingEvent, data WebhookData) error {
	attrs := data.Attributes
	ev.ProviderSubID = attrString(attrs, "subscription_id")

	// Payment events make no status claim; the provider sends a separate
	// subscription_updated when the state changes.
	payment := &model.PaymentInfo{
		ProviderTxnID: data.ID,
		Amount:        MinorToMajor(attrInt(attrs, "total")),
		Currency:      strings.ToUpper(attrString(attrs, "currency")),
		PeriodStart:   attrTime(attrs, "period_start"),
		PeriodEnd:     attrTime(attrs, "period_end"),
		FailureReason: attrString(attrs, "failure_reason"),
	}
	if refunded := attrInt(attrs, "refunded_amount"); refunded > 0 {
		amount := MinorToMajor(refunded)
		payment.RefundAmount = &amount
	}
	payment.RefundedAt = attrTime(attrs, "refunded_at")
	ev.Payment = payment
	return nil
}

// statusFromEventName derives the implied status when the provider omits the
// status attribute. subscription_updated implies nothing on its own.
func statusFromEventName(name model.EventName) model.SubscriptionStatus {
	switch name {
	case model.EventSubscriptionCreated, model.EventSubscriptionResumed, model.EventSubscriptionUnpaused:
		return model.SubscriptionStatusActive
	case model.EventSubscriptionCancelled:
		return model.SubscriptionStatusCancelled
	case model.EventSubscriptionPaused:
		return model.SubscriptionStatusPaused
	case model.EventSubscriptionExpired:
		return model.SubscriptionStatusExpired
	}
	return ""
}

// ResolveProduct fills ev.ProductID from the catalog mirror. In catalog-sync
// mode an unseen product/variant pair is upserted from the event attributes;
// in strict mode it is a hard error. Runs inside the apply transaction.
func (n *Normalizer) ResolveProduct(ctx context.Context, tx repository.Tx, ev *model.BillingEvent) error {
	if ev.Product == nil || ev.Product.ProviderProductID == "" {
		return nil
	}

	info := ev.Product
	product, err := n.productRepo.FindByProviderIDs(ctx, tx, info.ProviderProductID, info.ProviderVariantID)
	switch {
	case err == nil:
		if n.catalogSync && n.refreshProduct(product, info) {
			if err := n.productRepo.Save(ctx, tx, product); err != nil {
				return err
			}
		}
		ev.ProductID = product.ID
		return nil
	case errors.Is(err, domain.ErrNotFound):
	default:
		return err
	}

	if !n.catalogSync {
		return fmt.Errorf("%w: product %s variant %s", domain.ErrUnknownProduct, info.ProviderProductID, info.ProviderVariantID)
	}

	product, err = model.NewProduct(uuid.NewString(), info.ProviderProductID, info.ProviderVariantID, info.Name, info.Price, info.Currency, info.Interval)
	if err != nil {
		return err
	}
	if err := n.productRepo.Save(ctx, tx, product); err != nil {
		return err
	}
	n.log.Info().
		Str("provider_product_id", info.ProviderProductID).
		Str("provider_variant_id", info.ProviderVariantID).
		Msg("catalog sync: product upserted from event")
	ev.ProductID = product.ID
	return nil
}

func (n *Normalizer) refreshProduct(product *model.Product, info *model.ProductInfo) bool {
	changed := false
	if info.Name != "" && info.Name != product.Name {
		product.Name = info.Name
		changed = true
	}
	if info.Currency != "" && (!info.Price.Equal(product.Price) || info.Currency != product.Currency) {
		product.Price = info.Price
		product.Currency = info.Currency
		changed = true
	}
	if changed {
		product.UpdatedAt = time.Now()
	}
	return changed
}

// eventDedupKey builds the idempotency key. When the provider sends no
// delivery id, a hash of the attribute payload stands in: identical replays
// collapse, materially different events never do.
func eventDedupKey(providerSubID string, name model.EventName, providerEventID string, attrs map[string]interface{}) string {
	discriminator := providerEventID
	if discriminator == "" {
		// json.Marshal writes map keys sorted, so identical payloads hash
		// identically regardless of wire ordering.
		b, _ := json.Marshal(attrs)
		sum := sha256.Sum256(b)
		discriminator = hex.EncodeToString(sum[:])
	}
	sum := sha256.Sum256([]byte(providerSubID + "|" + string(name) + "|" + discriminator))
	return hex.EncodeToString(sum[:])
}

func occurredAt(attrs map[string]interface{}) time.Time {
	if t := attrTime(attrs, "updated_at"); t != nil {
		return *t
	}
	if t := attrTime(attrs, "created_at"); t != nil {
		return *t
	}
	return time.Now().UTC()
}

// Providers are loose about JSON types; ids in particular arrive as either
// strings or numbers.
func attrString(attrs map[string]interface{}, key string) string {
	switch v := attrs[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func attrInt(attrs map[string]interface{}, key string) int64 {
	switch v := attrs[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return n
		}
	}
	return 0
}

func attrTime(attrs map[string]interface{}, key string) *time.Time {
	raw := attrString(attrs, key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
