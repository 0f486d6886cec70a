package model

import (
	"time"

	"github.com/shopspring/decimal"

	"personal-vault/internal/domain"
)

type BillingInterval string

const (
	BillingIntervalDay   BillingInterval = "day"
	BillingIntervalWeek  BillingInterval = "week"
	BillingIntervalMonth BillingInterval = "month"
	BillingIntervalYear  BillingInterval = "year"
)

// Product mirrors a provider product/variant pair. In catalog-sync mode it is
// upserted lazily on first reference; in strict mode an unknown pair is a
// hard error at normalization time.
type Product struct {
	ID                string // UUID
	ProviderProductID string
	ProviderVariantID string
	Name              string
	Description       string
	Price             decimal.Decimal
	Currency          string
	Interval          BillingInterval
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewProduct(id, providerProductID, providerVariantID, name string, price decimal.Decimal, currency string, interval BillingInterval) (*Product, error) {
	if id == "" || providerProductID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Product{
		ID:                id,
		ProviderProductID: providerProductID,
		ProviderVariantID: providerVariantID,
		Name:              name,
		Price:             price,
		Currency:          currency,
		Interval:          interval,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}
