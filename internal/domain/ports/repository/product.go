package repository

import (
	"context"

	"personal-vault/internal/domain/model"
)

// ProductRepository is the port for the provider product catalog mirror.
type ProductRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Product) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Product, error)
	FindByProviderIDs(ctx context.Context, tx Tx, providerProductID, providerVariantID string) (*model.Product, error)
}
