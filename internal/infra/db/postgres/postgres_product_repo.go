package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"personal-vault/internal/domain"
	"personal-vault/internal/domain/model"
	"personal-vault/internal/domain/ports/repository"
)

var _ repository.ProductRepository = (*productRepo)(nil)

const productCols = `id, provider_product_id, provider_variant_id, name, description, price, currency, interval, active, created_at, updated_at`

type productRepo struct{ pool *pgxpool.Pool }

func NewProductRepo(pool *pgxpool.Pool) *productRepo {
	return &productRepo{pool: pool}
}

func (r *productRepo) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	const q = `
INSERT INTO products (
  id, provider_product_id, provider_variant_id, name, description, price, currency, interval, active, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
ON CONFLICT (provider_product_id, provider_variant_id) DO UPDATE SET
  name=$4, description=$5, price=$6, currency=$7, interval=$8, active=$9, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.ProviderProductID, p.ProviderVariantID, p.Name, p.Description,
		p.Price, p.Currency, p.Interval, p.Active, p.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *productRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *productRepo) FindByProviderIDs(ctx context.Context, tx repository.Tx, providerProductID, providerVariantID string) (*model.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products WHERE provider_product_id=$1 AND provider_variant_id=$2 LIMIT 1;`
	return r.queryOne(ctx, tx, q, providerProductID, providerVariantID)
}

func (r *productRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) (*model.Product, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}

	p := &model.Product{}
	var interval string
	if err := row.Scan(&p.ID, &p.ProviderProductID, &p.ProviderVariantID, &p.Name, &p.Description,
		&p.Price, &p.Currency, &interval, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Interval = model.BillingInterval(interval)
	return p, nil
}
