package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"personal-vault/internal/domain"
	"personal-vault/internal/domain/model"
	"personal-vault/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*invoiceRepo)(nil)

const invoiceCols = `id, number, subscription_id, amount, currency, status, due_at, paid_at, period_start, period_end, notes, created_at, updated_at`

type invoiceRepo struct{ pool *pgxpool.Pool }

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

func (r *invoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	const q = `
INSERT INTO invoices (
  id, number, subscription_id, amount, currency, status, due_at, paid_at, period_start, period_end, notes, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW())
ON CONFLICT (id) DO UPDATE SET
  amount=$4, currency=$5, status=$6, due_at=$7, paid_at=$8, period_start=$9, period_end=$10, notes=$11, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q,
		inv.ID, inv.Number, inv.SubscriptionID, inv.Amount, inv.Currency, inv.Status,
		inv.DueAt, inv.PaidAt, inv.PeriodStart, inv.PeriodEnd, inv.Notes, inv.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *invoiceRepo) FindByPeriodStart(ctx context.Context, tx repository.Tx, subscriptionID string, periodStart time.Time) (*model.Invoice, error) {
	q := `SELECT ` + invoiceCols + ` FROM invoices WHERE subscription_id=$1 AND period_start=$2 LIMIT 1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, subscriptionID, periodStart)
	if err != nil {
		return nil, err
	}
	return scanInvoice(row)
}

func (r *invoiceRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, offset, limit int) ([]*model.Invoice, int, error) {
	const cq = `SELECT COUNT(*) FROM invoices WHERE subscription_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, cq, subscriptionID)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}

	q := `SELECT ` + invoiceCols + ` FROM invoices WHERE subscription_id=$1 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriptionID, offset, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, 0, err
		default:
			return nil, 0, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}
	return out, total, nil
}

func scanInvoice(row rowScanner) (*model.Invoice, error) {
	inv := &model.Invoice{}
	var status string
	if err := row.Scan(&inv.ID, &inv.Number, &inv.SubscriptionID, &inv.Amount, &inv.Currency, &status,
		&inv.DueAt, &inv.PaidAt, &inv.PeriodStart, &inv.PeriodEnd, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	inv.Status = model.InvoiceStatus(status)
	return inv, nil
}
