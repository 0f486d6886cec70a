package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"personal-vault/internal/domain"
	"personal-vault/internal/domain/model"
	"personal-vault/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

const transactionCols = `id, provider_txn_id, subscription_id, invoice_id, amount, currency, status, paid_at, refund_amount, refunded_at, period_start, period_end, failure_reason, meta, created_at, updated_at`

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

func (r *transactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	const q = `
INSERT INTO transactions (
  id, provider_txn_id, subscription_id, invoice_id, amount, currency, status, paid_at,
  refund_amount, refunded_at, period_start, period_end, failure_reason, meta, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,NOW())
ON CONFLICT (provider_txn_id) DO UPDATE SET
  invoice_id=$4, amount=$5, currency=$6, status=$7, paid_at=$8, refund_amount=$9,
  refunded_at=$10, period_start=$11, period_end=$12, failure_reason=$13, meta=$14, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q,
		t.ID, t.ProviderTxnID, t.SubscriptionID, t.InvoiceID, t.Amount, t.Currency, t.Status, t.PaidAt,
		t.RefundAmount, t.RefundedAt, t.PeriodStart, t.PeriodEnd, t.FailureReason, t.Meta, t.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *transactionRepo) FindByProviderTxnID(ctx context.Context, tx repository.Tx, providerTxnID string) (*model.Transaction, error) {
	q := `SELECT ` + transactionCols + ` FROM transactions WHERE provider_txn_id=$1 LIMIT 1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, providerTxnID)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, offset, limit int) ([]*model.Transaction, int, error) {
	const cq = `SELECT COUNT(*) FROM transactions WHERE subscription_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, cq, subscriptionID)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}

	q := `SELECT ` + transactionCols + ` FROM transactions WHERE subscription_id=$1 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`
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

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}
	return out, total, nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	t := &model.Transaction{}
	var status string
	if err := row.Scan(&t.ID, &t.ProviderTxnID, &t.SubscriptionID, &t.InvoiceID, &t.Amount, &t.Currency, &status,
		&t.PaidAt, &t.RefundAmount, &t.RefundedAt, &t.PeriodStart, &t.PeriodEnd, &t.FailureReason, &t.Meta,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	t.Status = model.TransactionStatus(status)
	return t, nil
}
