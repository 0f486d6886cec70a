package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"personal-vault/internal/domain"
	"personal-vault/internal/domain/model"
	"personal-vault/internal/domain/ports/repository"
)

var _ repository.HistoryRepository = (*historyRepo)(nil)

const historyCols = `id, subscription_id, previous_status, new_status, previous_price, new_price, reason, meta, changed_at, changed_by`

type historyRepo struct{ pool *pgxpool.Pool }

func NewHistoryRepo(pool *pgxpool.Pool) *historyRepo {
	return &historyRepo{pool: pool}
}

// Append inserts one audit row. There is deliberately no update path.
func (r *historyRepo) Append(ctx context.Context, tx repository.Tx, h *model.SubscriptionHistory) error {
	const q = `
INSERT INTO subscription_history (
  id, subscription_id, previous_status, new_status, previous_price, new_price, reason, meta, changed_at, changed_by
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

	_, err := execSQL(ctx, r.pool, tx, q,
		h.ID, h.SubscriptionID, h.PreviousStatus, h.NewStatus, h.PreviousPrice, h.NewPrice,
		h.Reason, h.Meta, h.ChangedAt, h.ChangedBy)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *historyRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, offset, limit int) ([]*model.SubscriptionHistory, int, error) {
	const cq = `SELECT COUNT(*) FROM subscription_history WHERE subscription_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, cq, subscriptionID)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}

	q := `SELECT ` + historyCols + ` FROM subscription_history WHERE subscription_id=$1 ORDER BY changed_at DESC OFFSET $2 LIMIT $3;`
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

	var out []*model.SubscriptionHistory
	for rows.Next() {
		h := &model.SubscriptionHistory{}
		var prev, next string
		if err := rows.Scan(&h.ID, &h.SubscriptionID, &prev, &next, &h.PreviousPrice, &h.NewPrice,
			&h.Reason, &h.Meta, &h.ChangedAt, &h.ChangedBy); err != nil {
			if err == pgx.ErrNoRows {
				return nil, 0, domain.ErrNotFound
			}
			return nil, 0, domain.ErrReadDatabaseRow
		}
		h.PreviousStatus = model.SubscriptionStatus(prev)
		h.NewStatus = model.SubscriptionStatus(next)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}
	return out, total, nil
}
