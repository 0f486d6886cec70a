package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"personal-vault/internal/domain"
	"personal-vault/internal/domain/model"
	"personal-vault/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

const subscriptionCols = `id, provider_sub_id, order_id, customer_id, product_id, user_id, status, price, currency, renews_at, ends_at, trial_ends_at, cancelled_reason, cancelled_at, last_webhook_at, webhook_count, created_at, updated_at`

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, provider_sub_id, order_id, customer_id, product_id, user_id, status, price, currency,
  renews_at, ends_at, trial_ends_at, cancelled_reason, cancelled_at, last_webhook_at, webhook_count, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,NOW())
ON CONFLICT (id) DO UPDATE SET
  order_id=$3, customer_id=$4, product_id=$5, status=$7, price=$8, currency=$9,
  renews_at=$10, ends_at=$11, trial_ends_at=$12, cancelled_reason=$13, cancelled_at=$14,
  last_webhook_at=$15, webhook_count=$16, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.ProviderSubID, s.OrderID, s.CustomerID, s.ProductID, s.UserID, s.Status, s.Price, s.Currency,
		s.RenewsAt, s.EndsAt, s.TrialEndsAt, s.CancelledReason, s.CancelledAt, s.LastWebhookAt, s.WebhookCount, s.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// SaveGuarded is the optimistic backstop behind row locking: the update only
// lands when webhook_count is still what the caller read.
func (r *subscriptionRepo) SaveGuarded(ctx context.Context, tx repository.Tx, s *model.Subscription, expectedCount int64) (bool, error) {
	const q = `
UPDATE subscriptions SET
  order_id=$2, customer_id=$3, product_id=$4, status=$5, price=$6, currency=$7,
  renews_at=$8, ends_at=$9, trial_ends_at=$10, cancelled_reason=$11, cancelled_at=$12,
  last_webhook_at=$13, webhook_count=$14, updated_at=NOW()
 WHERE id=$1 AND webhook_count=$15;`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.OrderID, s.CustomerID, s.ProductID, s.Status, s.Price, s.Currency,
		s.RenewsAt, s.EndsAt, s.TrialEndsAt, s.CancelledReason, s.CancelledAt,
		s.LastWebhookAt, s.WebhookCount, expectedCount)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionCols + ` FROM subscriptions WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.queryOne(ctx, tx, q, id)
}

func (r *subscriptionRepo) FindByProviderSubID(ctx context.Context, tx repository.Tx, providerSubID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionCols + ` FROM subscriptions WHERE provider_sub_id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.queryOne(ctx, tx, q, providerSubID)
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, status model.SubscriptionStatus, offset, limit int) ([]*model.Subscription, int, error) {
	// An empty status matches every row, so a single query covers both the
	// filtered and unfiltered listing.
	q := `SELECT ` + subscriptionCols + `
  FROM subscriptions
 WHERE user_id=$1 AND ($2 = '' OR status=$2)
 ORDER BY created_at DESC
 OFFSET $3 LIMIT $4;`
	const cq = `SELECT COUNT(*) FROM subscriptions WHERE user_id=$1 AND ($2 = '' OR status=$2);`

	row, err := pickRow(ctx, r.pool, tx, cq, userID, string(status))
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}

	rows, err := queryRows(ctx, r.pool, tx, q, userID, string(status), offset, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, 0, err
		default:
			return nil, 0, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}
	return out, total, nil
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM subscriptions GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	counts := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		counts[model.SubscriptionStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return counts, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	s, err := scanSubscription(row)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*model.Subscription, error) {
	s := &model.Subscription{}
	var status string
	if err := row.Scan(&s.ID, &s.ProviderSubID, &s.OrderID, &s.CustomerID, &s.ProductID, &s.UserID, &status,
		&s.Price, &s.Currency, &s.RenewsAt, &s.EndsAt, &s.TrialEndsAt, &s.CancelledReason, &s.CancelledAt,
		&s.LastWebhookAt, &s.WebhookCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.Status = model.SubscriptionStatus(status)
	return s, nil
}
