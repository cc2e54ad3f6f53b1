package repositories

import (
	"context"

	"cryptosim/src/models"

	"github.com/shopspring/decimal"
)

type balanceRepo struct {
	db querier
}

func (r *balanceRepo) GetByUserID(ctx context.Context, userID int64) (*models.Balance, error) {
	return r.get(ctx, `SELECT user_id, balance, updated_at FROM saldos WHERE user_id = $1`, userID)
}

func (r *balanceRepo) GetByUserIDForUpdate(ctx context.Context, userID int64) (*models.Balance, error) {
	return r.get(ctx, `SELECT user_id, balance, updated_at FROM saldos WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *balanceRepo) get(ctx context.Context, query string, userID int64) (*models.Balance, error) {
	var b models.Balance
	if err := r.db.QueryRow(ctx, query, userID).Scan(&b.UserID, &b.Amount, &b.UpdatedAt); err != nil {
		return nil, translateError(err)
	}
	return &b, nil
}

func (r *balanceRepo) Add(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := r.db.QueryRow(ctx,
		`INSERT INTO saldos (user_id, balance)
		 VALUES ($1, $2::numeric)
		 ON CONFLICT (user_id) DO UPDATE SET
			balance = saldos.balance + EXCLUDED.balance,
			updated_at = NOW()
		 RETURNING balance`,
		userID, delta,
	).Scan(&amount)
	if err != nil {
		return decimal.Zero, translateError(err)
	}
	return amount, nil
}
