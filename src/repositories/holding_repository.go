package repositories

import (
	"context"

	"cryptosim/src/models"

	"github.com/shopspring/decimal"
)

type holdingRepo struct {
	db querier
}

func (r *holdingRepo) GetByUserID(ctx context.Context, userID int64) ([]models.Holding, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, crypto_symbol, cantidad, updated_at
		FROM portafolio
		WHERE user_id = $1
		ORDER BY crypto_symbol`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holdings := make([]models.Holding, 0)
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.UserID, &h.Symbol, &h.Quantity, &h.UpdatedAt); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (r *holdingRepo) GetForUpdate(ctx context.Context, userID int64, symbol string) (*models.Holding, error) {
	var h models.Holding
	err := r.db.QueryRow(ctx,
		`SELECT user_id, crypto_symbol, cantidad, updated_at
		FROM portafolio
		WHERE user_id = $1 AND crypto_symbol = $2
		FOR UPDATE`,
		userID, symbol,
	).Scan(&h.UserID, &h.Symbol, &h.Quantity, &h.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &h, nil
}

func (r *holdingRepo) Add(ctx context.Context, userID int64, symbol string, delta decimal.Decimal) (decimal.Decimal, error) {
	var quantity decimal.Decimal
	err := r.db.QueryRow(ctx,
		`INSERT INTO portafolio (user_id, crypto_symbol, cantidad)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (user_id, crypto_symbol) DO UPDATE SET
			cantidad = portafolio.cantidad + EXCLUDED.cantidad,
			updated_at = NOW()
		RETURNING cantidad`,
		userID, symbol, delta,
	).Scan(&quantity)
	if err != nil {
		return decimal.Zero, translateError(err)
	}
	return quantity, nil
}
