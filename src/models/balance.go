package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Balance struct {
	UserID    int64           `db:"user_id"`
	Amount    decimal.Decimal `db:"balance"`
	UpdatedAt time.Time       `db:"updated_at"`
}
