package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Holding struct {
	UserID    int64           `db:"user_id"`
	Symbol    string          `db:"crypto_symbol"`
	Quantity  decimal.Decimal `db:"cantidad"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Portfolio is a read snapshot of a user's cash and holdings.
type Portfolio struct {
	UserID   int64
	Balance  decimal.Decimal
	Holdings []Holding
}
