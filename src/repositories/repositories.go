package repositories

import (
	"context"
	"errors"

	"cryptosim/src/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrTxFailed marks failures of the unit of work itself (begin, commit)
	// as opposed to failures of the statements run inside it.
	ErrTxFailed = errors.New("unit of work failed")
	// ErrOutOfRange is returned when an amount does not fit the ledger columns.
	ErrOutOfRange = errors.New("amount out of range")
)

// Balances and quantities are stored as NUMERIC(20,8).
const AmountScale = 8

// MaxAmount is the first value NUMERIC(20,8) cannot hold.
var MaxAmount = decimal.New(1, 20-AmountScale)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type BalanceRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Balance, error)
	// GetByUserIDForUpdate reads the balance row and holds a write lock on it
	// until the surrounding unit of work ends.
	GetByUserIDForUpdate(ctx context.Context, userID int64) (*models.Balance, error)
	// Add creates the balance row with delta or adds delta to it, returning
	// the resulting amount.
	Add(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error)
}

type HoldingRepository interface {
	GetByUserID(ctx context.Context, userID int64) ([]models.Holding, error)
	GetForUpdate(ctx context.Context, userID int64, symbol string) (*models.Holding, error)
	// Add creates the holding row with delta or adds delta to it, returning
	// the resulting quantity.
	Add(ctx context.Context, userID int64, symbol string, delta decimal.Decimal) (decimal.Decimal, error)
}

type Repositories struct {
	Users    UserRepository
	Balances BalanceRepository
	Holdings HoldingRepository
}

// Store is the handle on the credential and ledger tables. It is built once
// at start-up and closed on shutdown.
type Store interface {
	// Repositories returns repositories that run each statement on its own.
	Repositories() Repositories
	// WithTx runs fn inside a unit of work. The work is committed when fn
	// returns nil and rolled back otherwise; row locks taken inside fn are
	// released either way.
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
	Close()
}
