package repositories

import (
	"context"
	"errors"
	"fmt"

	"cryptosim/src/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation        = "23505"
	numericValueOutOfRange = "22003"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) Store {
	return &pgStore{db: db}
}

func newRepositories(q querier) Repositories {
	return Repositories{
		Users:    &userRepo{db: q},
		Balances: &balanceRepo{db: q},
		Holdings: &holdingRepo{db: q},
	}
}

func (s *pgStore) Repositories() Repositories {
	return newRepositories(s.db)
}

func (s *pgStore) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrTxFailed, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(ctx, newRepositories(tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrTxFailed, err)
	}
	return nil
}

func (s *pgStore) Ping(ctx context.Context) error {
	return database.CheckConnection(ctx, s.db)
}

func (s *pgStore) Close() {
	s.db.Close()
}

func translateError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case numericValueOutOfRange:
			return fmt.Errorf("%w: %s", ErrOutOfRange, pgErr.Message)
		}
	}
	return err
}
