// Package memory keeps the credential and ledger tables in process memory.
// Units of work are serialised behind a single lock and applied to a copy of
// the tables, so a failed unit of work leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cryptosim/src/models"
	"cryptosim/src/repositories"

	"github.com/shopspring/decimal"
)

type holdingKey struct {
	userID int64
	symbol string
}

type tables struct {
	nextUserID int64
	users      map[int64]models.User
	emails     map[string]int64
	balances   map[int64]models.Balance
	holdings   map[holdingKey]models.Holding
}

func newTables() *tables {
	return &tables{
		users:    make(map[int64]models.User),
		emails:   make(map[string]int64),
		balances: make(map[int64]models.Balance),
		holdings: make(map[holdingKey]models.Holding),
	}
}

func (t *tables) clone() *tables {
	c := &tables{
		nextUserID: t.nextUserID,
		users:      make(map[int64]models.User, len(t.users)),
		emails:     make(map[string]int64, len(t.emails)),
		balances:   make(map[int64]models.Balance, len(t.balances)),
		holdings:   make(map[holdingKey]models.Holding, len(t.holdings)),
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.emails {
		c.emails[k] = v
	}
	for k, v := range t.balances {
		c.balances[k] = v
	}
	for k, v := range t.holdings {
		c.holdings[k] = v
	}
	return c
}

type Store struct {
	mu     sync.RWMutex
	data   *tables
	closed bool
}

var _ repositories.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{data: newTables()}
}

// access hands fn the tables to work on. Inside a unit of work the copy is
// used directly since the store lock is already held.
type access func(write bool, fn func(t *tables) error) error

func (s *Store) direct(write bool, fn func(t *tables) error) error {
	if write {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	return fn(s.data)
}

func inTx(t *tables) access {
	return func(_ bool, fn func(t *tables) error) error {
		return fn(t)
	}
}

func repositoriesFor(a access) repositories.Repositories {
	return repositories.Repositories{
		Users:    &userRepo{access: a},
		Balances: &balanceRepo{access: a},
		Holdings: &holdingRepo{access: a},
	}
}

func (s *Store) Repositories() repositories.Repositories {
	return repositoriesFor(s.direct)
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: begin: %w", repositories.ErrTxFailed, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: memory store is closed", repositories.ErrTxFailed)
	}

	work := s.data.clone()
	if err := fn(ctx, repositoriesFor(inTx(work))); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: commit: %w", repositories.ErrTxFailed, err)
	}
	s.data = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.direct(false, func(*tables) error { return ctx.Err() })
}

func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

type userRepo struct {
	access access
}

func (r *userRepo) Create(_ context.Context, u *models.User) error {
	return r.access(true, func(t *tables) error {
		email := strings.ToLower(u.Email)
		if _, exists := t.emails[email]; exists {
			return fmt.Errorf("%w: usuarios_email_key", repositories.ErrDuplicate)
		}
		t.nextUserID++
		u.ID = t.nextUserID
		u.CreatedAt = time.Now()
		t.users[u.ID] = *u
		t.emails[email] = u.ID
		return nil
	})
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	var found models.User
	err := r.access(false, func(t *tables) error {
		id, ok := t.emails[strings.ToLower(email)]
		if !ok {
			return repositories.ErrNotFound
		}
		found = t.users[id]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	var found models.User
	err := r.access(false, func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return repositories.ErrNotFound
		}
		found = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

type balanceRepo struct {
	access access
}

func (r *balanceRepo) GetByUserID(_ context.Context, userID int64) (*models.Balance, error) {
	var found models.Balance
	err := r.access(false, func(t *tables) error {
		b, ok := t.balances[userID]
		if !ok {
			return repositories.ErrNotFound
		}
		found = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *balanceRepo) GetByUserIDForUpdate(ctx context.Context, userID int64) (*models.Balance, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *balanceRepo) Add(_ context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := r.access(true, func(t *tables) error {
		b, ok := t.balances[userID]
		if !ok {
			b = models.Balance{UserID: userID, Amount: decimal.Zero}
		}
		b.Amount = b.Amount.Add(delta)
		if !fits(b.Amount) {
			return repositories.ErrOutOfRange
		}
		b.UpdatedAt = time.Now()
		t.balances[userID] = b
		amount = b.Amount
		return nil
	})
	return amount, err
}

type holdingRepo struct {
	access access
}

func (r *holdingRepo) GetByUserID(_ context.Context, userID int64) ([]models.Holding, error) {
	holdings := make([]models.Holding, 0)
	err := r.access(false, func(t *tables) error {
		for key, h := range t.holdings {
			if key.userID == userID {
				holdings = append(holdings, h)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Symbol < holdings[j].Symbol
	})
	return holdings, nil
}

func (r *holdingRepo) GetForUpdate(_ context.Context, userID int64, symbol string) (*models.Holding, error) {
	var found models.Holding
	err := r.access(false, func(t *tables) error {
		h, ok := t.holdings[holdingKey{userID, symbol}]
		if !ok {
			return repositories.ErrNotFound
		}
		found = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *holdingRepo) Add(_ context.Context, userID int64, symbol string, delta decimal.Decimal) (decimal.Decimal, error) {
	var quantity decimal.Decimal
	err := r.access(true, func(t *tables) error {
		key := holdingKey{userID, symbol}
		h, ok := t.holdings[key]
		if !ok {
			h = models.Holding{UserID: userID, Symbol: symbol, Quantity: decimal.Zero}
		}
		h.Quantity = h.Quantity.Add(delta)
		if !fits(h.Quantity) {
			return repositories.ErrOutOfRange
		}
		h.UpdatedAt = time.Now()
		t.holdings[key] = h
		quantity = h.Quantity
		return nil
	})
	return quantity, err
}

// fits mirrors the NUMERIC(20,8) bound of the Postgres columns.
func fits(d decimal.Decimal) bool {
	return d.Abs().LessThan(repositories.MaxAmount)
}
