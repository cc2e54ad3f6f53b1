package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cryptosim/src/models"
	"cryptosim/src/repositories"
	"cryptosim/src/repositories/memory"
	"cryptosim/src/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// newTradingFixture returns a service over an empty memory store with the
// given number of registered users (ids 1..n).
func newTradingFixture(t *testing.T, users int) (*services.TradingService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	for i := 0; i < users; i++ {
		err := store.Repositories().Users.Create(context.Background(), &models.User{
			Name:         "user",
			Email:        string(rune('a'+i)) + "@example.com",
			PasswordHash: "x",
		})
		require.NoError(t, err)
	}
	return services.NewTradingService(store), store
}

func assertBalance(t *testing.T, store repositories.Store, userID int64, want decimal.Decimal) {
	t.Helper()
	b, err := store.Repositories().Balances.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, b.Amount.Equal(want), "balance: want %s, got %s", want, b.Amount)
}

func assertHolding(t *testing.T, store repositories.Store, userID int64, symbol string, want decimal.Decimal) {
	t.Helper()
	holdings, err := store.Repositories().Holdings.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	for _, h := range holdings {
		if h.Symbol == symbol {
			assert.True(t, h.Quantity.Equal(want), "%s quantity: want %s, got %s", symbol, want, h.Quantity)
			return
		}
	}
	t.Fatalf("no %s holding for user %d", symbol, userID)
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("first deposit creates the balance", func(t *testing.T) {
		svc, store := newTradingFixture(t, 1)
		balance, err := svc.Deposit(ctx, 1, d(100))
		require.NoError(t, err)
		assert.True(t, balance.Equal(d(100)))
		assertBalance(t, store, 1, d(100))
	})

	t.Run("later deposits add to the balance", func(t *testing.T) {
		svc, store := newTradingFixture(t, 1)
		_, err := svc.Deposit(ctx, 1, d(100))
		require.NoError(t, err)
		balance, err := svc.Deposit(ctx, 1, decimal.RequireFromString("25.5"))
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.RequireFromString("125.5")))
		assertBalance(t, store, 1, decimal.RequireFromString("125.5"))
	})

	t.Run("non positive amounts are rejected and nothing changes", func(t *testing.T) {
		svc, store := newTradingFixture(t, 1)
		_, err := svc.Deposit(ctx, 1, d(40))
		require.NoError(t, err)

		for _, amount := range []decimal.Decimal{d(0), d(-5)} {
			_, err := svc.Deposit(ctx, 1, amount)
			assert.ErrorIs(t, err, services.ErrValidation)
		}
		assertBalance(t, store, 1, d(40))
	})

	t.Run("unknown user is rejected", func(t *testing.T) {
		svc, store := newTradingFixture(t, 0)
		_, err := svc.Deposit(ctx, 9, d(10))
		assert.ErrorIs(t, err, services.ErrValidation)
		_, err = store.Repositories().Balances.GetByUserID(ctx, 9)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestBuy(t *testing.T) {
	ctx := context.Background()

	t.Run("debits the cost and credits the quantity", func(t *testing.T) {
		svc, store := newTradingFixture(t, 1)
		_, err := svc.Deposit(ctx, 1, d(100))
		require.NoError(t, err)

		res, err := svc.Buy(ctx, services.TradeRequest{UserID: 1, Symbol: " btc ", Price: d(50), Quantity: d(2)})
		require.NoError(t, err)
		assert.Equal(t, "BTC", res.Symbol)
		assert.True(t, res.Balance.Equal(d(50)))
		assert.True(t, res.Quantity.Equal(d(2)))
		assertBalance(t, store, 1, d(50))
		assertHolding(t, store, 1, "BTC", d(2))

		res, err = svc.Buy(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(50), Quantity: d(1)})
		require.NoError(t, err)
		assert.True(t, res.Balance.IsZero())
		assert.True(t, res.Quantity.Equal(d(3)))
	})

	t.Run("fails without a balance row and creates nothing", func(t *testing.T) {
		svc, store := newTradingFixture(t, 2)
		_, err := svc.Buy(ctx, services.TradeRequest{UserID: 2, Symbol: "ETH", Price: d(10), Quantity: d(1)})
		assert.ErrorIs(t, err, services.ErrInsufficientFunds)

		_, err = store.Repositories().Balances.GetByUserID(ctx, 2)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		holdings, err := store.Repositories().Holdings.GetByUserID(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, holdings)
	})

	t.Run("fails when the balance is short and changes nothing", func(t *testing.T) {
		svc, store := newTradingFixture(t, 1)
		_, err := svc.Deposit(ctx, 1, d(30))
		require.NoError(t, err)

		_, err = svc.Buy(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(31), Quantity: d(1)})
		assert.ErrorIs(t, err, services.ErrInsufficientFunds)
		assertBalance(t, store, 1, d(30))
		holdings, err := store.Repositories().Holdings.GetByUserID(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, holdings)
	})

	t.Run("rejects invalid requests", func(t *testing.T) {
		svc, _ := newTradingFixture(t, 1)
		cases := []services.TradeRequest{
			{UserID: 0, Symbol: "BTC", Price: d(1), Quantity: d(1)},
			{UserID: 1, Symbol: "  ", Price: d(1), Quantity: d(1)},
			{UserID: 1, Symbol: "THISSYMBOLISWAYTOOLONG", Price: d(1), Quantity: d(1)},
			{UserID: 1, Symbol: "BTC", Price: d(0), Quantity: d(1)},
			{UserID: 1, Symbol: "BTC", Price: d(1), Quantity: d(0)},
			{UserID: 1, Symbol: "BTC", Price: d(1), Quantity: d(-1)},
		}
		for _, req := range cases {
			_, err := svc.Buy(ctx, req)
			assert.ErrorIs(t, err, services.ErrValidation, "%+v", req)
		}
	})

	t.Run("concurrent buys never overspend", func(t *testing.T) {
		svc, store := newTradingFixture(t, 1)
		_, err := svc.Deposit(ctx, 1, d(100))
		require.NoError(t, err)

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Buy(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(10), Quantity: d(1)})
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, succeeded)
		assertBalance(t, store, 1, d(0))
		assertHolding(t, store, 1, "BTC", d(10))
	})
}

func TestSell(t *testing.T) {
	ctx := context.Background()

	t.Run("credits the proceeds and debits the quantity", func(t *testing.T) {
		svc, store := newTradingFixture(t, 1)
		_, err := svc.Deposit(ctx, 1, d(100))
		require.NoError(t, err)
		_, err = svc.Buy(ctx, services.TradeRequest{UserID: 1, Symbol: "SOL", Price: d(60), Quantity: d(3)})
		require.NoError(t, err)

		res, err := svc.Sell(ctx, services.TradeRequest{UserID: 1, Symbol: "sol", Price: d(45), Quantity: d(2)})
		require.NoError(t, err)
		assert.True(t, res.Balance.Equal(d(85)))
		assert.True(t, res.Quantity.Equal(d(1)))
		assertBalance(t, store, 1, d(85))
		assertHolding(t, store, 1, "SOL", d(1))
	})

	t.Run("fails without a holding", func(t *testing.T) {
		svc, store := newTradingFixture(t, 1)
		_, err := svc.Deposit(ctx, 1, d(10))
		require.NoError(t, err)

		_, err = svc.Sell(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(10), Quantity: d(1)})
		assert.ErrorIs(t, err, services.ErrInsufficientHoldings)
		assertBalance(t, store, 1, d(10))
	})

	t.Run("fails on an empty holding and leaves the balance", func(t *testing.T) {
		svc, store := newTradingFixture(t, 1)
		_, err := svc.Deposit(ctx, 1, d(10))
		require.NoError(t, err)
		_, err = svc.Buy(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(10), Quantity: d(1)})
		require.NoError(t, err)
		_, err = svc.Sell(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(12), Quantity: d(1)})
		require.NoError(t, err)

		_, err = svc.Sell(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(12), Quantity: d(1)})
		assert.ErrorIs(t, err, services.ErrInsufficientHoldings)
		assertBalance(t, store, 1, d(12))
		assertHolding(t, store, 1, "BTC", d(0))
	})

	t.Run("never drives a holding negative", func(t *testing.T) {
		svc, store := newTradingFixture(t, 1)
		_, err := svc.Deposit(ctx, 1, d(10))
		require.NoError(t, err)
		_, err = svc.Buy(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(10), Quantity: d(2)})
		require.NoError(t, err)

		_, err = svc.Sell(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(30), Quantity: d(3)})
		assert.ErrorIs(t, err, services.ErrInsufficientHoldings)
		assertBalance(t, store, 1, d(0))
		assertHolding(t, store, 1, "BTC", d(2))
	})
}

func TestTradingScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("deposit, buy and sell one unit", func(t *testing.T) {
		svc, store := newTradingFixture(t, 1)

		balance, err := svc.Deposit(ctx, 1, d(100))
		require.NoError(t, err)
		assert.True(t, balance.Equal(d(100)))

		res, err := svc.Buy(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(50), Quantity: d(1)})
		require.NoError(t, err)
		assert.True(t, res.Balance.Equal(d(50)))
		assert.True(t, res.Quantity.Equal(d(1)))

		res, err = svc.Sell(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(60), Quantity: d(1)})
		require.NoError(t, err)
		assert.True(t, res.Balance.Equal(d(110)))
		assert.True(t, res.Quantity.IsZero())

		assertBalance(t, store, 1, d(110))
		assertHolding(t, store, 1, "BTC", d(0))
	})

	t.Run("buy without any balance", func(t *testing.T) {
		svc, store := newTradingFixture(t, 2)

		_, err := svc.Buy(ctx, services.TradeRequest{UserID: 2, Symbol: "ETH", Price: d(10), Quantity: d(1)})
		assert.ErrorIs(t, err, services.ErrInsufficientFunds)

		portfolio, err := svc.GetPortfolio(ctx, 2)
		require.NoError(t, err)
		assert.True(t, portfolio.Balance.IsZero())
		assert.Empty(t, portfolio.Holdings)
		_, err = store.Repositories().Balances.GetByUserID(ctx, 2)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestGetPortfolio(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTradingFixture(t, 1)

	_, err := svc.Deposit(ctx, 1, d(100))
	require.NoError(t, err)
	_, err = svc.Buy(ctx, services.TradeRequest{UserID: 1, Symbol: "ETH", Price: d(20), Quantity: d(2)})
	require.NoError(t, err)
	_, err = svc.Buy(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(30), Quantity: d(1)})
	require.NoError(t, err)

	portfolio, err := svc.GetPortfolio(ctx, 1)
	require.NoError(t, err)
	assert.True(t, portfolio.Balance.Equal(d(50)))
	require.Len(t, portfolio.Holdings, 2)
	assert.Equal(t, "BTC", portfolio.Holdings[0].Symbol)
	assert.Equal(t, "ETH", portfolio.Holdings[1].Symbol)
	assert.True(t, portfolio.Holdings[1].Quantity.Equal(d(2)))

	_, err = svc.GetPortfolio(ctx, 0)
	assert.ErrorIs(t, err, services.ErrValidation)
}

// brokenStore fails every unit of work at commit time and every plain read.
type brokenStore struct {
	*memory.Store
}

var errConnectionLost = errors.New("connection lost")

func (s brokenStore) WithTx(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	err := s.Store.WithTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if err := fn(ctx, repos); err != nil {
			return err
		}
		return errConnectionLost
	})
	if errors.Is(err, errConnectionLost) {
		return errors.Join(repositories.ErrTxFailed, err)
	}
	return err
}

type brokenBalances struct {
	repositories.BalanceRepository
}

func (brokenBalances) GetByUserID(context.Context, int64) (*models.Balance, error) {
	return nil, errConnectionLost
}

func (s brokenStore) Repositories() repositories.Repositories {
	repos := s.Store.Repositories()
	repos.Balances = brokenBalances{repos.Balances}
	return repos
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	base := memory.NewStore()
	require.NoError(t, base.Repositories().Users.Create(ctx, &models.User{Name: "a", Email: "a@example.com", PasswordHash: "x"}))
	_, err := base.Repositories().Balances.Add(ctx, 1, d(100))
	require.NoError(t, err)

	svc := services.NewTradingService(brokenStore{base})

	t.Run("failed commit is a transaction error and rolls back", func(t *testing.T) {
		_, err := svc.Deposit(ctx, 1, d(10))
		assert.ErrorIs(t, err, services.ErrTransaction)
		assert.ErrorIs(t, err, errConnectionLost)
		var svcErr *services.Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "No se pudo confirmar la transacción", svcErr.Message)

		_, err = svc.Buy(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(10), Quantity: d(1)})
		assert.ErrorIs(t, err, services.ErrTransaction)

		b, err := base.Repositories().Balances.GetByUserID(ctx, 1)
		require.NoError(t, err)
		assert.True(t, b.Amount.Equal(d(100)))
	})

	t.Run("domain errors are not hidden behind transaction errors", func(t *testing.T) {
		_, err := svc.Sell(ctx, services.TradeRequest{UserID: 1, Symbol: "BTC", Price: d(10), Quantity: d(1)})
		assert.ErrorIs(t, err, services.ErrInsufficientHoldings)
	})

	t.Run("portfolio read failure is surfaced", func(t *testing.T) {
		_, err := svc.GetPortfolio(ctx, 1)
		assert.ErrorIs(t, err, services.ErrTransaction)
		assert.ErrorIs(t, err, errConnectionLost)
	})

	t.Run("expired context is passed through", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := svc.Deposit(cctx, 1, d(10))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
