package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cryptosim/src/models"
	"cryptosim/src/repositories"
	"cryptosim/src/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const maxSymbolLength = 20

type TradingServiceI interface {
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Buy(ctx context.Context, req TradeRequest) (*TradeResult, error)
	Sell(ctx context.Context, req TradeRequest) (*TradeResult, error)
	GetPortfolio(ctx context.Context, userID int64) (*models.Portfolio, error)
}

// TradeRequest describes one buy or sell. Price is the total cost of a buy
// or the total proceeds of a sale, not a unit price.
type TradeRequest struct {
	UserID   int64
	Symbol   string
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// TradeResult is the state of the touched rows once the trade committed.
type TradeResult struct {
	Symbol   string
	Balance  decimal.Decimal
	Quantity decimal.Decimal
}

type TradingService struct {
	store repositories.Store
}

func NewTradingService(store repositories.Store) *TradingService {
	return &TradingService{store: store}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (r *TradeRequest) validate() error {
	if r.UserID <= 0 {
		return validationError("Usuario inválido")
	}
	r.Symbol = normalizeSymbol(r.Symbol)
	if r.Symbol == "" || len(r.Symbol) > maxSymbolLength {
		return validationError("Símbolo inválido")
	}
	if !r.Price.IsPositive() {
		return validationError("El precio debe ser mayor que cero")
	}
	if !r.Quantity.IsPositive() {
		return validationError("La cantidad debe ser mayor que cero")
	}
	if err := checkAmount(r.Price); err != nil {
		return err
	}
	return checkAmount(r.Quantity)
}

// checkAmount rejects values the ledger columns would round or overflow.
func checkAmount(d decimal.Decimal) error {
	if !d.Equal(d.Truncate(repositories.AmountScale)) {
		return validationError(fmt.Sprintf("Se admiten como máximo %d decimales", repositories.AmountScale))
	}
	if d.Abs().GreaterThanOrEqual(repositories.MaxAmount) {
		return errOutOfRange
	}
	return nil
}

// unitOfWork runs fn in a store transaction. Service errors raised inside
// fn are passed through; anything else becomes a transaction error.
func (s *TradingService) unitOfWork(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	err := s.store.WithTx(ctx, fn)
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, repositories.ErrOutOfRange):
		return errOutOfRange
	case errors.Is(err, repositories.ErrTxFailed):
		return transactionError("No se pudo confirmar la transacción", err)
	}
	return transactionError(ErrTransaction.Message, err)
}

// Deposit credits amount to the user's balance, creating the balance row on
// the first deposit, and returns the new balance.
func (s *TradingService) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	logger := utils.LoggerFromContext(ctx).WithField("user_id", userID)

	if userID <= 0 || !amount.IsPositive() {
		return decimal.Zero, ErrValidation
	}
	if err := checkAmount(amount); err != nil {
		return decimal.Zero, err
	}

	var newBalance decimal.Decimal
	err := s.unitOfWork(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if _, err := repos.Users.GetByID(ctx, userID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return validationError("Usuario inexistente")
			}
			return err
		}
		var err error
		newBalance, err = repos.Balances.Add(ctx, userID, amount)
		return err
	})
	if err != nil {
		logger.Errorf("error while adding funds: %v", err)
		return decimal.Zero, err
	}

	logger.WithField("amount", amount.String()).Info("funds added")
	return newBalance, nil
}

// Buy spends req.Price from the balance and adds req.Quantity of the symbol.
// The balance row stays locked until the unit of work ends, so concurrent
// buys by the same user are applied one after the other.
func (s *TradingService) Buy(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	logger := utils.LoggerFromContext(ctx).WithFields(logrus.Fields{
		"user_id": req.UserID,
		"symbol":  req.Symbol,
	})

	result := &TradeResult{Symbol: req.Symbol}
	err := s.unitOfWork(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		balance, err := repos.Balances.GetByUserIDForUpdate(ctx, req.UserID)
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInsufficientFunds
		}
		if err != nil {
			return err
		}
		if balance.Amount.LessThan(req.Price) {
			logger.Warnf("insufficient funds: available %s, required %s", balance.Amount, req.Price)
			return ErrInsufficientFunds
		}

		if result.Balance, err = repos.Balances.Add(ctx, req.UserID, req.Price.Neg()); err != nil {
			return err
		}
		result.Quantity, err = repos.Holdings.Add(ctx, req.UserID, req.Symbol, req.Quantity)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrInsufficientFunds) {
			logger.Errorf("error while buying: %v", err)
		}
		return nil, err
	}

	logger.WithField("quantity", req.Quantity.String()).Info("buy completed")
	return result, nil
}

// Sell removes req.Quantity of the symbol and credits req.Price to the
// balance. The holding can never go below zero.
func (s *TradingService) Sell(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	logger := utils.LoggerFromContext(ctx).WithFields(logrus.Fields{
		"user_id": req.UserID,
		"symbol":  req.Symbol,
	})

	result := &TradeResult{Symbol: req.Symbol}
	err := s.unitOfWork(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		// Lock order is balance then holding, the same as Buy.
		if _, err := repos.Balances.GetByUserIDForUpdate(ctx, req.UserID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return err
		}

		holding, err := repos.Holdings.GetForUpdate(ctx, req.UserID, req.Symbol)
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInsufficientHoldings
		}
		if err != nil {
			return err
		}
		if !holding.Quantity.IsPositive() || holding.Quantity.LessThan(req.Quantity) {
			logger.Warnf("insufficient holdings: available %s, requested %s", holding.Quantity, req.Quantity)
			return ErrInsufficientHoldings
		}

		if result.Balance, err = repos.Balances.Add(ctx, req.UserID, req.Price); err != nil {
			return err
		}
		result.Quantity, err = repos.Holdings.Add(ctx, req.UserID, req.Symbol, req.Quantity.Neg())
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrInsufficientHoldings) {
			logger.Errorf("error while selling: %v", err)
		}
		return nil, err
	}

	logger.WithField("quantity", req.Quantity.String()).Info("sell completed")
	return result, nil
}

// GetPortfolio reads the balance (zero when the user never deposited) and
// every holding of the user. Store failures are returned, not masked.
func (s *TradingService) GetPortfolio(ctx context.Context, userID int64) (*models.Portfolio, error) {
	if userID <= 0 {
		return nil, validationError("Usuario inválido")
	}
	repos := s.store.Repositories()

	portfolio := &models.Portfolio{UserID: userID, Balance: decimal.Zero}
	balance, err := repos.Balances.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		portfolio.Balance = balance.Amount
	case errors.Is(err, repositories.ErrNotFound):
	default:
		utils.LoggerFromContext(ctx).Errorf("error while reading balance: %v", err)
		return nil, transactionError("Error al obtener el portafolio", err)
	}

	holdings, err := repos.Holdings.GetByUserID(ctx, userID)
	if err != nil {
		utils.LoggerFromContext(ctx).Errorf("error while reading holdings: %v", err)
		return nil, transactionError("Error al obtener el portafolio", err)
	}
	portfolio.Holdings = holdings
	return portfolio, nil
}
