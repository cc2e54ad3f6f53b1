package handlers

import (
	"context"
	"net/http"
	"strconv"

	"cryptosim/src/schemas"
	"cryptosim/src/services"
	"cryptosim/src/utils"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || userID <= 0 {
		h.HandleErrors(w, r, utils.BadRequest("Usuario inválido"))
		return
	}
	if err := authorize(ctx, userID); err != nil {
		h.HandleErrors(w, r, err)
		return
	}

	portfolio, err := h.Trading.GetPortfolio(ctx, userID)
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}

	entries := make([]schemas.PortfolioEntry, 0, len(portfolio.Holdings))
	for _, holding := range portfolio.Holdings {
		entries = append(entries, schemas.PortfolioEntry{
			CryptoSymbol: holding.Symbol,
			Cantidad:     schemas.Number(holding.Quantity),
		})
	}
	h.respond(w, r, schemas.PortfolioResponse{
		Balance:   schemas.Number(portfolio.Balance),
		Portfolio: entries,
	}, http.StatusOK)
}

func (h *Handler) AddFunds(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	req := new(schemas.AddFundsRequest)
	if err := h.decode(w, r, req); err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	userID := int64(req.UserID)
	if err := authorize(ctx, userID); err != nil {
		h.HandleErrors(w, r, err)
		return
	}

	balance, err := h.Trading.Deposit(ctx, userID, req.Amount)
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}

	h.respond(w, r, schemas.AddFundsResponse{
		Message:    "Fondos agregados exitosamente",
		NewBalance: schemas.Number(balance),
	}, http.StatusOK)
}

func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.Trading.Buy, "Compra realizada con éxito")
}

func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.Trading.Sell, "Venta realizada con éxito")
}

type tradeFunc func(ctx context.Context, req services.TradeRequest) (*services.TradeResult, error)

func (h *Handler) trade(w http.ResponseWriter, r *http.Request, execute tradeFunc, message string) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	req := new(schemas.TradeRequest)
	if err := h.decode(w, r, req); err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	userID := int64(req.UserID)
	if err := authorize(ctx, userID); err != nil {
		h.HandleErrors(w, r, err)
		return
	}

	quantity := decimal.NewFromInt(1)
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	result, err := execute(ctx, services.TradeRequest{
		UserID:   userID,
		Symbol:   req.Symbol,
		Price:    req.Price,
		Quantity: quantity,
	})
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}

	h.respond(w, r, schemas.TradeResponse{
		Message:    message,
		NewBalance: schemas.Number(result.Balance),
		Symbol:     result.Symbol,
		Quantity:   schemas.Number(result.Quantity),
	}, http.StatusOK)
}
