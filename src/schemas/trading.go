package schemas

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type AddFundsRequest struct {
	UserID UserID          `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

type AddFundsResponse struct {
	Message    string      `json:"message"`
	NewBalance json.Number `json:"newBalance"`
}

// TradeRequest is the body of buy and sell. Price is the total for the
// trade; Quantity defaults to one unit when omitted.
type TradeRequest struct {
	UserID   UserID           `json:"userId"`
	Symbol   string           `json:"symbol"`
	Price    decimal.Decimal  `json:"price"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
}

type TradeResponse struct {
	Message    string      `json:"message"`
	NewBalance json.Number `json:"newBalance"`
	Symbol     string      `json:"symbol"`
	Quantity   json.Number `json:"quantity"`
}

type PortfolioEntry struct {
	CryptoSymbol string      `json:"crypto_symbol"`
	Cantidad     json.Number `json:"cantidad"`
}

type PortfolioResponse struct {
	Balance   json.Number      `json:"balance"`
	Portfolio []PortfolioEntry `json:"portfolio"`
}

// Number renders a decimal as a bare JSON number.
func Number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
