package schemas_test

import (
	"encoding/json"
	"testing"

	"cryptosim/src/schemas"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIDUnmarshal(t *testing.T) {
	cases := map[string]schemas.UserID{
		`{"userId": 7}`:    7,
		`{"userId": "12"}`: 12,
		`{"userId": null}`: 0,
		`{}`:               0,
	}
	for body, want := range cases {
		var req schemas.AddFundsRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req), body)
		assert.Equal(t, want, req.UserID, body)
	}

	var req schemas.AddFundsRequest
	assert.Error(t, json.Unmarshal([]byte(`{"userId": "abc"}`), &req))
}

func TestAmountsAcceptNumbersAndStrings(t *testing.T) {
	var req schemas.AddFundsRequest
	require.NoError(t, json.Unmarshal([]byte(`{"userId": 1, "amount": "100.25"}`), &req))
	assert.True(t, req.Amount.Equal(decimal.RequireFromString("100.25")))

	require.NoError(t, json.Unmarshal([]byte(`{"userId": 1, "amount": 3}`), &req))
	assert.True(t, req.Amount.Equal(decimal.NewFromInt(3)))

	assert.Error(t, json.Unmarshal([]byte(`{"userId": 1, "amount": "lots"}`), &req))
}

func TestNumberRendersBareJSON(t *testing.T) {
	out, err := json.Marshal(schemas.PortfolioResponse{
		Balance:   schemas.Number(decimal.RequireFromString("110.5")),
		Portfolio: []schemas.PortfolioEntry{{CryptoSymbol: "BTC", Cantidad: schemas.Number(decimal.Zero)}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance": 110.5, "portfolio": [{"crypto_symbol": "BTC", "cantidad": 0}]}`, string(out))
}
