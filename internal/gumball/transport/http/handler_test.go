package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"priceoracle/internal/api/dto"
	"priceoracle/internal/freshness"
	"priceoracle/internal/gumball"
	"priceoracle/internal/ledger"
	"priceoracle/internal/message"
	oracle "priceoracle/internal/oracle/service"
	"priceoracle/internal/replay"
	"priceoracle/pkg/signature"
)

func TestGumballRoutes(t *testing.T) {
	key, err := signature.GenerateKey()
	require.NoError(t, err)
	o, err := oracle.NewService(key.Public().Hex(), replay.NewMemoryGuard(), nil)
	require.NoError(t, err)
	m := gumball.NewMachine(o, freshness.NewGate(time.Hour), ledger.NewVault("XRD"), "XRD", "owner", nil)

	r := chi.NewRouter()
	r.Route("/api/gumball", NewGumballHandler(m).Routes)

	msg := message.PriceQuote{
		MarketID:  "GATEIO:XRD_USDT",
		Price:     decimal.RequireFromString("0.5"),
		Nonce:     1,
		CreatedAt: uint64(time.Now().Unix()),
	}.String()
	body, err := json.Marshal(dto.GumballBuyRequest{
		Payment: dto.Payment{Asset: "XRD", Amount: "3"},
		Price:   dto.SignedMessage{Message: msg, Signature: key.Sign([]byte(msg))},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/gumball/buy", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sale gumball.Sale
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sale))
	require.Equal(t, "1", sale.Change.Amount.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gumball/status", nil))
	require.JSONEq(t, `{"stock":99}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/gumball/withdraw", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/gumball/refill", nil)
	req.Header.Set("Authorization", "Bearer owner")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"added":1,"stock":100}`, rec.Body.String())
}
