package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"priceoracle/internal/api/dto"
	"priceoracle/internal/oracle/service"
	"priceoracle/internal/replay"
	"priceoracle/pkg/signature"
)

func newRouter(t *testing.T) (http.Handler, *signature.PrivateKey) {
	t.Helper()
	key, err := signature.GenerateKey()
	require.NoError(t, err)
	svc, err := service.NewService(key.Public().Hex(), replay.NewMemoryGuard(), nil)
	require.NoError(t, err)

	h := NewOracleHandler(svc)
	r := chi.NewRouter()
	r.Post("/api/prices/verify", h.VerifyPrice)
	r.Get("/api/oracle/key", h.PublicKey)
	return r, key
}

func post(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestVerifyPrice(t *testing.T) {
	router, key := newRouter(t)
	msg := "TEST:MARKET-1000.234-1-1230"
	body := dto.SignedMessage{Message: msg, Signature: key.Sign([]byte(msg))}

	rec := post(t, router, "/api/prices/verify", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dto.PriceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "TEST:MARKET", resp.Quote.MarketID)
	require.Equal(t, "1000.234", resp.Quote.Price.String())

	rec = post(t, router, "/api/prices/verify", body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyPriceRejects(t *testing.T) {
	router, key := newRouter(t)

	rec := post(t, router, "/api/prices/verify", dto.SignedMessage{Message: "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	msg := "TEST:MARKET-1000.234-1-1230"
	other, err := signature.GenerateKey()
	require.NoError(t, err)
	rec = post(t, router, "/api/prices/verify", dto.SignedMessage{Message: msg, Signature: other.Sign([]byte(msg))})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	bad := "TEST:MARKET-1000.234-1"
	rec = post(t, router, "/api/prices/verify", dto.SignedMessage{Message: bad, Signature: key.Sign([]byte(bad))})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "malformed")
}

func TestPublicKey(t *testing.T) {
	router, key := newRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/oracle/key", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), key.Public().Hex())
}
