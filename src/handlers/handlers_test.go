package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/gramstracker/backend/src/logger"
	"github.com/username/gramstracker/backend/src/security"
	"github.com/username/gramstracker/backend/src/services"
	"github.com/username/gramstracker/backend/src/storage"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

const (
	testJWTSecret    = "0123456789abcdef0123456789abcdef"
	testAccessKey    = "7381"
	testViewingPIN   = "4455"
	testEmergencyPIN = "9924"
)

type testEnv struct {
	router  chi.Router
	ledgers services.LedgerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	adapter := storage.NewMemoryAdapter()
	authService := security.NewAuthService(testJWTSecret, []string{testAccessKey}, 3, time.Minute, time.Hour)
	ledgers := services.NewLedgerService(adapter, 0.10)
	gate := services.NewHistoryGate(testViewingPIN, testEmergencyPIN, ledgers, time.Minute)

	authHandler := NewAuthHandler(authService, ledgers, gate)
	stockHandler := NewStockHandler(ledgers)
	historyHandler := NewHistoryHandler(ledgers, gate)

	r := chi.NewRouter()
	r.Use(ContextualLoggerMiddleware)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/unlock", authHandler.UnlockHandler)
		r.Group(func(r chi.Router) {
			r.Use(authHandler.AuthMiddleware)
			r.Post("/auth/logout", authHandler.LogoutHandler)
			r.Get("/stock", stockHandler.HandleGetStock)
			r.Post("/stock/add", stockHandler.HandleAddStock)
			r.Post("/sell", stockHandler.HandleSell)
			r.Post("/sell/by-money", stockHandler.HandleSellByMoney)
			r.Post("/trade", stockHandler.HandleTrade)
			r.Post("/transactions/undo", stockHandler.HandleUndo)
			r.Put("/settings/price", stockHandler.HandleSetPrice)
			r.Delete("/history", stockHandler.HandleClearHistory)
			r.Post("/history/authorize", historyHandler.HandleAuthorize)
			r.Post("/history/deauthorize", historyHandler.HandleDeauthorize)
			r.Get("/history", historyHandler.HandleGetHistory)
		})
	})

	return &testEnv{router: r, ledgers: ledgers}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) unlock(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/unlock", "", `{"key":"`+testAccessKey+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])
	return resp["token"]
}

func TestUnlockRejectsWrongKey(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/unlock", "", `{"key":"0000"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Chave de acesso incorreta")
}

func TestUnlockLockoutAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/auth/unlock", "", `{"key":"0000"}`)
	env.do(t, http.MethodPost, "/api/auth/unlock", "", `{"key":"0000"}`)
	rec := env.do(t, http.MethodPost, "/api/auth/unlock", "", `{"key":"0000"}`)

	assert.Equal(t, http.StatusLocked, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Acesso bloqueado", resp["error"])
	assert.Equal(t, float64(60000), resp["remainingMs"])

	// The right key is refused too while the window runs.
	rec = env.do(t, http.MethodPost, "/api/auth/unlock", "", `{"key":"`+testAccessKey+`"}`)
	assert.Equal(t, http.StatusLocked, rec.Code)
}

func TestLedgerRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/stock", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sell", "garbage-token", `{"grams":1,"paymentMethod":"dinheiro"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSellFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.unlock(t)

	rec := env.do(t, http.MethodPost, "/api/stock/add", token, `{"grams":1000,"cost":50}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/settings/price", token, `{"pricePerGram":0.2}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sell", token, `{"grams":250,"paymentMethod":"dinheiro"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var tx map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.Equal(t, 50.0, tx["total"])

	rec = env.do(t, http.MethodGet, "/api/stock", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stock map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stock))
	assert.Equal(t, 750.0, stock["stock"])

	rec = env.do(t, http.MethodPost, "/api/transactions/undo", token, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/stock", token, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stock))
	assert.Equal(t, 1000.0, stock["stock"])
}

func TestSellValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.unlock(t)

	// Price still unset: conflict.
	rec := env.do(t, http.MethodPost, "/api/sell", token, `{"grams":10,"paymentMethod":"dinheiro"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Preço por grama não definido")

	require.Equal(t, http.StatusNoContent,
		env.do(t, http.MethodPut, "/api/settings/price", token, `{"pricePerGram":0.5}`).Code)

	rec = env.do(t, http.MethodPost, "/api/sell", token, `{"grams":10,"paymentMethod":"dinheiro"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Estoque insuficiente")

	rec = env.do(t, http.MethodPost, "/api/sell", token, `{"grams":-1,"paymentMethod":"dinheiro"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Valor inválido")
}

func TestTradeSanitizesDescription(t *testing.T) {
	env := newTestEnv(t)
	token := env.unlock(t)

	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/api/stock/add", token, `{"grams":100}`).Code)

	rec := env.do(t, http.MethodPost, "/api/trade", token,
		`{"grams":10,"description":"<script>alert(1)</script>bicicleta","value":40}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var tx map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.Equal(t, "bicicleta", tx["tradeDescription"])

	// A description that is nothing but markup sanitizes to empty and fails.
	rec = env.do(t, http.MethodPost, "/api/trade", token,
		`{"grams":10,"description":"<b></b>"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Descrição necessária")
}

func TestHistoryGateFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.unlock(t)

	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/api/stock/add", token, `{"grams":100}`).Code)
	require.Equal(t, http.StatusNoContent,
		env.do(t, http.MethodPut, "/api/settings/price", token, `{"pricePerGram":1}`).Code)
	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/api/sell", token, `{"grams":10,"paymentMethod":"pix"}`).Code)

	// Unauthorized read.
	rec := env.do(t, http.MethodGet, "/api/history", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Wrong PIN.
	rec = env.do(t, http.MethodPost, "/api/history/authorize", token, `{"pin":"0000"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Senha incorreta")

	// Viewing PIN opens the session.
	rec = env.do(t, http.MethodPost, "/api/history/authorize", token, `{"pin":"`+testViewingPIN+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/history", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Len(t, view["history"], 1)
	summary := view["summary"].(map[string]any)
	assert.Equal(t, 10.0, summary["totalRevenue"])

	// Ending the session re-prompts.
	require.Equal(t, http.StatusNoContent,
		env.do(t, http.MethodPost, "/api/history/deauthorize", token, "").Code)
	rec = env.do(t, http.MethodGet, "/api/history", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHistoryGateDuressPINIsIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	token := env.unlock(t)

	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/api/stock/add", token, `{"grams":100}`).Code)
	require.Equal(t, http.StatusNoContent,
		env.do(t, http.MethodPut, "/api/settings/price", token, `{"pricePerGram":1}`).Code)
	require.Equal(t, http.StatusCreated,
		env.do(t, http.MethodPost, "/api/sell", token, `{"grams":10,"paymentMethod":"dinheiro"}`).Code)

	normal := env.do(t, http.MethodPost, "/api/history/authorize", token, `{"pin":"`+testViewingPIN+`"}`)
	require.Equal(t, http.StatusOK, normal.Code)
	require.Equal(t, http.StatusNoContent,
		env.do(t, http.MethodPost, "/api/history/deauthorize", token, "").Code)

	duress := env.do(t, http.MethodPost, "/api/history/authorize", token, `{"pin":"`+testEmergencyPIN+`"}`)
	require.Equal(t, http.StatusOK, duress.Code)
	// Same status, same body: nothing betrays the wipe.
	assert.Equal(t, normal.Body.String(), duress.Body.String())

	rec := env.do(t, http.MethodGet, "/api/history", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Empty(t, view["history"])
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	token := env.unlock(t)

	rec := env.do(t, http.MethodPost, "/api/auth/logout", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
