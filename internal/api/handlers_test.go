package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abkawan/account-ledger/internal/api"
	"github.com/abkawan/account-ledger/internal/ledgertest"
	"github.com/abkawan/account-ledger/internal/models"
	"github.com/abkawan/account-ledger/internal/service"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server  *httptest.Server
	store   *ledgertest.Store
	archive *ledgertest.Archive
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := ledgertest.NewStore()
	archive := ledgertest.NewArchive()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	accounts := service.NewAccountService(store, nil, logger)
	queries := service.NewQueryService(store, archive)

	router := mux.NewRouter()
	api.SetupRoutes(router, accounts, queries)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, store: store, archive: archive}
}

// doJSON sends a JSON request and decodes the response into out (when
// non-nil), asserting the status code.
func (e *testEnv) doJSON(t *testing.T, method, path string, body interface{}, wantStatus int, out interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "body: %s", raw)

	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out))
	}
}

func (e *testEnv) createAccount(t *testing.T, owner string, balance float64, accountType models.AccountType, rate float64) *models.Account {
	t.Helper()

	var account models.Account
	e.doJSON(t, http.MethodPost, "/accounts", map[string]interface{}{
		"owner":         owner,
		"balance":       balance,
		"account_type":  accountType,
		"interest_rate": rate,
	}, http.StatusCreated, &account)
	return &account
}

func TestCreateAccountValidation(t *testing.T) {
	env := newTestEnv(t)

	// missing owner
	env.doJSON(t, http.MethodPost, "/accounts", map[string]interface{}{
		"balance":      100,
		"account_type": "savings",
	}, http.StatusBadRequest, nil)

	// unknown account type
	env.doJSON(t, http.MethodPost, "/accounts", map[string]interface{}{
		"owner":        "Alice",
		"balance":      100,
		"account_type": "premium",
	}, http.StatusBadRequest, nil)

	// negative initial balance
	env.doJSON(t, http.MethodPost, "/accounts", map[string]interface{}{
		"owner":        "Alice",
		"balance":      -1,
		"account_type": "savings",
	}, http.StatusBadRequest, nil)
}

func TestAccountLifecycle(t *testing.T) {
	env := newTestEnv(t)

	account := env.createAccount(t, "Alice", 100, models.Savings, 2)
	assert.True(t, account.Fee.Equal(decimal.NewFromInt(5)))

	// statement round-trip
	var statement models.StatementResponse
	env.doJSON(t, http.MethodGet, "/accounts/"+account.ID+"/statement", nil, http.StatusOK, &statement)
	assert.Equal(t, "Alice", statement.Owner)
	assert.True(t, statement.Balance.Equal(decimal.NewFromInt(100)))

	// deposit
	var balance models.BalanceResponse
	env.doJSON(t, http.MethodPost, "/accounts/"+account.ID+"/deposit",
		map[string]interface{}{"amount": 25}, http.StatusOK, &balance)
	assert.Equal(t, "Deposit successful", balance.Message)
	assert.True(t, balance.NewBalance.Equal(decimal.NewFromInt(125)))

	// withdrawal beyond balance fails and changes nothing
	env.doJSON(t, http.MethodPost, "/accounts/"+account.ID+"/withdraw",
		map[string]interface{}{"amount": 1000}, http.StatusBadRequest, nil)
	env.doJSON(t, http.MethodGet, "/accounts/"+account.ID+"/statement", nil, http.StatusOK, &statement)
	assert.True(t, statement.Balance.Equal(decimal.NewFromInt(125)))

	// interest at 2% of 125
	env.doJSON(t, http.MethodPost, "/accounts/"+account.ID+"/interest", nil, http.StatusOK, &balance)
	assert.Equal(t, "Interest applied successfully", balance.Message)
	assert.True(t, balance.NewBalance.Equal(decimal.RequireFromString("127.5")))

	// update overwrites balance/type and recomputes the fee
	var updated models.Account
	env.doJSON(t, http.MethodPatch, "/accounts/"+account.ID,
		map[string]interface{}{"balance": 500, "account_type": "checking"}, http.StatusOK, &updated)
	assert.True(t, updated.Balance.Equal(decimal.NewFromInt(500)))
	assert.True(t, updated.Fee.Equal(decimal.NewFromInt(10)))

	// delete, then the account is gone
	env.doJSON(t, http.MethodDelete, "/accounts/"+account.ID, nil, http.StatusOK, nil)
	env.doJSON(t, http.MethodGet, "/accounts/"+account.ID+"/statement", nil, http.StatusNotFound, nil)
	env.doJSON(t, http.MethodDelete, "/accounts/"+account.ID, nil, http.StatusNotFound, nil)
}

func TestTransferEndpoint(t *testing.T) {
	env := newTestEnv(t)

	a := env.createAccount(t, "Alice", 100, models.Savings, 0)
	b := env.createAccount(t, "Bob", 10, models.Checking, 0)

	var transfer models.TransferResponse
	env.doJSON(t, http.MethodPost, "/transfer", map[string]interface{}{
		"from_account_id": a.ID,
		"to_account_id":   b.ID,
		"amount":          30,
	}, http.StatusOK, &transfer)
	assert.True(t, transfer.FromBalance.Equal(decimal.NewFromInt(70)))
	assert.True(t, transfer.ToBalance.Equal(decimal.NewFromInt(40)))

	// the transfer wrote paired entries
	var txs []*models.Transaction
	env.doJSON(t, http.MethodGet, "/accounts/"+a.ID+"/transactions", nil, http.StatusOK, &txs)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(-30)))

	env.doJSON(t, http.MethodGet, "/accounts/"+b.ID+"/transactions", nil, http.StatusOK, &txs)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(30)))

	// total preserved
	var total models.TotalBalanceResponse
	env.doJSON(t, http.MethodGet, "/total_balance", nil, http.StatusOK, &total)
	assert.True(t, total.TotalBalance.Equal(decimal.NewFromInt(110)))

	// failure cases
	env.doJSON(t, http.MethodPost, "/transfer", map[string]interface{}{
		"from_account_id": a.ID, "to_account_id": b.ID, "amount": 100000,
	}, http.StatusBadRequest, nil)
	env.doJSON(t, http.MethodPost, "/transfer", map[string]interface{}{
		"from_account_id": a.ID, "to_account_id": a.ID, "amount": 5,
	}, http.StatusBadRequest, nil)
	env.doJSON(t, http.MethodPost, "/transfer", map[string]interface{}{
		"from_account_id": a.ID, "to_account_id": "no-such-account", "amount": 5,
	}, http.StatusNotFound, nil)
}

func TestTransactionHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t)

	account := env.createAccount(t, "Carol", 100, models.Checking, 0)

	// empty history is a 404, even though the account exists
	env.doJSON(t, http.MethodGet, "/accounts/"+account.ID+"/transactions", nil, http.StatusNotFound, nil)

	// an unparsable bound is a 400, not a server error
	env.doJSON(t, http.MethodGet, "/accounts/"+account.ID+"/transactions?from=yesterday", nil, http.StatusBadRequest, nil)

	var balance models.BalanceResponse
	env.doJSON(t, http.MethodPost, "/accounts/"+account.ID+"/deposit",
		map[string]interface{}{"amount": 10}, http.StatusOK, &balance)

	var txs []*models.Transaction
	env.doJSON(t, http.MethodGet, "/accounts/"+account.ID+"/transactions", nil, http.StatusOK, &txs)
	require.Len(t, txs, 1)

	// a well-formed range that matches nothing is a 404
	path := fmt.Sprintf("/accounts/%s/transactions?from=%s&to=%s", account.ID,
		"2000-01-01+00:00:00", "2000-01-02+00:00:00")
	env.doJSON(t, http.MethodGet, path, nil, http.StatusNotFound, nil)
}

func TestArchivedEventsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	account := env.createAccount(t, "Alice", 100, models.Savings, 0)

	env.doJSON(t, http.MethodGet, "/accounts/"+account.ID+"/events", nil, http.StatusNotFound, nil)

	require.NoError(t, env.archive.ArchiveEvent(context.Background(), &models.LedgerEvent{
		TransactionID: "tx-1", AccountID: account.ID, Op: models.OpDeposit, Amount: "10",
	}))

	var events []*models.LedgerEvent
	env.doJSON(t, http.MethodGet, "/accounts/"+account.ID+"/events", nil, http.StatusOK, &events)
	require.Len(t, events, 1)
	assert.Equal(t, "tx-1", events[0].TransactionID)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	var status map[string]string
	env.doJSON(t, http.MethodGet, "/health", nil, http.StatusOK, &status)
	assert.Equal(t, "ok", status["status"])
}
