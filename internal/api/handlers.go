package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/abkawan/account-ledger/internal/models"
	"github.com/abkawan/account-ledger/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// TimeLayout is the wire format for history range bounds.
const TimeLayout = "2006-01-02 15:04:05"

// Handler is for handling api requests
type Handler struct {
	accounts *service.AccountService
	queries  *service.QueryService
	validate *validator.Validate
}

func NewHandler(accounts *service.AccountService, queries *service.QueryService) *Handler {
	return &Handler{
		accounts: accounts,
		queries:  queries,
		validate: validator.New(),
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// for error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps the service error kinds onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrAccountNotFound), errors.Is(err, models.ErrNoTransactions):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidArgument), errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusForError(err), err.Error())
}

// decode parses the request body into dst and validates it. Reports whether
// the request may proceed.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// account creation
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), req.Owner, req.Balance, req.AccountType, req.InterestRate)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, account)
}

// admin correction path: overwrites balance and type, recomputes the fee
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.UpdateAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.accounts.UpdateAccount(r.Context(), id, req.Balance, req.AccountType)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, account)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.accounts.DeleteAccount(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"detail": "Account deleted"})
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.AmountRequest
	if !h.decode(w, r, &req) {
		return
	}

	newBalance, err := h.accounts.Deposit(r.Context(), id, req.Amount)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, models.BalanceResponse{
		Message:    "Deposit successful",
		NewBalance: newBalance,
	})
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.AmountRequest
	if !h.decode(w, r, &req) {
		return
	}

	newBalance, err := h.accounts.Withdraw(r.Context(), id, req.Amount)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, models.BalanceResponse{
		Message:    "Withdrawal successful",
		NewBalance: newBalance,
	})
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.accounts.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, models.TransferResponse{
		Message:     "Transfer successful",
		FromBalance: result.FromBalance,
		ToBalance:   result.ToBalance,
	})
}

func (h *Handler) ApplyInterest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	newBalance, err := h.accounts.ApplyInterest(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, models.BalanceResponse{
		Message:    "Interest applied successfully",
		NewBalance: newBalance,
	})
}

func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	statement, err := h.queries.GetStatement(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, statement)
}

func (h *Handler) GetTotalBalance(w http.ResponseWriter, r *http.Request) {
	total, err := h.queries.GetTotalBalance(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, models.TotalBalanceResponse{TotalBalance: total})
}

// GetTransactions serves history, optionally bounded by ?from= and ?to=
// (inclusive, format "2006-01-02 15:04:05").
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	from, ok := parseTimeParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseTimeParam(w, r, "to")
	if !ok {
		return
	}

	txs, err := h.queries.GetTransactionHistory(r.Context(), id, from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, txs)
}

// GetArchivedEvents serves the audit archive for an account.
func (h *Handler) GetArchivedEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	limit := int64(100)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.ParseInt(limitStr, 10, 64)
		if err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := h.queries.GetArchivedEvents(r.Context(), id, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, events)
}

// handles health check
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseTimeParam reads an optional time bound from the query string. A
// malformed value writes a 400 and reports not-ok.
func parseTimeParam(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, true
	}

	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date format. Use YYYY-MM-DD HH:MM:SS")
		return nil, false
	}
	return &t, true
}

// sets up the API routes
func SetupRoutes(r *mux.Router, accounts *service.AccountService, queries *service.QueryService) {
	h := NewHandler(accounts, queries)

	// Health check (check if API is working)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Account routes
	r.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	r.HandleFunc("/accounts/{id}", h.UpdateAccount).Methods("PATCH")
	r.HandleFunc("/accounts/{id}", h.DeleteAccount).Methods("DELETE")

	// Balance-affecting routes
	r.HandleFunc("/accounts/{id}/deposit", h.Deposit).Methods("POST")
	r.HandleFunc("/accounts/{id}/withdraw", h.Withdraw).Methods("POST")
	r.HandleFunc("/accounts/{id}/interest", h.ApplyInterest).Methods("POST")
	r.HandleFunc("/transfer", h.Transfer).Methods("POST")

	// Query routes
	r.HandleFunc("/accounts/{id}/statement", h.GetStatement).Methods("GET")
	r.HandleFunc("/accounts/{id}/transactions", h.GetTransactions).Methods("GET")
	r.HandleFunc("/accounts/{id}/events", h.GetArchivedEvents).Methods("GET")
	r.HandleFunc("/total_balance", h.GetTotalBalance).Methods("GET")
}
