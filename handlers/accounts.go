package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/ledger/models"
)

// ListAccounts lists all accounts
// @Summary      List accounts
// @Description  Get all bank accounts with their current derived balances.
// @Tags         accounts
// @Produce      json
// @Success      200  {object}  Response{data=[]models.Account}
// @Router       /accounts [get]
// @Security     BasicAuth
func ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := Svc.ListAccounts()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// GetAccount retrieves a single account by ID
// @Summary      Get account
// @Description  Get details and current balance of a specific account.
// @Tags         accounts
// @Produce      json
// @Param        id   path      int  true  "Account ID"
// @Success      200  {object}  Response{data=models.Account}
// @Failure      404  {object}  Response{error=string}
// @Router       /accounts/{id} [get]
// @Security     BasicAuth
func GetAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	a, err := Svc.GetAccount(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// CreateAccount creates a new account
// @Summary      Create account
// @Description  Create a new bank account. The balance starts at zero and is derived from transactions.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        account  body      models.AccountInput  true  "Account contents"
// @Success      201      {object}  Response{data=models.Account}
// @Failure      400      {object}  Response{error=string}
// @Router       /accounts [post]
// @Security     BasicAuth
func CreateAccount(w http.ResponseWriter, r *http.Request) {
	var input models.AccountInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	a, err := Svc.CreateAccount(input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// UpdateAccount updates an existing account
// @Summary      Update account
// @Description  Update name, type or active flag of an existing account.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id       path      int                 true  "Account ID"
// @Param        account  body      models.AccountInput true  "Updated account contents"
// @Success      200      {object}  Response{data=models.Account}
// @Failure      400      {object}  Response{error=string}
// @Failure      404      {object}  Response{error=string}
// @Router       /accounts/{id} [put]
// @Security     BasicAuth
func UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var input models.AccountInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	a, err := Svc.UpdateAccount(id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteAccount deletes an account
// @Summary      Delete account
// @Description  Remove an account. Accounts with transactions cannot be deleted.
// @Tags         accounts
// @Produce      json
// @Param        id   path      int  true  "Account ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Failure      409  {object}  Response{error=string}
// @Router       /accounts/{id} [delete]
// @Security     BasicAuth
func DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	if err := Svc.DeleteAccount(id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// GetMonthlyBalance returns the cached end-of-month balance for an account
// @Summary      Get monthly balance
// @Description  Get the cached end-of-month balance for an account. Computed and cached on first access.
// @Tags         balances
// @Produce      json
// @Param        id         path      int     true   "Account ID"
// @Param        month      path      string  true   "Month (YYYY-MM)"
// @Param        projected  query     bool    false  "Return the projected balance instead of the actual"
// @Success      200  {object}  Response{data=map[string]any}
// @Failure      404  {object}  Response{error=string}
// @Router       /accounts/{id}/balances/{month} [get]
// @Security     BasicAuth
func GetMonthlyBalance(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	month := chi.URLParam(r, "month")
	if _, err := time.Parse("2006-01", month); err != nil {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}
	projected := r.URL.Query().Get("projected") == "true"

	balance, err := Svc.MonthlyBalance(id, month, projected)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": id,
		"year_month": month,
		"projected":  projected,
		"balance":    balance,
	})
}

// GetBalanceTimeline returns consecutive months of cached balances
// @Summary      Get balance timeline
// @Description  Get cached end-of-month balances for consecutive months. Missing months are computed on the way.
// @Tags         balances
// @Produce      json
// @Param        id      path      int     true   "Account ID"
// @Param        start   query     string  true   "First month (YYYY-MM)"
// @Param        months  query     int     false  "Number of months (default 12)"
// @Success      200  {object}  Response{data=[]models.MonthlyBalance}
// @Failure      404  {object}  Response{error=string}
// @Router       /accounts/{id}/balances [get]
// @Security     BasicAuth
func GetBalanceTimeline(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	start := r.URL.Query().Get("start")
	if start == "" {
		writeError(w, http.StatusBadRequest, "start (YYYY-MM) is required")
		return
	}
	months, _ := strconv.Atoi(r.URL.Query().Get("months"))
	if months <= 0 {
		months = 12
	}
	entries, err := Svc.Timeline(id, start, months)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
