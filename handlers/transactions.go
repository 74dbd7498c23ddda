package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/ledger/models"
	"github.com/satheeshds/ledger/services"
)

// ListTransactions lists bank transactions
// @Summary      List transactions
// @Description  Get bank transactions, optionally filtered by account and date range.
// @Tags         transactions
// @Produce      json
// @Param        account_id  query     int     false  "Filter by account"
// @Param        from        query     string  false  "Earliest date (YYYY-MM-DD)"
// @Param        to          query     string  false  "Latest date (YYYY-MM-DD)"
// @Success      200  {object}  Response{data=[]models.Transaction}
// @Router       /transactions [get]
// @Security     BasicAuth
func ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, _ := strconv.Atoi(r.URL.Query().Get("account_id"))
	txns, err := Svc.ListTransactions(services.TransactionFilter{
		AccountID: accountID,
		From:      r.URL.Query().Get("from"),
		To:        r.URL.Query().Get("to"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// GetTransaction retrieves a single transaction by ID
// @Summary      Get transaction
// @Tags         transactions
// @Produce      json
// @Param        id   path      int  true  "Transaction ID"
// @Success      200  {object}  Response{data=models.Transaction}
// @Failure      404  {object}  Response{error=string}
// @Router       /transactions/{id} [get]
// @Security     BasicAuth
func GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	t, err := Svc.GetTransaction(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTransaction creates a bank transaction
// @Summary      Create transaction
// @Description  Record a bank transaction. The account balance and monthly cache are updated in the same unit of work. Negative amounts are inflows.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        transaction  body      models.TransactionInput  true  "Transaction contents"
// @Success      201  {object}  Response{data=models.Transaction}
// @Failure      400  {object}  Response{error=string}
// @Failure      404  {object}  Response{error=string}
// @Router       /transactions [post]
// @Security     BasicAuth
func CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var input models.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	t, err := Svc.CreateTransaction(input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// UpdateTransaction updates a bank transaction
// @Summary      Update transaction
// @Description  Rewrite a bank transaction. Linked credit card payments are kept in sync and locked against regeneration.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id           path      int                      true  "Transaction ID"
// @Param        transaction  body      models.TransactionInput  true  "Updated transaction contents"
// @Success      200  {object}  Response{data=models.Transaction}
// @Failure      400  {object}  Response{error=string}
// @Failure      404  {object}  Response{error=string}
// @Router       /transactions/{id} [put]
// @Security     BasicAuth
func UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var input models.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	t, warning, err := Svc.UpdateTransaction(id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if warning != "" {
		writeJSONWarning(w, http.StatusOK, t, warning)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTransaction deletes a bank transaction
// @Summary      Delete transaction
// @Description  Remove a bank transaction. The card side of a linked payment is removed with it.
// @Tags         transactions
// @Produce      json
// @Param        id   path      int  true  "Transaction ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /transactions/{id} [delete]
// @Security     BasicAuth
func DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	warning, err := Svc.DeleteTransaction(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if warning != "" {
		writeJSONWarning(w, http.StatusOK, map[string]string{"message": "deleted"}, warning)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// CreateLinkedPayment records a credit card payment on both ledgers
// @Summary      Create linked payment
// @Description  Record a card payment as a linked pair: an outflow on the bank account and a debt reduction on the card.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        payment  body      services.LinkedPaymentInput  true  "Payment contents"
// @Success      201  {object}  Response{data=map[string]any}
// @Failure      400  {object}  Response{error=string}
// @Failure      404  {object}  Response{error=string}
// @Router       /transactions/linked-payment [post]
// @Security     BasicAuth
func CreateLinkedPayment(w http.ResponseWriter, r *http.Request) {
	var input services.LinkedPaymentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	bank, cardTxn, err := Svc.CreateLinkedPayment(input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction":      bank,
		"card_transaction": cardTxn,
	})
}
