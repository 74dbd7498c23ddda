package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/ledger/models"
)

// ListCardTransactions lists a card's transactions
// @Summary      List card transactions
// @Description  Get a card's transactions with running balance and available credit after each.
// @Tags         card-transactions
// @Produce      json
// @Param        id   path      int  true  "Card ID"
// @Success      200  {object}  Response{data=[]models.CardTransaction}
// @Failure      404  {object}  Response{error=string}
// @Router       /cards/{id}/transactions [get]
// @Security     BasicAuth
func ListCardTransactions(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	txns, err := Svc.ListCardTransactions(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// CreateCardTransaction creates a card transaction
// @Summary      Create card transaction
// @Description  Record a card transaction. Negative amounts increase debt, positive amounts reduce it.
// @Tags         card-transactions
// @Accept       json
// @Produce      json
// @Param        id           path      int                          true  "Card ID"
// @Param        transaction  body      models.CardTransactionInput  true  "Transaction contents"
// @Success      201  {object}  Response{data=models.CardTransaction}
// @Failure      400  {object}  Response{error=string}
// @Failure      404  {object}  Response{error=string}
// @Router       /cards/{id}/transactions [post]
// @Security     BasicAuth
func CreateCardTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var input models.CardTransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	t, err := Svc.CreateCardTransaction(id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GetCardTransaction retrieves a single card transaction by ID
// @Summary      Get card transaction
// @Tags         card-transactions
// @Produce      json
// @Param        id   path      int  true  "Card transaction ID"
// @Success      200  {object}  Response{data=models.CardTransaction}
// @Failure      404  {object}  Response{error=string}
// @Router       /card-transactions/{id} [get]
// @Security     BasicAuth
func GetCardTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	t, err := Svc.GetCardTransaction(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateCardTransaction updates a card transaction
// @Summary      Update card transaction
// @Description  Rewrite a card transaction. The bank side of a linked payment is kept in sync and the pair is locked against regeneration.
// @Tags         card-transactions
// @Accept       json
// @Produce      json
// @Param        id           path      int                          true  "Card transaction ID"
// @Param        transaction  body      models.CardTransactionInput  true  "Updated transaction contents"
// @Success      200  {object}  Response{data=models.CardTransaction}
// @Failure      400  {object}  Response{error=string}
// @Failure      404  {object}  Response{error=string}
// @Router       /card-transactions/{id} [put]
// @Security     BasicAuth
func UpdateCardTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var input models.CardTransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	t, warning, err := Svc.UpdateCardTransaction(id, input)
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

// DeleteCardTransaction deletes a card transaction
// @Summary      Delete card transaction
// @Description  Remove a card transaction. The bank side of a linked payment is removed with it.
// @Tags         card-transactions
// @Produce      json
// @Param        id   path      int  true  "Card transaction ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /card-transactions/{id} [delete]
// @Security     BasicAuth
func DeleteCardTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	warning, err := Svc.DeleteCardTransaction(id)
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

// ToggleCardTransactionPaid flips the paid flag on a card transaction
// @Summary      Toggle paid flag
// @Description  Flip is_paid. On a linked payment the bank side is flipped with it and the pair is locked.
// @Tags         card-transactions
// @Produce      json
// @Param        id   path      int  true  "Card transaction ID"
// @Success      200  {object}  Response{data=models.CardTransaction}
// @Failure      404  {object}  Response{error=string}
// @Router       /card-transactions/{id}/toggle-paid [post]
// @Security     BasicAuth
func ToggleCardTransactionPaid(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	t, err := Svc.ToggleCardTransactionPaid(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ToggleCardTransactionFixed flips the fixed flag on a card transaction
// @Summary      Toggle fixed flag
// @Description  Flip is_fixed, taking the row in or out of the statement generator's reach.
// @Tags         card-transactions
// @Produce      json
// @Param        id   path      int  true  "Card transaction ID"
// @Success      200  {object}  Response{data=models.CardTransaction}
// @Failure      404  {object}  Response{error=string}
// @Router       /card-transactions/{id}/toggle-fixed [post]
// @Security     BasicAuth
func ToggleCardTransactionFixed(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	t, err := Svc.ToggleCardTransactionFixed(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
