package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/ledger/models"
)

// ListCards lists all credit cards
// @Summary      List credit cards
// @Description  Get all credit cards with their derived balances and available credit.
// @Tags         cards
// @Produce      json
// @Success      200  {object}  Response{data=[]models.CreditCard}
// @Router       /cards [get]
// @Security     BasicAuth
func ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := Svc.ListCards()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// GetCard retrieves a single credit card by ID
// @Summary      Get credit card
// @Tags         cards
// @Produce      json
// @Param        id   path      int  true  "Card ID"
// @Success      200  {object}  Response{data=models.CreditCard}
// @Failure      404  {object}  Response{error=string}
// @Router       /cards/{id} [get]
// @Security     BasicAuth
func GetCard(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	c, err := Svc.GetCard(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateCard creates a new credit card
// @Summary      Create credit card
// @Description  Create a credit card. Rates are fractions (0.05 = 5%).
// @Tags         cards
// @Accept       json
// @Produce      json
// @Param        card  body      models.CreditCardInput  true  "Card contents"
// @Success      201  {object}  Response{data=models.CreditCard}
// @Failure      400  {object}  Response{error=string}
// @Router       /cards [post]
// @Security     BasicAuth
func CreateCard(w http.ResponseWriter, r *http.Request) {
	var input models.CreditCardInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	c, err := Svc.CreateCard(input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCard updates an existing credit card
// @Summary      Update credit card
// @Description  Update card settings. Balances and available credit are recalculated.
// @Tags         cards
// @Accept       json
// @Produce      json
// @Param        id    path      int                     true  "Card ID"
// @Param        card  body      models.CreditCardInput  true  "Updated card contents"
// @Success      200  {object}  Response{data=models.CreditCard}
// @Failure      400  {object}  Response{error=string}
// @Failure      404  {object}  Response{error=string}
// @Router       /cards/{id} [put]
// @Security     BasicAuth
func UpdateCard(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var input models.CreditCardInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	c, err := Svc.UpdateCard(id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCard deletes a credit card
// @Summary      Delete credit card
// @Description  Remove a card. Cards with transactions cannot be deleted.
// @Tags         cards
// @Produce      json
// @Param        id   path      int  true  "Card ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Failure      409  {object}  Response{error=string}
// @Router       /cards/{id} [delete]
// @Security     BasicAuth
func DeleteCard(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	if err := Svc.DeleteCard(id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// ListPromotions lists a card's promotional windows
// @Summary      List promotions
// @Tags         cards
// @Produce      json
// @Param        id   path      int  true  "Card ID"
// @Success      200  {object}  Response{data=[]models.CardPromotion}
// @Failure      404  {object}  Response{error=string}
// @Router       /cards/{id}/promotions [get]
// @Security     BasicAuth
func ListPromotions(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	promos, err := Svc.ListPromotions(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, promos)
}

// CreatePromotion adds a promotional window to a card
// @Summary      Create promotion
// @Description  Add a promotional interest window. Statements dated inside the window use the promotional rate.
// @Tags         cards
// @Accept       json
// @Produce      json
// @Param        id     path      int                        true  "Card ID"
// @Param        promo  body      models.CardPromotionInput  true  "Promotion contents"
// @Success      201  {object}  Response{data=models.CardPromotion}
// @Failure      400  {object}  Response{error=string}
// @Failure      404  {object}  Response{error=string}
// @Router       /cards/{id}/promotions [post]
// @Security     BasicAuth
func CreatePromotion(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	var input models.CardPromotionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	p, err := Svc.CreatePromotion(id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// DeletePromotion removes a promotional window
// @Summary      Delete promotion
// @Tags         cards
// @Produce      json
// @Param        id       path      int  true  "Card ID"
// @Param        promoId  path      int  true  "Promotion ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /cards/{id}/promotions/{promoId} [delete]
// @Security     BasicAuth
func DeletePromotion(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	promoID, _ := strconv.Atoi(chi.URLParam(r, "promoId"))
	if err := Svc.DeletePromotion(id, promoID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
