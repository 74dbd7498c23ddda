package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/ledger/services"
)

// writeGenerationResult reports a generation run, downgrading a mid-walk
// halt to a partial-success payload so the caller sees how far it got.
func writeGenerationResult(w http.ResponseWriter, result services.GenerationResult, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, result)
		return
	}
	if errors.Is(err, services.ErrGenerationHalted) {
		writeJSONWarning(w, http.StatusOK, result, err.Error())
		return
	}
	writeServiceError(w, err)
}

// GenerateStatements generates missing statements for one card
// @Summary      Generate statements
// @Description  Walk the card's statement cycle month by month and create missing Interest and Payment records, through the given date.
// @Tags         admin
// @Produce      json
// @Param        id       path      int     true   "Card ID"
// @Param        through  query     string  false  "Last date to generate for (YYYY-MM-DD, default today)"
// @Success      200  {object}  Response{data=services.GenerationResult}
// @Failure      404  {object}  Response{error=string}
// @Router       /cards/{id}/generate-statements [post]
// @Security     BasicAuth
func GenerateStatements(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	result, err := Svc.GenerateStatements(id, r.URL.Query().Get("through"))
	writeGenerationResult(w, result, err)
}

// GenerateAllStatements generates missing statements for every active card
// @Summary      Generate all statements
// @Tags         admin
// @Produce      json
// @Param        through  query     string  false  "Last date to generate for (YYYY-MM-DD, default today)"
// @Success      200  {object}  Response{data=services.GenerationResult}
// @Router       /admin/generate-statements [post]
// @Security     BasicAuth
func GenerateAllStatements(w http.ResponseWriter, r *http.Request) {
	result, err := Svc.GenerateAllStatements(r.URL.Query().Get("through"))
	writeGenerationResult(w, result, err)
}

// RegenerateStatements rebuilds forecasted statements for one card
// @Summary      Regenerate statements
// @Description  Tear down unlocked future statements and their payment chains, restore missing payments on locked statements, then rerun the forward walk.
// @Tags         admin
// @Produce      json
// @Param        id       path      int     true   "Card ID"
// @Param        through  query     string  false  "Last date to generate for (YYYY-MM-DD, default today)"
// @Success      200  {object}  Response{data=services.GenerationResult}
// @Failure      404  {object}  Response{error=string}
// @Router       /cards/{id}/regenerate-statements [post]
// @Security     BasicAuth
func RegenerateStatements(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	result, err := Svc.RegenerateStatements(id, r.URL.Query().Get("through"))
	writeGenerationResult(w, result, err)
}

// RegenerateAllStatements rebuilds forecasted statements for every active card
// @Summary      Regenerate all statements
// @Tags         admin
// @Produce      json
// @Param        through  query     string  false  "Last date to generate for (YYYY-MM-DD, default today)"
// @Success      200  {object}  Response{data=services.GenerationResult}
// @Router       /admin/regenerate-statements [post]
// @Security     BasicAuth
func RegenerateAllStatements(w http.ResponseWriter, r *http.Request) {
	result, err := Svc.RegenerateAllStatements(r.URL.Query().Get("through"))
	writeGenerationResult(w, result, err)
}

// RebuildBalanceCaches rebuilds the monthly balance cache from scratch
// @Summary      Rebuild balance caches
// @Description  Clear and regenerate every monthly balance cache entry for every active account.
// @Tags         admin
// @Produce      json
// @Success      200  {object}  Response{data=map[string]int}
// @Router       /admin/rebuild-caches [post]
// @Security     BasicAuth
func RebuildBalanceCaches(w http.ResponseWriter, r *http.Request) {
	written, err := Svc.RebuildAllCaches()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"rows_written": written})
}
