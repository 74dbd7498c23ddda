package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/ledger/db"
	"github.com/satheeshds/ledger/services"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	database, err := db.OpenSQLiteFile(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.Migrate(database, db.DriverSQLite); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	Svc = services.New(database, db.DriverSQLite, services.DefaultConfig())

	r := chi.NewRouter()
	r.Get("/accounts", ListAccounts)
	r.Post("/accounts", CreateAccount)
	r.Get("/accounts/{id}", GetAccount)
	r.Delete("/accounts/{id}", DeleteAccount)
	r.Post("/transactions", CreateTransaction)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestAccountLifecycle(t *testing.T) {
	r := newTestRouter(t)

	rec, resp := doJSON(t, r, http.MethodPost, "/accounts", `{"name":"Current","type":"current"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := resp.Data.(map[string]any)
	id := int(created["id"].(float64))

	rec, resp = doJSON(t, r, http.MethodGet, "/accounts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if got := len(resp.Data.([]any)); got != 1 {
		t.Fatalf("listed %d accounts, want 1", got)
	}

	rec, _ = doJSON(t, r, http.MethodDelete, "/accounts/"+strconv.Itoa(id), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec, resp = doJSON(t, r, http.MethodGet, "/accounts/"+strconv.Itoa(id), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
	if resp.Error == "" {
		t.Error("missing error message in 404 response")
	}
}

func TestCreateAccountRejectsBadInput(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{`},
		{"missing name", `{"type":"current"}`},
		{"bad type", `{"name":"X","type":"offshore"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := doJSON(t, r, http.MethodPost, "/accounts", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if resp.Error == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestDeleteAccountWithTransactionsConflicts(t *testing.T) {
	r := newTestRouter(t)

	_, resp := doJSON(t, r, http.MethodPost, "/accounts", `{"name":"Current","type":"current"}`)
	id := int(resp.Data.(map[string]any)["id"].(float64))

	rec, _ := doJSON(t, r, http.MethodPost, "/transactions",
		`{"account_id":`+strconv.Itoa(id)+`,"amount":"-100","transaction_date":"2025-05-01","is_paid":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec, resp = doJSON(t, r, http.MethodDelete, "/accounts/"+strconv.Itoa(id), "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete status = %d, want 409", rec.Code)
	}
	if resp.Error == "" {
		t.Error("missing error message in 409 response")
	}
}

