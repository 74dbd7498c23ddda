package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/satheeshds/ledger/db"
	"github.com/satheeshds/ledger/models"
	"github.com/shopspring/decimal"
)

// testNow is the frozen clock all tests run under.
var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	database, err := db.OpenSQLiteFile(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.Migrate(database, db.DriverSQLite); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	s := New(database, db.DriverSQLite, DefaultConfig())
	s.now = func() time.Time { return testNow }
	return s
}

func dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", v, err)
	}
	return d
}

func mustAccount(t *testing.T, s *Service, name string) models.Account {
	t.Helper()
	a, err := s.CreateAccount(models.AccountInput{Name: name, Type: "current"})
	if err != nil {
		t.Fatalf("creating account %q: %v", name, err)
	}
	return a
}

func mustTxn(t *testing.T, s *Service, accountID int, amount, date string, paid bool) models.Transaction {
	t.Helper()
	txn, err := s.CreateTransaction(models.TransactionInput{
		AccountID:       accountID,
		Amount:          dec(t, amount),
		TransactionDate: date,
		IsPaid:          paid,
	})
	if err != nil {
		t.Fatalf("creating transaction %s on %s: %v", amount, date, err)
	}
	return txn
}

func mustCard(t *testing.T, s *Service, in models.CreditCardInput) models.CreditCard {
	t.Helper()
	if in.Name == "" {
		in.Name = "Test Card"
	}
	if in.CreditLimit.IsZero() {
		in.CreditLimit = dec(t, "5000")
	}
	if in.StatementDay == 0 {
		in.StatementDay = 10
	}
	c, err := s.CreateCard(in)
	if err != nil {
		t.Fatalf("creating card: %v", err)
	}
	return c
}

func mustCardTxn(t *testing.T, s *Service, cardID int, amount, date, txnType string) models.CardTransaction {
	t.Helper()
	txn, err := s.CreateCardTransaction(cardID, models.CardTransactionInput{
		Date:   date,
		Amount: dec(t, amount),
		Type:   txnType,
	})
	if err != nil {
		t.Fatalf("creating card transaction %s on %s: %v", amount, date, err)
	}
	return txn
}

func assertDecimal(t *testing.T, got decimal.Decimal, want string, what string) {
	t.Helper()
	if !got.Equal(dec(t, want)) {
		t.Errorf("%s = %s, want %s", what, got, want)
	}
}

func TestClipDay(t *testing.T) {
	tests := []struct {
		month string
		day   int
		want  string
	}{
		{"2025-01", 31, "2025-01-31"},
		{"2025-02", 31, "2025-02-28"},
		{"2024-02", 31, "2024-02-29"},
		{"2025-04", 31, "2025-04-30"},
		{"2025-04", 1, "2025-04-01"},
	}
	for _, tt := range tests {
		month, err := parseYearMonth(tt.month)
		if err != nil {
			t.Fatalf("parsing %q: %v", tt.month, err)
		}
		if got := clipDay(month, tt.day).Format(models.DateLayout); got != tt.want {
			t.Errorf("clipDay(%s, %d) = %s, want %s", tt.month, tt.day, got, tt.want)
		}
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2025-01", "2025-01", 0},
		{"2025-01", "2025-06", 5},
		{"2024-11", "2025-02", 3},
		{"2025-06", "2025-01", -5},
	}
	for _, tt := range tests {
		a, _ := parseYearMonth(tt.a)
		b, _ := parseYearMonth(tt.b)
		if got := monthsBetween(a, b); got != tt.want {
			t.Errorf("monthsBetween(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPlaceholderRebinding(t *testing.T) {
	s := &Service{driver: db.DriverPostgres}
	got := s.q("SELECT id FROM accounts WHERE id = ? AND name = ?")
	want := "SELECT id FROM accounts WHERE id = $1 AND name = $2"
	if got != want {
		t.Errorf("q() = %q, want %q", got, want)
	}

	s = &Service{driver: db.DriverSQLite}
	query := "SELECT id FROM accounts WHERE id = ?"
	if got := s.q(query); got != query {
		t.Errorf("q() rewrote sqlite query: %q", got)
	}
}
