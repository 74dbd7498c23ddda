package services

import (
	"errors"
	"testing"

	"github.com/satheeshds/ledger/models"
)

func TestMonthlyBalanceActualVsProjected(t *testing.T) {
	s := newTestService(t)
	a := mustAccount(t, s, "Current")

	mustTxn(t, s, a.ID, "-1000", "2025-04-05", true) // cleared inflow
	mustTxn(t, s, a.ID, "200", "2025-04-20", false)  // pending outflow

	actual, err := s.MonthlyBalance(a.ID, "2025-04", false)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, actual, "1000", "actual balance")

	projected, err := s.MonthlyBalance(a.ID, "2025-04", true)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, projected, "800", "projected balance")
}

func TestMonthlyBalanceIsCumulative(t *testing.T) {
	s := newTestService(t)
	a := mustAccount(t, s, "Current")

	mustTxn(t, s, a.ID, "-500", "2025-03-10", true)
	mustTxn(t, s, a.ID, "100", "2025-04-10", true)

	// April includes March's inflow.
	got, err := s.MonthlyBalance(a.ID, "2025-04", false)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, got, "400", "cumulative April balance")
}

func TestForecastedOnlyCountsInFutureMonths(t *testing.T) {
	s := newTestService(t)
	a := mustAccount(t, s, "Current")

	// A forecasted row in a past month and one in a future month
	// (relative to the frozen clock, 2025-06-15).
	if _, err := s.CreateTransaction(models.TransactionInput{
		AccountID: a.ID, Amount: dec(t, "50"), TransactionDate: "2025-03-10", IsForecasted: true,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateTransaction(models.TransactionInput{
		AccountID: a.ID, Amount: dec(t, "70"), TransactionDate: "2025-08-10", IsForecasted: true,
	}); err != nil {
		t.Fatal(err)
	}

	past, err := s.MonthlyBalance(a.ID, "2025-03", true)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, past, "0", "projected past month ignores forecasts")

	future, err := s.MonthlyBalance(a.ID, "2025-08", true)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, future, "-120", "projected future month includes forecasts")
}

func TestPastEditRefreshesLaterMonths(t *testing.T) {
	s := newTestService(t)
	a := mustAccount(t, s, "Current")

	mustTxn(t, s, a.ID, "-100", "2025-02-10", true)
	mustTxn(t, s, a.ID, "-100", "2025-05-10", true)

	// Prime the cache.
	may, err := s.MonthlyBalance(a.ID, "2025-05", false)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, may, "200", "May before the edit")

	// A new transaction landing back in February must ripple forward.
	mustTxn(t, s, a.ID, "-50", "2025-02-20", true)

	may, err = s.MonthlyBalance(a.ID, "2025-05", false)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, may, "250", "May after the edit")

	feb, err := s.MonthlyBalance(a.ID, "2025-02", false)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, feb, "150", "February after the edit")
}

func TestMonthlyBalanceUnknownAccount(t *testing.T) {
	s := newTestService(t)
	if _, err := s.MonthlyBalance(42, "2025-05", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestTimeline(t *testing.T) {
	s := newTestService(t)
	a := mustAccount(t, s, "Current")
	mustTxn(t, s, a.ID, "-300", "2025-01-15", true)

	entries, err := s.Timeline(a.ID, "2025-01", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	for i, want := range []string{"2025-01", "2025-02", "2025-03", "2025-04"} {
		if entries[i].YearMonth != want {
			t.Errorf("entry %d month = %s, want %s", i, entries[i].YearMonth, want)
		}
		assertDecimal(t, entries[i].ActualBalance, "300", "timeline balance")
	}
}

func TestRebuildAllCaches(t *testing.T) {
	s := newTestService(t)
	a := mustAccount(t, s, "Current")
	b := mustAccount(t, s, "Savings")
	mustTxn(t, s, a.ID, "-100", "2025-01-10", true)
	mustTxn(t, s, b.ID, "-200", "2025-03-10", true)

	// Corrupt a cache row, then rebuild.
	if _, err := s.db.Exec(`UPDATE monthly_account_balances SET actual_balance = 999999`); err != nil {
		t.Fatal(err)
	}

	written, err := s.RebuildAllCaches()
	if err != nil {
		t.Fatal(err)
	}
	// From January through the 12 month horizon, for both accounts.
	if written == 0 {
		t.Fatal("rebuild wrote no rows")
	}

	got, err := s.MonthlyBalance(a.ID, "2025-01", false)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, got, "100", "rebuilt January balance")
}

func TestRebuildAllCachesEmptyLedger(t *testing.T) {
	s := newTestService(t)
	mustAccount(t, s, "Current")

	written, err := s.RebuildAllCaches()
	if err != nil {
		t.Fatal(err)
	}
	if written != 0 {
		t.Fatalf("rebuild of empty ledger wrote %d rows, want 0", written)
	}
}
