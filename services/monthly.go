package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/satheeshds/ledger/models"
	"github.com/shopspring/decimal"
)

// UpdateMonthlyFrom recomputes and upserts the monthly balance cache for an
// account from the given month ("YYYY-MM") through the rolling horizon.
// Later months depend on earlier ones, so the refresh always runs forward
// from the changed month, never just for it.
func (s *Service) UpdateMonthlyFrom(accountID int, fromYearMonth string) error {
	from, err := parseYearMonth(fromYearMonth)
	if err != nil {
		return err
	}
	return s.withTx(func(tx *sql.Tx) error {
		return s.updateMonthlyFromTx(tx, accountID, from)
	})
}

func (s *Service) updateMonthlyFromTx(tx dbtx, accountID int, from time.Time) error {
	horizon := firstOfMonth(s.now()).AddDate(0, s.cfg.HorizonMonths, 0)
	months := monthsBetween(from, horizon) + 1
	if months < 1 {
		months = 1
	}
	for i := 0; i < months; i++ {
		if err := s.upsertMonthTx(tx, accountID, from.AddDate(0, i, 0)); err != nil {
			return err
		}
	}
	return nil
}

// upsertMonthTx recomputes one (account, month) cache row from the ledger.
func (s *Service) upsertMonthTx(tx dbtx, accountID int, month time.Time) error {
	actual, projected, err := s.monthBalanceTx(tx, accountID, month)
	if err != nil {
		return err
	}
	ym := yearMonth(month)
	res, err := tx.Exec(s.q(`UPDATE monthly_account_balances
		SET actual_balance = ?, projected_balance = ?, last_calculated = CURRENT_TIMESTAMP
		WHERE account_id = ? AND year_month = ?`), actual, projected, accountID, ym)
	if err != nil {
		return fmt.Errorf("updating cache for account %d %s: %w", accountID, ym, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := tx.Exec(s.q(`INSERT INTO monthly_account_balances
		(account_id, year_month, actual_balance, projected_balance)
		VALUES (?, ?, ?, ?)`), accountID, ym, actual, projected); err != nil {
		return fmt.Errorf("inserting cache for account %d %s: %w", accountID, ym, err)
	}
	return nil
}

// monthBalanceTx computes the end-of-month actual and projected balances
// from scratch. Actual covers paid transactions only; projected covers all
// of them, with forecasted rows counted only when the month ends in the
// future.
func (s *Service) monthBalanceTx(tx dbtx, accountID int, month time.Time) (actual, projected decimal.Decimal, err error) {
	end := monthEnd(month)
	rows, err := tx.Query(s.q(`SELECT amount, is_paid, is_forecasted FROM transactions
		WHERE account_id = ? AND transaction_date <= ?
		ORDER BY transaction_date ASC, id ASC`), accountID, end.Format(models.DateLayout))
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("loading transactions for account %d: %w", accountID, err)
	}
	defer rows.Close()

	includeForecasted := end.After(s.now())
	actualSum := decimal.Zero
	projectedSum := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		var isPaid, isForecasted bool
		if err := rows.Scan(&amount, &isPaid, &isForecasted); err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("scanning transaction: %w", err)
		}
		if isPaid {
			actualSum = actualSum.Add(amount)
		}
		if includeForecasted || !isForecasted {
			projectedSum = projectedSum.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("iterating transactions: %w", err)
	}

	// Balances follow the account sign convention: negated fold.
	return actualSum.Neg().Round(2), projectedSum.Neg().Round(2), nil
}

// MonthlyBalance returns the cached balance for an account and month
// ("YYYY-MM"). On a cache miss the value is computed from the ledger and
// the cache row is populated as a side effect.
func (s *Service) MonthlyBalance(accountID int, ym string, projected bool) (decimal.Decimal, error) {
	entry, err := s.monthlyEntry(accountID, ym)
	if err != nil {
		return decimal.Zero, err
	}
	if projected {
		return entry.ProjectedBalance, nil
	}
	return entry.ActualBalance, nil
}

// monthlyEntry reads one cache row, computing and populating it on a miss.
func (s *Service) monthlyEntry(accountID int, ym string) (models.MonthlyBalance, error) {
	month, err := parseYearMonth(ym)
	if err != nil {
		return models.MonthlyBalance{}, err
	}

	var entry models.MonthlyBalance
	err = s.db.QueryRow(s.q(`SELECT id, account_id, year_month, actual_balance, projected_balance, last_calculated
		FROM monthly_account_balances WHERE account_id = ? AND year_month = ?`), accountID, ym).
		Scan(&entry.ID, &entry.AccountID, &entry.YearMonth, &entry.ActualBalance, &entry.ProjectedBalance, &entry.LastCalculated)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.MonthlyBalance{}, fmt.Errorf("reading cache for account %d %s: %w", accountID, ym, err)
	}

	// Miss: the account must exist before we fabricate a row for it.
	if _, err := s.GetAccount(accountID); err != nil {
		return models.MonthlyBalance{}, err
	}
	err = s.withTx(func(tx *sql.Tx) error {
		return s.upsertMonthTx(tx, accountID, month)
	})
	if err != nil {
		return models.MonthlyBalance{}, err
	}
	err = s.db.QueryRow(s.q(`SELECT id, account_id, year_month, actual_balance, projected_balance, last_calculated
		FROM monthly_account_balances WHERE account_id = ? AND year_month = ?`), accountID, ym).
		Scan(&entry.ID, &entry.AccountID, &entry.YearMonth, &entry.ActualBalance, &entry.ProjectedBalance, &entry.LastCalculated)
	if err != nil {
		return models.MonthlyBalance{}, fmt.Errorf("re-reading cache for account %d %s: %w", accountID, ym, err)
	}
	return entry, nil
}

// Timeline returns cache entries for consecutive months starting at
// startYearMonth. Missing months are computed and populated on the way, so
// the cost is O(months), independent of transaction count once cached.
func (s *Service) Timeline(accountID int, startYearMonth string, months int) ([]models.MonthlyBalance, error) {
	start, err := parseYearMonth(startYearMonth)
	if err != nil {
		return nil, err
	}
	if months < 1 {
		months = 1
	}
	entries := make([]models.MonthlyBalance, 0, months)
	for i := 0; i < months; i++ {
		entry, err := s.monthlyEntry(accountID, yearMonth(start.AddDate(0, i, 0)))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RebuildAllCaches clears and regenerates every cache entry for every
// active account, from the earliest transaction month through the rolling
// horizon. Each account commits as its own unit of work, so an interrupted
// rebuild leaves no partially-written account behind. Returns the number of
// cache rows written.
func (s *Service) RebuildAllCaches() (int, error) {
	if err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM monthly_account_balances")
		return err
	}); err != nil {
		return 0, fmt.Errorf("clearing monthly balance cache: %w", err)
	}

	var earliest sql.NullString
	if err := s.db.QueryRow("SELECT MIN(transaction_date) FROM transactions").Scan(&earliest); err != nil {
		return 0, fmt.Errorf("finding earliest transaction: %w", err)
	}
	if !earliest.Valid {
		slog.Info("monthly cache rebuild: no transactions, nothing to do")
		return 0, nil
	}
	earliestDate, err := parseDate(earliest.String)
	if err != nil {
		return 0, err
	}
	from := firstOfMonth(earliestDate)

	rows, err := s.db.Query("SELECT id FROM accounts WHERE is_active ORDER BY id")
	if err != nil {
		return 0, fmt.Errorf("listing active accounts: %w", err)
	}
	var accountIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning account id: %w", err)
		}
		accountIDs = append(accountIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterating accounts: %w", err)
	}
	rows.Close()

	for _, id := range accountIDs {
		if err := s.withTx(func(tx *sql.Tx) error {
			return s.updateMonthlyFromTx(tx, id, from)
		}); err != nil {
			return 0, fmt.Errorf("rebuilding cache for account %d: %w", id, err)
		}
	}

	var written int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM monthly_account_balances").Scan(&written); err != nil {
		return 0, fmt.Errorf("counting cache rows: %w", err)
	}
	slog.Info("monthly cache rebuilt", "accounts", len(accountIDs), "rows", written, "from", yearMonth(from))
	return written, nil
}
