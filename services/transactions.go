package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/satheeshds/ledger/models"
)

const txnColumns = `id, account_id, amount, transaction_date, description, category_id,
	vendor_id, is_paid, is_fixed, is_forecasted, credit_card_id, created_at, updated_at`

func scanTransaction(r scanner) (models.Transaction, error) {
	var t models.Transaction
	err := r.Scan(&t.ID, &t.AccountID, &t.Amount, &t.TransactionDate, &t.Description,
		&t.CategoryID, &t.VendorID, &t.IsPaid, &t.IsFixed, &t.IsForecasted,
		&t.CreditCardID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	AccountID int
	From      string // inclusive, YYYY-MM-DD
	To        string // inclusive, YYYY-MM-DD
}

// ListTransactions returns bank transactions matching the filter, newest first.
func (s *Service) ListTransactions(f TransactionFilter) ([]models.Transaction, error) {
	where := []string{}
	args := []any{}
	if f.AccountID > 0 {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.From != "" {
		where = append(where, "transaction_date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "transaction_date <= ?")
		args = append(args, f.To)
	}
	query := "SELECT " + txnColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY transaction_date DESC, id DESC"

	rows, err := s.db.Query(s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	txns := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (s *Service) GetTransaction(id int) (models.Transaction, error) {
	return s.getTransaction(s.db, id)
}

func (s *Service) getTransaction(tx dbtx, id int) (models.Transaction, error) {
	t, err := scanTransaction(tx.QueryRow(s.q("SELECT "+txnColumns+" FROM transactions WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("loading transaction %d: %w", id, err)
	}
	return t, nil
}

// CreateTransaction inserts a bank transaction and, in the same unit of
// work, recalculates the account balance and refreshes the monthly cache
// from the transaction's month forward.
func (s *Service) CreateTransaction(in models.TransactionInput) (models.Transaction, error) {
	if _, err := s.GetAccount(in.AccountID); err != nil {
		return models.Transaction{}, err
	}
	date, err := parseDate(in.TransactionDate)
	if err != nil {
		return models.Transaction{}, err
	}

	var id int
	err = s.withTx(func(tx *sql.Tx) error {
		if err := tx.QueryRow(s.q(`INSERT INTO transactions
			(account_id, amount, transaction_date, description, category_id, vendor_id,
			 is_paid, is_fixed, is_forecasted)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			in.AccountID, in.Amount, in.TransactionDate, in.Description, in.CategoryID,
			in.VendorID, in.IsPaid, in.IsFixed, in.IsForecasted).Scan(&id); err != nil {
			return fmt.Errorf("creating transaction: %w", err)
		}
		if err := s.recalcAccountTx(tx, in.AccountID); err != nil {
			return err
		}
		return s.updateMonthlyFromTx(tx, in.AccountID, firstOfMonth(date))
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return s.GetTransaction(id)
}

// UpdateTransaction rewrites a bank transaction. When the row is the bank
// side of a credit card payment, the card side is kept in sync and the pair
// is locked against regeneration. The returned warning is non-empty when
// the linked counterpart was found missing.
func (s *Service) UpdateTransaction(id int, in models.TransactionInput) (models.Transaction, string, error) {
	existing, err := s.GetTransaction(id)
	if err != nil {
		return models.Transaction{}, "", err
	}
	if _, err := s.GetAccount(in.AccountID); err != nil {
		return models.Transaction{}, "", err
	}
	oldDate, err := parseDate(existing.TransactionDate)
	if err != nil {
		return models.Transaction{}, "", err
	}
	newDate, err := parseDate(in.TransactionDate)
	if err != nil {
		return models.Transaction{}, "", err
	}

	var warning string
	err = s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(s.q(`UPDATE transactions SET account_id = ?, amount = ?,
			transaction_date = ?, description = ?, category_id = ?, vendor_id = ?,
			is_paid = ?, is_fixed = ?, is_forecasted = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`),
			in.AccountID, in.Amount, in.TransactionDate, in.Description, in.CategoryID,
			in.VendorID, in.IsPaid, in.IsFixed, in.IsForecasted, id); err != nil {
			return fmt.Errorf("updating transaction %d: %w", id, err)
		}

		if existing.CreditCardID != nil {
			w, err := s.syncBankToCardTx(tx, existing, in)
			if err != nil {
				return err
			}
			warning = w
			if err := s.recalcCardTx(tx, *existing.CreditCardID); err != nil {
				return err
			}
		}

		if err := s.recalcAccountTx(tx, existing.AccountID); err != nil {
			return err
		}
		from := firstOfMonth(oldDate)
		if newFrom := firstOfMonth(newDate); newFrom.Before(from) {
			from = newFrom
		}
		if err := s.updateMonthlyFromTx(tx, existing.AccountID, from); err != nil {
			return err
		}
		if in.AccountID != existing.AccountID {
			if err := s.recalcAccountTx(tx, in.AccountID); err != nil {
				return err
			}
			if err := s.updateMonthlyFromTx(tx, in.AccountID, from); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Transaction{}, "", err
	}
	t, err := s.GetTransaction(id)
	return t, warning, err
}

// DeleteTransaction removes a bank transaction. When the row is the bank
// side of a credit card payment, the card side goes with it. The returned
// warning is non-empty when the linked counterpart was found missing.
func (s *Service) DeleteTransaction(id int) (string, error) {
	existing, err := s.GetTransaction(id)
	if err != nil {
		return "", err
	}
	date, err := parseDate(existing.TransactionDate)
	if err != nil {
		return "", err
	}

	var warning string
	err = s.withTx(func(tx *sql.Tx) error {
		if existing.CreditCardID != nil {
			w, err := s.cascadeDeleteBankTx(tx, existing)
			if err != nil {
				return err
			}
			warning = w
		} else if _, err := tx.Exec(s.q("DELETE FROM transactions WHERE id = ?"), id); err != nil {
			return fmt.Errorf("deleting transaction %d: %w", id, err)
		}
		if err := s.recalcAccountTx(tx, existing.AccountID); err != nil {
			return err
		}
		return s.updateMonthlyFromTx(tx, existing.AccountID, firstOfMonth(date))
	})
	return warning, err
}
