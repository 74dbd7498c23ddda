package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/satheeshds/ledger/models"
)

type scanner interface {
	Scan(dest ...any) error
}

const accountColumns = "id, name, type, balance, is_active, created_at, updated_at"

func scanAccount(r scanner) (models.Account, error) {
	var a models.Account
	err := r.Scan(&a.ID, &a.Name, &a.Type, &a.Balance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// ListAccounts returns all accounts, active ones first.
func (s *Service) ListAccounts() ([]models.Account, error) {
	rows, err := s.db.Query("SELECT " + accountColumns + " FROM accounts ORDER BY is_active DESC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *Service) GetAccount(id int) (models.Account, error) {
	a, err := scanAccount(s.db.QueryRow(s.q("SELECT "+accountColumns+" FROM accounts WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("loading account %d: %w", id, err)
	}
	return a, nil
}

func (s *Service) CreateAccount(in models.AccountInput) (models.Account, error) {
	var id int
	err := s.db.QueryRow(s.q(`INSERT INTO accounts (name, type, balance, is_active)
		VALUES (?, ?, 0, ?) RETURNING id`), in.Name, in.Type, in.Active()).Scan(&id)
	if err != nil {
		return models.Account{}, fmt.Errorf("creating account: %w", err)
	}
	return s.GetAccount(id)
}

func (s *Service) UpdateAccount(id int, in models.AccountInput) (models.Account, error) {
	res, err := s.db.Exec(s.q(`UPDATE accounts SET name = ?, type = ?, is_active = ?,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`), in.Name, in.Type, in.Active(), id)
	if err != nil {
		return models.Account{}, fmt.Errorf("updating account %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Account{}, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	return s.GetAccount(id)
}

// DeleteAccount removes an account. Accounts with transactions cannot be
// deleted; deactivate them instead.
func (s *Service) DeleteAccount(id int) error {
	return s.withTx(func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRow(s.q("SELECT COUNT(*) FROM transactions WHERE account_id = ?"), id).Scan(&n); err != nil {
			return fmt.Errorf("counting transactions for account %d: %w", id, err)
		}
		if n > 0 {
			return fmt.Errorf("account %d has %d transactions: %w", id, n, ErrReferentialConflict)
		}
		if _, err := tx.Exec(s.q("DELETE FROM monthly_account_balances WHERE account_id = ?"), id); err != nil {
			return fmt.Errorf("clearing cache for account %d: %w", id, err)
		}
		res, err := tx.Exec(s.q("DELETE FROM accounts WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("deleting account %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("account %d: %w", id, ErrNotFound)
		}
		return nil
	})
}
