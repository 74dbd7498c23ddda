package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/satheeshds/ledger/models"
)

const cardTxnColumns = `id, credit_card_id, date, amount, type, description, applied_rate,
	is_promotional_rate, is_paid, is_fixed, balance_after, available_after,
	bank_transaction_id, statement_id, created_at, updated_at`

func scanCardTransaction(r scanner) (models.CardTransaction, error) {
	var t models.CardTransaction
	err := r.Scan(&t.ID, &t.CreditCardID, &t.Date, &t.Amount, &t.Type, &t.Description,
		&t.AppliedRate, &t.IsPromotionalRate, &t.IsPaid, &t.IsFixed, &t.BalanceAfter,
		&t.AvailableAfter, &t.BankTransactionID, &t.StatementID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// ListCardTransactions returns a card's transactions, newest first.
func (s *Service) ListCardTransactions(cardID int) ([]models.CardTransaction, error) {
	if _, err := s.GetCard(cardID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(s.q("SELECT "+cardTxnColumns+` FROM card_transactions
		WHERE credit_card_id = ? ORDER BY date DESC, id DESC`), cardID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for card %d: %w", cardID, err)
	}
	defer rows.Close()

	txns := []models.CardTransaction{}
	for rows.Next() {
		t, err := scanCardTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning card transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (s *Service) GetCardTransaction(id int) (models.CardTransaction, error) {
	return s.getCardTransaction(s.db, id)
}

func (s *Service) getCardTransaction(tx dbtx, id int) (models.CardTransaction, error) {
	t, err := scanCardTransaction(tx.QueryRow(s.q("SELECT "+cardTxnColumns+" FROM card_transactions WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.CardTransaction{}, fmt.Errorf("card transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.CardTransaction{}, fmt.Errorf("loading card transaction %d: %w", id, err)
	}
	return t, nil
}

// CreateCardTransaction inserts a card transaction and recalculates the
// card's balance and running figures in the same unit of work.
func (s *Service) CreateCardTransaction(cardID int, in models.CardTransactionInput) (models.CardTransaction, error) {
	if _, err := s.GetCard(cardID); err != nil {
		return models.CardTransaction{}, err
	}
	var id int
	err := s.withTx(func(tx *sql.Tx) error {
		if err := tx.QueryRow(s.q(`INSERT INTO card_transactions
			(credit_card_id, date, amount, type, description, is_paid, is_fixed)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			cardID, in.Date, in.Amount, in.Type, in.Description, in.IsPaid, in.IsFixed).Scan(&id); err != nil {
			return fmt.Errorf("creating card transaction: %w", err)
		}
		return s.recalcCardTx(tx, cardID)
	})
	if err != nil {
		return models.CardTransaction{}, err
	}
	return s.GetCardTransaction(id)
}

// UpdateCardTransaction rewrites a card transaction. When the row is the
// card side of a linked payment, the bank side is kept in sync and the pair
// is locked against regeneration. The returned warning is non-empty when
// the linked counterpart was found missing.
func (s *Service) UpdateCardTransaction(id int, in models.CardTransactionInput) (models.CardTransaction, string, error) {
	existing, err := s.GetCardTransaction(id)
	if err != nil {
		return models.CardTransaction{}, "", err
	}

	var warning string
	err = s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(s.q(`UPDATE card_transactions SET date = ?, amount = ?,
			type = ?, description = ?, is_paid = ?, is_fixed = ?,
			updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
			in.Date, in.Amount, in.Type, in.Description, in.IsPaid, in.IsFixed, id); err != nil {
			return fmt.Errorf("updating card transaction %d: %w", id, err)
		}
		if existing.BankTransactionID != nil {
			w, err := s.syncCardToBankTx(tx, existing, in)
			if err != nil {
				return err
			}
			warning = w
		}
		return s.recalcCardTx(tx, existing.CreditCardID)
	})
	if err != nil {
		return models.CardTransaction{}, "", err
	}
	t, err := s.GetCardTransaction(id)
	return t, warning, err
}

// DeleteCardTransaction removes a card transaction. When the row is the
// card side of a linked payment, the bank side goes with it. The returned
// warning is non-empty when the linked counterpart was found missing.
func (s *Service) DeleteCardTransaction(id int) (string, error) {
	existing, err := s.GetCardTransaction(id)
	if err != nil {
		return "", err
	}

	var warning string
	err = s.withTx(func(tx *sql.Tx) error {
		if existing.BankTransactionID != nil {
			w, err := s.cascadeDeleteCardTxnTx(tx, existing)
			if err != nil {
				return err
			}
			warning = w
		} else if _, err := tx.Exec(s.q("DELETE FROM card_transactions WHERE id = ?"), id); err != nil {
			return fmt.Errorf("deleting card transaction %d: %w", id, err)
		}
		return s.recalcCardTx(tx, existing.CreditCardID)
	})
	return warning, err
}

// ToggleCardTransactionPaid flips the is_paid flag. On a linked payment the
// bank side is flipped with it, and the pair is locked against regeneration.
func (s *Service) ToggleCardTransactionPaid(id int) (models.CardTransaction, error) {
	existing, err := s.GetCardTransaction(id)
	if err != nil {
		return models.CardTransaction{}, err
	}
	newPaid := !existing.IsPaid

	err = s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(s.q(`UPDATE card_transactions SET is_paid = ?,
			updated_at = CURRENT_TIMESTAMP WHERE id = ?`), newPaid, id); err != nil {
			return fmt.Errorf("toggling card transaction %d: %w", id, err)
		}
		if existing.BankTransactionID == nil {
			return nil
		}
		bank, err := s.getTransaction(tx, *existing.BankTransactionID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(s.q(`UPDATE transactions SET is_paid = ?, is_fixed = 1,
			updated_at = CURRENT_TIMESTAMP WHERE id = ?`), newPaid, bank.ID); err != nil {
			return fmt.Errorf("syncing paid flag to transaction %d: %w", bank.ID, err)
		}
		if _, err := tx.Exec(s.q(`UPDATE card_transactions SET is_fixed = 1 WHERE id = ?`), id); err != nil {
			return fmt.Errorf("locking card transaction %d: %w", id, err)
		}
		date, err := parseDate(bank.TransactionDate)
		if err != nil {
			return err
		}
		return s.updateMonthlyFromTx(tx, bank.AccountID, firstOfMonth(date))
	})
	if err != nil {
		return models.CardTransaction{}, err
	}
	return s.GetCardTransaction(id)
}

// ToggleCardTransactionFixed flips the is_fixed flag, taking the row in or
// out of the statement generator's reach.
func (s *Service) ToggleCardTransactionFixed(id int) (models.CardTransaction, error) {
	existing, err := s.GetCardTransaction(id)
	if err != nil {
		return models.CardTransaction{}, err
	}
	if _, err := s.db.Exec(s.q(`UPDATE card_transactions SET is_fixed = ?,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`), !existing.IsFixed, id); err != nil {
		return models.CardTransaction{}, fmt.Errorf("toggling card transaction %d: %w", id, err)
	}
	return s.GetCardTransaction(id)
}
