package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// RecalculateAccount recomputes an account's cached balance from its full
// transaction history and persists it. Idempotent; a missing account is a
// no-op (it may have been deleted concurrently).
func (s *Service) RecalculateAccount(accountID int) error {
	return s.withTx(func(tx *sql.Tx) error {
		return s.recalcAccountTx(tx, accountID)
	})
}

// RecalculateCard recomputes a credit card's cached balance and available
// credit, and rewrites the running balance columns on every card
// transaction. Idempotent; a missing card is a no-op.
func (s *Service) RecalculateCard(cardID int) error {
	return s.withTx(func(tx *sql.Tx) error {
		return s.recalcCardTx(tx, cardID)
	})
}

// recalcAccountTx folds the account's transactions ordered by (date, id)
// and stores the negated sum: amounts are negative for inflows, so the
// balance is -Σ(amount).
func (s *Service) recalcAccountTx(tx dbtx, accountID int) error {
	var id int
	err := tx.QueryRow(s.q("SELECT id FROM accounts WHERE id = ?"), accountID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading account %d: %w", accountID, err)
	}

	rows, err := tx.Query(s.q(`SELECT amount FROM transactions WHERE account_id = ?
		ORDER BY transaction_date ASC, id ASC`), accountID)
	if err != nil {
		return fmt.Errorf("loading transactions for account %d: %w", accountID, err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return fmt.Errorf("scanning transaction amount: %w", err)
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating transactions: %w", err)
	}

	balance := total.Neg().Round(2)
	if _, err := tx.Exec(s.q(`UPDATE accounts SET balance = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`), balance, accountID); err != nil {
		return fmt.Errorf("storing balance for account %d: %w", accountID, err)
	}
	return nil
}

// recalcCardTx folds the card's transactions ordered by (date, id). The
// card balance is the plain sum (negative = debt) and available credit is
// credit_limit - |min(balance, 0)|. Running figures after each transaction
// are rewritten when they drift.
func (s *Service) recalcCardTx(tx dbtx, cardID int) error {
	var creditLimit decimal.Decimal
	err := tx.QueryRow(s.q("SELECT credit_limit FROM credit_cards WHERE id = ?"), cardID).Scan(&creditLimit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading card %d: %w", cardID, err)
	}

	type txnRow struct {
		id     int
		amount decimal.Decimal
	}
	rows, err := tx.Query(s.q(`SELECT id, amount FROM card_transactions WHERE credit_card_id = ?
		ORDER BY date ASC, id ASC`), cardID)
	if err != nil {
		return fmt.Errorf("loading transactions for card %d: %w", cardID, err)
	}
	var txns []txnRow
	for rows.Next() {
		var r txnRow
		if err := rows.Scan(&r.id, &r.amount); err != nil {
			rows.Close()
			return fmt.Errorf("scanning card transaction: %w", err)
		}
		txns = append(txns, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterating card transactions: %w", err)
	}
	rows.Close()

	running := decimal.Zero
	for _, t := range txns {
		running = running.Add(t.amount)
		balanceAfter := running.Round(2)
		availableAfter := availableCredit(creditLimit, balanceAfter)
		if _, err := tx.Exec(s.q(`UPDATE card_transactions SET balance_after = ?, available_after = ?
			WHERE id = ?`), balanceAfter, availableAfter, t.id); err != nil {
			return fmt.Errorf("storing running balance for card transaction %d: %w", t.id, err)
		}
	}

	current := running.Round(2)
	available := availableCredit(creditLimit, current)
	if _, err := tx.Exec(s.q(`UPDATE credit_cards SET current_balance = ?, available_credit = ?,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`), current, available, cardID); err != nil {
		return fmt.Errorf("storing balance for card %d: %w", cardID, err)
	}
	return nil
}

// availableCredit returns credit_limit - |min(balance, 0)|.
func availableCredit(creditLimit, balance decimal.Decimal) decimal.Decimal {
	if balance.IsNegative() {
		return creditLimit.Sub(balance.Abs()).Round(2)
	}
	return creditLimit.Round(2)
}

// cardBalanceAsOf folds all card transactions dated on or before the given
// date (inclusive), in (date, id) order.
func (s *Service) cardBalanceAsOf(tx dbtx, cardID int, through string) (decimal.Decimal, error) {
	rows, err := tx.Query(s.q(`SELECT amount FROM card_transactions
		WHERE credit_card_id = ? AND date <= ? ORDER BY date ASC, id ASC`), cardID, through)
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading card %d transactions through %s: %w", cardID, through, err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scanning card transaction amount: %w", err)
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("iterating card transactions: %w", err)
	}
	return total.Round(2), nil
}
