package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/satheeshds/ledger/models"
	"github.com/shopspring/decimal"
)

// LinkedPaymentInput describes a credit card payment to be recorded on both
// ledgers at once. Amount is the positive payment size; the linker applies
// the sign convention of each side.
type LinkedPaymentInput struct {
	CreditCardID int             `json:"credit_card_id"`
	AccountID    int             `json:"account_id"`
	Date         string          `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Description  *string         `json:"description"`
	IsPaid       bool            `json:"is_paid"`
}

// CreateLinkedPayment records a card payment as a pair: an outflow on the
// bank account and a debt reduction on the card, cross-referenced and
// committed in one unit of work together with both recalculations.
func (s *Service) CreateLinkedPayment(in LinkedPaymentInput) (models.Transaction, models.CardTransaction, error) {
	if !in.Amount.IsPositive() {
		return models.Transaction{}, models.CardTransaction{}, fmt.Errorf("payment amount must be positive: %w", ErrInvalidAmount)
	}
	if _, err := parseDate(in.Date); err != nil {
		return models.Transaction{}, models.CardTransaction{}, err
	}
	if _, err := s.GetCard(in.CreditCardID); err != nil {
		return models.Transaction{}, models.CardTransaction{}, err
	}
	if _, err := s.GetAccount(in.AccountID); err != nil {
		return models.Transaction{}, models.CardTransaction{}, err
	}

	var bankID, cardTxnID int
	err := s.withTx(func(tx *sql.Tx) error {
		var err error
		bankID, cardTxnID, err = s.createLinkedPaymentTx(tx, in, nil, false)
		return err
	})
	if err != nil {
		return models.Transaction{}, models.CardTransaction{}, err
	}
	bank, err := s.GetTransaction(bankID)
	if err != nil {
		return models.Transaction{}, models.CardTransaction{}, err
	}
	cardTxn, err := s.GetCardTransaction(cardTxnID)
	return bank, cardTxn, err
}

// createLinkedPaymentTx inserts both sides of a payment pair, recalculates
// both ledgers, and refreshes the account's monthly cache. statementID ties
// the card side to a generated statement; isFixed marks generator output
// that must survive regeneration.
func (s *Service) createLinkedPaymentTx(tx dbtx, in LinkedPaymentInput, statementID *int, isFixed bool) (bankID, cardTxnID int, err error) {
	if err := tx.QueryRow(s.q(`INSERT INTO transactions
		(account_id, amount, transaction_date, description, is_paid, is_fixed, credit_card_id)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		in.AccountID, in.Amount, in.Date, in.Description, in.IsPaid, isFixed,
		in.CreditCardID).Scan(&bankID); err != nil {
		return 0, 0, fmt.Errorf("creating bank side of payment: %w", err)
	}
	if err := tx.QueryRow(s.q(`INSERT INTO card_transactions
		(credit_card_id, date, amount, type, description, is_paid, is_fixed,
		 bank_transaction_id, statement_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		in.CreditCardID, in.Date, in.Amount, models.CardTxnPayment, in.Description,
		in.IsPaid, isFixed, bankID, statementID).Scan(&cardTxnID); err != nil {
		return 0, 0, fmt.Errorf("creating card side of payment: %w", err)
	}

	if err := s.recalcCardTx(tx, in.CreditCardID); err != nil {
		return 0, 0, err
	}
	if err := s.recalcAccountTx(tx, in.AccountID); err != nil {
		return 0, 0, err
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return 0, 0, err
	}
	if err := s.updateMonthlyFromTx(tx, in.AccountID, firstOfMonth(date)); err != nil {
		return 0, 0, err
	}
	return bankID, cardTxnID, nil
}

// syncBankToCardTx mirrors an edit of the bank side onto the card side:
// same date, same magnitude, same paid flag. Both rows are locked
// (is_fixed) so the statement generator will not rewrite a hand-edited
// payment. A missing counterpart is reported, never repaired.
func (s *Service) syncBankToCardTx(tx dbtx, bank models.Transaction, in models.TransactionInput) (string, error) {
	res, err := tx.Exec(s.q(`UPDATE card_transactions SET date = ?, amount = ?,
		is_paid = ?, is_fixed = 1, updated_at = CURRENT_TIMESTAMP
		WHERE bank_transaction_id = ?`),
		in.TransactionDate, in.Amount.Abs(), in.IsPaid, bank.ID)
	if err != nil {
		return "", fmt.Errorf("syncing card side of transaction %d: %w", bank.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		warning := fmt.Sprintf("transaction %d is linked to card %d but its card transaction is missing: %v",
			bank.ID, *bank.CreditCardID, ErrLinkInconsistency)
		slog.Warn("orphaned payment link", "bank_transaction_id", bank.ID, "credit_card_id", *bank.CreditCardID)
		return warning, nil
	}
	if _, err := tx.Exec(s.q(`UPDATE transactions SET is_fixed = 1 WHERE id = ?`), bank.ID); err != nil {
		return "", fmt.Errorf("locking transaction %d: %w", bank.ID, err)
	}
	return "", nil
}

// syncCardToBankTx mirrors an edit of the card side onto the bank side, the
// counterpart of syncBankToCardTx. The bank account is recalculated and its
// cache refreshed from the earlier of the old and new months.
func (s *Service) syncCardToBankTx(tx dbtx, cardTxn models.CardTransaction, in models.CardTransactionInput) (string, error) {
	bank, err := s.getTransaction(tx, *cardTxn.BankTransactionID)
	if errors.Is(err, ErrNotFound) {
		warning := fmt.Sprintf("card transaction %d points at bank transaction %d which is missing: %v",
			cardTxn.ID, *cardTxn.BankTransactionID, ErrLinkInconsistency)
		slog.Warn("orphaned payment link", "card_transaction_id", cardTxn.ID, "bank_transaction_id", *cardTxn.BankTransactionID)
		return warning, nil
	}
	if err != nil {
		return "", err
	}

	if _, err := tx.Exec(s.q(`UPDATE transactions SET transaction_date = ?, amount = ?,
		is_paid = ?, is_fixed = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		in.Date, in.Amount.Abs(), in.IsPaid, bank.ID); err != nil {
		return "", fmt.Errorf("syncing bank side of card transaction %d: %w", cardTxn.ID, err)
	}
	if _, err := tx.Exec(s.q(`UPDATE card_transactions SET is_fixed = 1 WHERE id = ?`), cardTxn.ID); err != nil {
		return "", fmt.Errorf("locking card transaction %d: %w", cardTxn.ID, err)
	}

	if err := s.recalcAccountTx(tx, bank.AccountID); err != nil {
		return "", err
	}
	oldDate, err := parseDate(bank.TransactionDate)
	if err != nil {
		return "", err
	}
	from := firstOfMonth(oldDate)
	if newDate, err := parseDate(in.Date); err == nil {
		if newFrom := firstOfMonth(newDate); newFrom.Before(from) {
			from = newFrom
		}
	}
	return "", s.updateMonthlyFromTx(tx, bank.AccountID, from)
}

// cascadeDeleteBankTx deletes a linked bank transaction together with its
// card side, then recalculates the card.
func (s *Service) cascadeDeleteBankTx(tx dbtx, bank models.Transaction) (string, error) {
	res, err := tx.Exec(s.q("DELETE FROM card_transactions WHERE bank_transaction_id = ?"), bank.ID)
	if err != nil {
		return "", fmt.Errorf("deleting card side of transaction %d: %w", bank.ID, err)
	}
	var warning string
	if n, _ := res.RowsAffected(); n == 0 {
		warning = fmt.Sprintf("transaction %d is linked to card %d but its card transaction is missing: %v",
			bank.ID, *bank.CreditCardID, ErrLinkInconsistency)
		slog.Warn("orphaned payment link", "bank_transaction_id", bank.ID, "credit_card_id", *bank.CreditCardID)
	}
	if _, err := tx.Exec(s.q("DELETE FROM transactions WHERE id = ?"), bank.ID); err != nil {
		return "", fmt.Errorf("deleting transaction %d: %w", bank.ID, err)
	}
	return warning, s.recalcCardTx(tx, *bank.CreditCardID)
}

// cascadeDeleteCardTxnTx deletes a linked card transaction together with
// its bank side, then recalculates the bank account and its cache.
func (s *Service) cascadeDeleteCardTxnTx(tx dbtx, cardTxn models.CardTransaction) (string, error) {
	bank, err := s.getTransaction(tx, *cardTxn.BankTransactionID)
	var warning string
	switch {
	case errors.Is(err, ErrNotFound):
		warning = fmt.Sprintf("card transaction %d points at bank transaction %d which is missing: %v",
			cardTxn.ID, *cardTxn.BankTransactionID, ErrLinkInconsistency)
		slog.Warn("orphaned payment link", "card_transaction_id", cardTxn.ID, "bank_transaction_id", *cardTxn.BankTransactionID)
	case err != nil:
		return "", err
	default:
		// The card row must go first; its foreign key references the bank row.
		if _, err := tx.Exec(s.q("DELETE FROM card_transactions WHERE id = ?"), cardTxn.ID); err != nil {
			return "", fmt.Errorf("deleting card transaction %d: %w", cardTxn.ID, err)
		}
		if _, err := tx.Exec(s.q("DELETE FROM transactions WHERE id = ?"), bank.ID); err != nil {
			return "", fmt.Errorf("deleting transaction %d: %w", bank.ID, err)
		}
		if err := s.recalcAccountTx(tx, bank.AccountID); err != nil {
			return "", err
		}
		date, err := parseDate(bank.TransactionDate)
		if err != nil {
			return "", err
		}
		return "", s.updateMonthlyFromTx(tx, bank.AccountID, firstOfMonth(date))
	}

	if _, err := tx.Exec(s.q("DELETE FROM card_transactions WHERE id = ?"), cardTxn.ID); err != nil {
		return "", fmt.Errorf("deleting card transaction %d: %w", cardTxn.ID, err)
	}
	return warning, nil
}
