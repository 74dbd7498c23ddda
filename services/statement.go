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

// GenerationResult summarizes a statement generation or regeneration run.
type GenerationResult struct {
	CardsProcessed    int    `json:"cards_processed"`
	StatementsCreated int    `json:"statements_created"`
	PaymentsCreated   int    `json:"payments_created"`
	DeletedRecords    int    `json:"deleted_records"`
	LastGenerated     string `json:"last_generated,omitempty"` // YYYY-MM
}

func (r *GenerationResult) add(o GenerationResult) {
	r.CardsProcessed += o.CardsProcessed
	r.StatementsCreated += o.StatementsCreated
	r.PaymentsCreated += o.PaymentsCreated
	r.DeletedRecords += o.DeletedRecords
	if o.LastGenerated > r.LastGenerated {
		r.LastGenerated = o.LastGenerated
	}
}

// GenerateStatements walks a card's statement cycle month by month, from
// the card's first activity through the given date (inclusive; empty means
// today), and creates the missing Interest and Payment records. Months that
// already carry a statement are revisited so a deleted payment is rebuilt.
// Each month commits as its own unit of work; a failure mid-walk returns a
// *HaltError carrying the last month that landed.
func (s *Service) GenerateStatements(cardID int, throughDate string) (GenerationResult, error) {
	card, err := s.GetCard(cardID)
	if err != nil {
		return GenerationResult{}, err
	}
	through := s.now()
	if throughDate != "" {
		if through, err = parseDate(throughDate); err != nil {
			return GenerationResult{}, err
		}
	}

	from, err := s.generationStart(card)
	if err != nil {
		return GenerationResult{}, err
	}
	existing, err := s.statementMonths(cardID)
	if err != nil {
		return GenerationResult{}, err
	}

	result := GenerationResult{CardsProcessed: 1}
	for _, plan := range planStatementMonths(card.StatementDay, from, through, existing) {
		var stmtCreated, payCreated int
		var cleared bool
		err := s.withTx(func(tx *sql.Tx) error {
			var err error
			stmtCreated, payCreated, cleared, err = s.generateMonthTx(tx, card, plan.Month)
			return err
		})
		if err != nil {
			return result, &HaltError{
				CardID:        cardID,
				Month:         yearMonth(plan.Month),
				LastGenerated: result.LastGenerated,
				Err:           err,
			}
		}
		result.StatementsCreated += stmtCreated
		result.PaymentsCreated += payCreated
		if stmtCreated > 0 || payCreated > 0 {
			result.LastGenerated = yearMonth(plan.Month)
		}
		if cleared {
			slog.Info("statement walk stopped, balance cleared", "card_id", cardID, "month", yearMonth(plan.Month))
			break
		}
	}
	return result, nil
}

// monthPlan is one slot of the statement planner.
type monthPlan struct {
	Month        time.Time
	HasStatement bool
}

// planStatementMonths lays out every month whose statement day falls on or
// before through, noting which already carry an Interest row. Months with a
// statement stay in the plan: the walk still visits them to backfill a
// missing payment. Pure; it never touches storage, so the walk's decisions
// are testable in isolation.
func planStatementMonths(statementDay int, from, through time.Time, existing map[string]bool) []monthPlan {
	var plans []monthPlan
	for month := firstOfMonth(from); !clipDay(month, statementDay).After(through); month = month.AddDate(0, 1, 0) {
		plans = append(plans, monthPlan{Month: month, HasStatement: existing[yearMonth(month)]})
	}
	return plans
}

// statementMonths returns the set of months ("YYYY-MM") that already carry
// an Interest record for the card.
func (s *Service) statementMonths(cardID int) (map[string]bool, error) {
	rows, err := s.db.Query(s.q(`SELECT date FROM card_transactions
		WHERE credit_card_id = ? AND type = ?`), cardID, models.CardTxnInterest)
	if err != nil {
		return nil, fmt.Errorf("listing statement months for card %d: %w", cardID, err)
	}
	defer rows.Close()

	months := map[string]bool{}
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("scanning statement date: %w", err)
		}
		d, err := parseDate(date)
		if err != nil {
			return nil, err
		}
		months[yearMonth(d)] = true
	}
	return months, rows.Err()
}

// GenerateAllStatements runs GenerateStatements for every active card.
// A halt on one card does not stop the others; the halts are joined into
// the returned error.
func (s *Service) GenerateAllStatements(throughDate string) (GenerationResult, error) {
	cards, err := s.ListCards()
	if err != nil {
		return GenerationResult{}, err
	}
	var result GenerationResult
	var errs []error
	for _, card := range cards {
		if !card.IsActive {
			continue
		}
		r, err := s.GenerateStatements(card.ID, throughDate)
		result.add(r)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return result, errors.Join(errs...)
}

// generationStart returns the first month of the walk: the card's start
// date, the month of its earliest transaction, or today. The walk always
// revisits months that already carry a statement, so a missing payment can
// be backfilled on a rerun.
func (s *Service) generationStart(card models.CreditCard) (time.Time, error) {
	if card.StartDate != nil {
		start, err := parseDate(*card.StartDate)
		if err != nil {
			return time.Time{}, err
		}
		return firstOfMonth(start), nil
	}
	var earliest sql.NullString
	err := s.db.QueryRow(s.q(`SELECT MIN(date) FROM card_transactions
		WHERE credit_card_id = ?`), card.ID).Scan(&earliest)
	if err != nil {
		return time.Time{}, fmt.Errorf("finding first activity for card %d: %w", card.ID, err)
	}
	if earliest.Valid {
		earliestDate, err := parseDate(earliest.String)
		if err != nil {
			return time.Time{}, err
		}
		return firstOfMonth(earliestDate), nil
	}
	return firstOfMonth(s.now()), nil
}

// generateMonthTx produces one month's statement for a card: an Interest
// row dated on the statement day when the card carries debt, and a Payment
// scheduled a few days later. The Interest and Payment rows are
// duplicate-checked independently, so a rerun fills in whichever half is
// missing without touching the one that exists. cleared reports that the
// projected balance reached zero, which ends the walk.
func (s *Service) generateMonthTx(tx dbtx, card models.CreditCard, month time.Time) (stmtCreated, payCreated int, cleared bool, err error) {
	statementDate := clipDay(month, card.StatementDay)
	stmtDateStr := statementDate.Format(models.DateLayout)

	var statementID int
	hasStatement := true
	err = tx.QueryRow(s.q(`SELECT id FROM card_transactions
		WHERE credit_card_id = ? AND type = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, id ASC LIMIT 1`),
		card.ID, models.CardTxnInterest,
		firstOfMonth(month).Format(models.DateLayout),
		monthEnd(month).Format(models.DateLayout)).Scan(&statementID)
	if errors.Is(err, sql.ErrNoRows) {
		hasStatement = false
	} else if err != nil {
		return 0, 0, false, fmt.Errorf("checking for existing statement: %w", err)
	}

	// Opening balance: everything posted strictly before the statement day.
	dayBefore := statementDate.AddDate(0, 0, -1).Format(models.DateLayout)
	opening, err := s.cardBalanceAsOf(tx, card.ID, dayBefore)
	if err != nil {
		return 0, 0, false, err
	}

	interest := decimal.Zero
	if !hasStatement {
		if !opening.IsNegative() {
			return 0, 0, true, nil
		}

		rate := card.MonthlyRate
		isPromo := false
		promo, err := s.promotionalRate(tx, card.ID, models.PromoPurchase, stmtDateStr)
		if err != nil {
			return 0, 0, false, err
		}
		if promo != nil {
			rate = promo.Rate
			isPromo = true
		}

		interest = opening.Abs().Mul(rate).Round(2)
		if err := tx.QueryRow(s.q(`INSERT INTO card_transactions
			(credit_card_id, date, amount, type, description, applied_rate, is_promotional_rate)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			card.ID, stmtDateStr, interest.Neg(), models.CardTxnInterest,
			fmt.Sprintf("Interest at %s%%", rate.Mul(decimal.NewFromInt(100))),
			rate, isPromo).Scan(&statementID); err != nil {
			return 0, 0, false, fmt.Errorf("creating interest record: %w", err)
		}
		stmtCreated = 1
	}

	var existingPayments int
	if err := tx.QueryRow(s.q(`SELECT COUNT(*) FROM card_transactions
		WHERE statement_id = ? AND type = ?`),
		statementID, models.CardTxnPayment).Scan(&existingPayments); err != nil {
		return 0, 0, false, fmt.Errorf("checking for existing payment: %w", err)
	}

	balanceAfter := opening.Sub(interest)
	if existingPayments == 0 && opening.IsNegative() {
		payment := paymentAmount(card, opening.Abs())
		if payment.IsPositive() {
			payDate := statementDate.AddDate(0, 0, s.cfg.PaymentOffsetDays).Format(models.DateLayout)
			desc := fmt.Sprintf("%s payment", card.Name)
			if card.PaymentAccountID != nil {
				if _, _, err := s.createLinkedPaymentTx(tx, LinkedPaymentInput{
					CreditCardID: card.ID,
					AccountID:    *card.PaymentAccountID,
					Date:         payDate,
					Amount:       payment,
					Description:  &desc,
				}, &statementID, false); err != nil {
					return 0, 0, false, err
				}
			} else {
				if _, err := tx.Exec(s.q(`INSERT INTO card_transactions
					(credit_card_id, date, amount, type, description, statement_id)
					VALUES (?, ?, ?, ?, ?, ?)`),
					card.ID, payDate, payment, models.CardTxnPayment, &desc, statementID); err != nil {
					return 0, 0, false, fmt.Errorf("creating payment record: %w", err)
				}
			}
			payCreated = 1
			balanceAfter = balanceAfter.Add(payment)
		}
	}

	if stmtCreated > 0 || payCreated > 0 {
		if err := s.recalcCardTx(tx, card.ID); err != nil {
			return 0, 0, false, err
		}
	}
	return stmtCreated, payCreated, stmtCreated > 0 && !balanceAfter.IsNegative(), nil
}

// paymentAmount returns the payment for the owed (positive) balance: the
// card's set payment when configured, otherwise the minimum payment
// fraction, capped at the amount owed.
func paymentAmount(card models.CreditCard, owed decimal.Decimal) decimal.Decimal {
	if !owed.IsPositive() {
		return decimal.Zero
	}
	payment := owed.Mul(card.MinPaymentPercent)
	if card.SetPayment != nil {
		payment = *card.SetPayment
	}
	return decimal.Min(payment, owed).Round(2)
}

// RegenerateStatements rebuilds a card's forecasted statement records in
// three phases: tear down unlocked future statements and their payment
// chains, restore missing payments on locked statements, then run the
// normal forward walk. Locked (is_fixed) rows are never touched.
func (s *Service) RegenerateStatements(cardID int, throughDate string) (GenerationResult, error) {
	card, err := s.GetCard(cardID)
	if err != nil {
		return GenerationResult{}, err
	}

	var deleted int
	err = s.withTx(func(tx *sql.Tx) error {
		deleted, err = s.deleteUnlockedStatementsTx(tx, card)
		return err
	})
	if err != nil {
		return GenerationResult{}, err
	}

	var restored int
	err = s.withTx(func(tx *sql.Tx) error {
		restored, err = s.restoreLockedPaymentsTx(tx, card)
		return err
	})
	if err != nil {
		return GenerationResult{CardsProcessed: 1, DeletedRecords: deleted}, err
	}

	result, err := s.GenerateStatements(cardID, throughDate)
	result.DeletedRecords += deleted
	result.PaymentsCreated += restored
	return result, err
}

// RegenerateAllStatements runs RegenerateStatements for every active card.
func (s *Service) RegenerateAllStatements(throughDate string) (GenerationResult, error) {
	cards, err := s.ListCards()
	if err != nil {
		return GenerationResult{}, err
	}
	var result GenerationResult
	var errs []error
	for _, card := range cards {
		if !card.IsActive {
			continue
		}
		r, err := s.RegenerateStatements(card.ID, throughDate)
		result.add(r)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return result, errors.Join(errs...)
}

// deleteUnlockedStatementsTx removes every future, unlocked Interest row
// together with the unlocked payments hanging off it, bank sides included.
// A statement whose payment is locked is left alone wholesale, so the
// locked payment keeps its anchor. Returns the number of rows removed
// across both ledgers.
func (s *Service) deleteUnlockedStatementsTx(tx dbtx, card models.CreditCard) (int, error) {
	today := s.now().Format(models.DateLayout)
	rows, err := tx.Query(s.q(`SELECT id FROM card_transactions
		WHERE credit_card_id = ? AND type = ? AND is_fixed = 0 AND date >= ?
		ORDER BY date ASC, id ASC`), card.ID, models.CardTxnInterest, today)
	if err != nil {
		return 0, fmt.Errorf("listing statements for card %d: %w", card.ID, err)
	}
	var statementIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning statement id: %w", err)
		}
		statementIDs = append(statementIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterating statements: %w", err)
	}
	rows.Close()

	deleted := 0
	accounts := map[int]time.Time{}
	for _, stmtID := range statementIDs {
		payments, err := s.statementPaymentsTx(tx, stmtID)
		if err != nil {
			return 0, err
		}
		locked := false
		for _, p := range payments {
			if p.IsFixed {
				locked = true
				break
			}
		}
		if locked {
			continue
		}
		for _, p := range payments {
			if p.BankTransactionID != nil {
				bank, err := s.getTransaction(tx, *p.BankTransactionID)
				if err == nil {
					if _, err := tx.Exec(s.q("DELETE FROM card_transactions WHERE id = ?"), p.ID); err != nil {
						return 0, fmt.Errorf("deleting payment %d: %w", p.ID, err)
					}
					if _, err := tx.Exec(s.q("DELETE FROM transactions WHERE id = ?"), bank.ID); err != nil {
						return 0, fmt.Errorf("deleting bank side %d: %w", bank.ID, err)
					}
					date, err := parseDate(bank.TransactionDate)
					if err != nil {
						return 0, err
					}
					month := firstOfMonth(date)
					if cur, ok := accounts[bank.AccountID]; !ok || month.Before(cur) {
						accounts[bank.AccountID] = month
					}
					deleted += 2
					continue
				}
				if !errors.Is(err, ErrNotFound) {
					return 0, err
				}
			}
			if _, err := tx.Exec(s.q("DELETE FROM card_transactions WHERE id = ?"), p.ID); err != nil {
				return 0, fmt.Errorf("deleting payment %d: %w", p.ID, err)
			}
			deleted++
		}
		if _, err := tx.Exec(s.q("DELETE FROM card_transactions WHERE id = ?"), stmtID); err != nil {
			return 0, fmt.Errorf("deleting statement %d: %w", stmtID, err)
		}
		deleted++
	}

	if deleted > 0 {
		if err := s.recalcCardTx(tx, card.ID); err != nil {
			return 0, err
		}
		for accountID, from := range accounts {
			if err := s.recalcAccountTx(tx, accountID); err != nil {
				return 0, err
			}
			if err := s.updateMonthlyFromTx(tx, accountID, from); err != nil {
				return 0, err
			}
		}
	}
	return deleted, nil
}

// restoreLockedPaymentsTx creates the missing Payment for every locked
// Interest row that has none, sized from the balance the card held going
// into the statement day.
func (s *Service) restoreLockedPaymentsTx(tx dbtx, card models.CreditCard) (int, error) {
	rows, err := tx.Query(s.q(`SELECT s.id, s.date FROM card_transactions s
		WHERE s.credit_card_id = ? AND s.type = ? AND s.is_fixed = 1
		AND NOT EXISTS (SELECT 1 FROM card_transactions p WHERE p.statement_id = s.id AND p.type = ?)
		ORDER BY s.date ASC, s.id ASC`),
		card.ID, models.CardTxnInterest, models.CardTxnPayment)
	if err != nil {
		return 0, fmt.Errorf("listing locked statements for card %d: %w", card.ID, err)
	}
	type stmt struct {
		id   int
		date string
	}
	var stmts []stmt
	for rows.Next() {
		var st stmt
		if err := rows.Scan(&st.id, &st.date); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning locked statement: %w", err)
		}
		stmts = append(stmts, st)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterating locked statements: %w", err)
	}
	rows.Close()

	restored := 0
	for _, st := range stmts {
		stmtDate, err := parseDate(st.date)
		if err != nil {
			return 0, err
		}
		// Same opening-balance basis as the forward walk: everything
		// posted strictly before the statement day.
		dayBefore := stmtDate.AddDate(0, 0, -1).Format(models.DateLayout)
		opening, err := s.cardBalanceAsOf(tx, card.ID, dayBefore)
		if err != nil {
			return 0, err
		}
		payment := paymentAmount(card, opening.Neg())
		if !payment.IsPositive() {
			continue
		}
		payDate := stmtDate.AddDate(0, 0, s.cfg.PaymentOffsetDays).Format(models.DateLayout)
		desc := fmt.Sprintf("%s payment", card.Name)
		stmtID := st.id
		if card.PaymentAccountID != nil {
			if _, _, err := s.createLinkedPaymentTx(tx, LinkedPaymentInput{
				CreditCardID: card.ID,
				AccountID:    *card.PaymentAccountID,
				Date:         payDate,
				Amount:       payment,
				Description:  &desc,
			}, &stmtID, false); err != nil {
				return 0, err
			}
		} else {
			if _, err := tx.Exec(s.q(`INSERT INTO card_transactions
				(credit_card_id, date, amount, type, description, statement_id)
				VALUES (?, ?, ?, ?, ?, ?)`),
				card.ID, payDate, payment, models.CardTxnPayment, &desc, stmtID); err != nil {
				return 0, fmt.Errorf("restoring payment for statement %d: %w", stmtID, err)
			}
		}
		restored++
	}
	if restored > 0 {
		if err := s.recalcCardTx(tx, card.ID); err != nil {
			return 0, err
		}
	}
	return restored, nil
}

// statementPaymentsTx returns the Payment rows tied to a statement.
func (s *Service) statementPaymentsTx(tx dbtx, statementID int) ([]models.CardTransaction, error) {
	rows, err := tx.Query(s.q("SELECT "+cardTxnColumns+` FROM card_transactions
		WHERE statement_id = ? AND type = ?`), statementID, models.CardTxnPayment)
	if err != nil {
		return nil, fmt.Errorf("listing payments for statement %d: %w", statementID, err)
	}
	defer rows.Close()

	var payments []models.CardTransaction
	for rows.Next() {
		p, err := scanCardTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
