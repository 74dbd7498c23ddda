package services

import (
	"errors"
	"testing"

	"github.com/satheeshds/ledger/models"
)

func cardTxnsOfType(t *testing.T, s *Service, cardID int, txnType string) []models.CardTransaction {
	t.Helper()
	all, err := s.ListCardTransactions(cardID)
	if err != nil {
		t.Fatal(err)
	}
	var out []models.CardTransaction
	for _, txn := range all {
		if txn.Type == txnType {
			out = append(out, txn)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }

func TestInterestChargedOnStatementDay(t *testing.T) {
	s := newTestService(t)
	card := mustCard(t, s, models.CreditCardInput{
		MonthlyRate: dec(t, "0.05"),
		StartDate:   strPtr("2025-03-01"),
	})
	mustCardTxn(t, s, card.ID, "-1815.46", "2025-03-05", models.CardTxnPurchase)

	result, err := s.GenerateStatements(card.ID, "2025-03-31")
	if err != nil {
		t.Fatal(err)
	}
	if result.StatementsCreated != 1 {
		t.Fatalf("statements created = %d, want 1", result.StatementsCreated)
	}
	if result.LastGenerated != "2025-03" {
		t.Errorf("last generated = %s, want 2025-03", result.LastGenerated)
	}

	interest := cardTxnsOfType(t, s, card.ID, models.CardTxnInterest)
	if len(interest) != 1 {
		t.Fatalf("got %d interest rows, want 1", len(interest))
	}
	assertDecimal(t, interest[0].Amount, "-90.77", "interest amount")
	if interest[0].Date != "2025-03-10" {
		t.Errorf("interest date = %s, want 2025-03-10", interest[0].Date)
	}
	if interest[0].AppliedRate == nil {
		t.Fatal("interest row missing applied rate")
	}
	assertDecimal(t, *interest[0].AppliedRate, "0.05", "applied rate")
	if interest[0].IsPromotionalRate {
		t.Error("standard rate flagged as promotional")
	}
}

func TestNoStatementWithoutDebt(t *testing.T) {
	s := newTestService(t)
	card := mustCard(t, s, models.CreditCardInput{
		MonthlyRate: dec(t, "0.05"),
		StartDate:   strPtr("2025-03-01"),
	})

	result, err := s.GenerateStatements(card.ID, "2025-05-31")
	if err != nil {
		t.Fatal(err)
	}
	if result.StatementsCreated != 0 {
		t.Fatalf("statements created = %d, want 0", result.StatementsCreated)
	}
}

func TestGenerateIsDuplicateSafe(t *testing.T) {
	s := newTestService(t)
	card := mustCard(t, s, models.CreditCardInput{
		MonthlyRate: dec(t, "0.05"),
		StartDate:   strPtr("2025-03-01"),
	})
	mustCardTxn(t, s, card.ID, "-1000", "2025-03-05", models.CardTxnPurchase)

	if _, err := s.GenerateStatements(card.ID, "2025-03-31"); err != nil {
		t.Fatal(err)
	}
	result, err := s.GenerateStatements(card.ID, "2025-03-31")
	if err != nil {
		t.Fatal(err)
	}
	if result.StatementsCreated != 0 {
		t.Fatalf("rerun created %d statements, want 0", result.StatementsCreated)
	}
	if got := cardTxnsOfType(t, s, card.ID, models.CardTxnInterest); len(got) != 1 {
		t.Fatalf("got %d interest rows after rerun, want 1", len(got))
	}
}

func TestRerunRebuildsDeletedPayment(t *testing.T) {
	s := newTestService(t)
	setPayment := dec(t, "100")
	card := mustCard(t, s, models.CreditCardInput{
		SetPayment: &setPayment,
		StartDate:  strPtr("2025-03-01"),
	})
	mustCardTxn(t, s, card.ID, "-500", "2025-03-01", models.CardTxnPurchase)

	if _, err := s.GenerateStatements(card.ID, "2025-03-31"); err != nil {
		t.Fatal(err)
	}
	payments := cardTxnsOfType(t, s, card.ID, models.CardTxnPayment)
	if len(payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(payments))
	}
	if _, err := s.db.Exec("DELETE FROM card_transactions WHERE id = ?", payments[0].ID); err != nil {
		t.Fatal(err)
	}

	result, err := s.GenerateStatements(card.ID, "2025-03-31")
	if err != nil {
		t.Fatal(err)
	}
	// The interest row survives the rerun; only the missing payment is rebuilt.
	if result.StatementsCreated != 0 {
		t.Errorf("rerun created %d statements, want 0", result.StatementsCreated)
	}
	if result.PaymentsCreated != 1 {
		t.Errorf("rerun created %d payments, want 1", result.PaymentsCreated)
	}
	if got := cardTxnsOfType(t, s, card.ID, models.CardTxnInterest); len(got) != 1 {
		t.Fatalf("got %d interest rows after rerun, want 1", len(got))
	}
	payments = cardTxnsOfType(t, s, card.ID, models.CardTxnPayment)
	if len(payments) != 1 {
		t.Fatalf("got %d payments after rerun, want 1", len(payments))
	}
	assertDecimal(t, payments[0].Amount, "100", "rebuilt payment")
	if payments[0].StatementID == nil {
		t.Error("rebuilt payment not tied to the surviving statement")
	}
}

func TestSetPaymentGeneratesCardOnlyPayment(t *testing.T) {
	s := newTestService(t)
	setPayment := dec(t, "200")
	card := mustCard(t, s, models.CreditCardInput{
		SetPayment: &setPayment,
		StartDate:  strPtr("2025-03-01"),
	})
	mustCardTxn(t, s, card.ID, "-500", "2025-03-01", models.CardTxnPurchase)

	result, err := s.GenerateStatements(card.ID, "2025-03-31")
	if err != nil {
		t.Fatal(err)
	}
	if result.PaymentsCreated != 1 {
		t.Fatalf("payments created = %d, want 1", result.PaymentsCreated)
	}

	payments := cardTxnsOfType(t, s, card.ID, models.CardTxnPayment)
	if len(payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(payments))
	}
	assertDecimal(t, payments[0].Amount, "200", "payment amount")
	if payments[0].Date != "2025-03-15" {
		t.Errorf("payment date = %s, want 2025-03-15 (statement day + 5)", payments[0].Date)
	}
	if payments[0].StatementID == nil {
		t.Error("payment not tied to its statement")
	}
	if payments[0].BankTransactionID != nil {
		t.Error("card without payment account produced a bank side")
	}
}

func TestPaymentCappedAtBalanceStopsWalk(t *testing.T) {
	s := newTestService(t)
	setPayment := dec(t, "200")
	card := mustCard(t, s, models.CreditCardInput{
		SetPayment: &setPayment,
		StartDate:  strPtr("2025-03-01"),
	})
	mustCardTxn(t, s, card.ID, "-150", "2025-03-01", models.CardTxnPurchase)

	result, err := s.GenerateStatements(card.ID, "2025-05-31")
	if err != nil {
		t.Fatal(err)
	}
	// The March payment clears the debt, so April and May produce nothing.
	if result.StatementsCreated != 1 {
		t.Fatalf("statements created = %d, want 1", result.StatementsCreated)
	}
	payments := cardTxnsOfType(t, s, card.ID, models.CardTxnPayment)
	if len(payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(payments))
	}
	assertDecimal(t, payments[0].Amount, "150", "payment capped at the amount owed")
}

func TestMinimumPaymentPercent(t *testing.T) {
	s := newTestService(t)
	card := mustCard(t, s, models.CreditCardInput{
		MinPaymentPercent: dec(t, "0.02"),
		StartDate:         strPtr("2025-03-01"),
	})
	mustCardTxn(t, s, card.ID, "-1000", "2025-03-01", models.CardTxnPurchase)

	if _, err := s.GenerateStatements(card.ID, "2025-03-31"); err != nil {
		t.Fatal(err)
	}
	payments := cardTxnsOfType(t, s, card.ID, models.CardTxnPayment)
	if len(payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(payments))
	}
	assertDecimal(t, payments[0].Amount, "20", "minimum payment")
}

func TestMinimumPaymentComputedOnStatementBalance(t *testing.T) {
	s := newTestService(t)
	card := mustCard(t, s, models.CreditCardInput{
		MonthlyRate:       dec(t, "0.05"),
		MinPaymentPercent: dec(t, "0.05"),
		StartDate:         strPtr("2025-03-01"),
	})
	mustCardTxn(t, s, card.ID, "-1815.46", "2025-03-05", models.CardTxnPurchase)

	if _, err := s.GenerateStatements(card.ID, "2025-03-31"); err != nil {
		t.Fatal(err)
	}
	payments := cardTxnsOfType(t, s, card.ID, models.CardTxnPayment)
	if len(payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(payments))
	}
	// 5% of the 1815.46 owed on the statement day.
	assertDecimal(t, payments[0].Amount, "90.77", "minimum payment")
}

func TestPlanStatementMonths(t *testing.T) {
	from, _ := parseYearMonth("2025-03")
	through, _ := parseDate("2025-06-20")

	plans := planStatementMonths(10, from, through, map[string]bool{"2025-04": true})
	if len(plans) != 4 {
		t.Fatalf("got %d plans, want 4 (March through June; existing months stay in the plan)", len(plans))
	}
	wantExisting := map[string]bool{"2025-03": false, "2025-04": true, "2025-05": false, "2025-06": false}
	for _, p := range plans {
		ym := p.Month.Format("2006-01")
		if p.HasStatement != wantExisting[ym] {
			t.Errorf("plan for %s: has statement = %v, want %v", ym, p.HasStatement, wantExisting[ym])
		}
	}

	// Statement day past the through date cuts the final month off.
	through, _ = parseDate("2025-06-05")
	plans = planStatementMonths(10, from, through, nil)
	if len(plans) != 3 {
		t.Fatalf("got %d plans, want 3 (June's statement day is past the cutoff)", len(plans))
	}
}

func TestPromotionalRateApplies(t *testing.T) {
	s := newTestService(t)
	card := mustCard(t, s, models.CreditCardInput{
		MonthlyRate: dec(t, "0.05"),
		StartDate:   strPtr("2025-03-01"),
	})
	if _, err := s.CreatePromotion(card.ID, models.CardPromotionInput{
		PromoType: models.PromoPurchase,
		Rate:      dec(t, "0"),
		StartDate: "2025-03-01",
		EndDate:   "2025-03-31",
	}); err != nil {
		t.Fatal(err)
	}
	mustCardTxn(t, s, card.ID, "-1000", "2025-03-05", models.CardTxnPurchase)

	if _, err := s.GenerateStatements(card.ID, "2025-04-30"); err != nil {
		t.Fatal(err)
	}
	interest := cardTxnsOfType(t, s, card.ID, models.CardTxnInterest)
	if len(interest) != 2 {
		t.Fatalf("got %d interest rows, want 2", len(interest))
	}
	// Newest first: April at the standard rate, March inside the window.
	assertDecimal(t, interest[0].Amount, "-50", "April interest")
	if interest[0].IsPromotionalRate {
		t.Error("April interest flagged as promotional")
	}
	assertDecimal(t, interest[1].Amount, "0", "March interest inside the promo window")
	if !interest[1].IsPromotionalRate {
		t.Error("March interest not flagged as promotional")
	}
	if interest[1].AppliedRate == nil {
		t.Fatal("March interest missing applied rate")
	}
	assertDecimal(t, *interest[1].AppliedRate, "0", "March applied rate")
}

func TestBalanceTransferWindowLeavesPurchaseRateAlone(t *testing.T) {
	s := newTestService(t)
	card := mustCard(t, s, models.CreditCardInput{
		MonthlyRate: dec(t, "0.05"),
		StartDate:   strPtr("2025-03-01"),
	})
	if _, err := s.CreatePromotion(card.ID, models.CardPromotionInput{
		PromoType: models.PromoBalanceTransfer,
		Rate:      dec(t, "0"),
		StartDate: "2025-03-01",
		EndDate:   "2025-03-31",
	}); err != nil {
		t.Fatal(err)
	}
	mustCardTxn(t, s, card.ID, "-1000", "2025-03-05", models.CardTxnPurchase)

	if _, err := s.GenerateStatements(card.ID, "2025-03-31"); err != nil {
		t.Fatal(err)
	}
	interest := cardTxnsOfType(t, s, card.ID, models.CardTxnInterest)
	if len(interest) != 1 {
		t.Fatalf("got %d interest rows, want 1", len(interest))
	}
	// The 0% window only covers balance transfers; purchase interest
	// stays on the card's standard rate.
	assertDecimal(t, interest[0].Amount, "-50", "March interest")
	if interest[0].IsPromotionalRate {
		t.Error("purchase interest flagged as promotional by a balance-transfer window")
	}
	if interest[0].AppliedRate == nil {
		t.Fatal("interest row missing applied rate")
	}
	assertDecimal(t, *interest[0].AppliedRate, "0.05", "applied rate")
}

func TestGeneratedPaymentLandsOnPaymentAccount(t *testing.T) {
	s := newTestService(t)
	a := mustAccount(t, s, "Current")
	setPayment := dec(t, "100")
	card := mustCard(t, s, models.CreditCardInput{
		SetPayment:       &setPayment,
		PaymentAccountID: &a.ID,
		StartDate:        strPtr("2025-03-01"),
	})
	mustCardTxn(t, s, card.ID, "-400", "2025-03-01", models.CardTxnPurchase)

	if _, err := s.GenerateStatements(card.ID, "2025-03-31"); err != nil {
		t.Fatal(err)
	}

	payments := cardTxnsOfType(t, s, card.ID, models.CardTxnPayment)
	if len(payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(payments))
	}
	if payments[0].BankTransactionID == nil {
		t.Fatal("generated payment has no bank side")
	}
	bank, err := s.GetTransaction(*payments[0].BankTransactionID)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, bank.Amount, "100", "bank side amount")
	if bank.CreditCardID == nil || *bank.CreditCardID != card.ID {
		t.Error("bank side not marked with the card")
	}

	account, err := s.GetAccount(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, account.Balance, "-100", "account balance after the scheduled payment")
}

func TestRegenerateRebuildsFutureStatements(t *testing.T) {
	s := newTestService(t)
	card := mustCard(t, s, models.CreditCardInput{
		MonthlyRate: dec(t, "0.05"),
		StartDate:   strPtr("2025-05-01"),
	})
	mustCardTxn(t, s, card.ID, "-1000", "2025-05-01", models.CardTxnPurchase)

	if _, err := s.GenerateStatements(card.ID, "2025-08-31"); err != nil {
		t.Fatal(err)
	}
	if got := cardTxnsOfType(t, s, card.ID, models.CardTxnInterest); len(got) != 4 {
		t.Fatalf("got %d interest rows, want 4 (May through August)", len(got))
	}

	result, err := s.RegenerateStatements(card.ID, "2025-08-31")
	if err != nil {
		t.Fatal(err)
	}
	// July and August are in the future of the frozen clock (2025-06-15)
	// and unlocked, so they are torn down and rebuilt.
	if result.DeletedRecords != 2 {
		t.Errorf("deleted records = %d, want 2", result.DeletedRecords)
	}
	if result.StatementsCreated != 2 {
		t.Errorf("statements created = %d, want 2", result.StatementsCreated)
	}
	if got := cardTxnsOfType(t, s, card.ID, models.CardTxnInterest); len(got) != 4 {
		t.Fatalf("got %d interest rows after regenerate, want 4", len(got))
	}
}

func TestRegenerateRestoresPaymentOnLockedStatement(t *testing.T) {
	s := newTestService(t)
	setPayment := dec(t, "100")
	card := mustCard(t, s, models.CreditCardInput{
		SetPayment: &setPayment,
		StartDate:  strPtr("2025-04-01"),
	})
	mustCardTxn(t, s, card.ID, "-500", "2025-04-01", models.CardTxnPurchase)

	// A locked statement whose payment was deleted by hand.
	if _, err := s.db.Exec(`INSERT INTO card_transactions
		(credit_card_id, date, amount, type, applied_rate, is_fixed)
		VALUES (?, '2025-04-10', 0, 'Interest', 0, 1)`, card.ID); err != nil {
		t.Fatal(err)
	}

	result, err := s.RegenerateStatements(card.ID, "2025-04-30")
	if err != nil {
		t.Fatal(err)
	}
	if result.PaymentsCreated != 1 {
		t.Fatalf("payments created = %d, want 1", result.PaymentsCreated)
	}
	payments := cardTxnsOfType(t, s, card.ID, models.CardTxnPayment)
	if len(payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(payments))
	}
	assertDecimal(t, payments[0].Amount, "100", "restored payment")
	if payments[0].Date != "2025-04-15" {
		t.Errorf("restored payment date = %s, want 2025-04-15", payments[0].Date)
	}
}

func TestRestoredPaymentUsesOpeningBalance(t *testing.T) {
	s := newTestService(t)
	card := mustCard(t, s, models.CreditCardInput{
		MinPaymentPercent: dec(t, "0.1"),
		StartDate:         strPtr("2025-04-01"),
	})
	mustCardTxn(t, s, card.ID, "-500", "2025-04-01", models.CardTxnPurchase)

	// A locked statement with its own interest charge and no payment.
	if _, err := s.db.Exec(`INSERT INTO card_transactions
		(credit_card_id, date, amount, type, applied_rate, is_fixed)
		VALUES (?, '2025-04-10', -50, 'Interest', 0.05, 1)`, card.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := s.RegenerateStatements(card.ID, "2025-04-30"); err != nil {
		t.Fatal(err)
	}
	payments := cardTxnsOfType(t, s, card.ID, models.CardTxnPayment)
	if len(payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(payments))
	}
	// 10% of the 500 owed going into the statement day, not of the 550
	// that includes the statement's own interest charge.
	assertDecimal(t, payments[0].Amount, "50", "restored payment")
}

func TestRegenerateKeepsStatementWithLockedPayment(t *testing.T) {
	s := newTestService(t)
	setPayment := dec(t, "100")
	card := mustCard(t, s, models.CreditCardInput{
		MonthlyRate: dec(t, "0.05"),
		SetPayment:  &setPayment,
		StartDate:   strPtr("2025-07-01"),
	})
	mustCardTxn(t, s, card.ID, "-500", "2025-07-01", models.CardTxnPurchase)

	if _, err := s.GenerateStatements(card.ID, "2025-07-31"); err != nil {
		t.Fatal(err)
	}
	payments := cardTxnsOfType(t, s, card.ID, models.CardTxnPayment)
	if len(payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(payments))
	}
	if _, err := s.ToggleCardTransactionFixed(payments[0].ID); err != nil {
		t.Fatal(err)
	}

	result, err := s.RegenerateStatements(card.ID, "2025-07-31")
	if err != nil {
		t.Fatal(err)
	}
	// The July statement is unlocked and in the future, but its payment is
	// locked: the whole pair stays put and nothing is regenerated on top.
	if result.DeletedRecords != 0 {
		t.Errorf("deleted records = %d, want 0", result.DeletedRecords)
	}
	if result.PaymentsCreated != 0 {
		t.Errorf("payments created = %d, want 0", result.PaymentsCreated)
	}
	interest := cardTxnsOfType(t, s, card.ID, models.CardTxnInterest)
	if len(interest) != 1 {
		t.Fatalf("got %d interest rows after regenerate, want 1", len(interest))
	}
	payments = cardTxnsOfType(t, s, card.ID, models.CardTxnPayment)
	if len(payments) != 1 {
		t.Fatalf("got %d payments after regenerate, want 1", len(payments))
	}
	if payments[0].StatementID == nil {
		t.Error("locked payment lost its statement anchor")
	}
}

func TestHaltErrorMatchesKind(t *testing.T) {
	err := &HaltError{CardID: 1, Month: "2025-03", Err: errors.New("boom")}
	if !errors.Is(err, ErrGenerationHalted) {
		t.Error("HaltError does not match ErrGenerationHalted")
	}
}
