package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/satheeshds/ledger/models"
)

const cardColumns = `id, name, credit_limit, annual_rate, monthly_rate, min_payment_percent,
	set_payment, statement_day, payment_account_id, start_date, is_active,
	current_balance, available_credit, created_at, updated_at`

func scanCard(r scanner) (models.CreditCard, error) {
	var c models.CreditCard
	err := r.Scan(&c.ID, &c.Name, &c.CreditLimit, &c.AnnualRate, &c.MonthlyRate,
		&c.MinPaymentPercent, &c.SetPayment, &c.StatementDay, &c.PaymentAccountID,
		&c.StartDate, &c.IsActive, &c.CurrentBalance, &c.AvailableCredit,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListCards returns all credit cards, active ones first.
func (s *Service) ListCards() ([]models.CreditCard, error) {
	rows, err := s.db.Query("SELECT " + cardColumns + " FROM credit_cards ORDER BY is_active DESC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	defer rows.Close()

	cards := []models.CreditCard{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (s *Service) GetCard(id int) (models.CreditCard, error) {
	c, err := scanCard(s.db.QueryRow(s.q("SELECT "+cardColumns+" FROM credit_cards WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.CreditCard{}, fmt.Errorf("card %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.CreditCard{}, fmt.Errorf("loading card %d: %w", id, err)
	}
	return c, nil
}

func (s *Service) CreateCard(in models.CreditCardInput) (models.CreditCard, error) {
	if in.PaymentAccountID != nil {
		if _, err := s.GetAccount(*in.PaymentAccountID); err != nil {
			return models.CreditCard{}, err
		}
	}
	var id int
	err := s.db.QueryRow(s.q(`INSERT INTO credit_cards
		(name, credit_limit, annual_rate, monthly_rate, min_payment_percent, set_payment,
		 statement_day, payment_account_id, start_date, is_active, current_balance, available_credit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?) RETURNING id`),
		in.Name, in.CreditLimit, in.AnnualRate, in.MonthlyRate, in.MinPaymentPercent,
		in.SetPayment, in.StatementDay, in.PaymentAccountID, in.StartDate, in.Active(),
		in.CreditLimit).Scan(&id)
	if err != nil {
		return models.CreditCard{}, fmt.Errorf("creating card: %w", err)
	}
	return s.GetCard(id)
}

// UpdateCard persists the new settings and recalculates the card, since a
// changed credit limit shifts available credit on every transaction.
func (s *Service) UpdateCard(id int, in models.CreditCardInput) (models.CreditCard, error) {
	if in.PaymentAccountID != nil {
		if _, err := s.GetAccount(*in.PaymentAccountID); err != nil {
			return models.CreditCard{}, err
		}
	}
	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(s.q(`UPDATE credit_cards SET name = ?, credit_limit = ?,
			annual_rate = ?, monthly_rate = ?, min_payment_percent = ?, set_payment = ?,
			statement_day = ?, payment_account_id = ?, start_date = ?, is_active = ?,
			updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
			in.Name, in.CreditLimit, in.AnnualRate, in.MonthlyRate, in.MinPaymentPercent,
			in.SetPayment, in.StatementDay, in.PaymentAccountID, in.StartDate, in.Active(), id)
		if err != nil {
			return fmt.Errorf("updating card %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("card %d: %w", id, ErrNotFound)
		}
		return s.recalcCardTx(tx, id)
	})
	if err != nil {
		return models.CreditCard{}, err
	}
	return s.GetCard(id)
}

// DeleteCard removes a card. Cards with transactions cannot be deleted;
// deactivate them instead. Promotions are removed with the card.
func (s *Service) DeleteCard(id int) error {
	return s.withTx(func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRow(s.q("SELECT COUNT(*) FROM card_transactions WHERE credit_card_id = ?"), id).Scan(&n); err != nil {
			return fmt.Errorf("counting transactions for card %d: %w", id, err)
		}
		if n > 0 {
			return fmt.Errorf("card %d has %d transactions: %w", id, n, ErrReferentialConflict)
		}
		if _, err := tx.Exec(s.q("DELETE FROM card_promotions WHERE credit_card_id = ?"), id); err != nil {
			return fmt.Errorf("deleting promotions for card %d: %w", id, err)
		}
		res, err := tx.Exec(s.q("DELETE FROM credit_cards WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("deleting card %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("card %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

const promoColumns = "id, credit_card_id, promo_type, rate, start_date, end_date, notes, created_at"

func scanPromotion(r scanner) (models.CardPromotion, error) {
	var p models.CardPromotion
	err := r.Scan(&p.ID, &p.CreditCardID, &p.PromoType, &p.Rate, &p.StartDate, &p.EndDate, &p.Notes, &p.CreatedAt)
	return p, err
}

// ListPromotions returns a card's promotional windows, newest first.
func (s *Service) ListPromotions(cardID int) ([]models.CardPromotion, error) {
	if _, err := s.GetCard(cardID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(s.q("SELECT "+promoColumns+` FROM card_promotions
		WHERE credit_card_id = ? ORDER BY start_date DESC, id DESC`), cardID)
	if err != nil {
		return nil, fmt.Errorf("listing promotions for card %d: %w", cardID, err)
	}
	defer rows.Close()

	promos := []models.CardPromotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning promotion: %w", err)
		}
		promos = append(promos, p)
	}
	return promos, rows.Err()
}

func (s *Service) CreatePromotion(cardID int, in models.CardPromotionInput) (models.CardPromotion, error) {
	if _, err := s.GetCard(cardID); err != nil {
		return models.CardPromotion{}, err
	}
	var id int
	err := s.db.QueryRow(s.q(`INSERT INTO card_promotions
		(credit_card_id, promo_type, rate, start_date, end_date, notes)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		cardID, in.PromoType, in.Rate, in.StartDate, in.EndDate, in.Notes).Scan(&id)
	if err != nil {
		return models.CardPromotion{}, fmt.Errorf("creating promotion for card %d: %w", cardID, err)
	}
	p, err := scanPromotion(s.db.QueryRow(s.q("SELECT "+promoColumns+" FROM card_promotions WHERE id = ?"), id))
	if err != nil {
		return models.CardPromotion{}, fmt.Errorf("loading promotion %d: %w", id, err)
	}
	return p, nil
}

func (s *Service) DeletePromotion(cardID, promoID int) error {
	res, err := s.db.Exec(s.q("DELETE FROM card_promotions WHERE id = ? AND credit_card_id = ?"), promoID, cardID)
	if err != nil {
		return fmt.Errorf("deleting promotion %d: %w", promoID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("promotion %d on card %d: %w", promoID, cardID, ErrNotFound)
	}
	return nil
}

// promotionalRate returns the promo rate of the given type covering the
// given date, if any. Purchase and balance-transfer windows are separate
// tracks; a balance-transfer window never discounts purchase interest.
// When windows of the same type overlap, the most recently started one wins.
func (s *Service) promotionalRate(tx dbtx, cardID int, promoType, date string) (*models.CardPromotion, error) {
	p, err := scanPromotion(tx.QueryRow(s.q("SELECT "+promoColumns+` FROM card_promotions
		WHERE credit_card_id = ? AND promo_type = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date DESC, id DESC LIMIT 1`), cardID, promoType, date, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up promotion for card %d on %s: %w", cardID, date, err)
	}
	return &p, nil
}
