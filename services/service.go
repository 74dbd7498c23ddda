// Package services implements the ledger consistency engine: the balance
// recalculator, the monthly balance cache, the statement generator, and the
// cross-ledger linker, all running against a shared *sql.DB.
//
// Every mutation and its cascade (recalculation + cache refresh) runs inside
// a single database transaction; the caller's create/update/delete does not
// return until the cascade has committed.
package services

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/satheeshds/ledger/db"
	"github.com/satheeshds/ledger/models"
)

// Config carries the engine tunables. Passed explicitly so no component
// reads ambient global state.
type Config struct {
	// HorizonMonths is how many months past "now" the monthly balance cache
	// is maintained.
	HorizonMonths int
	// PaymentOffsetDays is how many days after a statement date the
	// generated payment is scheduled.
	PaymentOffsetDays int
}

// DefaultConfig returns the standard tunables: a 12 month cache horizon and
// payments 5 days after the statement.
func DefaultConfig() Config {
	return Config{HorizonMonths: 12, PaymentOffsetDays: 5}
}

// Service is the engine facade. All methods are safe for a single logical
// writer per account/card; the store serializes cascades per unit of work.
type Service struct {
	db     *sql.DB
	driver string
	cfg    Config
	now    func() time.Time
}

// New creates a Service over the given database connection. driver is one of
// db.DriverSQLite or db.DriverPostgres and controls placeholder rebinding.
func New(database *sql.DB, driver string, cfg Config) *Service {
	if cfg.HorizonMonths <= 0 {
		cfg.HorizonMonths = DefaultConfig().HorizonMonths
	}
	if cfg.PaymentOffsetDays <= 0 {
		cfg.PaymentOffsetDays = DefaultConfig().PaymentOffsetDays
	}
	return &Service{db: database, driver: driver, cfg: cfg, now: time.Now}
}

// dbtx is the common surface of *sql.DB and *sql.Tx, so every engine step
// can run either standalone or inside a caller's unit of work.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// q rebinds ? placeholders to $n when running against postgres.
func (s *Service) q(query string) string {
	if s.driver != db.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func (s *Service) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ---- date and month helpers ----

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// parseYearMonth parses "YYYY-MM" into the first day of that month.
func parseYearMonth(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing year-month %q: %w", s, err)
	}
	return t, nil
}

func yearMonth(t time.Time) string {
	return t.Format("2006-01")
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// monthEnd returns the last day of t's month.
func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// clipDay returns the given day within t's month, clipped to the month's
// last day for shorter months (statement day 31 in February, etc).
func clipDay(t time.Time, day int) time.Time {
	end := monthEnd(t)
	if day > end.Day() {
		day = end.Day()
	}
	return time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, time.UTC)
}

// monthsBetween returns the number of whole calendar months from a to b
// (negative when b is before a).
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
