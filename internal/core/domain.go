package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// UnknownUser attributes imported transactions that carry no user label.
const UnknownUser = "Desconhecido"

type (
	// Kind tags a transaction as income or expense. Direction is always
	// carried by the kind, never by the sign of the amount.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is an immutable income or expense record. There is no
	// update operation; records are created and deleted only.
	Transaction struct {
		ID          string
		GroupID     string
		Description string
		Amount      Money
		Category    string
		User        string
		Date        Date
		Kind        Kind
	}

	// Category labels transactions of a single kind.
	Category struct {
		ID        string
		GroupID   string
		Name      string
		AppliesTo Kind
	}

	// Goal is a manually maintained savings target. CurrentAmount is not
	// derived from transactions.
	Goal struct {
		ID            string
		GroupID       string
		Name          string
		TargetAmount  Money
		CurrentAmount Money
		DueDate       Date
	}

	// UserLabel is a display name used to attribute transactions to a
	// household member, not an authentication identity.
	UserLabel struct {
		ID      string
		GroupID string
		Name    string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidKind   = errors.New("invalid kind")
	ErrEmptyField    = errors.New("required field is empty")
)

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MonthKey returns the YYYY-MM bucket key for monthly aggregation.
// Lexicographic order on these keys is chronological order.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// ISO returns the date formatted as an ISO calendar date.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyField
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyField
	}
	if strings.TrimSpace(t.User) == "" {
		return ErrEmptyField
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyField
	}
	return c.AppliesTo.Validate()
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyField
	}
	if g.TargetAmount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	return g.DueDate.Validate()
}

// Progress returns goal completion as a percentage clamped to [0, 100].
func (g Goal) Progress() int {
	if g.TargetAmount.Cents <= 0 {
		return 0
	}
	p := g.CurrentAmount.Cents * 100 / g.TargetAmount.Cents
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(p)
}

func (u UserLabel) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyField
	}
	return nil
}
