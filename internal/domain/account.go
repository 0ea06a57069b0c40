package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Card struct {
	Number         string
	AccountID      int64
	Active         bool
	ExpirationDate time.Time // zero means no expiration
}

// ExpiredOn reports whether the card is past its expiration date on the
// calendar day of t.
func (c *Card) ExpiredOn(t time.Time) bool {
	if c.ExpirationDate.IsZero() {
		return false
	}
	return DateOf(c.ExpirationDate).Before(DateOf(t))
}

type Account struct {
	ID             int64
	Active         bool
	CurrentBalance decimal.Decimal
	CreditLimit    decimal.Decimal
	CycleCredit    decimal.Decimal
	CycleDebit     decimal.Decimal
	ExpirationDate time.Time // zero means no expiration
}

// ExpiredBefore reports whether the calendar day of t falls after the
// account expiration date.
func (a *Account) ExpiredBefore(t time.Time) bool {
	if a.ExpirationDate.IsZero() {
		return false
	}
	return DateOf(t).After(DateOf(a.ExpirationDate))
}

type CategoryBalance struct {
	AccountID    int64
	CategoryCode string
	Balance      decimal.Decimal
}

// DateOf truncates t to its calendar day in t's own location, expressed as
// UTC midnight so dates from different zones compare by day only.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
