package repository

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPgDateToTime(t *testing.T) {
	day := time.Date(2028, 12, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, day, pgDateToTime(pgtype.Date{Time: day, Valid: true}))
	assert.True(t, pgDateToTime(pgtype.Date{}).IsZero())
	assert.True(t, pgDateToTime(pgtype.Date{InfinityModifier: pgtype.Infinity, Valid: true}).IsZero())
}

func TestRowToAccount(t *testing.T) {
	acct := rowToAccount(Account{
		ID:             7,
		Active:         true,
		CurrentBalance: decimal.RequireFromString("12.34"),
		CreditLimit:    decimal.RequireFromString("1000.00"),
		CycleCredit:    decimal.Zero,
		CycleDebit:     decimal.RequireFromString("3.00"),
	})

	assert.Equal(t, int64(7), acct.ID)
	assert.True(t, acct.ExpirationDate.IsZero(), "NULL expiration means none")
	assert.Equal(t, "12.34", acct.CurrentBalance.StringFixed(2))
}
