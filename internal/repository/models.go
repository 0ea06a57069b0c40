package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type Card struct {
	CardNumber     string
	AccountID      int64
	Active         bool
	ExpirationDate pgtype.Date
}

type Account struct {
	ID             int64
	Active         bool
	CurrentBalance decimal.Decimal
	CreditLimit    decimal.Decimal
	CycleCredit    decimal.Decimal
	CycleDebit     decimal.Decimal
	ExpirationDate pgtype.Date
}

type CategoryBalance struct {
	AccountID    int64
	CategoryCode string
	Balance      decimal.Decimal
}

type InsertPostedTransactionParams struct {
	ID           string
	RunID        string
	RecordOffset int64
	TypeCode     string
	CategoryCode string
	Source       string
	Description  string
	Amount       decimal.Decimal
	MerchantID   string
	MerchantName string
	MerchantCity string
	MerchantZip  string
	CardNumber   string
	AccountID    int64
	OriginalTs   time.Time
	ProcessedTs  time.Time
}

type InsertRejectionParams struct {
	RunID              string
	RecordOffset       int64
	Input              []byte
	FailureCode        int32
	FailureDescription string
	RejectedAt         time.Time
}

type UpdateAccountBalancesParams struct {
	ID             int64
	CurrentBalance decimal.Decimal
	CycleCredit    decimal.Decimal
	CycleDebit     decimal.Decimal
}

type UpdateCategoryBalanceParams struct {
	AccountID    int64
	CategoryCode string
	Balance      decimal.Decimal
}
