package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FailureCode is the numeric reason carried by a rejection record.
type FailureCode int

const (
	CodeInvalidCard     FailureCode = 100
	CodeAccountNotFound FailureCode = 101
	CodeOverlimit       FailureCode = 102
	CodeExpiredAccount  FailureCode = 103
	CodeInvalidData     FailureCode = 109
	CodeSystemError     FailureCode = 999
)

func (c FailureCode) String() string {
	switch c {
	case CodeInvalidCard:
		return "invalid-card"
	case CodeAccountNotFound:
		return "account-not-found"
	case CodeOverlimit:
		return "overlimit"
	case CodeExpiredAccount:
		return "expired-account"
	case CodeInvalidData:
		return "invalid-data"
	case CodeSystemError:
		return "system-error"
	default:
		return fmt.Sprintf("code-%d", int(c))
	}
}

type RejectionRecord struct {
	RunID       string
	Offset      int64
	Input       TransactionInput
	Code        FailureCode
	Description string
	RejectedAt  time.Time
}

// ValidationOutcome is passed from stage to stage. Card and Account are set
// once resolved; Amount once the amount text has been parsed.
type ValidationOutcome struct {
	OK          bool
	Code        FailureCode
	Description string
	Card        *Card
	Account     *Account
	Amount      decimal.Decimal
}

// Fail returns a copy of o marked as failed with the given code.
func (o ValidationOutcome) Fail(code FailureCode, description string) ValidationOutcome {
	o.OK = false
	o.Code = code
	o.Description = description
	return o
}
