package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/set-night/cardpost/internal/domain"
	"github.com/set-night/cardpost/internal/money"
)

// StageEnv is the reference state a stage may read.
type StageEnv struct {
	Lookup      domain.Lookup
	ProcessedAt time.Time
}

// Stage is one check of the validation chain. A business failure is
// reported through the returned outcome; a non-nil error means the check
// itself could not be evaluated.
type Stage interface {
	Name() string
	Check(ctx context.Context, env StageEnv, in domain.TransactionInput, prior domain.ValidationOutcome) (domain.ValidationOutcome, error)
}

// ValidationChain runs stages in order and stops at the first failure.
type ValidationChain struct {
	stages []Stage
}

func NewValidationChain(stages ...Stage) *ValidationChain {
	return &ValidationChain{stages: stages}
}

// DefaultValidationChain returns the posting checks in their required order.
func DefaultValidationChain() *ValidationChain {
	return NewValidationChain(
		RequiredFieldsStage{},
		CardLookupStage{},
		CardStatusStage{},
		AccountLookupStage{},
		AccountStatusStage{},
		CreditLimitStage{},
		ExpirationStage{},
	)
}

func (c *ValidationChain) Validate(ctx context.Context, env StageEnv, in domain.TransactionInput) (domain.ValidationOutcome, error) {
	out := domain.ValidationOutcome{OK: true}
	for _, stage := range c.stages {
		next, err := stage.Check(ctx, env, in, out)
		if err != nil {
			return domain.ValidationOutcome{}, fmt.Errorf("%s: %w", stage.Name(), err)
		}
		out = next
		if !out.OK {
			return out, nil
		}
	}
	return out, nil
}

const cardNumberLen = 16

// RequiredFieldsStage checks that the record carries what posting needs and
// that the amount is a representable fixed-point value.
type RequiredFieldsStage struct{}

func (RequiredFieldsStage) Name() string { return "required fields" }

func (RequiredFieldsStage) Check(_ context.Context, _ StageEnv, in domain.TransactionInput, out domain.ValidationOutcome) (domain.ValidationOutcome, error) {
	if !isCardNumber(in.CardNumber) {
		return out.Fail(domain.CodeInvalidData, "card number must be 16 digits"), nil
	}
	if in.TypeCode == "" {
		return out.Fail(domain.CodeInvalidData, "transaction type code is missing"), nil
	}
	if in.CategoryCode == "" {
		return out.Fail(domain.CodeInvalidData, "transaction category code is missing"), nil
	}
	if in.OriginalTS.IsZero() {
		return out.Fail(domain.CodeInvalidData, "original timestamp is missing"), nil
	}

	amount, err := money.Parse(in.Amount)
	if err != nil {
		return out.Fail(domain.CodeInvalidData, err.Error()), nil
	}
	out.Amount = amount
	return out, nil
}

func isCardNumber(s string) bool {
	if len(s) != cardNumberLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

type CardLookupStage struct{}

func (CardLookupStage) Name() string { return "card lookup" }

func (CardLookupStage) Check(ctx context.Context, env StageEnv, in domain.TransactionInput, out domain.ValidationOutcome) (domain.ValidationOutcome, error) {
	card, err := env.Lookup.FindCardByNumber(ctx, in.CardNumber)
	if errors.Is(err, domain.ErrCardNotFound) {
		return out.Fail(domain.CodeInvalidCard, "invalid card number found"), nil
	}
	if err != nil {
		return out, fmt.Errorf("find card: %w", err)
	}
	out.Card = card
	return out, nil
}

// CardStatusStage shares the invalid-card code with CardLookupStage; only the
// description tells the cases apart.
type CardStatusStage struct{}

func (CardStatusStage) Name() string { return "card status" }

func (CardStatusStage) Check(_ context.Context, env StageEnv, _ domain.TransactionInput, out domain.ValidationOutcome) (domain.ValidationOutcome, error) {
	if !out.Card.Active {
		return out.Fail(domain.CodeInvalidCard, "card is not active"), nil
	}
	if out.Card.ExpiredOn(env.ProcessedAt) {
		return out.Fail(domain.CodeInvalidCard, "card is expired"), nil
	}
	return out, nil
}

type AccountLookupStage struct{}

func (AccountLookupStage) Name() string { return "account lookup" }

func (AccountLookupStage) Check(ctx context.Context, env StageEnv, _ domain.TransactionInput, out domain.ValidationOutcome) (domain.ValidationOutcome, error) {
	acct, err := env.Lookup.FindAccountByID(ctx, out.Card.AccountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return out.Fail(domain.CodeAccountNotFound, "account record not found"), nil
	}
	if err != nil {
		return out, fmt.Errorf("find account: %w", err)
	}
	out.Account = acct
	return out, nil
}

type AccountStatusStage struct{}

func (AccountStatusStage) Name() string { return "account status" }

func (AccountStatusStage) Check(_ context.Context, _ StageEnv, _ domain.TransactionInput, out domain.ValidationOutcome) (domain.ValidationOutcome, error) {
	if !out.Account.Active {
		return out.Fail(domain.CodeAccountNotFound, "account is not active"), nil
	}
	return out, nil
}

// CreditLimitStage admits the amount when
// cycle credit - cycle debit + amount <= credit limit.
type CreditLimitStage struct{}

func (CreditLimitStage) Name() string { return "credit limit" }

func (CreditLimitStage) Check(_ context.Context, _ StageEnv, _ domain.TransactionInput, out domain.ValidationOutcome) (domain.ValidationOutcome, error) {
	acct := out.Account
	projected := acct.CycleCredit.Sub(acct.CycleDebit).Add(out.Amount)
	if acct.CreditLimit.LessThan(projected) {
		return out.Fail(domain.CodeOverlimit, "overlimit transaction"), nil
	}
	return out, nil
}

type ExpirationStage struct{}

func (ExpirationStage) Name() string { return "account expiration" }

func (ExpirationStage) Check(_ context.Context, _ StageEnv, in domain.TransactionInput, out domain.ValidationOutcome) (domain.ValidationOutcome, error) {
	if out.Account.ExpiredBefore(in.OriginalTS) {
		return out.Fail(domain.CodeExpiredAccount, "transaction received after account expiration"), nil
	}
	return out, nil
}
