package service

import (
	"context"
	"fmt"
	"time"

	"github.com/set-night/cardpost/internal/domain"
	"github.com/set-night/cardpost/internal/money"
	"github.com/shopspring/decimal"
)

// PostRequest carries an authorized record into the posting engine.
type PostRequest struct {
	Input       domain.TransactionInput
	Outcome     domain.ValidationOutcome
	ID          string
	RunID       string
	Offset      int64
	ProcessedAt time.Time
}

// PostingEngine applies one authorized transaction: the account balance and
// its cycle accumulator, the category balance, and the posted record.
type PostingEngine struct{}

func NewPostingEngine() *PostingEngine {
	return &PostingEngine{}
}

// Post writes the balance mutations and the posted record inside a single
// savepoint, so either all three are visible in the chunk or none is.
func (e *PostingEngine) Post(ctx context.Context, l domain.Ledger, req PostRequest) (*domain.PostedTransaction, error) {
	if !req.Outcome.OK || req.Outcome.Account == nil || req.Outcome.Card == nil {
		return nil, domain.ErrNotAuthorized
	}

	amount := req.Outcome.Amount
	acct := applyToAccount(*req.Outcome.Account, amount)

	posted := &domain.PostedTransaction{
		ID:           req.ID,
		RunID:        req.RunID,
		Offset:       req.Offset,
		TypeCode:     req.Input.TypeCode,
		CategoryCode: req.Input.CategoryCode,
		Source:       req.Input.Source,
		Description:  req.Input.Description,
		Amount:       amount,
		MerchantID:   req.Input.MerchantID,
		MerchantName: req.Input.MerchantName,
		MerchantCity: req.Input.MerchantCity,
		MerchantZip:  req.Input.MerchantZip,
		CardNumber:   req.Outcome.Card.Number,
		AccountID:    acct.ID,
		OriginalTS:   req.Input.OriginalTS,
		ProcessedTS:  req.ProcessedAt,
	}

	err := l.Savepoint(ctx, func(ctx context.Context, l domain.Ledger) error {
		balance, err := l.FindOrCreateCategoryBalance(ctx, acct.ID, req.Input.CategoryCode)
		if err != nil {
			return fmt.Errorf("find category balance: %w", err)
		}
		balance.Balance = money.Round(balance.Balance.Add(amount))

		if err := l.SaveAccount(ctx, &acct); err != nil {
			return fmt.Errorf("save account: %w", err)
		}
		if err := l.SaveCategoryBalance(ctx, balance); err != nil {
			return fmt.Errorf("save category balance: %w", err)
		}
		if err := l.InsertPosted(ctx, posted); err != nil {
			return fmt.Errorf("insert posted transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posted, nil
}

// applyToAccount adds amount to the balance and to one cycle accumulator.
// Debits are accumulated as a positive magnitude so the credit-limit check
// reads cycle credit - cycle debit as the net amount drawn.
func applyToAccount(acct domain.Account, amount decimal.Decimal) domain.Account {
	acct.CurrentBalance = money.Round(acct.CurrentBalance.Add(amount))
	if amount.Sign() >= 0 {
		acct.CycleCredit = money.Round(acct.CycleCredit.Add(amount))
	} else {
		acct.CycleDebit = money.Round(acct.CycleDebit.Sub(amount))
	}
	return acct
}
