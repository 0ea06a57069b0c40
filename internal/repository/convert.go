package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/set-night/cardpost/internal/domain"
)

// pgDateToTime converts pgtype.Date to time.Time. NULL and infinite dates
// map to the zero time.
func pgDateToTime(d pgtype.Date) time.Time {
	if d.Valid && d.InfinityModifier == pgtype.Finite {
		return d.Time
	}
	return time.Time{}
}

func rowToCard(c Card) *domain.Card {
	return &domain.Card{
		Number:         c.CardNumber,
		AccountID:      c.AccountID,
		Active:         c.Active,
		ExpirationDate: pgDateToTime(c.ExpirationDate),
	}
}

func rowToAccount(a Account) *domain.Account {
	return &domain.Account{
		ID:             a.ID,
		Active:         a.Active,
		CurrentBalance: a.CurrentBalance,
		CreditLimit:    a.CreditLimit,
		CycleCredit:    a.CycleCredit,
		CycleDebit:     a.CycleDebit,
		ExpirationDate: pgDateToTime(a.ExpirationDate),
	}
}

func rowToCategoryBalance(cb CategoryBalance) *domain.CategoryBalance {
	return &domain.CategoryBalance{
		AccountID:    cb.AccountID,
		CategoryCode: cb.CategoryCode,
		Balance:      cb.Balance,
	}
}

func postedToParams(p *domain.PostedTransaction) InsertPostedTransactionParams {
	return InsertPostedTransactionParams{
		ID:           p.ID,
		RunID:        p.RunID,
		RecordOffset: p.Offset,
		TypeCode:     p.TypeCode,
		CategoryCode: p.CategoryCode,
		Source:       p.Source,
		Description:  p.Description,
		Amount:       p.Amount,
		MerchantID:   p.MerchantID,
		MerchantName: p.MerchantName,
		MerchantCity: p.MerchantCity,
		MerchantZip:  p.MerchantZip,
		CardNumber:   p.CardNumber,
		AccountID:    p.AccountID,
		OriginalTs:   p.OriginalTS,
		ProcessedTs:  p.ProcessedTS,
	}
}
