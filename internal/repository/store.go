package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/cardpost/internal/domain"
)

// Store runs each chunk in one read-committed PostgreSQL transaction.
type Store struct {
	db      *pgxpool.Pool
	queries *Queries
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db, queries: New(db)}
}

func (s *Store) InChunk(ctx context.Context, fn func(ctx context.Context, l domain.Ledger) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin chunk: %w", classify(err))
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &ledger{tx: tx, queries: s.queries.WithTx(tx)}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunk: %w", classify(err))
	}
	return nil
}

type ledger struct {
	tx      pgx.Tx
	queries *Queries
}

func (l *ledger) FindCardByNumber(ctx context.Context, cardNumber string) (*domain.Card, error) {
	row, err := l.queries.GetCardByNumber(ctx, cardNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get card: %w", classify(err))
	}
	return rowToCard(row), nil
}

func (l *ledger) FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	row, err := l.queries.GetAccountForUpdate(ctx, accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", classify(err))
	}
	return rowToAccount(row), nil
}

func (l *ledger) FindOrCreateCategoryBalance(ctx context.Context, accountID int64, categoryCode string) (*domain.CategoryBalance, error) {
	row, err := l.queries.UpsertCategoryBalance(ctx, accountID, categoryCode)
	if err != nil {
		return nil, fmt.Errorf("upsert category balance: %w", classify(err))
	}
	return rowToCategoryBalance(row), nil
}

func (l *ledger) SaveAccount(ctx context.Context, a *domain.Account) error {
	n, err := l.queries.UpdateAccountBalances(ctx, UpdateAccountBalancesParams{
		ID:             a.ID,
		CurrentBalance: a.CurrentBalance,
		CycleCredit:    a.CycleCredit,
		CycleDebit:     a.CycleDebit,
	})
	if err != nil {
		return fmt.Errorf("update account: %w", classify(err))
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (l *ledger) SaveCategoryBalance(ctx context.Context, cb *domain.CategoryBalance) error {
	n, err := l.queries.UpdateCategoryBalance(ctx, UpdateCategoryBalanceParams{
		AccountID:    cb.AccountID,
		CategoryCode: cb.CategoryCode,
		Balance:      cb.Balance,
	})
	if err != nil {
		return fmt.Errorf("update category balance: %w", classify(err))
	}
	if n == 0 {
		return fmt.Errorf("update category balance %d/%s: no row", cb.AccountID, cb.CategoryCode)
	}
	return nil
}

func (l *ledger) InsertPosted(ctx context.Context, p *domain.PostedTransaction) error {
	if err := l.queries.InsertPostedTransaction(ctx, postedToParams(p)); err != nil {
		return fmt.Errorf("insert posted transaction %s: %w", p.ID, classify(err))
	}
	return nil
}

func (l *ledger) InsertRejection(ctx context.Context, r *domain.RejectionRecord) error {
	input, err := json.Marshal(r.Input)
	if err != nil {
		return fmt.Errorf("marshal rejected input: %w", err)
	}
	err = l.queries.InsertRejection(ctx, InsertRejectionParams{
		RunID:              r.RunID,
		RecordOffset:       r.Offset,
		Input:              input,
		FailureCode:        int32(r.Code),
		FailureDescription: r.Description,
		RejectedAt:         r.RejectedAt,
	})
	if err != nil {
		return fmt.Errorf("store rejection: %w", classify(err))
	}
	return nil
}

// Savepoint uses a pgx pseudo nested transaction, which is a SAVEPOINT on
// the chunk transaction.
func (l *ledger) Savepoint(ctx context.Context, fn func(ctx context.Context, l domain.Ledger) error) error {
	sp, err := l.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", classify(err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sp.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx, &ledger{tx: sp, queries: l.queries.WithTx(sp)}); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback savepoint: %w", classify(rbErr)))
		}
		return err
	}

	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", classify(err))
	}
	return nil
}
