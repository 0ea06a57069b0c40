package domain

import "context"

// Lookup resolves reference state. Missing rows are reported as
// ErrCardNotFound and ErrAccountNotFound.
type Lookup interface {
	FindCardByNumber(ctx context.Context, cardNumber string) (*Card, error)
	FindAccountByID(ctx context.Context, accountID int64) (*Account, error)
}

// Ledger is the unit of work for one chunk. Every read and write goes
// through the chunk's transaction.
type Ledger interface {
	Lookup
	FindOrCreateCategoryBalance(ctx context.Context, accountID int64, categoryCode string) (*CategoryBalance, error)
	SaveAccount(ctx context.Context, account *Account) error
	SaveCategoryBalance(ctx context.Context, balance *CategoryBalance) error
	InsertPosted(ctx context.Context, posted *PostedTransaction) error
	InsertRejection(ctx context.Context, rejection *RejectionRecord) error

	// Savepoint runs fn in a nested transaction. If fn returns an error or
	// panics, only fn's writes are rolled back.
	Savepoint(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error
}

// Store opens chunk transactions. InChunk commits when fn returns nil and
// rolls back otherwise. Retryable failures wrap ErrTransient.
type Store interface {
	InChunk(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error
}
