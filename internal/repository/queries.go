package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const getCardByNumber = `
SELECT card_number, account_id, active, expiration_date
FROM cards
WHERE card_number = $1`

func (q *Queries) GetCardByNumber(ctx context.Context, cardNumber string) (Card, error) {
	var c Card
	err := q.db.QueryRow(ctx, getCardByNumber, cardNumber).Scan(
		&c.CardNumber,
		&c.AccountID,
		&c.Active,
		&c.ExpirationDate,
	)
	return c, err
}

const getAccountForUpdate = `
SELECT id, active, current_balance, credit_limit, cycle_credit, cycle_debit, expiration_date
FROM accounts
WHERE id = $1
FOR UPDATE`

func (q *Queries) GetAccountForUpdate(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := q.db.QueryRow(ctx, getAccountForUpdate, id).Scan(
		&a.ID,
		&a.Active,
		&a.CurrentBalance,
		&a.CreditLimit,
		&a.CycleCredit,
		&a.CycleDebit,
		&a.ExpirationDate,
	)
	return a, err
}

// The no-op update makes RETURNING yield the existing row and locks it.
const upsertCategoryBalance = `
INSERT INTO category_balances (account_id, category_code, balance)
VALUES ($1, $2, 0)
ON CONFLICT (account_id, category_code) DO UPDATE SET balance = category_balances.balance
RETURNING account_id, category_code, balance`

func (q *Queries) UpsertCategoryBalance(ctx context.Context, accountID int64, categoryCode string) (CategoryBalance, error) {
	var cb CategoryBalance
	err := q.db.QueryRow(ctx, upsertCategoryBalance, accountID, categoryCode).Scan(
		&cb.AccountID,
		&cb.CategoryCode,
		&cb.Balance,
	)
	return cb, err
}

const updateAccountBalances = `
UPDATE accounts
SET current_balance = $2, cycle_credit = $3, cycle_debit = $4
WHERE id = $1`

func (q *Queries) UpdateAccountBalances(ctx context.Context, arg UpdateAccountBalancesParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateAccountBalances, arg.ID, arg.CurrentBalance, arg.CycleCredit, arg.CycleDebit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const updateCategoryBalance = `
UPDATE category_balances
SET balance = $3
WHERE account_id = $1 AND category_code = $2`

func (q *Queries) UpdateCategoryBalance(ctx context.Context, arg UpdateCategoryBalanceParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateCategoryBalance, arg.AccountID, arg.CategoryCode, arg.Balance)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const insertPostedTransaction = `
INSERT INTO posted_transactions (
    id, run_id, record_offset, type_code, category_code, source, description, amount,
    merchant_id, merchant_name, merchant_city, merchant_zip, card_number, account_id,
    original_ts, processed_ts
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

func (q *Queries) InsertPostedTransaction(ctx context.Context, arg InsertPostedTransactionParams) error {
	_, err := q.db.Exec(ctx, insertPostedTransaction,
		arg.ID,
		arg.RunID,
		arg.RecordOffset,
		arg.TypeCode,
		arg.CategoryCode,
		arg.Source,
		arg.Description,
		arg.Amount,
		arg.MerchantID,
		arg.MerchantName,
		arg.MerchantCity,
		arg.MerchantZip,
		arg.CardNumber,
		arg.AccountID,
		arg.OriginalTs,
		arg.ProcessedTs,
	)
	return err
}

const insertRejection = `
INSERT INTO rejections (run_id, record_offset, input, failure_code, failure_description, rejected_at)
VALUES ($1, $2, $3, $4, $5, $6)`

func (q *Queries) InsertRejection(ctx context.Context, arg InsertRejectionParams) error {
	_, err := q.db.Exec(ctx, insertRejection,
		arg.RunID,
		arg.RecordOffset,
		arg.Input,
		arg.FailureCode,
		arg.FailureDescription,
		arg.RejectedAt,
	)
	return err
}
