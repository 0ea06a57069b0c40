package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/set-night/cardpost/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339Nano
)

func (s *Store) InChunk(ctx context.Context, fn func(ctx context.Context, l domain.Ledger) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk: %w", classify(err))
	}
	defer tx.Rollback()

	if err := fn(ctx, &ledger{tx: tx, seq: new(int)}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk: %w", classify(err))
	}
	return nil
}

type ledger struct {
	tx  *sql.Tx
	seq *int
}

func (l *ledger) FindCardByNumber(ctx context.Context, cardNumber string) (*domain.Card, error) {
	var (
		c   domain.Card
		exp sql.NullString
	)
	err := l.tx.QueryRowContext(ctx,
		`SELECT card_number, account_id, active, expiration_date FROM cards WHERE card_number = ?`,
		cardNumber,
	).Scan(&c.Number, &c.AccountID, &c.Active, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get card: %w", classify(err))
	}
	if c.ExpirationDate, err = parseDate(exp); err != nil {
		return nil, fmt.Errorf("card %s: %w", cardNumber, err)
	}
	return &c, nil
}

func (l *ledger) FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	var (
		a   domain.Account
		exp sql.NullString
	)
	err := l.tx.QueryRowContext(ctx, `
		SELECT id, active, current_balance, credit_limit, cycle_credit, cycle_debit, expiration_date
		FROM accounts WHERE id = ?`,
		accountID,
	).Scan(&a.ID, &a.Active, &a.CurrentBalance, &a.CreditLimit, &a.CycleCredit, &a.CycleDebit, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", classify(err))
	}
	if a.ExpirationDate, err = parseDate(exp); err != nil {
		return nil, fmt.Errorf("account %d: %w", accountID, err)
	}
	return &a, nil
}

func (l *ledger) FindOrCreateCategoryBalance(ctx context.Context, accountID int64, categoryCode string) (*domain.CategoryBalance, error) {
	_, err := l.tx.ExecContext(ctx,
		`INSERT INTO category_balances (account_id, category_code, balance) VALUES (?, ?, '0.00')
		 ON CONFLICT (account_id, category_code) DO NOTHING`,
		accountID, categoryCode,
	)
	if err != nil {
		return nil, fmt.Errorf("create category balance: %w", classify(err))
	}

	cb := domain.CategoryBalance{AccountID: accountID, CategoryCode: categoryCode}
	err = l.tx.QueryRowContext(ctx,
		`SELECT balance FROM category_balances WHERE account_id = ? AND category_code = ?`,
		accountID, categoryCode,
	).Scan(&cb.Balance)
	if err != nil {
		return nil, fmt.Errorf("get category balance: %w", classify(err))
	}
	return &cb, nil
}

func (l *ledger) SaveAccount(ctx context.Context, a *domain.Account) error {
	res, err := l.tx.ExecContext(ctx,
		`UPDATE accounts SET current_balance = ?, cycle_credit = ?, cycle_debit = ? WHERE id = ?`,
		fixed(a.CurrentBalance), fixed(a.CycleCredit), fixed(a.CycleDebit), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (l *ledger) SaveCategoryBalance(ctx context.Context, cb *domain.CategoryBalance) error {
	res, err := l.tx.ExecContext(ctx,
		`UPDATE category_balances SET balance = ? WHERE account_id = ? AND category_code = ?`,
		fixed(cb.Balance), cb.AccountID, cb.CategoryCode,
	)
	if err != nil {
		return fmt.Errorf("update category balance: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update category balance %d/%s: no row", cb.AccountID, cb.CategoryCode)
	}
	return nil
}

func (l *ledger) InsertPosted(ctx context.Context, p *domain.PostedTransaction) error {
	_, err := l.tx.ExecContext(ctx, `
		INSERT INTO posted_transactions (
			id, run_id, record_offset, type_code, category_code, source, description, amount,
			merchant_id, merchant_name, merchant_city, merchant_zip, card_number, account_id,
			original_ts, processed_ts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.RunID, p.Offset, p.TypeCode, p.CategoryCode, p.Source, p.Description, fixed(p.Amount),
		p.MerchantID, p.MerchantName, p.MerchantCity, p.MerchantZip, p.CardNumber, p.AccountID,
		p.OriginalTS.UTC().Format(timestampLayout), p.ProcessedTS.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("insert posted transaction %s: %w", p.ID, classify(err))
	}
	return nil
}

func (l *ledger) InsertRejection(ctx context.Context, r *domain.RejectionRecord) error {
	input, err := json.Marshal(r.Input)
	if err != nil {
		return fmt.Errorf("marshal rejected input: %w", err)
	}
	_, err = l.tx.ExecContext(ctx, `
		INSERT INTO rejections (run_id, record_offset, input, failure_code, failure_description, rejected_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Offset, string(input), int(r.Code), r.Description, r.RejectedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("store rejection: %w", classify(err))
	}
	return nil
}

func (l *ledger) Savepoint(ctx context.Context, fn func(ctx context.Context, l domain.Ledger) error) error {
	*l.seq++
	name := fmt.Sprintf("sp_%d", *l.seq)
	if _, err := l.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("begin savepoint: %w", classify(err))
	}
	rollback := func() error {
		if _, err := l.tx.ExecContext(ctx, "ROLLBACK TO "+name); err != nil {
			return err
		}
		_, err := l.tx.ExecContext(ctx, "RELEASE "+name)
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, l); err != nil {
		if rbErr := rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback savepoint: %w", classify(rbErr)))
		}
		return err
	}

	if _, err := l.tx.ExecContext(ctx, "RELEASE "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", classify(err))
	}
	return nil
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func parseDate(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expiration date %q: %w", s.String, err)
	}
	return t, nil
}
