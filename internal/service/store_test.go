package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/set-night/cardpost/internal/domain"
	"github.com/shopspring/decimal"
)

type categoryKey struct {
	accountID int64
	category  string
}

type memState struct {
	cards      map[string]domain.Card
	accounts   map[int64]domain.Account
	categories map[categoryKey]domain.CategoryBalance
	posted     []domain.PostedTransaction
	rejections []domain.RejectionRecord
}

func newMemState() *memState {
	return &memState{
		cards:      make(map[string]domain.Card),
		accounts:   make(map[int64]domain.Account),
		categories: make(map[categoryKey]domain.CategoryBalance),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.cards {
		c.cards[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	c.posted = append(c.posted, s.posted...)
	c.rejections = append(c.rejections, s.rejections...)
	return c
}

// memStore is an in-memory Store. Each chunk works on a copy of the
// committed state that replaces it on commit.
type memStore struct {
	mu        sync.Mutex
	committed *memState

	commitErrs  []error
	commits     int
	lookups     int
	onFindCard  func(number string) error
	onPosted    func(p *domain.PostedTransaction) error
	onRejection func(r *domain.RejectionRecord) error
}

func newMemStore() *memStore {
	return &memStore{committed: newMemState()}
}

func (s *memStore) addCard(c domain.Card) {
	s.committed.cards[c.Number] = c
}

func (s *memStore) addAccount(a domain.Account) {
	s.committed.accounts[a.ID] = a
}

func (s *memStore) account(id int64) domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed.accounts[id]
}

func (s *memStore) category(accountID int64, code string) (domain.CategoryBalance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.committed.categories[categoryKey{accountID, code}]
	return cb, ok
}

func (s *memStore) posted() []domain.PostedTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PostedTransaction(nil), s.committed.posted...)
}

func (s *memStore) rejections() []domain.RejectionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RejectionRecord(nil), s.committed.rejections...)
}

func (s *memStore) InChunk(ctx context.Context, fn func(ctx context.Context, l domain.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &memLedger{store: s, state: s.committed.clone()}
	if err := fn(ctx, l); err != nil {
		return err
	}

	s.commits++
	if len(s.commitErrs) > 0 {
		err := s.commitErrs[0]
		s.commitErrs = s.commitErrs[1:]
		if err != nil {
			return err
		}
	}
	s.committed = l.state
	return nil
}

type memLedger struct {
	store *memStore
	state *memState
}

func (l *memLedger) FindCardByNumber(_ context.Context, number string) (*domain.Card, error) {
	l.store.lookups++
	if l.store.onFindCard != nil {
		if err := l.store.onFindCard(number); err != nil {
			return nil, err
		}
	}
	c, ok := l.state.cards[number]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	return &c, nil
}

func (l *memLedger) FindAccountByID(_ context.Context, id int64) (*domain.Account, error) {
	a, ok := l.state.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

func (l *memLedger) FindOrCreateCategoryBalance(_ context.Context, accountID int64, code string) (*domain.CategoryBalance, error) {
	key := categoryKey{accountID, code}
	cb, ok := l.state.categories[key]
	if !ok {
		cb = domain.CategoryBalance{AccountID: accountID, CategoryCode: code, Balance: decimal.Zero}
		l.state.categories[key] = cb
	}
	return &cb, nil
}

func (l *memLedger) SaveAccount(_ context.Context, a *domain.Account) error {
	if _, ok := l.state.accounts[a.ID]; !ok {
		return domain.ErrAccountNotFound
	}
	l.state.accounts[a.ID] = *a
	return nil
}

func (l *memLedger) SaveCategoryBalance(_ context.Context, cb *domain.CategoryBalance) error {
	l.state.categories[categoryKey{cb.AccountID, cb.CategoryCode}] = *cb
	return nil
}

func (l *memLedger) InsertPosted(_ context.Context, p *domain.PostedTransaction) error {
	if l.store.onPosted != nil {
		if err := l.store.onPosted(p); err != nil {
			return err
		}
	}
	for _, existing := range l.state.posted {
		if existing.ID == p.ID {
			return fmt.Errorf("duplicate posted transaction %s", p.ID)
		}
	}
	l.state.posted = append(l.state.posted, *p)
	return nil
}

func (l *memLedger) InsertRejection(_ context.Context, r *domain.RejectionRecord) error {
	if l.store.onRejection != nil {
		if err := l.store.onRejection(r); err != nil {
			return err
		}
	}
	l.state.rejections = append(l.state.rejections, *r)
	return nil
}

func (l *memLedger) Savepoint(ctx context.Context, fn func(ctx context.Context, l domain.Ledger) error) error {
	snapshot := l.state.clone()
	defer func() {
		if r := recover(); r != nil {
			*l.state = *snapshot
			panic(r)
		}
	}()
	if err := fn(ctx, l); err != nil {
		*l.state = *snapshot
		return err
	}
	return nil
}

// sliceReader replays a fixed set of records.
type sliceReader struct {
	records []domain.TransactionInput
	pos     int
	onNext  func(pos int)
}

func (r *sliceReader) Next(context.Context) (domain.TransactionInput, error) {
	if r.onNext != nil {
		r.onNext(r.pos)
	}
	if r.pos >= len(r.records) {
		return domain.TransactionInput{}, io.EOF
	}
	in := r.records[r.pos]
	r.pos++
	return in, nil
}

var (
	testCard    = "4000123412341234"
	testAccount = int64(10001)
	testNow     = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seededStore holds one active card on an account with balance 100.00 and
// a 500.00 credit limit.
func seededStore() *memStore {
	s := newMemStore()
	s.addAccount(domain.Account{
		ID:             testAccount,
		Active:         true,
		CurrentBalance: dec("100.00"),
		CreditLimit:    dec("500.00"),
		CycleCredit:    dec("0.00"),
		CycleDebit:     dec("0.00"),
		ExpirationDate: time.Date(2028, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	s.addCard(domain.Card{
		Number:         testCard,
		AccountID:      testAccount,
		Active:         true,
		ExpirationDate: time.Date(2028, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	return s
}

func input(amount string) domain.TransactionInput {
	return domain.TransactionInput{
		TypeCode:     "01",
		CategoryCode: "0001",
		Source:       "POS TERM",
		Description:  "Purchase at Corner Store",
		Amount:       amount,
		MerchantID:   "800000001",
		MerchantName: "Corner Store",
		MerchantCity: "Springfield",
		MerchantZip:  "12345",
		CardNumber:   testCard,
		OriginalTS:   time.Date(2026, 10, 13, 18, 4, 0, 0, time.UTC),
	}
}
