package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/set-night/cardpost/internal/domain"
)

// Tally counts one chunk attempt. It is merged into the run summary only
// after the chunk commits.
type Tally struct {
	Read     int64
	Posted   int64
	Rejected int64
	Skipped  int64
	ByCode   map[domain.FailureCode]int64
}

func newTally() *Tally {
	return &Tally{ByCode: make(map[domain.FailureCode]int64)}
}

// RejectionSink records terminal rejections.
type RejectionSink struct{}

func NewRejectionSink() *RejectionSink {
	return &RejectionSink{}
}

// Reject appends one rejection record for the input and counts it.
func (s *RejectionSink) Reject(ctx context.Context, l domain.Ledger, tally *Tally, rec domain.RejectionRecord) (*domain.RejectionRecord, error) {
	if err := l.InsertRejection(ctx, &rec); err != nil {
		return nil, fmt.Errorf("insert rejection at offset %d: %w", rec.Offset, err)
	}
	tally.Rejected++
	tally.ByCode[rec.Code]++
	return &rec, nil
}

// RejectOutcome rejects a record that failed validation.
func (s *RejectionSink) RejectOutcome(ctx context.Context, l domain.Ledger, tally *Tally, runID string, offset int64, in domain.TransactionInput, out domain.ValidationOutcome, at time.Time) (*domain.RejectionRecord, error) {
	return s.Reject(ctx, l, tally, domain.RejectionRecord{
		RunID:       runID,
		Offset:      offset,
		Input:       in,
		Code:        out.Code,
		Description: out.Description,
		RejectedAt:  at,
	})
}

// RejectError rejects a record whose processing failed unexpectedly. The
// record also consumes one unit of the skip budget.
func (s *RejectionSink) RejectError(ctx context.Context, l domain.Ledger, tally *Tally, runID string, offset int64, in domain.TransactionInput, cause error, at time.Time) (*domain.RejectionRecord, error) {
	rec, err := s.Reject(ctx, l, tally, domain.RejectionRecord{
		RunID:       runID,
		Offset:      offset,
		Input:       in,
		Code:        domain.CodeSystemError,
		Description: truncate(cause.Error(), maxDescriptionLen),
		RejectedAt:  at,
	})
	if err != nil {
		return nil, err
	}
	tally.Skipped++
	return rec, nil
}

const maxDescriptionLen = 2000

// truncate cuts s to at most n bytes on a rune boundary. Invalid UTF-8 is
// replaced first so the result is always valid text.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
