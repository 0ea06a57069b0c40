package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/cardpost/internal/domain"
)

// RecordReader yields decoded input records and io.EOF after the last one.
type RecordReader interface {
	Next(ctx context.Context) (domain.TransactionInput, error)
}

// DefaultChunkSize is used when ControllerConfig.ChunkSize is not positive.
const DefaultChunkSize = 1000

type ControllerConfig struct {
	ChunkSize    int
	RetryLimit   int
	RetryBackoff time.Duration
	SkipLimit    int
}

// RunSummary is the outcome of one run. A run owns its summary; nothing is
// shared between concurrent runs.
type RunSummary struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Read           int64
	Posted         int64
	Rejected       int64
	Skipped        int64
	Chunks         int
	Retries        int
	RejectedByCode map[domain.FailureCode]int64
}

func (s *RunSummary) merge(t *Tally) {
	s.Read += t.Read
	s.Posted += t.Posted
	s.Rejected += t.Rejected
	s.Skipped += t.Skipped
	for code, n := range t.ByCode {
		s.RejectedByCode[code] += n
	}
	s.Chunks++
}

func (s *RunSummary) Elapsed() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Controller drives input through validation and posting in chunks, one
// chunk transaction at a time.
type Controller struct {
	store  domain.Store
	chain  *ValidationChain
	poster *PostingEngine
	sink   *RejectionSink
	cfg    ControllerConfig

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewController(store domain.Store, cfg ControllerConfig) *Controller {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.RetryLimit < 0 {
		cfg.RetryLimit = 0
	}
	if cfg.SkipLimit < 0 {
		cfg.SkipLimit = 0
	}
	return &Controller{
		store:  store,
		chain:  DefaultValidationChain(),
		poster: NewPostingEngine(),
		sink:   NewRejectionSink(),
		cfg:    cfg,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// chunkRun is the state shared by every chunk of one run.
type chunkRun struct {
	id      string
	ids     *IDGenerator
	skipped int64
}

// Run processes the whole input. Cancelling ctx stops the run before the
// next chunk; the chunk in flight is always carried through to its commit.
func (c *Controller) Run(ctx context.Context, r RecordReader) (*RunSummary, error) {
	runID := uuid.New()
	started := c.now()
	summary := &RunSummary{
		RunID:          runID.String(),
		StartedAt:      started,
		RejectedByCode: make(map[domain.FailureCode]int64),
	}
	run := &chunkRun{id: summary.RunID, ids: NewIDGenerator(started, runID)}
	logger := slog.With("run_id", summary.RunID)

	logger.Info("run started", "chunk_size", c.cfg.ChunkSize, "retry_limit", c.cfg.RetryLimit, "skip_limit", c.cfg.SkipLimit)

	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = c.now()
			logger.Warn("run cancelled", "read", summary.Read, "chunks", summary.Chunks)
			return summary, fmt.Errorf("run cancelled: %w", err)
		}

		batch, err := readChunk(ctx, r, c.cfg.ChunkSize)
		if err != nil && !errors.Is(err, io.EOF) {
			summary.FinishedAt = c.now()
			return summary, fmt.Errorf("read input at offset %d: %w", offset+int64(len(batch)), err)
		}
		eof := errors.Is(err, io.EOF)

		if len(batch) > 0 {
			tally, retries, cerr := c.runChunk(context.WithoutCancel(ctx), run, summary.Chunks+1, offset, batch)
			summary.Retries += retries
			if cerr != nil {
				summary.FinishedAt = c.now()
				logger.Error("run aborted", "error", cerr, "chunk", summary.Chunks+1, "posted", summary.Posted, "rejected", summary.Rejected)
				return summary, cerr
			}
			summary.merge(tally)
			run.skipped = summary.Skipped
			offset += int64(len(batch))
		}

		if eof {
			break
		}
	}

	summary.FinishedAt = c.now()
	logger.Info("run completed",
		"read", summary.Read,
		"posted", summary.Posted,
		"rejected", summary.Rejected,
		"skipped", summary.Skipped,
		"chunks", summary.Chunks,
		"retries", summary.Retries,
		"duration", summary.Elapsed(),
	)
	if summary.Rejected > 0 {
		logger.Warn("run finished with rejections", "rejected", summary.Rejected)
	}
	return summary, nil
}

// readChunk reads up to size records. It returns io.EOF together with the
// final, possibly empty, batch.
func readChunk(ctx context.Context, r RecordReader, size int) ([]domain.TransactionInput, error) {
	batch := make([]domain.TransactionInput, 0, size)
	for len(batch) < size {
		in, err := r.Next(ctx)
		if err != nil {
			return batch, err
		}
		batch = append(batch, in)
	}
	return batch, nil
}

// runChunk commits one chunk, replaying it from the start on transient
// failures up to the retry limit.
func (c *Controller) runChunk(ctx context.Context, run *chunkRun, chunkNo int, base int64, batch []domain.TransactionInput) (*Tally, int, error) {
	for attempt := 0; ; attempt++ {
		tally, err := c.processChunk(ctx, run, base, batch)
		if err == nil {
			slog.Debug("chunk committed",
				"run_id", run.id,
				"chunk", chunkNo,
				"records", len(batch),
				"posted", tally.Posted,
				"rejected", tally.Rejected,
				"attempt", attempt+1,
			)
			return tally, attempt, nil
		}
		if !errors.Is(err, domain.ErrTransient) {
			return nil, attempt, fmt.Errorf("chunk %d: %w", chunkNo, err)
		}
		if attempt >= c.cfg.RetryLimit {
			return nil, attempt, fmt.Errorf("%w: chunk %d after %d attempts: %w", domain.ErrRetriesExhausted, chunkNo, attempt+1, err)
		}

		wait := c.cfg.RetryBackoff * time.Duration(attempt+1)
		slog.Warn("chunk failed, retrying", "run_id", run.id, "chunk", chunkNo, "attempt", attempt+1, "wait", wait, "error", err)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, attempt, fmt.Errorf("chunk %d: %w", chunkNo, err)
		}
	}
}

func (c *Controller) processChunk(ctx context.Context, run *chunkRun, base int64, batch []domain.TransactionInput) (*Tally, error) {
	tally := newTally()
	err := c.store.InChunk(ctx, func(ctx context.Context, l domain.Ledger) error {
		for i, in := range batch {
			if err := c.processRecord(ctx, l, run, tally, base+int64(i)+1, in); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tally, nil
}

// processRecord moves one record to Posted or Rejected. Only transient
// errors, rejection write failures and skip-budget overruns escape.
func (c *Controller) processRecord(ctx context.Context, l domain.Ledger, run *chunkRun, tally *Tally, offset int64, in domain.TransactionInput) error {
	tally.Read++
	state := domain.StateReceived
	advance := func(to domain.RecordState) {
		next, err := state.Advance(to)
		if err != nil {
			panic(err)
		}
		state = next
	}

	advance(domain.StateValidating)
	processedAt := c.now()

	var (
		outcome domain.ValidationOutcome
		posted  *domain.PostedTransaction
	)
	err := recoverPanic(func() error {
		return l.Savepoint(ctx, func(ctx context.Context, l domain.Ledger) error {
			var err error
			outcome, err = c.chain.Validate(ctx, StageEnv{Lookup: l, ProcessedAt: processedAt}, in)
			if err != nil || !outcome.OK {
				return err
			}

			advance(domain.StatePosting)
			id := in.ID
			if id == "" {
				id = run.ids.ForOffset(offset)
			}
			posted, err = c.poster.Post(ctx, l, PostRequest{
				Input:       in,
				Outcome:     outcome,
				ID:          id,
				RunID:       run.id,
				Offset:      offset,
				ProcessedAt: processedAt,
			})
			return err
		})
	})

	switch {
	case errors.Is(err, domain.ErrTransient):
		return err
	case err != nil:
		advance(domain.StateRejecting)
		if _, rerr := c.sink.RejectError(ctx, l, tally, run.id, offset, in, err, processedAt); rerr != nil {
			return rerr
		}
		advance(domain.StateRejected)
		slog.Warn("record skipped", "run_id", run.id, "offset", offset, "error", err)
		if skipped := run.skipped + tally.Skipped; skipped > int64(c.cfg.SkipLimit) {
			return fmt.Errorf("%w: %d records failed, limit %d", domain.ErrSkipLimitExceeded, skipped, c.cfg.SkipLimit)
		}
	case !outcome.OK:
		advance(domain.StateRejecting)
		if _, rerr := c.sink.RejectOutcome(ctx, l, tally, run.id, offset, in, outcome, processedAt); rerr != nil {
			return rerr
		}
		advance(domain.StateRejected)
		slog.Debug("record rejected", "run_id", run.id, "offset", offset, "code", outcome.Code.String(), "reason", outcome.Description)
	default:
		advance(domain.StatePosted)
		tally.Posted++
		slog.Debug("record posted", "run_id", run.id, "offset", offset, "id", posted.ID, "account_id", posted.AccountID)
	}
	return nil
}

// recoverPanic converts a panic raised by fn into an error.
func recoverPanic(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered while processing record", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
