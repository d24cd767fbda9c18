// Package replay drives a ledger through a file of instructions, writing a
// receipt per instruction and checkpointing progress after every batch.
package replay

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"radiswap/internal/model"
	"radiswap/internal/stats"
	"radiswap/internal/storage"
)

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	Input        string
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// Executor runs one instruction. A rejected instruction returns a receipt
// together with the reason.
type Executor interface {
	Execute(ctx context.Context, ins model.Instruction) (model.Receipt, error)
}

// Recorder persists replay output to a database.
type Recorder interface {
	UpsertPools(ctx context.Context, pools []model.PoolSnapshot) error
	InsertReceipts(ctx context.Context, receipts []model.Receipt) error
	UpsertPoolStats(ctx context.Context, stats []model.PoolStats) error
}

// Summary counts what a run did.
type Summary struct {
	Total     int
	Resumed   int
	Committed int
	Rejected  int
	Batches   int
}

// Runner replays instructions through an Executor.
type Runner struct {
	cfg        RunConfig
	exec       Executor
	storage    storage.Storage
	failed     storage.FailedSink
	recorder   Recorder
	checkpoint CheckpointStore
	stats      *stats.Collector
	logger     *zap.Logger
}

// Option configures optional Runner dependencies.
type Option func(*Runner)

func WithFailedSink(s storage.FailedSink) Option {
	return func(r *Runner) { r.failed = s }
}

func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func WithCheckpoint(c CheckpointStore) Option {
	return func(r *Runner) { r.checkpoint = c }
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, exec Executor, sink storage.Storage, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cfg:     cfg,
		exec:    exec,
		storage: sink,
		stats:   stats.NewCollector(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stats returns per-pool totals over every committed instruction seen so far.
func (r *Runner) Stats() []model.PoolStats {
	return r.stats.Stats()
}

// Run executes the replay loop.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	if r.exec == nil {
		return sum, fmt.Errorf("executor is nil")
	}
	if r.storage == nil {
		return sum, fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return sum, fmt.Errorf("batch size must be greater than zero")
	}

	instructions, err := ReadInstructions(r.cfg.Input)
	if err != nil {
		return sum, err
	}
	sum.Total = len(instructions)

	var lastDone uint64
	if r.checkpoint != nil {
		seq, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return sum, fmt.Errorf("load checkpoint: %w", err)
		}
		if ok {
			lastDone = seq
		}
	}

	// Instructions already flushed are executed again to rebuild ledger
	// state, but produce no output.
	start := 0
	for start < len(instructions) && instructions[start].Seq <= lastDone {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		rcpt, _ := r.exec.Execute(ctx, instructions[start])
		if err := r.stats.Add(rcpt); err != nil {
			return sum, err
		}
		start++
	}
	sum.Resumed = start
	if start > 0 {
		r.logger.Info("resume from checkpoint", zap.Uint64("last_seq", lastDone), zap.Int("resumed", start))
	}

	if start == len(instructions) {
		r.logger.Info("nothing to replay", zap.Int("instructions", len(instructions)))
		return sum, r.flushStats(ctx)
	}

	ranges, err := SplitRange(uint64(start), uint64(len(instructions)-1), r.cfg.BatchSize)
	if err != nil {
		return sum, err
	}

	for _, rng := range ranges {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		batch := instructions[rng.From : rng.To+1]
		receipts := make([]model.Receipt, 0, len(batch))
		var failed []model.FailedInstruction
		for _, ins := range batch {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			rcpt, err := r.exec.Execute(ctx, ins)
			if err != nil && ctx.Err() != nil {
				return sum, ctx.Err()
			}
			if err != nil {
				sum.Rejected++
				r.logger.Warn("instruction rejected",
					zap.Uint64("seq", ins.Seq),
					zap.String("kind", ins.Kind),
					zap.Error(err),
				)
				failed = append(failed, model.FailedInstruction{
					Seq:         ins.Seq,
					Kind:        ins.Kind,
					TxID:        rcpt.TxID,
					Error:       err.Error(),
					Instruction: ins,
				})
			} else {
				sum.Committed++
			}
			if err := r.stats.Add(rcpt); err != nil {
				return sum, err
			}
			receipts = append(receipts, rcpt)
		}

		if err := r.flush(ctx, receipts, failed); err != nil {
			return sum, err
		}

		lastSeq := batch[len(batch)-1].Seq
		if r.checkpoint != nil {
			if err := r.checkpoint.Save(ctx, lastSeq); err != nil {
				return sum, fmt.Errorf("save checkpoint: %w", err)
			}
		}
		sum.Batches++

		r.logger.Info("batch complete",
			zap.Int("instructions", len(batch)),
			zap.Int("rejected", len(failed)),
			zap.Uint64("from_seq", batch[0].Seq),
			zap.Uint64("to_seq", lastSeq),
		)
	}

	if err := r.flushStats(ctx); err != nil {
		return sum, err
	}

	r.logger.Info("replay complete",
		zap.Int("total", sum.Total),
		zap.Int("resumed", sum.Resumed),
		zap.Int("committed", sum.Committed),
		zap.Int("rejected", sum.Rejected),
		zap.Int("batches", sum.Batches),
	)
	return sum, nil
}

func (r *Runner) flush(ctx context.Context, receipts []model.Receipt, failed []model.FailedInstruction) error {
	err := withRetry(ctx, r.logger, "store receipts", r.cfg.MaxRetries, r.cfg.RetryBackoff, func(context.Context) error {
		return r.storage.PutReceiptBatch(receipts)
	})
	if err != nil {
		return fmt.Errorf("store receipts: %w", err)
	}

	if r.failed != nil && len(failed) > 0 {
		err := withRetry(ctx, r.logger, "store failed", r.cfg.MaxRetries, r.cfg.RetryBackoff, func(context.Context) error {
			return r.failed.PutFailedBatch(failed)
		})
		if err != nil {
			return fmt.Errorf("store failed instructions: %w", err)
		}
	}

	if r.recorder == nil {
		return nil
	}
	pools := latestSnapshots(receipts)
	err = withRetry(ctx, r.logger, "record batch", r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		if err := r.recorder.InsertReceipts(ctx, receipts); err != nil {
			return err
		}
		return r.recorder.UpsertPools(ctx, pools)
	})
	if err != nil {
		return fmt.Errorf("record batch: %w", err)
	}
	return nil
}

func (r *Runner) flushStats(ctx context.Context) error {
	if r.recorder == nil {
		return nil
	}
	st := r.stats.Stats()
	err := withRetry(ctx, r.logger, "record stats", r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		return r.recorder.UpsertPoolStats(ctx, st)
	})
	if err != nil {
		return fmt.Errorf("record stats: %w", err)
	}
	return nil
}

// latestSnapshots keeps the last committed state of each pool in the batch,
// in order of first appearance.
func latestSnapshots(receipts []model.Receipt) []model.PoolSnapshot {
	index := make(map[string]int)
	var out []model.PoolSnapshot
	for _, rcpt := range receipts {
		if !rcpt.Committed() || rcpt.State == nil {
			continue
		}
		if i, ok := index[rcpt.State.Alias]; ok {
			out[i] = *rcpt.State
			continue
		}
		index[rcpt.State.Alias] = len(out)
		out = append(out, *rcpt.State)
	}
	return out
}
