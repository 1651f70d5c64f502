package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/l1jgo/scenecore/internal/scene"
	"go.uber.org/zap"
)

// FailureEntry is one stored teardown hook failure.
type FailureEntry struct {
	EntityID   uint64
	EntityName string
	Step       string
	Message    string
	RecordedAt time.Time
}

// FailureWriter stores a batch of failures.
type FailureWriter interface {
	WriteFailures(ctx context.Context, entries []FailureEntry) error
}

type FailureRepo struct {
	db *DB
}

func NewFailureRepo(db *DB) *FailureRepo {
	return &FailureRepo{db: db}
}

// WriteFailures inserts a batch in a single transaction.
func (r *FailureRepo) WriteFailures(ctx context.Context, entries []FailureEntry) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failures begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO teardown_failures (entity_id, entity_name, step, message, recorded_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			int64(e.EntityID), e.EntityName, e.Step, e.Message, e.RecordedAt,
		); err != nil {
			return fmt.Errorf("failures insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// CountByStep returns stored failure counts grouped by teardown step.
func (r *FailureRepo) CountByStep(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT step, COUNT(*) FROM teardown_failures GROUP BY step`)
	if err != nil {
		return nil, fmt.Errorf("count failures: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var step string
		var n int64
		if err := rows.Scan(&step, &n); err != nil {
			return nil, fmt.Errorf("scan failure count: %w", err)
		}
		out[step] = n
	}
	return out, rows.Err()
}

// Recorder buffers teardown failures in memory until Flush writes them.
// It implements scene.Diagnostics. Single-goroutine access only (game loop).
type Recorder struct {
	w       FailureWriter
	log     *zap.Logger
	now     func() time.Time
	pending []FailureEntry
	limit   int
	dropped int
}

var _ scene.Diagnostics = (*Recorder)(nil)

// NewRecorder buffers at most limit entries; older entries are dropped
// first once the buffer is full. A nil writer only counts and logs.
func NewRecorder(w FailureWriter, limit int, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	if limit <= 0 {
		limit = 1024
	}
	return &Recorder{w: w, log: log, now: time.Now, limit: limit}
}

func (r *Recorder) Record(failures []*scene.HookError) {
	now := r.now()
	for _, f := range failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		r.pending = append(r.pending, FailureEntry{
			EntityID:   uint64(f.Entity),
			EntityName: f.Name,
			Step:       f.Step,
			Message:    msg,
			RecordedAt: now,
		})
	}
	if over := len(r.pending) - r.limit; over > 0 {
		r.pending = append(r.pending[:0], r.pending[over:]...)
		r.dropped += over
	}
}

// Pending returns how many entries wait for the next flush.
func (r *Recorder) Pending() int { return len(r.pending) }

// Dropped returns how many entries were discarded because the buffer was full.
func (r *Recorder) Dropped() int { return r.dropped }

// Flush writes pending entries. On error they stay buffered for the next
// attempt.
func (r *Recorder) Flush(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	if r.w == nil {
		r.log.Debug("discarding teardown failures, no writer", zap.Int("count", len(r.pending)))
		r.pending = r.pending[:0]
		return nil
	}
	if err := r.w.WriteFailures(ctx, r.pending); err != nil {
		return fmt.Errorf("flush teardown failures: %w", err)
	}
	r.log.Debug("teardown failures flushed", zap.Int("count", len(r.pending)))
	r.pending = r.pending[:0]
	return nil
}
