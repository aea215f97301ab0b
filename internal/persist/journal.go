package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/flockcity/sim/internal/config"
	"go.uber.org/zap"
)

const maxPendingBatches = 4

// RunInfo describes one simulation run.
type RunInfo struct {
	Seed         int64
	Flocks       int
	InitialBoids int
	Obstacles    int
	TickRate     time.Duration
}

// Sample is a periodic snapshot of population-level counters.
type Sample struct {
	Tick        uint64
	SimTime     float64
	Boids       int
	Projectiles int
	Interval    float64
	Consumed    int
	MeanSpeed   float64
}

// RunRow is a journaled run as read back.
type RunRow struct {
	ID           int64
	Seed         int64
	Flocks       int
	InitialBoids int
	Obstacles    int
	Ticks        int64
	FinalCount   *int
	Ended        bool
}

// Journal records run metadata and tick samples. Samples are buffered and
// written batchSize at a time in one transaction. It never restores
// simulation state.
//
// A failed write keeps the buffer for retry, but never more than
// maxPendingBatches batches; the oldest samples beyond that are dropped.
type Journal struct {
	db        *DB
	log       *zap.Logger
	runID     int64
	batch     []Sample
	batchSize int
	dropped   int
}

// Open connects per cfg, applies migrations and returns a ready journal.
func Open(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (*Journal, error) {
	db, err := NewDB(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewJournal(db, cfg.BatchSize, log), nil
}

func NewJournal(db *DB, batchSize int, log *zap.Logger) *Journal {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Journal{db: db, log: log, batchSize: batchSize}
}

// RunID is the current run, 0 before BeginRun.
func (j *Journal) RunID() int64 { return j.runID }

// Pending is the number of buffered, unwritten samples.
func (j *Journal) Pending() int { return len(j.batch) }

// Dropped counts samples discarded after repeated write failures.
func (j *Journal) Dropped() int { return j.dropped }

// BeginRun inserts the run row and makes it current.
func (j *Journal) BeginRun(ctx context.Context, info RunInfo) (int64, error) {
	var id int64
	err := j.db.SQL.QueryRowContext(ctx, j.db.rebind(
		`INSERT INTO runs (seed, flocks, initial_boids, obstacles, tick_rate)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`),
		info.Seed, info.Flocks, info.InitialBoids, info.Obstacles, info.TickRate.Seconds(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("journal begin run: %w", err)
	}
	j.runID = id
	j.batch = j.batch[:0]
	j.dropped = 0
	j.log.Info("開始記錄模擬", zap.Int64("run", id), zap.String("dialect", j.db.Dialect()))
	return id, nil
}

// RecordSample buffers s and writes the buffer once it is full.
func (j *Journal) RecordSample(ctx context.Context, s Sample) error {
	if j.runID == 0 {
		return fmt.Errorf("journal record sample: no run in progress")
	}
	j.batch = append(j.batch, s)
	if len(j.batch) < j.batchSize {
		return nil
	}
	err := j.Flush(ctx)
	if err != nil {
		j.trim()
	}
	return err
}

// trim drops the oldest buffered samples past the retry cap.
func (j *Journal) trim() {
	limit := maxPendingBatches * j.batchSize
	over := len(j.batch) - limit
	if over <= 0 {
		return
	}
	j.batch = append(j.batch[:0], j.batch[over:]...)
	j.dropped += over
	j.log.Warn("記錄緩衝已滿，捨棄舊樣本", zap.Int("dropped", over), zap.Int("pending", len(j.batch)))
}

// Flush atomically writes every buffered sample in a single transaction.
// A sample whose tick is already journaled for the run is skipped. On
// failure the buffer is kept for the next attempt.
func (j *Journal) Flush(ctx context.Context) error {
	if len(j.batch) == 0 {
		return nil
	}
	tx, err := j.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback()

	q := j.db.rebind(
		`INSERT INTO tick_samples (run_id, tick, sim_time, boids, projectiles, steer_interval, consumed, mean_speed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, tick) DO NOTHING`)
	for _, s := range j.batch {
		if _, err := tx.ExecContext(ctx, q,
			j.runID, int64(s.Tick), s.SimTime, s.Boids, s.Projectiles, s.Interval, s.Consumed, s.MeanSpeed,
		); err != nil {
			return fmt.Errorf("journal insert sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal commit: %w", err)
	}
	j.batch = j.batch[:0]
	return nil
}

// EndRun flushes remaining samples and closes the current run.
func (j *Journal) EndRun(ctx context.Context, ticks uint64, finalCount int) error {
	if j.runID == 0 {
		return nil
	}
	if err := j.Flush(ctx); err != nil {
		return err
	}
	if _, err := j.db.SQL.ExecContext(ctx, j.db.rebind(
		`UPDATE runs SET ended_at = CURRENT_TIMESTAMP, ticks = ?, final_count = ? WHERE id = ?`),
		int64(ticks), finalCount, j.runID,
	); err != nil {
		return fmt.Errorf("journal end run: %w", err)
	}
	j.log.Info("模擬記錄完成", zap.Int64("run", j.runID), zap.Uint64("ticks", ticks), zap.Int("boids", finalCount))
	j.runID = 0
	return nil
}

// Samples returns the written samples of runID ordered by tick.
func (j *Journal) Samples(ctx context.Context, runID int64) ([]Sample, error) {
	rows, err := j.db.SQL.QueryContext(ctx, j.db.rebind(
		`SELECT tick, sim_time, boids, projectiles, steer_interval, consumed, mean_speed
		 FROM tick_samples WHERE run_id = ? ORDER BY tick`), runID)
	if err != nil {
		return nil, fmt.Errorf("journal samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var s Sample
		var tick int64
		if err := rows.Scan(&tick, &s.SimTime, &s.Boids, &s.Projectiles, &s.Interval, &s.Consumed, &s.MeanSpeed); err != nil {
			return nil, fmt.Errorf("journal scan sample: %w", err)
		}
		s.Tick = uint64(tick)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Run loads one run row. A missing run returns nil, nil.
func (j *Journal) Run(ctx context.Context, runID int64) (*RunRow, error) {
	rows, err := j.db.SQL.QueryContext(ctx, j.db.rebind(
		`SELECT id, seed, flocks, initial_boids, obstacles, ticks, final_count, ended_at IS NOT NULL
		 FROM runs WHERE id = ?`), runID)
	if err != nil {
		return nil, fmt.Errorf("journal run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	r := &RunRow{}
	if err := rows.Scan(&r.ID, &r.Seed, &r.Flocks, &r.InitialBoids, &r.Obstacles, &r.Ticks, &r.FinalCount, &r.Ended); err != nil {
		return nil, fmt.Errorf("journal scan run: %w", err)
	}
	return r, nil
}

// Close flushes what it can and closes the database.
func (j *Journal) Close() {
	if err := j.Flush(context.Background()); err != nil {
		j.log.Error("關閉前寫入記錄失敗", zap.Error(err))
	}
	j.db.Close()
}
