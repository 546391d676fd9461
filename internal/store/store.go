// Package store implements the PostgreSQL-backed persistence layer for
// pg_task: transactional fetch/lock/update primitives, crash-recovery
// unlocking, and the enqueue path. It has no knowledge of user step
// types — steps are opaque JSON documents here.
package store

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Task is one row of pg_task, as seen by the dispatcher.
type Task struct {
	ID       uuid.UUID
	Step     []byte
	Tried    int
	WakeupAt time.Time
}

// ParkedTask is a task with a non-null error, surfaced for operator
// inspection via the admin API.
type ParkedTask struct {
	ID        uuid.UUID
	Step      []byte
	Tried     int
	Error     string
	UpdatedAt time.Time
}

// Config bounds pool sizing; DSN is required.
type Config struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnectTimeout time.Duration
	SkipMigrations bool
}

// Store wraps a pgxpool.Pool and exposes the operations the dispatcher
// and step executor need against pg_task.
type Store struct {
	pool *pgxpool.Pool
	dsn  string
}

// Open creates a connection pool, runs embedded migrations, and returns
// a ready Store. Migrations are skipped when cfg.SkipMigrations is set,
// for callers that manage the schema out of band.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgtask: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgtask: pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgtask: ping: %w", err)
	}

	if !cfg.SkipMigrations {
		if err := RunMigrations(cfg.DSN); err != nil {
			pool.Close()
			return nil, fmt.Errorf("pgtask: migrations: %w", err)
		}
	}

	return &Store{pool: pool, dsn: cfg.DSN}, nil
}

// RunMigrations applies all pending up-migrations against dsn. Safe to
// call multiple times — ErrNoChange is treated as success.
func RunMigrations(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, toMigrateURL(dsn))
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// toMigrateURL converts a postgres:// or postgresql:// DSN to the
// pgx5:// scheme golang-migrate's pgx/v5 driver expects.
func toMigrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + dsn[len(prefix):]
		}
	}
	return "pgx5://" + dsn
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pgxpool.Pool for use by step code that
// needs to read/write other tables in the same database (see Handle).
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// DSN returns the connection string used to open this Store, so the
// notifier can open its own dedicated LISTEN connection.
func (s *Store) DSN() string {
	return s.dsn
}

// Ping probes the pool with a trivial statement; used by the
// dispatcher's reconnect-backoff loop to detect recovery.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.pool.QueryRow(ctx, `SELECT 1`).Scan(&one)
}

// UnlockAll clears is_running on every row. Intended to run once at
// worker startup: a previous crashed worker may have left rows locked
// as running indefinitely. Idempotent.
func (s *Store) UnlockAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE pg_task SET is_running = false WHERE is_running = true`)
	if err != nil {
		return 0, fmt.Errorf("unlock_all: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FetchClosest begins a transaction and returns the task with the
// smallest wakeup_at among rows with is_running=false AND error IS
// NULL, row-locked until the transaction ends. Returns a nil task (with
// the transaction still open, for the caller to commit) if none is
// eligible. The caller owns the returned transaction and must
// Commit/Rollback it.
func (s *Store) FetchClosest(ctx context.Context) (pgx.Tx, *Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}

	var t Task
	err = tx.QueryRow(ctx, `
		SELECT id, step, tried, wakeup_at
		FROM pg_task
		WHERE is_running = false AND error IS NULL
		ORDER BY wakeup_at ASC, id ASC
		LIMIT 1
		FOR UPDATE
	`).Scan(&t.ID, &t.Step, &t.Tried, &t.WakeupAt)
	if err == pgx.ErrNoRows {
		return tx, nil, nil
	}
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, nil, fmt.Errorf("fetch_closest: %w", err)
	}
	return tx, &t, nil
}

// MarkRunning sets is_running=true within the given transaction.
func (s *Store) MarkRunning(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE pg_task SET is_running = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark_running: %w", err)
	}
	return nil
}

// Enqueue inserts a new task row scheduled at `at` and returns its id.
func (s *Store) Enqueue(ctx context.Context, stepDoc []byte, at time.Time) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO pg_task (step, wakeup_at) VALUES ($1, $2) RETURNING id
	`, stepDoc, at).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue: %w", err)
	}
	return id, nil
}

// RecordComplete deletes the row for a task that ran to completion.
func (s *Store) RecordComplete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pg_task WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record_complete: %w", err)
	}
	return nil
}

// RecordNextStep overwrites step, resets tried to 0, clears is_running,
// and schedules the next run after delay.
func (s *Store) RecordNextStep(ctx context.Context, id uuid.UUID, stepDoc []byte, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE pg_task
		SET is_running = false,
		    tried = 0,
		    step = $2,
		    updated_at = now(),
		    wakeup_at = now() + $3::interval
		WHERE id = $1
	`, id, stepDoc, delay.String())
	if err != nil {
		return fmt.Errorf("record_next_step: %w", err)
	}
	return nil
}

// RecordRetry increments tried, clears is_running, and reschedules
// after retryDelay.
func (s *Store) RecordRetry(ctx context.Context, id uuid.UUID, retryDelay time.Duration) error {
	if retryDelay < 0 {
		retryDelay = 0
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE pg_task
		SET is_running = false,
		    tried = tried + 1,
		    updated_at = now(),
		    wakeup_at = now() + $2::interval
		WHERE id = $1
	`, id, retryDelay.String())
	if err != nil {
		return fmt.Errorf("record_retry: %w", err)
	}
	return nil
}

// RecordFail clears is_running, sets error, and parks the task. It
// returns the row's tried count and step document as they stood at the
// moment of parking, for the caller to log an ordinal attempt message.
func (s *Store) RecordFail(ctx context.Context, id uuid.UUID, errMsg string) (tried int, stepDoc []byte, err error) {
	now := time.Now().UTC()
	err = s.pool.QueryRow(ctx, `
		UPDATE pg_task
		SET is_running = false,
		    error = $2,
		    updated_at = $3,
		    wakeup_at = $3
		WHERE id = $1
		RETURNING tried, step
	`, id, errMsg, now).Scan(&tried, &stepDoc)
	if err != nil {
		return 0, nil, fmt.Errorf("record_fail: %w", err)
	}
	return tried, stepDoc, nil
}

// TaskDetail is a full pg_task row, for operator introspection via the
// admin API — unlike Task, it carries the run/park state the dispatch
// loop doesn't need.
type TaskDetail struct {
	ID        uuid.UUID
	Step      []byte
	Tried     int
	WakeupAt  time.Time
	IsRunning bool
	Error     *string
	UpdatedAt time.Time
}

// GetTask returns the full row for id, regardless of its current
// state (ready, running, or parked).
func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*TaskDetail, error) {
	var d TaskDetail
	err := s.pool.QueryRow(ctx, `
		SELECT id, step, tried, wakeup_at, is_running, error, updated_at
		FROM pg_task
		WHERE id = $1
	`, id).Scan(&d.ID, &d.Step, &d.Tried, &d.WakeupAt, &d.IsRunning, &d.Error, &d.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get_task: %w", err)
	}
	return &d, nil
}

// ListParked returns up to limit parked tasks (error IS NOT NULL; 100
// when limit <= 0), most recently updated first.
func (s *Store) ListParked(ctx context.Context, limit int) ([]ParkedTask, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, step, tried, error, updated_at
		FROM pg_task
		WHERE error IS NOT NULL
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list_parked: %w", err)
	}
	defer rows.Close()

	var out []ParkedTask
	for rows.Next() {
		var p ParkedTask
		if err := rows.Scan(&p.ID, &p.Step, &p.Tried, &p.Error, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list_parked scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountParked returns the number of currently parked tasks.
func (s *Store) CountParked(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM pg_task WHERE error IS NOT NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count_parked: %w", err)
	}
	return n, nil
}

// CountReady returns the number of tasks currently eligible for
// dispatch (not running, not parked, due now or in the past).
func (s *Store) CountReady(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM pg_task
		WHERE is_running = false AND error IS NULL AND wakeup_at <= now()
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count_ready: %w", err)
	}
	return n, nil
}

// RetryParked clears a parked task's error and reschedules it for
// immediate dispatch, giving an operator-triggered retry.
func (s *Store) RetryParked(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pg_task
		SET error = NULL, tried = 0, updated_at = now(), wakeup_at = now()
		WHERE id = $1 AND error IS NOT NULL
	`, id)
	if err != nil {
		return fmt.Errorf("retry_parked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeParked deletes a parked task permanently.
func (s *Store) PurgeParked(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pg_task WHERE id = $1 AND error IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("purge_parked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
