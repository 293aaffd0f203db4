package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run records one completed migration.
type Run struct {
	ID         int64
	RunID      string
	GatewayID  int64 // 0 when the gateway was not recorded
	OutputPath string
	DryRun     bool
	Sensors    int
	Lights     int
	CreatedAt  time.Time
}

// RunStore records migration history.
type RunStore interface {
	Create(ctx context.Context, r *Run) error
	Recent(ctx context.Context, limit int) ([]*Run, error)
}

// Runs returns a RunStore for this database.
func (db *DB) Runs() RunStore {
	return &runStore{db: db}
}

type runStore struct {
	db *DB
}

func (s *runStore) Create(ctx context.Context, r *Run) error {
	var gatewayID sql.NullInt64
	if r.GatewayID != 0 {
		gatewayID = sql.NullInt64{Int64: r.GatewayID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, gateway_id, output_path, dry_run, sensors, lights)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.RunID, gatewayID, r.OutputPath, r.DryRun, r.Sensors, r.Lights)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// Recent returns the latest runs, newest first.
func (s *runStore) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, gateway_id, output_path, dry_run, sensors, lights, created_at
		FROM runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var gatewayID sql.NullInt64
		var createdAt string
		if err := rows.Scan(&r.ID, &r.RunID, &gatewayID, &r.OutputPath, &r.DryRun, &r.Sensors, &r.Lights, &createdAt); err != nil {
			return nil, err
		}
		r.GatewayID = gatewayID.Int64
		r.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
