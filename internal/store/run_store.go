package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/opencart-qa/internal/model"
)

const runColumns = `id, run_id, name, execution_start_time, execution_end_time, execution_status`

// StartRun records the start of a test run under name.
func (s *SQLStore) StartRun(ctx context.Context, name string) (*model.Run, error) {
	if name == "" {
		name = "OpenCart"
	}

	run := &model.Run{
		RunID:     uuid.New().String(),
		Name:      name,
		StartedAt: time.Now().UTC().Truncate(time.Second),
		Status:    s.statusStart,
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO test_execution_reports (run_id, name, execution_start_time, execution_status)
		VALUES (?, ?, ?, ?)`,
		run.RunID, run.Name, run.StartedAt, run.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("starting run %s: %w", name, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		run.ID = id
	}

	return run, nil
}

// FinishRun records the end time and end status of runID, or of the most
// recently started run when runID is empty.
func (s *SQLStore) FinishRun(ctx context.Context, runID string) (*model.Run, error) {
	var (
		run *model.Run
		err error
	)
	if runID == "" {
		run, err = s.LatestRun(ctx)
	} else {
		run, err = s.getRun(ctx, runID)
	}
	if err != nil {
		return nil, err
	}

	ended := time.Now().UTC().Truncate(time.Second)
	_, err = s.db.ExecContext(ctx, `
		UPDATE test_execution_reports
		SET execution_end_time = ?, execution_status = ?
		WHERE id = ?`,
		ended, s.statusEnd, run.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("finishing run %s: %w", run.RunID, err)
	}

	run.EndedAt = sql.NullTime{Time: ended, Valid: true}
	run.Status = s.statusEnd
	return run, nil
}

// LatestRun returns the most recently started run, or ErrNoRuns.
func (s *SQLStore) LatestRun(ctx context.Context) (*model.Run, error) {
	var run model.Run
	err := s.db.GetContext(ctx, &run,
		"SELECT "+runColumns+" FROM test_execution_reports ORDER BY id DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest run: %w", err)
	}
	return &run, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *SQLStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	query := "SELECT " + runColumns + " FROM test_execution_reports ORDER BY id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var runs []model.Run
	if err := s.db.SelectContext(ctx, &runs, query); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func (s *SQLStore) getRun(ctx context.Context, runID string) (*model.Run, error) {
	var run model.Run
	err := s.db.GetContext(ctx, &run,
		"SELECT "+runColumns+" FROM test_execution_reports WHERE run_id = ?", runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}
	return &run, nil
}
