package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gaitworks/posture.report/internal/protocol"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Percent   int       `json:"percent"`
	Level     string    `json:"level"`
}

// RunDetail is a full stored run including its step results and narrative.
type RunDetail struct {
	RunSummary
	Narrative     string                `json:"narrative"`
	Authoritative bool                  `json:"authoritative"`
	Steps         []protocol.StepResult `json:"steps"`
}

// SaveRun stores a finished run with its evaluation and returns the new run
// id. The step log is written in order inside one transaction.
func (db *DB) SaveRun(record protocol.RunRecord, eval protocol.Evaluation, source string) (string, error) {
	runID := uuid.NewString()

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin save run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (
			run_id, source, started_at, ended_at,
			completed, total, percent, level, narrative, authoritative
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, source, record.StartedAt.UTC(), record.EndedAt.UTC(),
		eval.Score.Completed, eval.Score.Total, eval.Score.Percent,
		string(eval.Level), eval.Narrative, eval.Authoritative,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for seq, step := range record.Steps {
		_, err = tx.Exec(
			`INSERT INTO run_steps (
				run_id, seq, step_key, kind, status, target, achieved, duration_ms
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, seq, step.Key, string(step.Kind), string(step.Status),
			step.Target, step.Achieved, step.DurationMs,
		)
		if err != nil {
			return "", fmt.Errorf("insert run step %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save run: %w", err)
	}
	return runID, nil
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT run_id, source, started_at, ended_at, completed, total, percent, level
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(
			&r.RunID, &r.Source, &r.StartedAt, &r.EndedAt,
			&r.Completed, &r.Total, &r.Percent, &r.Level,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// Run returns a stored run with its step log, or ErrRunNotFound.
func (db *DB) Run(runID string) (*RunDetail, error) {
	var d RunDetail
	err := db.QueryRow(
		`SELECT run_id, source, started_at, ended_at, completed, total,
		        percent, level, narrative, authoritative
		 FROM runs WHERE run_id = ?`, runID).Scan(
		&d.RunID, &d.Source, &d.StartedAt, &d.EndedAt, &d.Completed,
		&d.Total, &d.Percent, &d.Level, &d.Narrative, &d.Authoritative,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		`SELECT step_key, kind, status, target, achieved, duration_ms
		 FROM run_steps WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s protocol.StepResult
		var kind, status string
		if err := rows.Scan(&s.Key, &kind, &status, &s.Target, &s.Achieved, &s.DurationMs); err != nil {
			return nil, err
		}
		s.Kind = protocol.StepKind(kind)
		s.Status = protocol.StepStatus(status)
		d.Steps = append(d.Steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &d, nil
}
