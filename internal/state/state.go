// Package state persists migration progress so an interrupted run can be
// resumed without creating duplicate tasks.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/db"
	"github.com/cl0ne/trello-to-kanboard-migrate/internal/migrate"
)

// Run statuses
const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// Target identifies a board/project migration pair.
type Target struct {
	BoardID   string
	ProjectID int
}

func (t Target) String() string {
	return fmt.Sprintf("%s -> %d", t.BoardID, t.ProjectID)
}

// Store reads and writes the migration journal.
type Store struct {
	db *db.DB
}

// New creates a Store wrapping the given database connection.
func New(database *db.DB) *Store {
	return &Store{db: database}
}

// withTx executes fn within a transaction. If fn returns nil, the transaction
// is committed; otherwise it is rolled back.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) exec(query string, args ...interface{}) error {
	_, err := s.db.Exec(s.db.Rebind(query), args...)
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// BeginRun records the start of a run and returns a journal for it.
func (s *Store) BeginRun(target Target) (*Run, error) {
	run := &Run{
		store:     s,
		ID:        uuid.New().String(),
		Target:    target,
		StartedAt: time.Now().UTC(),
	}
	err := s.exec(`INSERT INTO runs (id, board_id, project_id, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, target.BoardID, target.ProjectID, StatusRunning, run.StartedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// Load returns the progress recorded for target by earlier runs.
func (s *Store) Load(target Target) (*migrate.Checkpoint, error) {
	cards, err := s.loadCards(target)
	if err != nil {
		return nil, err
	}
	pending, err := s.loadPending(target)
	if err != nil {
		return nil, err
	}
	return &migrate.Checkpoint{Cards: cards, Pending: pending}, nil
}

func (s *Store) loadCards(target Target) (map[string]int, error) {
	rows, err := s.db.Query(s.db.Rebind(`SELECT card_id, task_id FROM migrated_cards WHERE board_id = ? AND project_id = ?`),
		target.BoardID, target.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrated cards: %w", err)
	}
	defer rows.Close()

	cards := map[string]int{}
	for rows.Next() {
		var cardID string
		var taskID int
		if err := rows.Scan(&cardID, &taskID); err != nil {
			return nil, fmt.Errorf("failed to scan migrated card: %w", err)
		}
		cards[cardID] = taskID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migrated cards: %w", err)
	}
	return cards, nil
}

func (s *Store) loadPending(target Target) ([]migrate.Pair, error) {
	rows, err := s.db.Query(s.db.Rebind(`SELECT card_a, card_b FROM pending_relations WHERE board_id = ? AND project_id = ? ORDER BY card_a, card_b`),
		target.BoardID, target.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending relations: %w", err)
	}
	defer rows.Close()

	var pending []migrate.Pair
	for rows.Next() {
		var p migrate.Pair
		if err := rows.Scan(&p.A, &p.B); err != nil {
			return nil, fmt.Errorf("failed to scan pending relation: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending relations: %w", err)
	}
	return pending, nil
}

// ClearResult reports what Clear removed.
type ClearResult struct {
	Cards     int64 `json:"cards" yaml:"cards"`
	Relations int64 `json:"relations" yaml:"relations"`
	Runs      int64 `json:"runs" yaml:"runs"`
}

// Clear forgets everything recorded for target.
func (s *Store) Clear(target Target) (*ClearResult, error) {
	res := &ClearResult{}
	err := s.withTx(func(tx *sql.Tx) error {
		deletes := []struct {
			query string
			count *int64
		}{
			{`DELETE FROM migrated_cards WHERE board_id = ? AND project_id = ?`, &res.Cards},
			{`DELETE FROM pending_relations WHERE board_id = ? AND project_id = ?`, &res.Relations},
			{`DELETE FROM runs WHERE board_id = ? AND project_id = ?`, &res.Runs},
		}
		for _, d := range deletes {
			r, err := tx.Exec(s.db.Rebind(d.query), target.BoardID, target.ProjectID)
			if err != nil {
				return fmt.Errorf("failed to clear journal: %w", err)
			}
			*d.count, _ = r.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RunRecord is a stored run.
type RunRecord struct {
	ID         string           `json:"id" yaml:"id"`
	BoardID    string           `json:"board_id" yaml:"board_id"`
	ProjectID  int              `json:"project_id" yaml:"project_id"`
	Status     string           `json:"status" yaml:"status"`
	StartedAt  string           `json:"started_at" yaml:"started_at"`
	FinishedAt string           `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Summary    *migrate.Summary `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// ListRuns returns the most recent runs first. A zero limit returns all runs.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	query := `SELECT id, board_id, project_id, status, started_at, finished_at, summary FROM runs ORDER BY started_at DESC, id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var rec RunRecord
		var finished, summary sql.NullString
		if err := rows.Scan(&rec.ID, &rec.BoardID, &rec.ProjectID, &rec.Status, &rec.StartedAt, &finished, &summary); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.FinishedAt = finished.String
		if summary.Valid && summary.String != "" {
			var sum migrate.Summary
			if err := json.Unmarshal([]byte(summary.String), &sum); err != nil {
				return nil, fmt.Errorf("failed to decode summary of run %s: %w", rec.ID, err)
			}
			rec.Summary = &sum
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Run is the journal of a single migration run. It implements
// migrate.Journal.
type Run struct {
	store     *Store
	ID        string
	Target    Target
	StartedAt time.Time
}

// CardMigrated records a card -> task mapping.
func (r *Run) CardMigrated(cardID string, taskID int) error {
	err := r.store.exec(`INSERT INTO migrated_cards (board_id, project_id, card_id, task_id, run_id, migrated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (board_id, project_id, card_id)
		DO UPDATE SET task_id = excluded.task_id, run_id = excluded.run_id, migrated_at = excluded.migrated_at`,
		r.Target.BoardID, r.Target.ProjectID, cardID, taskID, r.ID, now())
	if err != nil {
		return fmt.Errorf("failed to record card %s: %w", cardID, err)
	}
	return nil
}

// RelationPending records a relation waiting for its other end.
func (r *Run) RelationPending(p migrate.Pair) error {
	p = migrate.NewPair(p.A, p.B)
	err := r.store.exec(`INSERT INTO pending_relations (board_id, project_id, card_a, card_b, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (board_id, project_id, card_a, card_b) DO NOTHING`,
		r.Target.BoardID, r.Target.ProjectID, p.A, p.B, r.ID, now())
	if err != nil {
		return fmt.Errorf("failed to record relation %s-%s: %w", p.A, p.B, err)
	}
	return nil
}

// RelationResolved removes a relation from the pending set.
func (r *Run) RelationResolved(p migrate.Pair) error {
	p = migrate.NewPair(p.A, p.B)
	err := r.store.exec(`DELETE FROM pending_relations WHERE board_id = ? AND project_id = ? AND card_a = ? AND card_b = ?`,
		r.Target.BoardID, r.Target.ProjectID, p.A, p.B)
	if err != nil {
		return fmt.Errorf("failed to resolve relation %s-%s: %w", p.A, p.B, err)
	}
	return nil
}

// Finish stores the outcome of the run. runErr is the error returned by
// the migration, if any.
func (r *Run) Finish(summary *migrate.Summary, runErr error) error {
	status := StatusCompleted
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		status = StatusInterrupted
	default:
		status = StatusFailed
	}

	var encoded sql.NullString
	if summary != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
		encoded = sql.NullString{String: string(data), Valid: true}
	}

	err := r.store.exec(`UPDATE runs SET status = ?, finished_at = ?, summary = ? WHERE id = ?`,
		status, now(), encoded, r.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", r.ID, err)
	}
	return nil
}

var _ migrate.Journal = (*Run)(nil)
