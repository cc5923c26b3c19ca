package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/matsen/pubmerge/internal/config"
	"github.com/matsen/pubmerge/internal/dedupe"
	"github.com/matsen/pubmerge/internal/review"
)

// ErrRunNotFound is returned for a run id the audit store does not know.
var ErrRunNotFound = errors.New("run not found")

// Audit is the SQLite record of finished dedup runs: the configuration used,
// every automatic removal, and every review decision. Nothing is resumed
// from it.
type Audit struct {
	db  *sql.DB
	now func() time.Time
}

// Run is one stored dedup run.
type Run struct {
	ID        string         `json:"id"`
	StartedAt time.Time      `json:"started_at"`
	Config    string         `json:"config"` // YAML
	Batches   int            `json:"batches"`
	Summary   dedupe.Summary `json:"summary"`
}

// StoredDecision is a review decision together with its batch.
type StoredDecision struct {
	Batch string `json:"batch"`
	review.Decision
}

// OpenAudit opens or creates an audit database at the given path.
func OpenAudit(path string) (*Audit, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes; one connection also keeps
	// an in-memory database alive.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Audit{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (a *Audit) Close() error {
	return a.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			config_yaml TEXT NOT NULL,
			batches INTEGER NOT NULL DEFAULT 0,
			initial_count INTEGER NOT NULL DEFAULT 0,
			final_count INTEGER NOT NULL DEFAULT 0,
			auto_removed INTEGER NOT NULL DEFAULT 0,
			pending_review INTEGER NOT NULL DEFAULT 0,
			review_groups INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS dedup_log (
			run_id TEXT NOT NULL REFERENCES runs(id),
			batch_key TEXT NOT NULL,
			removed_id TEXT NOT NULL,
			removed_json TEXT NOT NULL,
			kept_id TEXT NOT NULL,
			kept_title TEXT NOT NULL,
			kept_doi TEXT,
			reason TEXT NOT NULL,
			matched_by TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_dedup_log_run ON dedup_log(run_id);

		CREATE TABLE IF NOT EXISTS review_decisions (
			run_id TEXT NOT NULL REFERENCES runs(id),
			batch_key TEXT NOT NULL,
			group_index INTEGER NOT NULL,
			kept_json TEXT NOT NULL,
			discarded_json TEXT NOT NULL,
			PRIMARY KEY (run_id, batch_key, group_index)
		);
	`

	_, err := db.Exec(schema)
	return err
}

// BeginRun stores a new run with the configuration it uses and returns its id.
func (a *Audit) BeginRun(cfg *config.Config) (string, error) {
	cfgYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}

	id := uuid.NewString()
	_, err = a.db.Exec(`INSERT INTO runs (id, started_at, config_yaml) VALUES (?, ?, ?)`,
		id, a.now().UTC().UnixMilli(), string(cfgYAML))
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// RecordBatch stores the automatic removals of one batch and adds its
// summary to the run totals.
func (a *Audit) RecordBatch(runID string, res *dedupe.Result) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	s := res.Summary
	upd, err := tx.Exec(`
		UPDATE runs SET
			batches = batches + 1,
			initial_count = initial_count + ?,
			final_count = final_count + ?,
			auto_removed = auto_removed + ?,
			pending_review = pending_review + ?,
			review_groups = review_groups + ?
		WHERE id = ?`,
		s.Initial, s.Final, s.AutoRemoved, s.PendingReview, s.ReviewGroups, runID)
	if err != nil {
		return fmt.Errorf("updating run totals: %w", err)
	}
	if n, _ := upd.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO dedup_log (
			run_id, batch_key, removed_id, removed_json,
			kept_id, kept_title, kept_doi, reason, matched_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing log insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range res.Log {
		removed, err := e.Removed.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encoding removed record %s: %w", e.Removed.ID, err)
		}
		_, err = stmt.Exec(runID, res.Key, e.Removed.ID, string(removed),
			e.KeptID, e.KeptTitle, nullableString(e.KeptDOI), e.Reason, string(e.MatchedBy))
		if err != nil {
			return fmt.Errorf("inserting log entry for %s: %w", e.Removed.ID, err)
		}
	}

	return tx.Commit()
}

// RecordDecision stores one review decision.
func (a *Audit) RecordDecision(runID, batchKey string, d review.Decision) error {
	kept, err := json.Marshal(d.Kept)
	if err != nil {
		return fmt.Errorf("encoding kept ids: %w", err)
	}
	discarded, err := json.Marshal(d.Discarded)
	if err != nil {
		return fmt.Errorf("encoding discarded ids: %w", err)
	}

	res, err := a.db.Exec(`
		INSERT INTO review_decisions (run_id, batch_key, group_index, kept_json, discarded_json)
		SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM runs WHERE id = ?)`,
		runID, batchKey, d.GroupIndex, string(kept), string(discarded), runID)
	if err != nil {
		return fmt.Errorf("inserting decision for group %d: %w", d.GroupIndex, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// FinishRun replaces the run totals with the summary after review.
func (a *Audit) FinishRun(runID string, total dedupe.Summary) error {
	res, err := a.db.Exec(`
		UPDATE runs SET
			initial_count = ?, final_count = ?, auto_removed = ?,
			pending_review = ?, review_groups = ?
		WHERE id = ?`,
		total.Initial, total.Final, total.AutoRemoved, total.PendingReview, total.ReviewGroups, runID)
	if err != nil {
		return fmt.Errorf("updating run totals: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const selectRunFields = `id, started_at, config_yaml, batches,
	initial_count, final_count, auto_removed, pending_review, review_groups`

// ListRuns returns every stored run, newest first.
func (a *Audit) ListRuns() ([]Run, error) {
	rows, err := a.db.Query(`SELECT ` + selectRunFields + ` FROM runs ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns one stored run.
func (a *Audit) GetRun(runID string) (*Run, error) {
	row := a.db.QueryRow(`SELECT `+selectRunFields+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// LogEntries returns the automatic removals of a run in the order recorded.
func (a *Audit) LogEntries(runID string) ([]dedupe.LogEntry, error) {
	if _, err := a.GetRun(runID); err != nil {
		return nil, err
	}

	rows, err := a.db.Query(`
		SELECT removed_json, kept_id, kept_title, kept_doi, reason, matched_by
		FROM dedup_log WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying log: %w", err)
	}
	defer rows.Close()

	var entries []dedupe.LogEntry
	for rows.Next() {
		var (
			e         dedupe.LogEntry
			removed   string
			keptDOI   sql.NullString
			matchedBy string
		)
		if err := rows.Scan(&removed, &e.KeptID, &e.KeptTitle, &keptDOI, &e.Reason, &matchedBy); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		if err := json.Unmarshal([]byte(removed), &e.Removed); err != nil {
			return nil, fmt.Errorf("decoding removed record: %w", err)
		}
		e.KeptDOI = keptDOI.String
		e.MatchedBy = dedupe.MatchedBy(matchedBy)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Decisions returns the review decisions of a run ordered by batch and group.
func (a *Audit) Decisions(runID string) ([]StoredDecision, error) {
	rows, err := a.db.Query(`
		SELECT batch_key, group_index, kept_json, discarded_json
		FROM review_decisions WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var out []StoredDecision
	for rows.Next() {
		var (
			d               StoredDecision
			kept, discarded string
		)
		if err := rows.Scan(&d.Batch, &d.GroupIndex, &kept, &discarded); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		if err := json.Unmarshal([]byte(kept), &d.Kept); err != nil {
			return nil, fmt.Errorf("decoding kept ids: %w", err)
		}
		if err := json.Unmarshal([]byte(discarded), &d.Discarded); err != nil {
			return nil, fmt.Errorf("decoding discarded ids: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r       Run
		started int64
	)
	err := s.Scan(&r.ID, &started, &r.Config, &r.Batches,
		&r.Summary.Initial, &r.Summary.Final, &r.Summary.AutoRemoved,
		&r.Summary.PendingReview, &r.Summary.ReviewGroups)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	r.StartedAt = time.UnixMilli(started).UTC()
	return &r, nil
}

// nullableString returns nil for empty strings so the column stores NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
