// Package journal keeps a local SQLite history of every change-state and
// migration document sent to the server.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/caseview/pkg/metrics"
	"github.com/vanderheijden86/caseview/pkg/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id                 TEXT PRIMARY KEY,
	kind               TEXT NOT NULL,
	case_instance_id   TEXT NOT NULL DEFAULT '',
	case_definition_id TEXT NOT NULL DEFAULT '',
	payload            TEXT NOT NULL,
	error              TEXT NOT NULL DEFAULT '',
	submitted_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS submissions_at ON submissions(submitted_at);
`

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("journal entry not found")

// Entry is one recorded submission.
type Entry struct {
	ID               string
	Kind             session.SubmissionKind
	CaseInstanceID   string
	CaseDefinitionID string
	Payload          string
	Error            string
	At               time.Time
}

// OK reports whether the server accepted the submission.
func (e Entry) OK() bool {
	return e.Error == ""
}

// Target returns the instance or definition id the document went to.
func (e Entry) Target() string {
	if e.CaseInstanceID != "" {
		return e.CaseInstanceID
	}
	return e.CaseDefinitionID
}

// Store is a journal backed by a SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("cannot open journal: %w", err)
	}
	// sqlite allows one writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores a submission. It implements session.Recorder.
func (s *Store) Record(ctx context.Context, sub session.Submission) error {
	defer metrics.Timer(metrics.JournalWrite)()

	payload, err := json.Marshal(sub.Document)
	if err != nil {
		return fmt.Errorf("encoding journal payload: %w", err)
	}
	var errText string
	if sub.Err != nil {
		errText = sub.Err.Error()
	}
	at := sub.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, kind, case_instance_id, case_definition_id, payload, error, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), string(sub.Kind), sub.CaseInstanceID, sub.CaseDefinitionID,
		string(payload), errText, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("writing journal entry: %w", err)
	}
	return nil
}

// ListOptions filters List.
type ListOptions struct {
	Limit  int    // 0 means all
	Target string // instance or definition id
	Failed bool   // only rejected submissions
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	query := `SELECT id, kind, case_instance_id, case_definition_id, payload, error, submitted_at
		FROM submissions WHERE 1 = 1`
	var args []any
	if opts.Target != "" {
		query += ` AND (case_instance_id = ? OR case_definition_id = ?)`
		args = append(args, opts.Target, opts.Target)
	}
	if opts.Failed {
		query += ` AND error != ''`
	}
	query += ` ORDER BY submitted_at DESC, rowid DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns one entry by id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, case_instance_id, case_definition_id, payload, error, submitted_at
		 FROM submissions WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(r scanner) (Entry, error) {
	var e Entry
	var kind string
	var at int64
	if err := r.Scan(&e.ID, &kind, &e.CaseInstanceID, &e.CaseDefinitionID, &e.Payload, &e.Error, &at); err != nil {
		return Entry{}, err
	}
	e.Kind = session.SubmissionKind(kind)
	e.At = time.UnixMilli(at)
	return e, nil
}
