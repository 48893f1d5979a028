package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS transcripts (
	id            TEXT PRIMARY KEY,
	question      TEXT NOT NULL,
	answer        TEXT NOT NULL,
	grant_ids     TEXT NOT NULL DEFAULT '',
	fetched_url   TEXT NOT NULL DEFAULT '',
	fetch_failure TEXT NOT NULL DEFAULT '',
	history_len   INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at);
`

// Migrate creates the transcript schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// RecordTranscript inserts one chat exchange. The transcript's ID and
// CreatedAt are assigned here when unset.
func (s *SQLiteStore) RecordTranscript(ctx context.Context, t *Transcript) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (id, question, answer, grant_ids, fetched_url, fetch_failure, history_len, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Question, t.Answer, strings.Join(t.GrantIDs, ","),
		t.FetchedURL, t.FetchFailure, t.HistoryLen, t.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: record transcript")
	}
	return nil
}

// ListTranscripts returns transcripts newest first, honoring the filter.
func (s *SQLiteStore) ListTranscripts(ctx context.Context, filter TranscriptFilter) ([]Transcript, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, grant_ids, fetched_url, fetch_failure, history_len, created_at
		 FROM transcripts
		 WHERE created_at >= ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		filter.Since, limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list transcripts")
	}
	defer rows.Close()

	var out []Transcript
	for rows.Next() {
		var t Transcript
		var grantIDs string
		if err := rows.Scan(&t.ID, &t.Question, &t.Answer, &grantIDs,
			&t.FetchedURL, &t.FetchFailure, &t.HistoryLen, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan transcript")
		}
		if grantIDs != "" {
			t.GrantIDs = strings.Split(grantIDs, ",")
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate transcripts")
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
