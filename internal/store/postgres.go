package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 5
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS transcripts (
	id            TEXT PRIMARY KEY,
	question      TEXT NOT NULL,
	answer        TEXT NOT NULL,
	grant_ids     TEXT NOT NULL DEFAULT '',
	fetched_url   TEXT NOT NULL DEFAULT '',
	fetch_failure TEXT NOT NULL DEFAULT '',
	history_len   INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at);
`

// Migrate creates the transcript schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// RecordTranscript inserts one chat exchange.
func (s *PostgresStore) RecordTranscript(ctx context.Context, t *Transcript) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO transcripts (id, question, answer, grant_ids, fetched_url, fetch_failure, history_len, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Question, t.Answer, strings.Join(t.GrantIDs, ","),
		t.FetchedURL, t.FetchFailure, t.HistoryLen, t.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: record transcript")
	}
	return nil
}

// ListTranscripts returns transcripts newest first, honoring the filter.
func (s *PostgresStore) ListTranscripts(ctx context.Context, filter TranscriptFilter) ([]Transcript, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, question, answer, grant_ids, fetched_url, fetch_failure, history_len, created_at
		 FROM transcripts
		 WHERE created_at >= $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		filter.Since, limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list transcripts")
	}
	defer rows.Close()

	var out []Transcript
	for rows.Next() {
		var t Transcript
		var grantIDs string
		if err := rows.Scan(&t.ID, &t.Question, &t.Answer, &grantIDs,
			&t.FetchedURL, &t.FetchFailure, &t.HistoryLen, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan transcript")
		}
		if grantIDs != "" {
			t.GrantIDs = strings.Split(grantIDs, ",")
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate transcripts")
	}
	return out, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
