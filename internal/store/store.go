// Package store persists chat transcripts for audit. Persistence is
// optional and best-effort: a failed write is logged, never surfaced to the
// chat caller.
package store

import (
	"context"
	"time"
)

// Transcript records one chat exchange and a summary of the context that
// was assembled for it.
type Transcript struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	GrantIDs     []string  `json:"grant_ids,omitempty"`
	FetchedURL   string    `json:"fetched_url,omitempty"`
	FetchFailure string    `json:"fetch_failure,omitempty"`
	HistoryLen   int       `json:"history_len"`
	CreatedAt    time.Time `json:"created_at"`
}

// TranscriptFilter specifies criteria for listing transcripts.
type TranscriptFilter struct {
	Since  time.Time
	Limit  int
	Offset int
}

// Store defines the transcript persistence interface.
type Store interface {
	RecordTranscript(ctx context.Context, t *Transcript) error
	ListTranscripts(ctx context.Context, filter TranscriptFilter) ([]Transcript, error)
	Migrate(ctx context.Context) error
	Close() error
}
