// Package server exposes the chat endpoint over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/springfield-isd/grants-assistant/internal/assemble"
	"github.com/springfield-isd/grants-assistant/internal/completion"
	"github.com/springfield-isd/grants-assistant/internal/model"
	"github.com/springfield-isd/grants-assistant/internal/store"
)

// Server wires the assembler and completion requester behind the chat API.
// Transcripts is optional; nil disables audit logging.
type Server struct {
	Assembler   *assemble.Assembler
	Requester   *completion.Requester
	Transcripts store.Store
}

// New creates a Server.
func New(asm *assemble.Assembler, req *completion.Requester, transcripts store.Store) *Server {
	return &Server{Assembler: asm, Requester: req, Transcripts: transcripts}
}

// Router builds the chi router with CORS and panic recovery.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/chat", s.handleChat)
	return r
}

type chatRequest struct {
	Question string        `json:"question"`
	History  model.History `json:"history"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat runs the full per-request path: assemble context, call the
// completion service, record the transcript. Fetch and completion failures
// degrade into the answer string; only a missing question is a client error.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing 'question' in request body"})
		return
	}

	zap.L().Info("chat request",
		zap.Int("question_len", len(req.Question)),
		zap.Int("history_len", len(req.History)),
	)

	ctx := r.Context()
	asm := s.Assembler.Assemble(ctx, req.Question)

	history := append(append(model.History{}, req.History...), model.Turn{
		Role:    model.RoleUser,
		Content: req.Question,
	})

	answer, err := s.Requester.Respond(ctx, history, asm)
	if err != nil {
		// Already mapped to a user-facing answer; log the cause only.
		zap.L().Warn("chat completion degraded", zap.Error(err))
	}

	s.recordTranscript(ctx, req, asm, answer)

	writeJSON(w, http.StatusOK, chatResponse{Answer: answer})
}

// recordTranscript persists the exchange best-effort; failures are logged
// and never affect the response.
func (s *Server) recordTranscript(ctx context.Context, req chatRequest, asm assemble.Context, answer string) {
	if s.Transcripts == nil {
		return
	}

	t := &store.Transcript{
		Question:   req.Question,
		Answer:     answer,
		HistoryLen: len(req.History),
	}
	for _, g := range asm.Grants {
		t.GrantIDs = append(t.GrantIDs, g.OpportunityID)
	}
	if asm.Fetched != nil {
		t.FetchFailure = string(asm.Fetched.Failure)
		if len(asm.Grants) == 1 {
			t.FetchedURL = asm.Grants[0].Link
		}
	}

	if err := s.Transcripts.RecordTranscript(ctx, t); err != nil {
		zap.L().Warn("server: record transcript", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

// recoverer converts panics in request handling into a generic 500 error
// payload instead of killing the connection.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("server: panic in handler", zap.Any("panic", rec))
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "An internal server error occurred."})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
