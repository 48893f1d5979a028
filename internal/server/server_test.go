package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/springfield-isd/grants-assistant/internal/assemble"
	"github.com/springfield-isd/grants-assistant/internal/completion"
	"github.com/springfield-isd/grants-assistant/internal/grants"
	"github.com/springfield-isd/grants-assistant/internal/store"
	"github.com/springfield-isd/grants-assistant/internal/webfetch"
	"github.com/springfield-isd/grants-assistant/pkg/anthropic"
)

// fixedClient returns a canned answer or error for every completion call.
type fixedClient struct {
	answer string
	err    error
}

func (c *fixedClient) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &anthropic.MessageResponse{Text: c.answer}, nil
}

func newTestServer(t *testing.T, client anthropic.Client, transcripts store.Store) *Server {
	t.Helper()
	grantsPath := filepath.Join(t.TempDir(), "grants.json")
	require.NoError(t, os.WriteFile(grantsPath, []byte(`[
		{"opportunityID": "123456", "opportunityTitle": "STEM Lab Upgrade", "description": "classroom technology", "opportunityCategory": "Education", "eligibilityCodes": []}
	]`), 0o644))

	asm := assemble.New(grants.Load(grantsPath, ""), webfetch.New(0))
	return New(asm, completion.New(client), transcripts)
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChat_AnswersQuestion(t *testing.T) {
	srv := newTestServer(t, &fixedClient{answer: "The STEM Lab Upgrade grant supports classroom technology."}, nil)
	rec := postChat(t, srv.Router(), `{"question": "Tell me about grant 123456"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "The STEM Lab Upgrade grant supports classroom technology.", resp["answer"])
}

func TestChat_MissingQuestionIsClientError(t *testing.T) {
	srv := newTestServer(t, &fixedClient{answer: "unused"}, nil)

	rec := postChat(t, srv.Router(), `{"history": []}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "question")

	rec = postChat(t, srv.Router(), `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_CompletionFailureIsStillAnHTTPSuccess(t *testing.T) {
	srv := newTestServer(t, &fixedClient{err: &sdk.Error{StatusCode: 401}}, nil)
	rec := postChat(t, srv.Router(), `{"question": "Tell me about grant 123456"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["answer"], "Sorry, there's an issue with the chatbot configuration")
	assert.NotContains(t, resp, "error")
}

func TestChat_HistoryForwarded(t *testing.T) {
	srv := newTestServer(t, &fixedClient{answer: "ok"}, nil)
	rec := postChat(t, srv.Router(), `{
		"question": "and the award ceiling?",
		"history": [
			{"role": "user", "content": "Tell me about grant 123456"},
			{"role": "assistant", "content": "It funds STEM labs."}
		]
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChat_PanicBecomesInternalError(t *testing.T) {
	// A server with no assembler store panics inside the handler; the
	// recovery middleware converts it to a 500 error payload.
	srv := &Server{
		Assembler: &assemble.Assembler{Fetcher: webfetch.New(0)},
		Requester: completion.New(nil),
	}
	rec := postChat(t, srv.Router(), `{"question": "Tell me about 123456"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "An internal server error occurred.", resp["error"])
}

func TestChat_RecordsTranscript(t *testing.T) {
	ts, err := store.NewSQLite(filepath.Join(t.TempDir(), "transcripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ts.Close() })
	require.NoError(t, ts.Migrate(context.Background()))

	srv := newTestServer(t, &fixedClient{answer: "answer"}, ts)
	rec := postChat(t, srv.Router(), `{"question": "Tell me about grant 123456"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := ts.ListTranscripts(context.Background(), store.TranscriptFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Tell me about grant 123456", got[0].Question)
	assert.Equal(t, "answer", got[0].Answer)
	assert.Equal(t, []string{"123456"}, got[0].GrantIDs)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fixedClient{answer: "ok"}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}
