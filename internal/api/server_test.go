package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MoveGPT/internal/agent"
	"MoveGPT/internal/config"
	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/storage/transcript"
)

type stubLLM struct {
	reply string
	err   error
	wait  time.Duration
}

func (s stubLLM) Complete(ctx context.Context, _ string) (string, error) {
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

type stubRetriever struct{ err error }

func (s stubRetriever) Retrieve(context.Context, string) (string, error) {
	return "Context:\ndocs", s.err
}

type stubAccount struct{}

func (stubAccount) RetrieveWithAddress(context.Context, string) (string, string, error) {
	return "type: 0x1::account::Account", "0x1", nil
}

func newTestServer(t *testing.T, llmClient stubLLM, opts ...agent.Option) http.Handler {
	t.Helper()
	opts = append([]agent.Option{
		agent.WithSimilarityRetriever(stubRetriever{}),
		agent.WithAccountRetriever(stubAccount{}),
	}, opts...)
	ag := agent.New(llmClient, opts...)
	return NewServer(config.ServerConfig{Address: ":0", AllowedOrigins: []string{"*"}}, ag).Handler()
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	h := newTestServer(t, stubLLM{reply: "x"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "MoveGPT API is running", rec.Body.String())
}

func TestGenerateResponse(t *testing.T) {
	h := newTestServer(t, stubLLM{reply: "module 0x1::hello {}"})

	rec := post(t, h, "/generate-response", `{"question":"write a module","session_id":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "module 0x1::hello {}", got.Answer)
	require.Equal(t, "abc", got.SessionID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var session sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.Equal(t, "Human: write a module\nMoveGPT: module 0x1::hello {}", session.History)
}

func TestGenerateResponseOmitsUnrequestedSession(t *testing.T) {
	h := newTestServer(t, stubLLM{reply: "ok"})

	for _, path := range []string{"/generate-response", "/generate-resource-response"} {
		rec := post(t, h, path, `{"question":"what is 0x1?"}`)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "ok", body["answer"], path)
		require.NotContains(t, body, "session_id", path)
	}
}

func TestGenerateResourceResponse(t *testing.T) {
	h := newTestServer(t, stubLLM{reply: "It is an account."})

	rec := post(t, h, "/generate-resource-response", `{"question":"what is 0x1?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got resourceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "It is an account.", got.Answer)
	require.Equal(t, "0x1", got.Address)
}

func TestGenerateResponseErrors(t *testing.T) {
	cases := []struct {
		name   string
		llm    stubLLM
		opts   []agent.Option
		body   string
		status int
		code   xerrors.Code
	}{
		{name: "bad body", llm: stubLLM{reply: "x"}, body: `{`, status: http.StatusBadRequest, code: xerrors.CodeInvalidArgument},
		{name: "empty question", llm: stubLLM{reply: "x"}, body: `{"question":"  "}`, status: http.StatusBadRequest, code: xerrors.CodeInvalidArgument},
		{name: "completion failure", llm: stubLLM{err: errors.New("quota")}, body: `{"question":"q"}`, status: http.StatusBadGateway, code: xerrors.CodeCompletionFailure},
		{
			name:   "retrieval failure",
			llm:    stubLLM{reply: "x"},
			opts:   []agent.Option{agent.WithSimilarityRetriever(stubRetriever{err: errors.New("offline")})},
			body:   `{"question":"q"}`,
			status: http.StatusBadGateway,
			code:   xerrors.CodeRetrievalFailure,
		},
		{
			name:   "timeout",
			llm:    stubLLM{wait: 50 * time.Millisecond},
			opts:   []agent.Option{agent.WithLLMTimeout(5 * time.Millisecond)},
			body:   `{"question":"q"}`,
			status: http.StatusGatewayTimeout,
			code:   xerrors.CodeTimeout,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(t, tc.llm, tc.opts...)
			rec := post(t, h, "/generate-response", tc.body)
			require.Equal(t, tc.status, rec.Code)

			var got errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, string(tc.code), got.Code)
		})
	}
}

func TestSessionNotFound(t *testing.T) {
	h := newTestServer(t, stubLLM{reply: "x"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTurns(t *testing.T) {
	repo, err := transcript.Open(context.Background(), transcript.Config{Driver: "file", Path: t.TempDir() + "/turns.jsonl"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	h := newTestServer(t, stubLLM{reply: "answer"}, agent.WithTranscript(repo))
	require.Equal(t, http.StatusOK, post(t, h, "/generate-response", `{"question":"one"}`).Code)
	require.Equal(t, http.StatusOK, post(t, h, "/generate-response", `{"question":"two"}`).Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/turns?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var turns []transcript.Turn
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turns))
	require.Len(t, turns, 1)
	require.Equal(t, "two", turns[0].Question)
}

func TestListTurnsWithoutRepository(t *testing.T) {
	h := newTestServer(t, stubLLM{reply: "x"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/turns", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, stubLLM{reply: "x"})
	req := httptest.NewRequest(http.MethodOptions, "/generate-response", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, stubLLM{reply: "x"})
	require.Equal(t, http.StatusOK, post(t, h, "/generate-response", `{"question":"q"}`).Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "movegpt_http_requests_total")
	require.Contains(t, rec.Body.String(), "movegpt_turns_total")
}
