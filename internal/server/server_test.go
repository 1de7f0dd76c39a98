package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/remindme/internal/ai"
	"github.com/nhle/remindme/internal/model"
)

type fakeGateway struct {
	res    ai.Result
	prompt string
	tasks  []model.Task
}

func (g *fakeGateway) Ask(ctx context.Context, prompt string, tasks []model.Task) ai.Result {
	g.prompt = prompt
	g.tasks = tasks
	return g.res
}

func newTestHandler(g ai.Gateway, token string) http.Handler {
	return NewHandler(Options{
		Gateway: g,
		Token:   token,
		Logger:  log.New(io.Discard, "", 0),
	})
}

func post(t *testing.T, h http.Handler, body string, header map[string]string) (*httptest.ResponseRecorder, ai.AgentResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/agent", strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out ai.AgentResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestAgent_Ok(t *testing.T) {
	g := &fakeGateway{res: ai.Ok("start with rent")}
	h := newTestHandler(g, "")

	rec, out := post(t, h, `{"prompt":"what next?","tasks":[{"id":"1","title":"rent"}]}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "start with rent", out.Reply)
	assert.Equal(t, "what next?", g.prompt)
	require.Len(t, g.tasks, 1)
	assert.Equal(t, "rent", g.tasks[0].Title)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAgent_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(&fakeGateway{}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/agent", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestAgent_BadBody(t *testing.T) {
	rec, out := post(t, newTestHandler(&fakeGateway{}, ""), `{"prompt":`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", out.Error)
}

func TestAgent_Unauthorized(t *testing.T) {
	h := newTestHandler(&fakeGateway{res: ai.Ok("x")}, "s3cret")

	rec, _ := post(t, h, `{"prompt":"x"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = post(t, h, `{"prompt":"x"}`, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out := post(t, h, `{"prompt":"x"}`, map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "x", out.Reply)
}

func TestAgent_GatewayFailure(t *testing.T) {
	rec, out := post(t, newTestHandler(&fakeGateway{res: ai.Err(errors.New("upstream 500"))}, ""), `{"prompt":"x"}`, nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "assistant unavailable", out.Error)
}

func TestAgent_NoCredential(t *testing.T) {
	rec, _ := post(t, newTestHandler(nil, ""), `{"prompt":"x"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(nil, "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_WorksAsRemoteGateway(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(&fakeGateway{res: ai.Ok("relay ok")}, "tok"))
	defer srv.Close()

	res := ai.NewRemote(srv.URL+"/api/agent", "tok").Ask(context.Background(), "hi", nil)
	require.True(t, res.IsOk(), "unexpected error: %v", res.Err)
	assert.Equal(t, "relay ok", res.Reply)
}
