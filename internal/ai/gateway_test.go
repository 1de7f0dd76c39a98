package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/remindme/internal/model"
)

func TestAbsent(t *testing.T) {
	res := Absent{}.Ask(context.Background(), "hi", nil)
	assert.False(t, res.IsOk())
	assert.ErrorIs(t, res.Err, ErrNoCredential)
}

func TestRemote_Ok(t *testing.T) {
	var gotReq AgentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(AgentResponse{Reply: "do the dishes"})
	}))
	defer srv.Close()

	res := NewRemote(srv.URL, "secret").Ask(context.Background(), "what now?", []model.Task{{ID: "1", Title: "dishes"}})

	require.True(t, res.IsOk(), "unexpected error: %v", res.Err)
	assert.Equal(t, "do the dishes", res.Reply)
	assert.Equal(t, "what now?", gotReq.Prompt)
	require.Len(t, gotReq.Tasks, 1)
	assert.Equal(t, "dishes", gotReq.Tasks[0].Title)
}

func TestRemote_NilTasksSentAsEmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "[]", string(raw["tasks"]))
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(AgentResponse{Reply: "ok"})
	}))
	defer srv.Close()

	res := NewRemote(srv.URL, "").Ask(context.Background(), "x", nil)
	assert.True(t, res.IsOk())
}

func TestRemote_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(AgentResponse{Error: "boom"})
	}))
	defer srv.Close()

	res := NewRemote(srv.URL, "").Ask(context.Background(), "x", nil)
	require.False(t, res.IsOk())
	assert.ErrorContains(t, res.Err, "agent error (500): boom")
}

func TestRemote_ErrorFieldWithOkStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AgentResponse{Error: "quota exceeded"})
	}))
	defer srv.Close()

	res := NewRemote(srv.URL, "").Ask(context.Background(), "x", nil)
	require.False(t, res.IsOk())
	assert.ErrorContains(t, res.Err, "quota exceeded")
}

func TestRemote_EmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"   "}`))
	}))
	defer srv.Close()

	res := NewRemote(srv.URL, "").Ask(context.Background(), "x", nil)
	assert.ErrorIs(t, res.Err, ErrEmptyReply)
}

func TestRemote_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewRemote(url, "").Ask(context.Background(), "x", nil)
	assert.False(t, res.IsOk())
}

func TestClaude_Ok(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-123", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))

		var req apiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Contains(t, req.System, "Pay rent")
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "plan my day", req.Messages[0].Content[0].Text)

		_ = json.NewEncoder(w).Encode(apiResponse{Content: []apiContentBlock{
			{Type: "text", Text: "Start with "},
			{Type: "tool_use"},
			{Type: "text", Text: "the rent."},
		}})
	}))
	defer srv.Close()

	c := NewClaude("key-123", "claude-test", 0)
	c.url = srv.URL
	c.now = func() time.Time { return now }

	res := c.Ask(context.Background(), "plan my day", []model.Task{{Title: "Pay rent"}})
	require.True(t, res.IsOk(), "unexpected error: %v", res.Err)
	assert.Equal(t, "Start with the rent.", res.Reply)
}

func TestClaude_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	c := NewClaude("bad", "", 0)
	c.url = srv.URL

	res := c.Ask(context.Background(), "x", nil)
	require.False(t, res.IsOk())
	assert.ErrorContains(t, res.Err, "API error (401): invalid x-api-key")
}

type fakeChatter struct {
	chunks []string
	err    error
	req    *api.ChatRequest
}

func (f *fakeChatter) Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error {
	f.req = req
	if f.err != nil {
		return f.err
	}
	for _, c := range f.chunks {
		if err := fn(api.ChatResponse{Message: api.Message{Content: c}}); err != nil {
			return err
		}
	}
	return nil
}

func TestOllama_Ok(t *testing.T) {
	fc := &fakeChatter{chunks: []string{"Do ", "laundry."}}
	o := newOllama(fc, "claude-sonnet-4-20250514")

	res := o.Ask(context.Background(), "next?", nil)

	require.True(t, res.IsOk())
	assert.Equal(t, "Do laundry.", res.Reply)
	assert.Equal(t, defaultOllamaModel, fc.req.Model)
	require.Len(t, fc.req.Messages, 2)
	assert.Equal(t, "system", fc.req.Messages[0].Role)
	assert.Equal(t, "next?", fc.req.Messages[1].Content)
}

func TestOllama_Error(t *testing.T) {
	o := newOllama(&fakeChatter{err: errors.New("connection refused")}, "llama3.2")

	res := o.Ask(context.Background(), "x", nil)
	assert.ErrorContains(t, res.Err, "connection refused")
}

func TestNewGateway(t *testing.T) {
	t.Run("anthropic without key is absent", func(t *testing.T) {
		assert.IsType(t, Absent{}, NewGateway(model.AgentConfig{Provider: model.ProviderAnthropic}, ""))
	})
	t.Run("anthropic with key", func(t *testing.T) {
		assert.IsType(t, &Claude{}, NewGateway(model.AgentConfig{Provider: model.ProviderAnthropic}, "k"))
	})
	t.Run("remote without endpoint is absent", func(t *testing.T) {
		assert.IsType(t, Absent{}, NewGateway(model.AgentConfig{Provider: model.ProviderRemote}, "tok"))
	})
	t.Run("remote", func(t *testing.T) {
		g := NewGateway(model.AgentConfig{Provider: model.ProviderRemote, Endpoint: "http://127.0.0.1:1/api/agent"}, "")
		assert.IsType(t, &Remote{}, g)
	})
	t.Run("ollama", func(t *testing.T) {
		assert.IsType(t, &Ollama{}, NewGateway(model.AgentConfig{Provider: model.ProviderOllama}, ""))
	})
}
