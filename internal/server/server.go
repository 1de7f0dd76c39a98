// Package server exposes the assistant as an HTTP agent endpoint so
// other remindme instances can use it as their remote gateway.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/remindme/internal/ai"
	"github.com/nhle/remindme/internal/httpmw"
)

// maxBodyBytes bounds the agent request body.
const maxBodyBytes = 1 << 20

type Options struct {
	// Gateway answers prompts. Nil behaves like ai.Absent.
	Gateway ai.Gateway

	// Timeout bounds each gateway call. Zero means no extra deadline.
	Timeout time.Duration

	// Token, when set, must be presented as a bearer credential.
	Token string

	Logger *log.Logger
}

type handler struct {
	gateway ai.Gateway
	timeout time.Duration
	token   string
	logger  *log.Logger
}

// NewHandler builds the HTTP handler serving /api/agent and /healthz.
func NewHandler(opts Options) http.Handler {
	if opts.Gateway == nil {
		opts.Gateway = ai.Absent{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	h := &handler{
		gateway: opts.Gateway,
		timeout: opts.Timeout,
		token:   opts.Token,
		logger:  opts.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.health)
	mux.HandleFunc("/api/agent", h.agent)

	return httpmw.Chain(mux,
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
		httpmw.WithAccessLog(opts.Logger),
	)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": "remindme",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) agent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, ai.AgentResponse{Error: "method not allowed"})
		return
	}
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, ai.AgentResponse{Error: "unauthorized"})
		return
	}

	var req ai.AgentRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ai.AgentResponse{Error: "invalid request body"})
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	res := h.gateway.Ask(ctx, req.Prompt, req.Tasks)
	if !res.IsOk() {
		status := http.StatusBadGateway
		if errors.Is(res.Err, ai.ErrNoCredential) {
			status = http.StatusServiceUnavailable
		}
		h.logger.Printf("agent %s: %v", httpmw.RequestIDFromContext(r.Context()), res.Err)
		writeJSON(w, status, ai.AgentResponse{Error: "assistant unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, ai.AgentResponse{Reply: res.Reply})
}

func (h *handler) authorized(r *http.Request) bool {
	if h.token == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe runs the handler on addr until ctx is cancelled, then
// shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
