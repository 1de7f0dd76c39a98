package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/nhle/remindme/internal/model"
)

var (
	// ErrNoCredential is returned by the Absent gateway.
	ErrNoCredential = errors.New("ai: no remote credential configured")

	// ErrEmptyReply is returned when a backend answers with no text.
	ErrEmptyReply = errors.New("ai: empty reply")
)

// Gateway asks a remote language model for a planning reply. Failures
// are returned as Err results, never as panics or raw errors.
type Gateway interface {
	Ask(ctx context.Context, prompt string, tasks []model.Task) Result
}

// AgentRequest is the JSON body of POST /api/agent.
type AgentRequest struct {
	Prompt string       `json:"prompt"`
	Tasks  []model.Task `json:"tasks"`
}

// AgentResponse is the JSON body returned by the agent endpoint.
type AgentResponse struct {
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

// Absent is the gateway used when no credential is configured. It never
// touches the network.
type Absent struct{}

func (Absent) Ask(context.Context, string, []model.Task) Result {
	return Err(ErrNoCredential)
}

// NewGateway selects the live backend for cfg. credential is the
// Anthropic API key, or the bearer token for the remote provider.
// Without it the anthropic provider degrades to Absent.
func NewGateway(cfg model.AgentConfig, credential string) Gateway {
	switch cfg.Provider {
	case model.ProviderRemote:
		if strings.TrimSpace(cfg.Endpoint) == "" {
			log.Printf("ai: remote provider selected without agent.endpoint; using fallback replies")
			return Absent{}
		}
		return NewRemote(cfg.Endpoint, credential)
	case model.ProviderOllama:
		g, err := NewOllama(cfg.Model)
		if err != nil {
			log.Printf("ai: ollama unavailable: %v", err)
			return Absent{}
		}
		return g
	default:
		if credential == "" {
			return Absent{}
		}
		return NewClaude(credential, cfg.Model, cfg.MaxTokens)
	}
}

// Remote posts prompts to another remindme agent endpoint.
type Remote struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewRemote creates a gateway for the agent endpoint at url. token, when
// set, is sent as a bearer credential.
func NewRemote(url, token string) *Remote {
	return &Remote{
		endpoint: url,
		token:    token,
		client:   &http.Client{},
	}
}

func (r *Remote) Ask(ctx context.Context, prompt string, tasks []model.Task) Result {
	if tasks == nil {
		tasks = []model.Task{}
	}
	body, err := json.Marshal(AgentRequest{Prompt: prompt, Tasks: tasks})
	if err != nil {
		return Err(fmt.Errorf("marshaling agent request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return Err(fmt.Errorf("creating agent request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Err(fmt.Errorf("calling agent: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Err(fmt.Errorf("reading agent response: %w", err))
	}

	var out AgentResponse
	decodeErr := json.Unmarshal(respBody, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && out.Error != "" {
			return Err(fmt.Errorf("agent error (%d): %s", resp.StatusCode, out.Error))
		}
		return Err(fmt.Errorf("agent error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}
	if decodeErr != nil {
		return Err(fmt.Errorf("decoding agent response: %w", decodeErr))
	}
	if out.Error != "" {
		return Err(fmt.Errorf("agent error: %s", out.Error))
	}
	if strings.TrimSpace(out.Reply) == "" {
		return Err(ErrEmptyReply)
	}
	return Ok(out.Reply)
}
