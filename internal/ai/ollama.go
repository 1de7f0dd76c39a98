package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/nhle/remindme/internal/model"
)

const defaultOllamaModel = "llama3.2"

// chatter is the subset of the ollama client used here.
type chatter interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// Ollama answers planning prompts with a local Ollama server, located
// through OLLAMA_HOST.
type Ollama struct {
	client chatter
	model  string
	now    func() time.Time
}

// NewOllama creates an Ollama gateway for modelName.
func NewOllama(modelName string) (*Ollama, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	return newOllama(client, modelName), nil
}

func newOllama(c chatter, modelName string) *Ollama {
	// The shared model setting defaults to a Claude model name.
	if modelName == "" || strings.HasPrefix(modelName, "claude") {
		modelName = defaultOllamaModel
	}
	return &Ollama{client: c, model: modelName, now: time.Now}
}

func (o *Ollama) Ask(ctx context.Context, prompt string, tasks []model.Task) Result {
	stream := false
	req := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{Role: "system", Content: buildSystemPrompt(tasks, o.now())},
			{Role: string(model.RoleUser), Content: prompt},
		},
		Stream: &stream,
	}

	var sb strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return Err(fmt.Errorf("calling ollama: %w", err))
	}

	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return Err(ErrEmptyReply)
	}
	return Ok(reply)
}
