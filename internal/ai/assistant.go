package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nhle/remindme/internal/model"
	"github.com/nhle/remindme/internal/store"
)

// Assistant answers planning prompts for the chat panel. It asks the
// gateway first and substitutes FallbackReply whenever that fails, so a
// caller always gets a reply.
type Assistant struct {
	store   *store.TaskStore
	gateway Gateway
	timeout time.Duration
	now     func() time.Time
}

// NewAssistant creates an assistant over s. A nil gateway behaves like
// Absent. timeout bounds each gateway call.
func NewAssistant(s *store.TaskStore, g Gateway, timeout time.Duration) *Assistant {
	if g == nil {
		g = Absent{}
	}
	return &Assistant{
		store:   s,
		gateway: g,
		timeout: timeout,
		now:     time.Now,
	}
}

// Live reports whether a remote backend is configured.
func (a *Assistant) Live() bool {
	_, absent := a.gateway.(Absent)
	return !absent
}

// Reply returns the gateway's answer, or the fallback reply if the call
// fails. It does not touch the chat history.
func (a *Assistant) Reply(ctx context.Context, prompt string, tasks []model.Task) string {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	res := a.gateway.Ask(ctx, prompt, tasks)
	if res.IsOk() {
		return res.Reply
	}
	if !errors.Is(res.Err, ErrNoCredential) {
		log.Printf("ai: using fallback reply: %v", res.Err)
	}
	return FallbackReply(prompt, tasks, a.now())
}

// Ask records the user's prompt, obtains a reply and records it too.
// Errors come only from persisting the conversation.
func (a *Assistant) Ask(ctx context.Context, prompt string) (model.ChatMessage, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt != "" {
		if _, err := a.store.AppendChat(ctx, model.RoleUser, prompt); err != nil {
			return model.ChatMessage{}, fmt.Errorf("recording prompt: %w", err)
		}
	}

	reply := a.Reply(ctx, prompt, a.store.List())

	msg, err := a.store.AppendChat(ctx, model.RoleAssistant, reply)
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("recording reply: %w", err)
	}
	return msg, nil
}
