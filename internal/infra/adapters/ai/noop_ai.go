package ai

import (
	"context"
	"fmt"

	"lecture-script-service/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoOpAI)(nil)

// NoOpAI is a stand-in adapter for dev mode and tests. It echoes the last
// user message back so downstream plumbing can run without an API key.
type NoOpAI struct{}

func NewNoOpAI() *NoOpAI { return &NoOpAI{} }

func (n *NoOpAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop-model"}, nil
}

func (n *NoOpAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	reply, _, err := n.ChatWithUsage(ctx, model, messages)
	return reply, err
}

func (n *NoOpAI) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	last := ""
	for _, m := range messages {
		if m.Role == "user" {
			last = m.Content
		}
	}
	return fmt.Sprintf("noop: %s", last), adapter.Usage{}, nil
}
