package adapter

import "context"

// Message mirrors the chat-completions wire shape shared by providers.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AIServiceAdapter is the generation collaborator: given prepared prompt
// messages it returns generated content plus usage metadata, or a typed
// failure. Implementations wrap one provider each; callers compose
// limiting and retry behavior around this interface.
type AIServiceAdapter interface {
	ListModels(ctx context.Context) ([]string, error)
	Chat(ctx context.Context, model string, messages []Message) (string, error)
	ChatWithUsage(ctx context.Context, model string, messages []Message) (string, Usage, error)
}
