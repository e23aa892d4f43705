package fakeapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/gst-chat/client/internal/config"
)

// Responder produces the bot reply for a user question.
type Responder interface {
	Reply(ctx context.Context, history []Message, question string) (string, error)
}

// EchoResponder answers deterministically without any model.
type EchoResponder struct{}

// Reply restates the question using the bot formatting conventions.
func (EchoResponder) Reply(_ context.Context, history []Message, question string) (string, error) {
	turns := 0
	for _, m := range history {
		if m.Sender == "user" {
			turns++
		}
	}
	return fmt.Sprintf("You asked: **%s**\n• Local development backend\n• Questions so far: %d",
		strings.TrimSpace(question), turns), nil
}

const systemPrompt = `You are GST AI, an assistant answering questions about the Goods and Services Tax.
Answer concisely. Use **bold** for key terms and start list items with "• ".`

const historyLimit = 10

// ArkResponder generates replies through an eino chain backed by Ark.
type ArkResponder struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkResponder compiles the prompt -> model chain.
func NewArkResponder(ctx context.Context, cfg config.AIConfig) (*ArkResponder, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}
	return &ArkResponder{chain: runnable}, nil
}

// Reply runs the chain over the recent history.
func (a *ArkResponder) Reply(ctx context.Context, history []Message, question string) (string, error) {
	resp, err := a.chain.Invoke(ctx, map[string]any{
		"system":  systemPrompt,
		"history": historyMessages(history),
		"query":   question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	log.Debug().Int("length", len(resp.Content)).Msg("[fakeapi] generated reply")
	return resp.Content, nil
}

func historyMessages(messages []Message) []*schema.Message {
	start := 0
	if len(messages) > historyLimit {
		start = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-start)
	for _, msg := range messages[start:] {
		switch msg.Sender {
		case "user":
			history = append(history, schema.UserMessage(msg.Content))
		case "bot":
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}

// NewResponder picks the Ark responder when credentials are configured and
// falls back to EchoResponder otherwise.
func NewResponder(ctx context.Context, cfg config.AIConfig) Responder {
	if !cfg.Enabled() {
		return EchoResponder{}
	}
	ark, err := NewArkResponder(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("[fakeapi] ark responder unavailable, using echo replies")
		return EchoResponder{}
	}
	return ark
}
