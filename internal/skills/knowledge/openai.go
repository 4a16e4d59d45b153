package knowledge

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

const answerPrompt = `
You are Strom, a desktop voice assistant. Your reply is read aloud.

RULES:
1. Answer in at most two short sentences.
2. Plain text only. No markdown, lists or URLs.
3. If you do not know, say so briefly.
`

// OpenAIAnswerer answers questions with a chat completion.
type OpenAIAnswerer struct {
	client openai.Client
	model  string
}

func NewOpenAIAnswerer(client openai.Client, model string) *OpenAIAnswerer {
	if model == "" {
		model = openai.ChatModelGPT5Nano
	}
	return &OpenAIAnswerer{client: client, model: model}
}

func (a *OpenAIAnswerer) Answer(ctx context.Context, question string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(answerPrompt),
			openai.UserMessage(question),
		},
		Model: a.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}

	log.Debug("Answered", "question", question, "answer", content)

	return content, nil
}
