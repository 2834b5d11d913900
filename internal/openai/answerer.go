package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sifthq/docsift/internal/domain"
)

// DefaultAnswerModel is the chat model used to synthesize answers from
// retrieved chunks.
const DefaultAnswerModel = "gpt-4o-mini"

// ChatAPI defines the interface for chat completion calls
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Answerer turns a query plus its retrieved chunks into a synthesized
// answer. It is the downstream consumer of the retrieval engine's output
// and has no influence on retrieval itself.
type Answerer struct {
	api   ChatAPI
	model string
}

// NewAnswerer creates an Answerer with the given API key and chat model.
func NewAnswerer(apiKey, model string) *Answerer {
	if model == "" {
		model = DefaultAnswerModel
	}
	return &Answerer{
		api:   openai.NewClient(apiKey),
		model: model,
	}
}

// Answer prompts the chat model with the query and the retrieved context.
func (a *Answerer) Answer(ctx context.Context, query string, results []domain.ScoredChunk) (string, error) {
	if query == "" {
		return "", ErrEmptyText
	}
	if len(results) == 0 {
		return "", errors.New("no context chunks to answer from")
	}

	resp, err := a.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildAnswerPrompt(query, results),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

func buildAnswerPrompt(query string, results []domain.ScoredChunk) string {
	var context strings.Builder
	for i, r := range results {
		if i > 0 {
			context.WriteString("\n\n")
		}
		fmt.Fprintf(&context, "Chunk %d:\n%s", i+1, r.Chunk.Text)
	}

	return fmt.Sprintf(`Based on the following context and query, provide a comprehensive answer.

Query: %s

Context:
%s

Please provide a detailed answer that synthesizes information from the relevant chunks.`, query, context.String())
}
