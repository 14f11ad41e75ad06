package ai

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is the medical assistant model served by the vLLM
// endpoint.
const DefaultModel = "Intelligent-Internet/II-Medical-8B"

// historyWindow bounds how many prior turns are replayed per request.
const historyWindow = 8

const systemPrompt = "You are a careful medical information assistant. " +
	"Answer briefly and plainly. You do not diagnose; for anything " +
	"potentially serious, advise the person to seek care from a clinician. " +
	"If symptoms sound like an emergency, say so clearly."

// ErrNotConfigured is returned when no endpoint was provided.
var ErrNotConfigured = errors.New("assistant endpoint not configured")

// Turn is one prior exchange message.
type Turn struct {
	FromUser bool
	Text     string
}

// StreamEvents receive the incremental reply.
type StreamEvents struct {
	OnToken    func(token string)
	OnComplete func(full string)
	OnError    func(err error)
}

// Assistant streams replies from an OpenAI-compatible endpoint.
type Assistant struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// New creates an assistant against the given base URL. Returns a nil
// assistant when baseURL is empty; callers treat nil as not configured.
func New(baseURL, apiKey, model string, log zerolog.Logger) *Assistant {
	if baseURL == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	if model == "" {
		model = DefaultModel
	}
	return &Assistant{client: openai.NewClientWithConfig(cfg), model: model, log: log}
}

// Configured reports whether the assistant can serve requests.
func (a *Assistant) Configured() bool { return a != nil }

// Ask streams a reply to the question given the recent history. Only the
// last few turns are replayed to keep the prompt bounded. Blocks until
// the stream ends; cancel the context to abort.
func (a *Assistant) Ask(ctx context.Context, history []Turn, question string, events StreamEvents) error {
	if !a.Configured() {
		return ErrNotConfigured
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleAssistant
		if turn.FromUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		a.log.Error().Err(err).Msg("assistant request failed")
		if events.OnError != nil {
			events.OnError(err)
		}
		return err
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			a.log.Error().Err(err).Msg("assistant stream broke")
			if events.OnError != nil {
				events.OnError(err)
			}
			return err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		token := resp.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		full.WriteString(token)
		if events.OnToken != nil {
			events.OnToken(token)
		}
	}
	if events.OnComplete != nil {
		events.OnComplete(full.String())
	}
	return nil
}
