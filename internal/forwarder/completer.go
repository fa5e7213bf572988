package forwarder

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/loykin/ccp/internal/alias"
	"github.com/loykin/ccp/internal/config"
)

// Default provider endpoints. Gemini is reached through its OpenAI-compatible API.
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1/"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ErrUnknownProvider is returned for a model prefix with no configured provider.
var ErrUnknownProvider = errors.New("unknown provider prefix")

type Message struct {
	Role    string
	Content string
}

// Completer turns a model identifier and messages into response text.
type Completer interface {
	Complete(ctx context.Context, model string, messages []Message) (string, error)
}

// Endpoints overrides provider base URLs. Empty fields use the defaults.
type Endpoints struct {
	OpenAI string
	Gemini string
}

// OpenAICompleter calls OpenAI-compatible chat completion APIs. The prefix of
// a qualified model ("openai/gpt-4.1") picks the provider and is stripped
// before the call. Unprefixed models go to OpenAI.
type OpenAICompleter struct {
	clients map[string]*openai.Client
}

func NewOpenAICompleter(rt config.Runtime, ep Endpoints) *OpenAICompleter {
	if ep.OpenAI == "" {
		ep.OpenAI = DefaultOpenAIBaseURL
	}
	if ep.Gemini == "" {
		ep.Gemini = DefaultGeminiBaseURL
	}
	return &OpenAICompleter{clients: map[string]*openai.Client{
		alias.PrefixOpenAI: newClient(ep.OpenAI, rt.OpenAIAPIKey),
		alias.PrefixGemini: newClient(ep.Gemini, rt.GeminiAPIKey),
	}}
}

func newClient(baseURL, apiKey string) *openai.Client {
	c := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(2),
	)
	return &c
}

// Provider returns the provider prefix a model identifier is routed to.
func Provider(model string) string {
	if p, _, ok := alias.Split(model); ok {
		return p
	}
	return alias.PrefixOpenAI
}

func (c *OpenAICompleter) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	provider := Provider(model)
	_, name, _ := alias.Split(model)
	client, ok := c.clients[provider]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownProvider, provider)
	}
	params := openai.ChatCompletionNewParams{
		Model:    name,
		Messages: convertMessages(messages),
	}
	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func convertMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
