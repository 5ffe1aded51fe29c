// Package openai adapts OpenAI-compatible chat completion endpoints (Gemini,
// Groq, Ollama) to coordinator.LLM.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"miseagent/coordinator"
	"miseagent/tools"
)

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderOllama = "ollama"
)

var baseURLs = map[string]string{
	ProviderGemini: "https://generativelanguage.googleapis.com/v1beta/openai",
	ProviderGroq:   "https://api.groq.com/openai/v1",
	ProviderOllama: "http://localhost:11434/v1",
}

const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.2
	defaultTopP        = 0.9
)

var (
	ErrNoChoices = errors.New("model returned no choices")
	ErrMaxTokens = errors.New("model hit MaxTokens limit")
	ErrFiltered  = errors.New("model response blocked by content filter")
)

// BaseURL returns the OpenAI-compatible endpoint of a known provider.
func BaseURL(provider string) (string, bool) {
	u, ok := baseURLs[strings.ToLower(provider)]
	return u, ok
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type LLMOptions struct {
	Provider    string
	ModelID     string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

type LLMClient struct {
	cc   chatCompleter
	opts LLMOptions
}

// NewLLMClient builds a go-openai client for opts.Provider. BaseURL overrides
// the provider's default endpoint.
func NewLLMClient(opts LLMOptions) (*LLMClient, error) {
	if opts.ModelID == "" {
		return nil, fmt.Errorf("model id is required for provider %q", opts.Provider)
	}
	if opts.BaseURL == "" {
		u, ok := BaseURL(opts.Provider)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", opts.Provider)
		}
		opts.BaseURL = u
	}
	if opts.APIKey == "" && opts.Provider != ProviderOllama {
		return nil, fmt.Errorf("api key is required for provider %q", opts.Provider)
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return newLLMClient(openai.NewClientWithConfig(cfg), opts), nil
}

func newLLMClient(cc chatCompleter, opts LLMOptions) *LLMClient {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &LLMClient{cc: cc, opts: opts}
}

func (c *LLMClient) Invoke(ctx context.Context, prompt coordinator.Prompt) (coordinator.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "provider", c.opts.Provider, "model", c.opts.ModelID, "messages_len", len(prompt.Messages))

	req := openai.ChatCompletionRequest{
		Model:       c.opts.ModelID,
		Messages:    toMessages(prompt.Messages),
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
		TopP:        c.opts.TopP,
	}
	for _, t := range prompt.Tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	resp, err := c.cc.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("LLM_CLIENT: Chat completion failed", "provider", c.opts.Provider, "error", err)
		return coordinator.Response{}, fmt.Errorf("%s chat completion: %w", c.opts.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return coordinator.Response{}, ErrNoChoices
	}

	choice := resp.Choices[0]
	slog.Info("LLM_CLIENT: Chat completion succeeded",
		"provider", c.opts.Provider,
		"finish_reason", choice.FinishReason,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
	)

	switch choice.FinishReason {
	case openai.FinishReasonLength:
		return coordinator.Response{}, ErrMaxTokens
	case openai.FinishReasonContentFilter:
		return coordinator.Response{}, ErrFiltered
	}

	out := coordinator.Response{Content: choice.Message.Content}
	for i, tc := range choice.Message.ToolCalls {
		input := map[string]any{}
		if args := strings.TrimSpace(tc.Function.Arguments); args != "" {
			if err := json.Unmarshal([]byte(args), &input); err != nil {
				slog.Warn("LLM_CLIENT: Unreadable tool arguments", "tool", tc.Function.Name, "error", err)
				input = map[string]any{}
			}
		}
		id := tc.ID
		if id == "" {
			id = "call_" + strconv.Itoa(i)
		}
		out.ToolCalls = append(out.ToolCalls, tools.Call{Name: tc.Function.Name, Input: input, ToolUseID: id})
	}
	return out, nil
}

// toMessages flattens the prompt into chat completion messages. Each tool
// result part becomes its own "tool" message.
func toMessages(msgs []coordinator.Message) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage
	for _, m := range msgs {
		switch m.Role {
		case coordinator.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content.Join()})

		case coordinator.RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content.Join()}
			for _, part := range m.Content {
				if part.Type != coordinator.PartToolUse {
					continue
				}
				args, _ := json.Marshal(part.Data)
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:       part.ToolUseID,
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: part.ToolName, Arguments: string(args)},
				})
			}
			out = append(out, msg)

		default:
			var text strings.Builder
			for _, part := range m.Content {
				switch part.Type {
				case coordinator.PartToolResult:
					out = append(out, openai.ChatCompletionMessage{
						Role:       openai.ChatMessageRoleTool,
						Name:       part.ToolName,
						ToolCallID: part.ToolUseID,
						Content:    resultContent(part.Data),
					})
				case coordinator.PartText:
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text.String()})
			}
		}
	}
	return out
}

func resultContent(data map[string]any) string {
	if s, ok := data["result"].(string); ok && len(data) == 1 {
		return s
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}
