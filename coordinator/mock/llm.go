// Package mock provides deterministic models for offline runs and tests.
package mock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"miseagent/coordinator"
	"miseagent/tools"
)

// LLMClient answers every message by reading the inventory and leftovers and
// reporting what the tools returned. It never needs network access.
type LLMClient struct{}

func NewLLMClient() *LLMClient {
	return &LLMClient{}
}

func (m *LLMClient) Invoke(ctx context.Context, prompt coordinator.Prompt) (coordinator.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "provider", "mock", "messages_len", len(prompt.Messages))

	results := resultsSinceLastUserText(prompt.Messages)
	if len(results) == 0 {
		slog.Info("LLM_CLIENT: Returning plan for getInventory and getLeftovers")
		return coordinator.Response{ToolCalls: []tools.Call{
			{Name: "getInventory", Input: map[string]any{}, ToolUseID: "mock-1"},
			{Name: "getLeftovers", Input: map[string]any{}, ToolUseID: "mock-2"},
		}}, nil
	}

	var b strings.Builder
	b.WriteString("Here's what I found:")
	for _, r := range results {
		b.WriteString("\n\n")
		b.WriteString(r)
	}
	slog.Info("LLM_CLIENT: Returning final answer", "results", len(results))
	return coordinator.Response{Content: b.String()}, nil
}

// resultsSinceLastUserText returns the text of tool results sent after the
// newest plain user message.
func resultsSinceLastUserText(msgs []coordinator.Message) []string {
	var out []string
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role != coordinator.RoleUser {
			continue
		}
		if m.Content.Join() != "" {
			break
		}
		var batch []string
		for _, part := range m.Content {
			if part.Type == coordinator.PartToolResult {
				batch = append(batch, fmt.Sprint(part.Data["result"]))
			}
		}
		out = append(batch, out...)
	}
	return out
}

var ErrScriptExhausted = errors.New("scripted model has no more responses")

// Step is one scripted model turn.
type Step struct {
	Response coordinator.Response
	Err      error
}

// Scripted replays Steps in order and records every prompt it receives.
type Scripted struct {
	mu      sync.Mutex
	steps   []Step
	prompts []coordinator.Prompt
}

func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

// Reply is a Step answering with text.
func Reply(text string) Step {
	return Step{Response: coordinator.Response{Content: text}}
}

// Call is a Step requesting the given tool calls.
func Call(calls ...tools.Call) Step {
	return Step{Response: coordinator.Response{ToolCalls: calls}}
}

func Fail(err error) Step {
	return Step{Err: err}
}

func (s *Scripted) Invoke(ctx context.Context, prompt coordinator.Prompt) (coordinator.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)
	if len(s.steps) == 0 {
		return coordinator.Response{}, ErrScriptExhausted
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.Response, step.Err
}

// Prompts returns the prompts received so far.
func (s *Scripted) Prompts() []coordinator.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]coordinator.Prompt(nil), s.prompts...)
}
