package coordinator

import (
	"fmt"
	"time"

	"miseagent"
	"miseagent/tools/storage"
)

// historyLimit caps how many transcript messages are sent to the model.
const historyLimit = 20

type Prompt struct {
	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`
}

// NewPrompt builds a prompt from the system prompt, the most recent
// transcript messages and every tool tp provides.
func NewPrompt(system string, history []storage.ChatMessage, tp miseagent.ToolProvider) Prompt {
	all := tp.GetTools()
	promptTools := make([]Tool, 0, len(all))
	for _, tool := range all {
		promptTools = append(promptTools, Tool{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}

	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, TextMessage(RoleSystem, system))
	for _, m := range history {
		role := RoleUser
		if m.Role == storage.RoleAssistant {
			role = RoleAssistant
		}
		msgs = append(msgs, TextMessage(role, m.Content))
	}

	return Prompt{Messages: msgs, Tools: promptTools}
}

// SystemPrompt returns the assistant instructions for a turn taken at now.
func SystemPrompt(now time.Time) string {
	return fmt.Sprintf(systemPrompt, now.UTC().Format("Monday, January 2, 2006"))
}

const systemPrompt = `You are Mise, a friendly meal-planning assistant. Today is %s (UTC).

You help the user plan meals, track what food they have at home, keep a shopping list, manage leftovers and remember their preferences.

TOOL USE:
- Use the provided tools through the tool interface. Never write tool calls as text.
- Before suggesting meals, check the user's inventory, leftovers and preferences.
- When the user mentions food they have, update the inventory. Quantities you send replace the stored amount.
- When the user needs to buy something, add it to the shopping list.
- Prefer using up leftovers and items that expire soon.
- Use the IDs returned by the get*Items tools for updates and deletes. When you only know a name, pass the name.
- Search Amazon only when the user asks for products or prices.
- Do not call the same lookup tool again unless the data changed; reuse earlier results.

ANSWERS:
- Reply in plain, warm, concise language.
- Summarize what you changed after using tools.
- If a tool reports a problem, tell the user and suggest what to do next.
`
