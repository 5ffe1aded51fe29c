package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"miseagent/tools"
	"miseagent/tools/storage"
)

// ErrEmptyMessage is returned by Send for blank input.
var ErrEmptyMessage = errors.New("message is empty")

const apology = "I'm sorry, I ran into a problem while working on that. Please try again in a moment."

// Conversation answers a transcript ending in a user message.
type Conversation interface {
	Converse(ctx context.Context, history []storage.ChatMessage) (string, error)
}

// Reply is the outcome of one chat turn.
type Reply struct {
	Message      storage.ChatMessage  `json:"message"`
	ThoughtSteps storage.ThoughtSteps `json:"thought_steps"`
}

// Chat keeps one persisted session per user and runs each turn through a
// Conversation.
type Chat struct {
	store   storage.ChatStore
	convo   Conversation
	timeout time.Duration
	now     func() time.Time
}

// NewChat bounds each turn by timeout; zero means only the caller's context applies.
func NewChat(store storage.ChatStore, convo Conversation, timeout time.Duration) *Chat {
	return &Chat{store: store, convo: convo, timeout: timeout, now: time.Now}
}

// Send appends text to the user's session, runs the model and stores the
// reply together with the thought steps of the turn.
func (c *Chat) Send(ctx context.Context, userID, text string) (*Reply, error) {
	if userID == "" {
		return nil, tools.ErrNoSession
	}
	if text == "" {
		return nil, ErrEmptyMessage
	}

	session, err := c.store.GetSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load chat session: %w", err)
	}
	if session == nil {
		session = &storage.ChatSession{UserID: userID}
	}

	session.Messages = append(session.Messages, storage.ChatMessage{
		ID:        uuid.NewString(),
		Role:      storage.RoleUser,
		Content:   text,
		Timestamp: c.now(),
	})

	thoughts := tools.NewThoughts(nil)
	thoughts.Add("🤔 Thinking", "Working out what to do with your message", storage.StepActive)

	turnCtx := tools.WithThoughts(tools.WithUserID(ctx, userID), thoughts)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		turnCtx, cancel = context.WithTimeout(turnCtx, c.timeout)
		defer cancel()
	}

	answer, err := c.convo.Converse(turnCtx, session.Messages)
	if err != nil {
		slog.Error("CHAT: Turn failed", "user_id", userID, "error", err)
		answer = apology
	}
	thoughts.Complete()

	reply := storage.ChatMessage{
		ID:        uuid.NewString(),
		Role:      storage.RoleAssistant,
		Content:   answer,
		Timestamp: c.now(),
	}
	session.Messages = append(session.Messages, reply)
	session.ThoughtSteps = thoughts.Steps()

	if _, err := c.store.SaveSession(ctx, *session); err != nil {
		return nil, fmt.Errorf("save chat session: %w", err)
	}

	return &Reply{Message: reply, ThoughtSteps: session.ThoughtSteps}, nil
}

// History returns the stored session, or an empty one for a new user.
func (c *Chat) History(ctx context.Context, userID string) (*storage.ChatSession, error) {
	if userID == "" {
		return nil, tools.ErrNoSession
	}
	session, err := c.store.GetSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load chat session: %w", err)
	}
	if session == nil {
		return &storage.ChatSession{UserID: userID, Messages: storage.ChatMessages{}, ThoughtSteps: storage.ThoughtSteps{}}, nil
	}
	return session, nil
}

// Reset forgets the user's conversation.
func (c *Chat) Reset(ctx context.Context, userID string) error {
	if userID == "" {
		return tools.ErrNoSession
	}
	if err := c.store.DeleteSession(ctx, userID); err != nil {
		return fmt.Errorf("delete chat session: %w", err)
	}
	return nil
}
