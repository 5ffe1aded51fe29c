package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"miseagent/tools/storage"
)

// Notes keeps the free-form notes stored on the preferences row.
type Notes struct {
	prefs *Preferences
}

func NewNotes(store storage.PreferencesStore) *Notes {
	return &Notes{prefs: NewPreferences(store)}
}

func (h *Notes) Handle(ctx context.Context, call Call) (string, error) {
	userID := UserID(ctx)
	if userID == "" {
		return "", noSession("Notes")
	}
	if call.Name != "updateUserNotes" {
		return NotHandled(call.Name), nil
	}

	args, err := decodeArgs[struct {
		Notes string `json:"notes"`
	}](call.Input)
	if err != nil {
		return "", err
	}

	p, err := h.prefs.load(ctx, userID)
	if err != nil {
		return "", backend("I had trouble saving your notes.", err)
	}
	p.Notes = strPtr(args.Notes)
	if _, err := h.prefs.store.SavePreferences(ctx, p); err != nil {
		return "", backend("I had trouble saving your notes.", err)
	}
	addThought(ctx, "✅ Updated notes", "")
	if args.Notes == "" {
		return "I've cleared your notes.", nil
	}
	return "I've updated your notes.", nil
}

func (h *Notes) Tools() []Tool {
	return Route(h, Def{
		Name:        "updateUserNotes",
		Title:       "Update User Notes",
		Description: "Replace the user's free-form notes with the given text. Pass an empty string to clear them.",
		Input: object(map[string]*jsonschema.Schema{
			"notes": str("The complete notes text."),
		}, "notes"),
	})
}
