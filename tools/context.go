package tools

import (
	"context"
	"strconv"
	"sync"

	"miseagent/tools/storage"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	thoughtsKey
)

// WithUserID scopes every tool call made with ctx to userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Thoughts collects the progress steps shown to the user while a turn runs.
// It is safe for concurrent use by handlers dispatched in parallel.
type Thoughts struct {
	mu    sync.Mutex
	steps storage.ThoughtSteps
}

func NewThoughts(initial storage.ThoughtSteps) *Thoughts {
	return &Thoughts{steps: append(storage.ThoughtSteps{}, initial...)}
}

func WithThoughts(ctx context.Context, t *Thoughts) context.Context {
	return context.WithValue(ctx, thoughtsKey, t)
}

func ThoughtsFrom(ctx context.Context) *Thoughts {
	t, _ := ctx.Value(thoughtsKey).(*Thoughts)
	return t
}

// Add appends a step and returns its id.
func (t *Thoughts) Add(step, details, status string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := strconv.Itoa(len(t.steps) + 1)
	t.steps = append(t.steps, storage.ThoughtStep{ID: id, Step: step, Status: status, Details: details})
	return id
}

// Complete marks every active or pending step completed.
func (t *Thoughts) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.steps {
		t.steps[i].Status = storage.StepCompleted
	}
}

func (t *Thoughts) Steps() storage.ThoughtSteps {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append(storage.ThoughtSteps{}, t.steps...)
}

// addThought records a completed step when ctx carries a recorder.
func addThought(ctx context.Context, step string, details string) {
	if t := ThoughtsFrom(ctx); t != nil {
		t.Add(step, details, storage.StepCompleted)
	}
}
