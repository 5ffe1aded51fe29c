package tools

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_Dispatch(t *testing.T) {
	echo := handlerFunc{
		names: []string{"echo", "fail", "notFound"},
		fn: func(ctx context.Context, call Call) (string, error) {
			switch call.Name {
			case "fail":
				return "", backend("I had trouble with that.", errors.New("connection reset"))
			case "notFound":
				return "", notFound("I couldn't find %s.", call.Input["name"])
			}
			return "echo: " + call.Input["text"].(string), nil
		},
	}
	registry, err := NewRegistry(echo)
	require.NoError(t, err)

	tests := []struct {
		name       string
		call       Call
		wantOutput string
		wantErr    error
	}{
		{
			name:       "handled call",
			call:       Call{Name: "echo", Input: map[string]any{"text": "hi"}},
			wantOutput: "echo: hi",
		},
		{
			name:       "unknown name is not handled",
			call:       Call{Name: "launchRocket", Input: map[string]any{}},
			wantOutput: "Function call launchRocket is not handled by any known handler.",
		},
		{
			name:       "backend failure becomes its apology",
			call:       Call{Name: "fail"},
			wantOutput: "I had trouble with that.",
			wantErr:    ErrBackend,
		},
		{
			name:       "not found keeps its message",
			call:       Call{Name: "notFound", Input: map[string]any{"name": "kale"}},
			wantOutput: "I couldn't find kale.",
			wantErr:    ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := NewDispatcher(registry, 0).Dispatch(context.Background(), []Call{tt.call})
			require.Len(t, results, 1)
			assert.Equal(t, tt.wantOutput, results[0].Output)
			if tt.wantErr != nil {
				assert.ErrorIs(t, results[0].Err, tt.wantErr)
			}
		})
	}
}

func TestDispatcher_DispatchRunsCallsConcurrently(t *testing.T) {
	const n = 4
	var arrived sync.WaitGroup
	arrived.Add(n)
	release := make(chan struct{})
	go func() {
		arrived.Wait()
		close(release)
	}()

	barrier := handlerFunc{
		names: []string{"wait"},
		fn: func(ctx context.Context, call Call) (string, error) {
			arrived.Done()
			select {
			case <-release:
				return call.Input["id"].(string), nil
			case <-time.After(5 * time.Second):
				return "", errors.New("calls were not run concurrently")
			}
		},
	}
	registry, err := NewRegistry(barrier)
	require.NoError(t, err)

	calls := make([]Call, n)
	ids := []string{"a", "b", "c", "d"}
	for i, id := range ids {
		calls[i] = Call{Name: "wait", Input: map[string]any{"id": id}}
	}

	results := NewDispatcher(registry, 0).Dispatch(context.Background(), calls)
	require.Len(t, results, n)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, ids[i], r.Output, "results keep call order")
	}
}

func TestDispatcher_DispatchRecordsThoughts(t *testing.T) {
	step := handlerFunc{
		names: []string{"step"},
		fn: func(ctx context.Context, call Call) (string, error) {
			addThought(ctx, "✅ Executed: step", "")
			return "ok", nil
		},
	}
	registry, err := NewRegistry(step)
	require.NoError(t, err)

	thoughts := NewThoughts(nil)
	thoughts.Add("🤔 Thinking", "", "active")
	ctx := WithThoughts(userCtx(), thoughts)

	NewDispatcher(registry, 2).Dispatch(ctx, []Call{{Name: "step"}, {Name: "step"}})

	steps := thoughts.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, "active", steps[0].Status)
	assert.Equal(t, "✅ Executed: step", steps[1].Step)

	thoughts.Complete()
	for _, s := range thoughts.Steps() {
		assert.Equal(t, "completed", s.Status)
	}
}

func TestNewRegistry_DuplicateNames(t *testing.T) {
	a := handlerFunc{names: []string{"same"}}
	b := handlerFunc{names: []string{"same"}}

	_, err := NewRegistry(a, b)
	assert.Error(t, err)
}
