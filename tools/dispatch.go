package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

type toolLookup interface {
	GetTool(name string) (Tool, error)
}

// Result is the outcome of one dispatched call. Output is always set, even
// when Err is not nil.
type Result struct {
	Call     Call
	Output   string
	Err      error
	Duration time.Duration
}

// Dispatcher runs the tool calls of one model turn concurrently.
type Dispatcher struct {
	tools toolLookup
	limit int
}

// NewDispatcher runs at most limit calls at once; limit <= 0 means no limit.
func NewDispatcher(tools toolLookup, limit int) *Dispatcher {
	return &Dispatcher{tools: tools, limit: limit}
}

// NotHandled is the reply for a tool name no handler serves.
func NotHandled(name string) string {
	return fmt.Sprintf("Function call %s is not handled by any known handler.", name)
}

// Dispatch invokes every call and waits for all of them. Results are in call
// order. Failures never abort the batch: they are logged and carried as text.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []Call) []Result {
	results := make([]Result, len(calls))

	var g errgroup.Group
	if d.limit > 0 {
		g.SetLimit(d.limit)
	}
	for i, call := range calls {
		g.Go(func() error {
			results[i] = d.run(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Dispatcher) run(ctx context.Context, call Call) Result {
	start := time.Now()
	res := Result{Call: call}

	tool, err := d.tools.GetTool(call.Name)
	if err != nil {
		slog.Warn("DISPATCH: Unhandled function call", "name", call.Name)
		res.Output = NotHandled(call.Name)
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}

	out, err := tool.Run(ctx, call.Input)
	res.Duration = time.Since(start)
	if err != nil {
		slog.Error("DISPATCH: Function call failed", "name", call.Name, "error", err)
		res.Output = Message(err)
		res.Err = err
		return res
	}

	res.Output = resultText(out)
	slog.Info("DISPATCH: Function call completed", "name", call.Name, "duration_ms", res.Duration.Milliseconds())
	return res
}

func resultText(out map[string]any) string {
	if s, ok := out["result"].(string); ok && len(out) == 1 {
		return s
	}
	b, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf("%v", out)
	}
	return string(b)
}
