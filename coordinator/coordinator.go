package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"miseagent"
	"miseagent/tools"
	"miseagent/tools/storage"
)

// ErrNoAnswer is returned when the model keeps calling tools until the
// iteration budget runs out.
var ErrNoAnswer = errors.New("no final answer from the model")

// maxLookups is how often one lookup tool may run in a single turn before the
// model is told to answer with what it has.
const maxLookups = 2

type dispatcher interface {
	Dispatch(ctx context.Context, calls []tools.Call) []tools.Result
}

// Coordinator runs the model/tool loop for one chat turn.
type Coordinator struct {
	llm           LLM
	toolProvider  miseagent.ToolProvider
	dispatcher    dispatcher
	maxIterations int
	logger        miseagent.CoordinationLogger
	tracer        trace.Tracer
	now           func() time.Time
	debug         bool

	runs          metric.Int64Counter
	runsFailed    metric.Int64Counter
	iterations    metric.Int64Counter
	toolCalls     metric.Int64Counter
	toolFailures  metric.Int64Counter
	repetitions   metric.Int64Counter
	promptSize    metric.Int64Gauge
	runDuration   metric.Float64Histogram
	llmLatency    metric.Float64Histogram
	toolExecution metric.Float64Histogram
}

type Options struct {
	MaxIterations int
	Logger        miseagent.CoordinationLogger
	Tracer        trace.Tracer
	Meter         metric.Meter
	Now           func() time.Time
	// Debug dumps every tool call the model requests to stderr.
	Debug bool
}

// logFlusher is implemented by loggers that upload a run when it ends.
type logFlusher interface {
	Flush(ctx context.Context) error
}

// NewCoordinator initializes a coordinator. Tracer and Meter default to the
// global otel providers.
func NewCoordinator(llm LLM, toolProvider miseagent.ToolProvider, d dispatcher, opts Options) *Coordinator {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 10
	}
	if opts.Logger == nil {
		opts.Logger = miseagent.NewNoOpCoordinationLogger()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(miseagent.TracerNameCoordinator)
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(miseagent.TracerNameCoordinator)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := opts.Meter
	c := &Coordinator{
		llm:           llm,
		toolProvider:  toolProvider,
		dispatcher:    d,
		maxIterations: opts.MaxIterations,
		logger:        opts.Logger,
		tracer:        opts.Tracer,
		now:           opts.Now,
		debug:         opts.Debug,
	}
	c.runs, _ = m.Int64Counter("coordinator_runs_total",
		metric.WithDescription("Total number of coordination runs started"))
	c.runsFailed, _ = m.Int64Counter("coordinator_runs_failed_total",
		metric.WithDescription("Total number of coordination runs that failed"))
	c.iterations, _ = m.Int64Counter("coordinator_iterations_total",
		metric.WithDescription("Total number of coordination iterations"))
	c.toolCalls, _ = m.Int64Counter("tool_calls_total",
		metric.WithDescription("Total number of tool calls executed"))
	c.toolFailures, _ = m.Int64Counter("tool_calls_failed_total",
		metric.WithDescription("Total number of tool calls that failed"))
	c.repetitions, _ = m.Int64Counter("tool_repetition_prevented_total",
		metric.WithDescription("Total number of times tool repetition was prevented"))
	c.promptSize, _ = m.Int64Gauge("prompt_size_bytes",
		metric.WithDescription("Size of the prompt sent to LLM in bytes"))
	c.runDuration, _ = m.Float64Histogram("coordination_duration_seconds",
		metric.WithDescription("Total duration of coordination process in seconds"))
	c.llmLatency, _ = m.Float64Histogram("llm_response_time_seconds",
		metric.WithDescription("Time taken to receive response from LLM in seconds"))
	c.toolExecution, _ = m.Float64Histogram("tool_execution_time_seconds",
		metric.WithDescription("Time taken to execute individual tools in seconds"))
	return c
}

// Run answers a single message with no prior transcript.
func (c *Coordinator) Run(ctx context.Context, task string) (string, error) {
	return c.Converse(ctx, []storage.ChatMessage{{Role: storage.RoleUser, Content: task, Timestamp: c.now()}})
}

// Converse runs the model over history until it answers without tool calls.
func (c *Coordinator) Converse(ctx context.Context, history []storage.ChatMessage) (string, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.Converse")
	defer span.End()

	start := time.Now()
	c.runs.Add(ctx, 1)
	defer func() { c.runDuration.Record(ctx, time.Since(start).Seconds()) }()
	defer c.flushLog(ctx)

	slog.Info("COORDINATOR: Starting run", "messages", len(history))

	prompt := NewPrompt(SystemPrompt(c.now()), history, c.toolProvider)
	lookups := make(map[string]int)

	for iter := 0; iter < c.maxIterations; iter++ {
		answer, done, err := c.iterate(ctx, iter+1, &prompt, lookups)
		if err != nil {
			c.runsFailed.Add(ctx, 1)
			span.SetStatus(codes.Error, "LLM invoke failed")
			span.RecordError(err)
			return "", err
		}
		if done {
			return answer, nil
		}
	}

	c.runsFailed.Add(ctx, 1)
	span.SetStatus(codes.Error, "Max iterations reached without final output")
	slog.Warn("COORDINATOR: Max iterations reached", "max_iterations", c.maxIterations)
	return "", fmt.Errorf("%w after %d iterations", ErrNoAnswer, c.maxIterations)
}

func (c *Coordinator) iterate(ctx context.Context, iter int, prompt *Prompt, lookups map[string]int) (string, bool, error) {
	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("Coordinator.Converse.Iteration.%d", iter))
	defer span.End()

	c.iterations.Add(ctx, 1)
	iterLog := miseagent.IterationLog{Iteration: iter, Timestamp: c.now()}

	if b, err := json.Marshal(prompt); err == nil {
		iterLog.LLMInput = string(b)
		c.promptSize.Record(ctx, int64(len(b)))
		slog.Info("COORDINATOR: Sending prompt to LLM",
			"iteration", iter,
			"messages_count", len(prompt.Messages),
			"tools_count", len(prompt.Tools),
			"prompt_size_bytes", len(b),
		)
		span.AddEvent("Sending prompt to LLM", trace.WithAttributes(
			attribute.Int("iteration", iter),
			attribute.Int("messages_count", len(prompt.Messages)),
			attribute.Int("prompt_size_bytes", len(b)),
		))
	}

	llmStart := time.Now()
	res, err := c.llm.Invoke(ctx, *prompt)
	c.llmLatency.Record(ctx, time.Since(llmStart).Seconds())
	if err != nil {
		iterLog.Error = err.Error()
		c.logIteration(iterLog)
		return "", false, fmt.Errorf("invoke failed: %w", err)
	}
	iterLog.LLMOutput = res

	slog.Info("COORDINATOR: LLM response received",
		"iteration", iter,
		"content_length", len(res.Content),
		"tool_calls", len(res.ToolCalls),
	)

	if len(res.ToolCalls) == 0 {
		c.logIteration(iterLog)
		return strings.TrimSpace(res.Content), true, nil
	}

	assistantMsg := Message{Role: RoleAssistant, Content: MessageParts{}}
	if res.Content != "" {
		assistantMsg.Content = append(assistantMsg.Content, MessagePart{Type: PartText, Text: res.Content})
	}
	for _, call := range res.ToolCalls {
		slog.Info("COORDINATOR: Handling tool call", "name", call.Name, "iteration", iter)
		assistantMsg.Content = append(assistantMsg.Content, MessagePart{
			Type:      PartToolUse,
			ToolUseID: call.ToolUseID,
			ToolName:  call.Name,
			Data:      call.Input,
		})
	}
	prompt.Messages = append(prompt.Messages, assistantMsg)

	allowed, blocked := c.splitRepeated(res.ToolCalls, lookups)
	if c.debug {
		miseagent.Dump(allowed)
	}
	results := c.dispatcher.Dispatch(ctx, allowed)

	toolResults := make([]ToolResult, 0, len(res.ToolCalls))
	next := 0
	for i, call := range res.ToolCalls {
		if blocked[i] {
			slog.Warn("COORDINATOR: Excessive tool repetition detected", "tool", call.Name, "count", lookups[call.Name], "iteration", iter)
			c.repetitions.Add(ctx, 1, metric.WithAttributes(attribute.String("tool_name", call.Name)))
			output := map[string]any{
				"error":  "excessive_tool_repetition",
				"result": fmt.Sprintf("You've already called %s several times in this turn. Use the results you have and answer the user.", call.Name),
			}
			iterLog.ToolCalls = append(iterLog.ToolCalls, miseagent.ToolCallLog{Name: call.Name, Input: call.Input, Output: output, Error: "excessive tool repetition"})
			toolResults = append(toolResults, ToolResult{ToolUseID: call.ToolUseID, ToolName: call.Name, Data: output})
			continue
		}

		r := results[next]
		next++
		attrs := metric.WithAttributes(attribute.String("tool_name", r.Call.Name))
		c.toolCalls.Add(ctx, 1, attrs)
		c.toolExecution.Record(ctx, r.Duration.Seconds(), attrs)

		output := map[string]any{"result": r.Output}
		tlog := miseagent.ToolCallLog{Name: r.Call.Name, Input: r.Call.Input, Output: output}
		if r.Err != nil {
			c.toolFailures.Add(ctx, 1, attrs)
			tlog.Error = r.Err.Error()
		}
		iterLog.ToolCalls = append(iterLog.ToolCalls, tlog)
		toolResults = append(toolResults, ToolResult{
			ToolUseID: r.Call.ToolUseID,
			ToolName:  r.Call.Name,
			Data:      output,
		})
	}
	prompt.Messages = append(prompt.Messages, NewToolResultMessage(toolResults))

	c.logIteration(iterLog)
	return "", false, nil
}

// splitRepeated counts read-only calls that will run and marks, by index, the
// ones that would go over maxLookups. Blocked calls are not counted.
func (c *Coordinator) splitRepeated(calls []tools.Call, lookups map[string]int) ([]tools.Call, map[int]bool) {
	allowed := make([]tools.Call, 0, len(calls))
	blocked := map[int]bool{}
	for i, call := range calls {
		if strings.HasPrefix(call.Name, "get") {
			if lookups[call.Name] >= maxLookups {
				blocked[i] = true
				continue
			}
			lookups[call.Name]++
		}
		allowed = append(allowed, call)
	}
	return allowed, blocked
}

func (c *Coordinator) flushLog(ctx context.Context) {
	if f, ok := c.logger.(logFlusher); ok {
		if err := f.Flush(context.WithoutCancel(ctx)); err != nil {
			slog.Error("Failed to flush coordination log", "error", err)
		}
	}
}

func (c *Coordinator) logIteration(iter miseagent.IterationLog) {
	if c.logger != nil {
		if err := c.logger.LogIteration(iter); err != nil {
			slog.Error("Failed to log coordination iteration", "error", err, "iteration", iter.Iteration)
		}
	}
}
