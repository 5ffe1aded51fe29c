package miseagent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// CoordinationLogger is the interface for coordinator logging.
type CoordinationLogger interface {
	LogIteration(iteration IterationLog) error
}

// NewCoordinationLogName names a log after the time and a cleaned up model id.
func NewCoordinationLogName(model string) string {
	r := strings.NewReplacer(":", "_", "/", "_")
	return fmt.Sprintf("%d.%s.json", time.Now().Unix(), r.Replace(strings.ToLower(model)))
}

// NewCoordinationLogFilePath returns ./logs/<name> for NewCoordinationLogName.
func NewCoordinationLogFilePath(model string) string {
	return "./logs/" + NewCoordinationLogName(model)
}

// IterationLog represents a single iteration in the coordination process
type IterationLog struct {
	Iteration int           `json:"iteration"`
	Timestamp time.Time     `json:"timestamp"`
	LLMInput  string        `json:"llm_input,omitempty"`
	LLMOutput any           `json:"llm_output"`
	ToolCalls []ToolCallLog `json:"tool_calls,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ToolCallLog represents a tool execution within a step
type ToolCallLog struct {
	Name   string         `json:"name"`
	Input  map[string]any `json:"input"`
	Output map[string]any `json:"output"`
	Error  string         `json:"error,omitempty"`
}

// FileCoordinationLogger accumulates iterations and writes them on Flush.
type FileCoordinationLogger struct {
	mu         sync.Mutex
	iterations []IterationLog
	writer     io.Writer
}

// NewFileCoordinationLogger creates a new file-based coordination logger
func NewFileCoordinationLogger(writer io.Writer) *FileCoordinationLogger {
	return &FileCoordinationLogger{
		iterations: make([]IterationLog, 0),
		writer:     writer,
	}
}

func (fcl *FileCoordinationLogger) LogIteration(iteration IterationLog) error {
	fcl.mu.Lock()
	defer fcl.mu.Unlock()
	fcl.iterations = append(fcl.iterations, iteration)
	return nil
}

// Flush writes the buffered iterations and clears the buffer.
func (fcl *FileCoordinationLogger) Flush() error {
	if fcl.writer == nil {
		return nil
	}

	fcl.mu.Lock()
	defer fcl.mu.Unlock()

	data, err := marshalSession(fcl.iterations)
	if err != nil {
		return err
	}
	if _, err := fcl.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write coordination log: %w", err)
	}

	fcl.iterations = fcl.iterations[:0]
	return nil
}

func marshalSession(iterations []IterationLog) ([]byte, error) {
	data, err := json.MarshalIndent(map[string]any{
		"coordination_session": map[string]any{
			"timestamp":  time.Now(),
			"iterations": iterations,
		},
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal coordination log: %w", err)
	}
	return data, nil
}

// NoOpCoordinationLogger is a logger that discards all log entries
type NoOpCoordinationLogger struct{}

// NewNoOpCoordinationLogger creates a new no-op coordination logger
func NewNoOpCoordinationLogger() *NoOpCoordinationLogger {
	return &NoOpCoordinationLogger{}
}

// LogIteration discards the iteration log (no-op)
func (nop *NoOpCoordinationLogger) LogIteration(iteration IterationLog) error {
	return nil
}

// StdoutCoordinationLogger logs each iteration as a JSON line to stdout (for Lambda/CloudWatch)
type StdoutCoordinationLogger struct{}

// NewStdoutCoordinationLogger creates a new stdout-based coordination logger
func NewStdoutCoordinationLogger() *StdoutCoordinationLogger {
	return &StdoutCoordinationLogger{}
}

// LogIteration writes the iteration as a JSON line to os.Stdout
func (l *StdoutCoordinationLogger) LogIteration(iteration IterationLog) error {
	data, err := json.Marshal(iteration)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

type archive interface {
	Put(ctx context.Context, name string, body []byte) error
}

// S3CoordinationLogger buffers iterations like FileCoordinationLogger and
// uploads them as one object per Flush.
type S3CoordinationLogger struct {
	mu         sync.Mutex
	iterations []IterationLog
	archive    archive
	model      string
}

func NewS3CoordinationLogger(a archive, model string) *S3CoordinationLogger {
	return &S3CoordinationLogger{archive: a, model: model}
}

func (l *S3CoordinationLogger) LogIteration(iteration IterationLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.iterations = append(l.iterations, iteration)
	return nil
}

func (l *S3CoordinationLogger) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.iterations) == 0 {
		return nil
	}
	data, err := marshalSession(l.iterations)
	if err != nil {
		return err
	}
	if err := l.archive.Put(ctx, NewCoordinationLogName(l.model), data); err != nil {
		return err
	}
	l.iterations = l.iterations[:0]
	return nil
}
