package miseagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	names  []string
	bodies [][]byte
	err    error
}

func (f *fakeArchive) Put(ctx context.Context, name string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.names = append(f.names, name)
	f.bodies = append(f.bodies, body)
	return nil
}

func TestNewCoordinationLogName(t *testing.T) {
	name := NewCoordinationLogName("Meta/Llama-3:70B")
	assert.True(t, strings.HasSuffix(name, ".meta_llama-3_70b.json"), name)
	assert.True(t, strings.HasPrefix(NewCoordinationLogFilePath("x"), "./logs/"))
}

func TestFileCoordinationLogger_Flush(t *testing.T) {
	var buf bytes.Buffer
	l := NewFileCoordinationLogger(&buf)
	require.NoError(t, l.LogIteration(IterationLog{Iteration: 1, LLMOutput: "hi"}))
	require.NoError(t, l.LogIteration(IterationLog{Iteration: 2, Error: "boom"}))
	require.NoError(t, l.Flush())

	var doc struct {
		Session struct {
			Iterations []IterationLog `json:"iterations"`
		} `json:"coordination_session"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Session.Iterations, 2)
	assert.Equal(t, "boom", doc.Session.Iterations[1].Error)
}

func TestS3CoordinationLogger_Flush(t *testing.T) {
	ctx := context.Background()
	a := &fakeArchive{}
	l := NewS3CoordinationLogger(a, "gemini-2.0-flash")

	require.NoError(t, l.Flush(ctx))
	assert.Empty(t, a.names, "nothing buffered, nothing uploaded")

	require.NoError(t, l.LogIteration(IterationLog{Iteration: 1}))
	require.NoError(t, l.Flush(ctx))
	require.Len(t, a.names, 1)
	assert.Contains(t, a.names[0], "gemini-2.0-flash")
	assert.Contains(t, string(a.bodies[0]), `"iteration": 1`)

	require.NoError(t, l.Flush(ctx))
	assert.Len(t, a.names, 1, "buffer is cleared after an upload")
}

func TestS3CoordinationLogger_KeepsBufferOnFailure(t *testing.T) {
	ctx := context.Background()
	a := &fakeArchive{err: errors.New("access denied")}
	l := NewS3CoordinationLogger(a, "m")

	require.NoError(t, l.LogIteration(IterationLog{Iteration: 1}))
	require.Error(t, l.Flush(ctx))

	a.err = nil
	require.NoError(t, l.Flush(ctx))
	assert.Len(t, a.names, 1)
}
