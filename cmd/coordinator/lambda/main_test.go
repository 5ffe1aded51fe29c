package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miseagent/coordinator"
	"miseagent/coordinator/mock"
	"miseagent/tools"
	"miseagent/tools/storage"
)

func TestHandler(t *testing.T) {
	store := storage.NewMemory()
	registry, err := tools.NewDefaultRegistry(store, tools.Options{})
	require.NoError(t, err)
	c := coordinator.NewCoordinator(mock.NewScripted(mock.Reply("Try a stir fry.")), registry, tools.NewDispatcher(registry, 1), coordinator.Options{})
	fn := handler(coordinator.NewChat(store, c, time.Minute))

	_, err = fn(context.Background(), Params{Message: "dinner?"})
	assert.Error(t, err)

	res, err := fn(context.Background(), Params{UserID: "u1", Message: "dinner?"})
	require.NoError(t, err)
	assert.Equal(t, "Try a stir fry.", res.Reply)
}
