package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miseagent/tools"
	"miseagent/tools/storage"
)

func newRegistry(t *testing.T) (*tools.Registry, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	reg, err := tools.NewDefaultRegistry(store, tools.Options{})
	require.NoError(t, err)
	return reg, store
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestNewServer_RegistersEveryTool(t *testing.T) {
	reg, _ := newRegistry(t)
	s, err := NewServer(reg, "user-1")
	require.NoError(t, err)

	registered := s.ListTools()
	assert.Len(t, registered, len(reg.GetTools()))
	require.Contains(t, registered, "updateInventory")
	assert.Equal(t, "updateInventory", registered["updateInventory"].Tool.Name)
	assert.NotEmpty(t, registered["updateInventory"].Tool.RawInputSchema)
}

func TestHandler_RunsToolAsUser(t *testing.T) {
	reg, store := newRegistry(t)
	tool, err := reg.GetTool("addToShoppingList")
	require.NoError(t, err)

	res, err := handler(tool, "user-1")(context.Background(), callRequest("addToShoppingList", map[string]any{
		"items": []any{map[string]any{"item": "Milk", "quantity": 1, "unit": "gallon"}},
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "I've added the items to your shopping list.", textOf(t, res))

	list, err := store.GetShoppingList(context.Background(), "user-1", nil)
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Len(t, list.Items, 1)
}

func TestHandler_ErrorResult(t *testing.T) {
	reg, _ := newRegistry(t)
	tool, err := reg.GetTool("deleteLeftoverItem")
	require.NoError(t, err)

	res, err := handler(tool, "user-1")(context.Background(), callRequest("deleteLeftoverItem", map[string]any{"meal_name": "Lasagna"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, `I couldn't find "Lasagna" in your leftovers.`, textOf(t, res))
}
