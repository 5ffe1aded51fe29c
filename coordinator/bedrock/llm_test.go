package bedrock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miseagent/coordinator"
	"miseagent/tools"
)

// mockBedrockClient implements bedrockRuntimeClient and keeps the last request.
type mockBedrockClient struct {
	response *bedrockruntime.ConverseOutput
	err      error
	input    *bedrockruntime.ConverseInput
}

func (m *mockBedrockClient) Converse(ctx context.Context, input *bedrockruntime.ConverseInput, opts ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.input = input
	return m.response, m.err
}

func output(stop types.StopReason, blocks ...types.ContentBlock) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		StopReason: stop,
		Output:     &types.ConverseOutputMemberMessage{Value: types.Message{Content: blocks}},
		Usage:      &types.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(20)},
		Metrics:    &types.ConverseMetrics{LatencyMs: aws.Int64(100)},
	}
}

func TestNewLLMClient(t *testing.T) {
	tests := []struct {
		name     string
		input    LLMOptions
		expected LLMOptions
	}{
		{
			name:  "empty options uses defaults",
			input: LLMOptions{},
			expected: LLMOptions{
				ModelID:     defaultModelID,
				MaxTokens:   defaultMaxTokens,
				Temperature: defaultTemperature,
				TopP:        defaultTopP,
			},
		},
		{
			name:     "custom options preserved",
			input:    LLMOptions{ModelID: "custom-model", MaxTokens: 2048, Temperature: 0.5, TopP: 0.8},
			expected: LLMOptions{ModelID: "custom-model", MaxTokens: 2048, Temperature: 0.5, TopP: 0.8},
		},
		{
			name:     "partial options with defaults",
			input:    LLMOptions{ModelID: "custom-model", MaxTokens: 2048},
			expected: LLMOptions{ModelID: "custom-model", MaxTokens: 2048, Temperature: defaultTemperature, TopP: defaultTopP},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &mockBedrockClient{}
			client := NewLLMClient(mockClient, tt.input)

			assert.Equal(t, tt.expected, client.opts)
			assert.Equal(t, mockClient, client.brc)
		})
	}
}

func TestLLMClient_Invoke(t *testing.T) {
	hello := coordinator.Prompt{Messages: []coordinator.Message{coordinator.TextMessage(coordinator.RoleUser, "Hello")}}

	tests := []struct {
		name         string
		response     *bedrockruntime.ConverseOutput
		err          error
		expectedResp coordinator.Response
		expectedErr  error
	}{
		{
			name:         "plain text answer",
			response:     output(types.StopReasonEndTurn, &types.ContentBlockMemberText{Value: "Hi! What are we cooking?"}),
			expectedResp: coordinator.Response{Content: "Hi! What are we cooking?"},
		},
		{
			name: "tool use",
			response: output(types.StopReasonToolUse, &types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
				ToolUseId: aws.String("call-1"),
				Name:      aws.String("getInventory"),
				Input:     document.NewLazyDocument(map[string]any{}),
			}}),
			expectedResp: coordinator.Response{ToolCalls: []tools.Call{
				{Name: "getInventory", Input: map[string]any{}, ToolUseID: "call-1"},
			}},
		},
		{
			name:        "max tokens",
			response:    output(types.StopReasonMaxTokens),
			expectedErr: ErrMaxTokens,
		},
		{
			name:        "safety filter",
			response:    output(types.StopReasonContentFiltered),
			expectedErr: ErrFiltered,
		},
		{
			name:        "api error",
			err:         assert.AnError,
			expectedErr: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := NewLLMClient(&mockBedrockClient{response: tt.response, err: tt.err}, LLMOptions{})
			resp, err := llm.Invoke(context.Background(), hello)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedResp, resp)
		})
	}
}

func TestLLMClient_Invoke_BuildsRequest(t *testing.T) {
	mockClient := &mockBedrockClient{response: output(types.StopReasonEndTurn, &types.ContentBlockMemberText{Value: "done"})}
	llm := NewLLMClient(mockClient, LLMOptions{})

	prompt := coordinator.Prompt{
		Messages: []coordinator.Message{
			coordinator.TextMessage(coordinator.RoleSystem, "be helpful"),
			coordinator.TextMessage(coordinator.RoleUser, "I have 2 apples"),
			{Role: coordinator.RoleAssistant, Content: coordinator.MessageParts{{
				Type:      coordinator.PartToolUse,
				ToolUseID: "call-1",
				ToolName:  "updateInventory",
				Data:      map[string]any{"item_name": "Apples", "quantity": 2},
			}}},
			coordinator.NewToolResultMessage([]coordinator.ToolResult{{
				ToolUseID: "call-1",
				ToolName:  "updateInventory",
				Data:      map[string]any{"result": "ok"},
			}}),
		},
		Tools: []coordinator.Tool{{Name: "updateInventory", Description: "Update inventory", InputSchema: &jsonschema.Schema{Type: "object"}}},
	}

	_, err := llm.Invoke(context.Background(), prompt)
	require.NoError(t, err)

	in := mockClient.input
	require.NotNil(t, in)
	require.Len(t, in.System, 1)
	assert.Equal(t, "be helpful", in.System[0].(*types.SystemContentBlockMemberText).Value)

	require.Len(t, in.Messages, 3)
	assert.Equal(t, types.ConversationRoleUser, in.Messages[0].Role)
	assert.Equal(t, types.ConversationRoleAssistant, in.Messages[1].Role)

	use, ok := in.Messages[1].Content[0].(*types.ContentBlockMemberToolUse)
	require.True(t, ok)
	assert.Equal(t, "updateInventory", aws.ToString(use.Value.Name))

	res, ok := in.Messages[2].Content[0].(*types.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, "call-1", aws.ToString(res.Value.ToolUseId))

	require.NotNil(t, in.ToolConfig)
	assert.Len(t, in.ToolConfig.Tools, 1)
}

func TestTextFromOutput(t *testing.T) {
	tests := []struct {
		name     string
		output   *bedrockruntime.ConverseOutput
		expected string
	}{
		{name: "nil output", output: nil, expected: ""},
		{
			name:     "single text block",
			output:   output(types.StopReasonEndTurn, &types.ContentBlockMemberText{Value: "Hello world"}),
			expected: "Hello world",
		},
		{
			name: "multiple text blocks",
			output: output(types.StopReasonEndTurn,
				&types.ContentBlockMemberText{Value: "Hello"},
				&types.ContentBlockMemberText{Value: "world"}),
			expected: "Hello\nworld",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, textFromOutput(tt.output))
		})
	}
}

func TestNormalizeInput(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{name: "whole number float to int", input: 2.0, expected: 2},
		{name: "decimal float unchanged", input: 2.5, expected: 2.5},
		{name: "plain string unchanged", input: "hello", expected: "hello"},
		{name: "numeric string unchanged", input: "42", expected: "42"},
		{
			name:     "stringified array decoded",
			input:    `[{"item":"Milk","quantity":1}]`,
			expected: []any{map[string]any{"item": "Milk", "quantity": 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeInput(tt.input))
		})
	}
}

func TestToolCallsFromOutput(t *testing.T) {
	out := output(types.StopReasonToolUse,
		&types.ContentBlockMemberText{Value: "Let me check."},
		&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
			ToolUseId: aws.String("id1"),
			Name:      aws.String("getInventory"),
			Input:     document.NewLazyDocument(map[string]any{}),
		}},
		&types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
			ToolUseId: aws.String("id2"),
			Name:      aws.String("getLeftovers"),
			Input:     document.NewLazyDocument(map[string]any{}),
		}},
	)

	assert.Equal(t, []tools.Call{
		{Name: "getInventory", Input: map[string]any{}, ToolUseID: "id1"},
		{Name: "getLeftovers", Input: map[string]any{}, ToolUseID: "id2"},
	}, toolCallsFromOutput(out))
	assert.Nil(t, toolCallsFromOutput(output(types.StopReasonEndTurn, &types.ContentBlockMemberText{Value: "Just text"})))
}

func TestBuildToolSpec(t *testing.T) {
	tool := coordinator.Tool{
		Name:        "getInventory",
		Description: "List the inventory",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}

	spec, err := buildToolSpec(tool)
	require.NoError(t, err)
	assert.Equal(t, tool.Name, aws.ToString(spec.Name))
	assert.Equal(t, tool.Description, aws.ToString(spec.Description))
	assert.NotNil(t, spec.InputSchema)
}
