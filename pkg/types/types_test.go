package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalPart_Dispatch(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind string
	}{
		{
			name: "markdown",
			data: `{"id":"p1","kind":"markdown","content":{"value":"hello","trusted":true}}`,
			kind: PartKindMarkdown,
		},
		{
			name: "async placeholder",
			data: `{"id":"p2","kind":"async","content":"loading..."}`,
			kind: PartKindAsync,
		},
		{
			name: "tree data",
			data: `{"id":"p3","kind":"treeData","data":{"label":"root"}}`,
			kind: PartKindTreeData,
		},
		{
			name: "component",
			data: `{"id":"p4","kind":"component","component":"diff-view"}`,
			kind: PartKindComponent,
		},
		{
			name: "tool call",
			data: `{"id":"p5","kind":"toolCall","call":{"id":"call_1","function":{"name":"search"}}}`,
			kind: PartKindToolCall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, err := UnmarshalPart([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, part.PartKind())
			assert.NotEmpty(t, part.PartID())
		})
	}
}

func TestUnmarshalPart_UnknownKindDoesNotFail(t *testing.T) {
	part, err := UnmarshalPart([]byte(`{"id":"p9","kind":"hologram","content":{"value":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, "p9", part.PartID())
}

func TestPartList_RoundTrip(t *testing.T) {
	original := PartList{
		&MarkdownPart{ID: "p1", Kind: PartKindMarkdown, Content: Markdown{Value: "hi", Trusted: true}},
		&ToolCallPart{ID: "p2", Kind: PartKindToolCall, Call: ToolCall{
			ID:       "call_1",
			Function: FunctionCall{Name: "grep", Arguments: `{"pattern":"x"}`},
			Result:   `{"matches":3}`,
		}},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded PartList
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)

	md, ok := decoded[0].(*MarkdownPart)
	require.True(t, ok)
	assert.Equal(t, "hi", md.Content.Value)
	assert.True(t, md.Content.Trusted)

	tc, ok := decoded[1].(*ToolCallPart)
	require.True(t, ok)
	assert.Equal(t, "call_1", tc.Call.ID)
	assert.Equal(t, "grep", tc.Call.Function.Name)
}

func TestMarkdown_AppendKeepsTrust(t *testing.T) {
	trusted := Markdown{Value: "a", Trusted: true}
	merged := trusted.Append(Markdown{Value: "b"})

	assert.Equal(t, "ab", merged.Value)
	assert.True(t, merged.Trusted)
}
