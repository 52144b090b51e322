package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatkit-ai/chatkit/pkg/types"
)

func TestResponse_ContentAppendsToTrailingMarkdown(t *testing.T) {
	r := newResponse("req-1", "sess-1", "default")

	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: "Hello"}, false))
	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: ", world"}, false))

	parts := r.Parts()
	require.Len(t, parts, 1)
	md := parts[0].(*types.MarkdownPart)
	assert.Equal(t, "Hello, world", md.Content.Value)
	assert.Equal(t, "Hello, world", r.Text())
}

func TestResponse_MarkdownKeepsFirstTrustFlag(t *testing.T) {
	r := newResponse("req-1", "sess-1", "default")

	require.NoError(t, r.UpdateContent(types.MarkdownProgress{Content: types.Markdown{Value: "a", Trusted: true}}, false))
	require.NoError(t, r.UpdateContent(types.MarkdownProgress{Content: types.Markdown{Value: "b", Trusted: false}}, false))

	parts := r.Parts()
	require.Len(t, parts, 1)
	md := parts[0].(*types.MarkdownPart)
	assert.Equal(t, "ab", md.Content.Value)
	assert.True(t, md.Content.Trusted)
}

func TestResponse_ReasoningMergesAndStripsThinkTag(t *testing.T) {
	r := newResponse("req-1", "sess-1", "default")

	require.NoError(t, r.UpdateContent(types.ReasoningProgress{Text: "<think>let me"}, false))
	require.NoError(t, r.UpdateContent(types.ReasoningProgress{Text: " see"}, false))

	parts := r.Parts()
	require.Len(t, parts, 1)
	reasoning := parts[0].(*types.ReasoningPart)
	assert.Equal(t, "let me see", reasoning.Content)

	// Reasoning projects to the empty string; only the answer text
	// contributes.
	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: "42"}, false))
	assert.Equal(t, "\n\n42", r.Text())
	require.Len(t, r.Parts(), 2)

	// A delta after a non-reasoning part opens a fresh reasoning part.
	require.NoError(t, r.UpdateContent(types.ReasoningProgress{Text: "<think>more"}, false))
	parts = r.Parts()
	require.Len(t, parts, 3)
	assert.Equal(t, "more", parts[2].(*types.ReasoningPart).Content)
}

func TestResponse_NonMarkdownBreaksTheRun(t *testing.T) {
	r := newResponse("req-1", "sess-1", "default")

	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: "before"}, false))
	require.NoError(t, r.UpdateContent(types.TreeDataProgress{Data: json.RawMessage(`{"root":1}`)}, false))
	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: "after"}, false))

	parts := r.Parts()
	require.Len(t, parts, 3)
	assert.Equal(t, types.PartKindMarkdown, parts[0].PartKind())
	assert.Equal(t, types.PartKindTreeData, parts[1].PartKind())
	assert.Equal(t, types.PartKindMarkdown, parts[2].PartKind())

	// Tree data projects as an empty segment.
	assert.Equal(t, "before\n\n\n\nafter", r.Text())
}

func TestResponse_ToolCallUpsertsByCallID(t *testing.T) {
	r := newResponse("req-1", "sess-1", "default")

	require.NoError(t, r.UpdateContent(types.ToolCallProgress{Call: types.ToolCall{
		ID:       "call-1",
		Function: types.FunctionCall{Name: "search", Arguments: `{"q":"go"}`},
	}}, false))
	require.NoError(t, r.UpdateContent(types.ToolCallProgress{Call: types.ToolCall{
		ID:       "call-1",
		Function: types.FunctionCall{Name: "search", Arguments: `{"q":"go"}`},
		Result:   `{"hits":3}`,
	}}, false))

	parts := r.Parts()
	require.Len(t, parts, 1)
	tc := parts[0].(*types.ToolCallPart)
	assert.Equal(t, `{"hits":3}`, tc.Call.Result)
	assert.Equal(t, "search", r.Text())
}

func TestResponse_AsyncResolvesByIdentity(t *testing.T) {
	r := newResponse("req-1", "sess-1", "default")

	resolved := make(chan types.AsyncValue, 1)
	require.NoError(t, r.UpdateContent(types.AsyncProgress{Placeholder: "loading...", Resolved: resolved}, false))

	// Parts pushed after the reservation must not shift where the
	// resolution lands.
	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: "tail"}, false))
	assert.Equal(t, "loading...\n\ntail", r.Text())

	settled := make(chan struct{})
	r.OnDidChange(func() { close(settled) })
	resolved <- types.AsyncValue{Text: "loaded"}
	<-settled

	parts := r.Parts()
	require.Len(t, parts, 2)
	assert.Equal(t, "loaded", parts[0].(*types.MarkdownPart).Content.Value)
	assert.Equal(t, "loaded\n\ntail", r.Text())

	// After resolution the two markdown parts coalesce in the display
	// view but stay separate in the raw parts.
	contents := r.Contents()
	require.Len(t, contents, 1)
	assert.Equal(t, "loadedtail", contents[0].(*types.MarkdownPart).Content.Value)
}

func TestResponse_AsyncResolutionAfterResetIsDropped(t *testing.T) {
	r := newResponse("req-1", "sess-1", "default")

	resolved := make(chan types.AsyncValue)
	require.NoError(t, r.UpdateContent(types.AsyncProgress{Placeholder: "pending", Resolved: resolved}, false))
	r.Reset()
	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: "fresh"}, false))

	fired := make(chan struct{}, 1)
	r.OnDidChange(func() { fired <- struct{}{} })
	resolved <- types.AsyncValue{Text: "stale"}
	close(resolved)

	select {
	case <-fired:
		t.Fatal("stale resolution should not notify")
	default:
	}
	assert.Equal(t, "fresh", r.Text())
}

func TestResponse_CompleteRejectsFurtherProgress(t *testing.T) {
	r := newResponse("req-1", "sess-1", "default")
	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: "done"}, false))
	r.Complete()

	for _, p := range []types.Progress{
		types.ContentProgress{Text: "x"},
		types.MarkdownProgress{Content: types.Markdown{Value: "x"}},
		types.ReasoningProgress{Text: "x"},
		types.AsyncProgress{Placeholder: "x"},
		types.TreeDataProgress{},
		types.ComponentProgress{Component: "x"},
		types.ToolCallProgress{Call: types.ToolCall{ID: "x"}},
	} {
		err := r.UpdateContent(p, false)
		assert.ErrorIs(t, err, ErrResponseComplete, "kind %s", p.ProgressKind())
	}
	assert.Equal(t, "done", r.Text())
}

func TestResponse_CancelMarksCompleteWithoutErrorDetails(t *testing.T) {
	r := newResponse("req-1", "sess-1", "default")
	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: "partial"}, false))

	r.Cancel()
	assert.True(t, r.IsComplete())
	assert.True(t, r.IsCanceled())
	assert.Nil(t, r.ErrorDetails())
	assert.Equal(t, "partial", r.Text())

	// Cancel after completion stays a no-op.
	r2 := newResponse("req-2", "sess-1", "default")
	r2.Complete()
	r2.Cancel()
	assert.False(t, r2.IsCanceled())
}

func TestResponse_ResetAllowsReplay(t *testing.T) {
	r := newResponse("req-1", "sess-1", "default")
	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: "first try"}, false))
	r.SetErrorDetails(&types.ErrorDetails{Message: "boom"})
	r.Complete()

	r.Reset()
	assert.False(t, r.IsComplete())
	assert.Empty(t, r.Parts())
	assert.Empty(t, r.Text())
	assert.Nil(t, r.ErrorDetails())

	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: "second try"}, false))
	assert.Equal(t, "second try", r.Text())
}

func TestResponse_QuietUpdateSuppressesNotification(t *testing.T) {
	r := newResponse("req-1", "sess-1", "default")

	var fires int
	r.OnDidChange(func() { fires++ })

	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: "a"}, true))
	assert.Zero(t, fires)

	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: "b"}, false))
	assert.Equal(t, 1, fires)
	assert.Equal(t, "ab", r.Text())
}

func TestResponse_SnapshotRoundTrip(t *testing.T) {
	r := newResponse("req-1", "sess-1", "default")
	require.NoError(t, r.UpdateContent(types.ContentProgress{Text: "hello"}, false))
	require.NoError(t, r.UpdateContent(types.ToolCallProgress{Call: types.ToolCall{
		ID:       "call-1",
		Function: types.FunctionCall{Name: "lookup"},
	}}, false))
	r.Complete()
	r.SetFollowups([]types.Followup{{Message: "tell me more"}})

	snap := r.Snapshot()
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var loaded types.ResponseSnapshot
	require.NoError(t, json.Unmarshal(data, &loaded))

	hydrated := hydrateResponse("req-1", "sess-1", "default", loaded)
	assert.True(t, hydrated.IsComplete())
	assert.Equal(t, r.Text(), hydrated.Text())
	require.Len(t, hydrated.Parts(), 2)
	assert.Equal(t, "lookup", hydrated.Parts()[1].(*types.ToolCallPart).Call.Function.Name)
	assert.Equal(t, "tell me more", hydrated.Followups()[0].Message)
}

func TestCoalesce_Idempotent(t *testing.T) {
	parts := []types.Part{
		&types.MarkdownPart{ID: "1", Kind: types.PartKindMarkdown, Content: types.Markdown{Value: "a"}},
		&types.MarkdownPart{ID: "2", Kind: types.PartKindMarkdown, Content: types.Markdown{Value: "b"}},
		&types.ComponentPart{ID: "3", Kind: types.PartKindComponent, Component: "chart"},
		&types.MarkdownPart{ID: "4", Kind: types.PartKindMarkdown, Content: types.Markdown{Value: "c"}},
	}

	once := coalesce(parts)
	require.Len(t, once, 3)
	assert.Equal(t, "ab", once[0].(*types.MarkdownPart).Content.Value)
	assert.Equal(t, "c", once[2].(*types.MarkdownPart).Content.Value)

	twice := coalesce(once)
	assert.Equal(t, once, twice)
}
