package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatkit-ai/chatkit/pkg/types"
)

func TestSession_RequestIDFormat(t *testing.T) {
	s := newSession("sess-1", "gpt-test")

	req := s.CreateRequest(types.RequestMessage{Prompt: "hi", AgentID: "default"})
	assert.Regexp(t, `^sess-1_request_\d+$`, req.ID())

	got, ok := s.Request(req.ID())
	require.True(t, ok)
	assert.Same(t, req, got)

	latest, ok := s.LatestRequest()
	require.True(t, ok)
	assert.Same(t, req, latest)
}

func TestSession_AcceptResponseProgress(t *testing.T) {
	s := newSession("sess-1", "gpt-test")
	req := s.CreateRequest(types.RequestMessage{Prompt: "hi", AgentID: "default"})

	require.NoError(t, s.AcceptResponseProgress(req.ID(), types.ContentProgress{Text: "hello"}, false))
	assert.Equal(t, "hello", req.Response().Text())

	err := s.AcceptResponseProgress("sess-1_request_999999", types.ContentProgress{Text: "x"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request not found")
}

func TestSession_UnknownProgressKindDropped(t *testing.T) {
	s := newSession("sess-1", "gpt-test")
	req := s.CreateRequest(types.RequestMessage{Prompt: "hi", AgentID: "default"})

	err := s.AcceptResponseProgress(req.ID(), types.RawProgress{Kind: "hologram"}, false)
	require.NoError(t, err)
	assert.Empty(t, req.Response().Parts())
}

func TestSession_ProgressAfterCompleteErrors(t *testing.T) {
	s := newSession("sess-1", "gpt-test")
	req := s.CreateRequest(types.RequestMessage{Prompt: "hi", AgentID: "default"})
	req.Response().Complete()

	err := s.AcceptResponseProgress(req.ID(), types.ContentProgress{Text: "late"}, false)
	assert.ErrorIs(t, err, ErrResponseComplete)
}

func TestSession_ForwardsResponseChanges(t *testing.T) {
	s := newSession("sess-1", "gpt-test")
	req := s.CreateRequest(types.RequestMessage{Prompt: "hi", AgentID: "default"})

	var changed []string
	s.OnDidChange(func(requestID string) { changed = append(changed, requestID) })

	require.NoError(t, s.AcceptResponseProgress(req.ID(), types.ContentProgress{Text: "a"}, false))
	req.Response().Complete()

	assert.Equal(t, []string{req.ID(), req.ID()}, changed)
}

func completedRequest(s *Session, prompt, answer string) *Request {
	req := s.CreateRequest(types.RequestMessage{Prompt: prompt, AgentID: "default"})
	_ = req.Response().UpdateContent(types.ContentProgress{Text: answer}, false)
	req.Response().Complete()
	return req
}

func TestSession_MessageHistory(t *testing.T) {
	s := newSession("sess-1", "gpt-test")
	completedRequest(s, "Hi", "Hi there")

	// Incomplete and canceled turns do not contribute.
	s.CreateRequest(types.RequestMessage{Prompt: "pending", AgentID: "default"})
	canceled := s.CreateRequest(types.RequestMessage{Prompt: "nevermind", AgentID: "default"})
	canceled.Response().Cancel()

	turns := s.MessageHistory(0)
	require.Len(t, turns, 2)
	assert.Equal(t, types.RoleUser, turns[0].Role)
	assert.Equal(t, "Hi", turns[0].Content)
	assert.Equal(t, types.RoleAssistant, turns[1].Role)
	assert.Equal(t, "Hi there", turns[1].Content)
}

func TestSession_MessageHistorySkipsReasoning(t *testing.T) {
	s := newSession("sess-1", "gpt-test")
	req := s.CreateRequest(types.RequestMessage{Prompt: "why?", AgentID: "default"})
	resp := req.Response()

	require.NoError(t, resp.UpdateContent(types.ReasoningProgress{Text: "<think>pondering"}, false))
	require.NoError(t, resp.UpdateContent(types.ContentProgress{Text: "because"}, false))
	resp.Complete()

	turns := s.MessageHistory(0)
	require.Len(t, turns, 2)
	assert.Equal(t, types.RoleUser, turns[0].Role)
	assert.Equal(t, types.RoleAssistant, turns[1].Role)
	assert.Equal(t, "because", turns[1].Content)
}

func TestSession_MessageHistoryPairsToolCalls(t *testing.T) {
	s := newSession("sess-1", "gpt-test")
	req := s.CreateRequest(types.RequestMessage{Prompt: "weather?", AgentID: "default"})
	resp := req.Response()

	require.NoError(t, resp.UpdateContent(types.ToolCallProgress{Call: types.ToolCall{
		ID:       "call-1",
		Function: types.FunctionCall{Name: "get_weather", Arguments: `{"city":"Berlin"}`},
		Result:   `{"temp":21}`,
	}}, false))
	require.NoError(t, resp.UpdateContent(types.ContentProgress{Text: "21 degrees"}, false))
	resp.Complete()

	turns := s.MessageHistory(0)
	require.Len(t, turns, 4)

	assert.Equal(t, types.RoleUser, turns[0].Role)

	require.NotNil(t, turns[1].ToolCall)
	assert.Equal(t, "call-1", turns[1].ToolCall.CallID)
	assert.Equal(t, "get_weather", turns[1].ToolCall.Name)
	assert.Equal(t, map[string]any{"city": "Berlin"}, turns[1].ToolCall.Args)

	require.NotNil(t, turns[2].ToolResult)
	assert.Equal(t, types.RoleTool, turns[2].Role)
	assert.Equal(t, map[string]any{"temp": float64(21)}, turns[2].ToolResult.Result)

	assert.Equal(t, types.RoleAssistant, turns[3].Role)
	assert.Contains(t, turns[3].Content, "21 degrees")
}

func TestSession_MessageHistoryMalformedToolJSON(t *testing.T) {
	s := newSession("sess-1", "gpt-test")
	req := s.CreateRequest(types.RequestMessage{Prompt: "go", AgentID: "default"})

	require.NoError(t, req.Response().UpdateContent(types.ToolCallProgress{Call: types.ToolCall{
		ID:       "call-1",
		Function: types.FunctionCall{Name: "broken", Arguments: `{"oops"`},
		Result:   "not json at all",
	}}, false))
	req.Response().Complete()

	turns := s.MessageHistory(0)
	require.Len(t, turns, 3)
	assert.Equal(t, map[string]any{}, turns[1].ToolCall.Args)
	assert.Equal(t, map[string]any{}, turns[2].ToolResult.Result)
}

func TestSession_MessageHistoryWindow(t *testing.T) {
	s := newSession("sess-1", "gpt-test")
	for i := 0; i < 5; i++ {
		completedRequest(s, fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}

	turns := s.MessageHistory(2)
	require.Len(t, turns, 4)
	assert.Equal(t, "question 3", turns[0].Content)
	assert.Equal(t, "answer 4", turns[3].Content)

	// Zero means unbounded.
	assert.Len(t, s.MessageHistory(0), 10)
}

func TestSession_SnapshotRoundTrip(t *testing.T) {
	s := newSession("sess-1", "gpt-test")
	completedRequest(s, "Hi", "Hi there")
	s.History().Add("Hi", map[string]any{"role": "user"})
	s.History().Add("Hi there", map[string]any{"role": "assistant"})
	s.History().SetAdditional(map[string]any{"title": "greeting"})

	snap := s.Snapshot()
	assert.Equal(t, "sess-1", snap.SessionID)
	assert.Equal(t, "gpt-test", snap.ModelID)
	require.Len(t, snap.Requests, 1)
	require.Len(t, snap.History.Messages, 2)

	restored := hydrateSession(snap)
	assert.Equal(t, "sess-1", restored.ID())
	assert.Equal(t, "gpt-test", restored.ModelID())
	assert.Equal(t, 2, restored.History().Len())

	req, ok := restored.LatestRequest()
	require.True(t, ok)
	assert.True(t, req.Response().IsComplete())
	assert.Equal(t, "Hi there", req.Response().Text())
}

func TestHistory_EntryMetadata(t *testing.T) {
	h := newHistory()
	id := h.Add("hello", map[string]any{"role": types.RoleUser, "requestId": "s1_request_1"})

	got, ok := h.EntryAdditional(id)
	require.True(t, ok)
	assert.Equal(t, types.RoleUser, got["role"])

	found, ok := h.EntryIDByRequest("s1_request_1", types.RoleUser)
	require.True(t, ok)
	assert.Equal(t, id, found)
	_, ok = h.EntryIDByRequest("s1_request_1", types.RoleAssistant)
	assert.False(t, ok)

	require.True(t, h.SetEntryAdditional(id, map[string]any{"pinned": true}))
	got, _ = h.EntryAdditional(id)
	assert.Equal(t, true, got["pinned"])

	require.True(t, h.SetEntryContent(id, "hello again"))
	assert.Equal(t, "hello again", h.Snapshot().Messages[0].Content)

	assert.False(t, h.SetEntryAdditional("missing", nil))
	assert.False(t, h.SetEntryContent("missing", ""))
}
