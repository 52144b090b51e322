package chat

import (
	"encoding/json"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/chatkit-ai/chatkit/pkg/types"
)

// History is the append-only conversation side-store of a session. It
// records finalized exchanges (one entry per side of a completed turn)
// with free-form metadata, independently of the live request list. A
// session is considered worth persisting only once its history is
// non-empty.
type History struct {
	mu         sync.Mutex
	additional map[string]any
	entries    []historyEntry
}

type historyEntry struct {
	id         string
	content    string
	additional map[string]any
}

func newHistory() *History {
	return &History{}
}

func hydrateHistory(snap types.HistorySnapshot) *History {
	h := &History{additional: snap.Additional}
	for _, m := range snap.Messages {
		h.entries = append(h.entries, historyEntry{id: m.ID, content: m.Content, additional: m.Additional})
	}
	return h
}

// Add appends an entry and returns its id.
func (h *History) Add(content string, additional map[string]any) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := ulid.Make().String()
	h.entries = append(h.entries, historyEntry{id: id, content: content, additional: additional})
	return id
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// EntryIDByRequest returns the id of the entry recorded for the given
// request and role, matching on the requestId and role metadata keys.
func (h *History) EntryIDByRequest(requestID, role string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.entries {
		if e.additional["requestId"] == requestID && e.additional["role"] == role {
			return e.id, true
		}
	}
	return "", false
}

// SetEntryContent replaces the content of the entry with the given id.
func (h *History) SetEntryContent(id, content string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.entries {
		if h.entries[i].id == id {
			h.entries[i].content = content
			return true
		}
	}
	return false
}

// EntryAdditional returns the metadata of the entry with the given id.
func (h *History) EntryAdditional(id string) (map[string]any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.entries {
		if e.id == id {
			return e.additional, true
		}
	}
	return nil, false
}

// SetEntryAdditional merges metadata into the entry with the given id.
func (h *History) SetEntryAdditional(id string, additional map[string]any) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.entries {
		if h.entries[i].id != id {
			continue
		}
		if h.entries[i].additional == nil {
			h.entries[i].additional = make(map[string]any, len(additional))
		}
		for k, v := range additional {
			h.entries[i].additional[k] = v
		}
		return true
	}
	return false
}

// Additional returns the session-level metadata map.
func (h *History) Additional() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.additional
}

// SetAdditional merges session-level metadata.
func (h *History) SetAdditional(additional map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.additional == nil {
		h.additional = make(map[string]any, len(additional))
	}
	for k, v := range additional {
		h.additional[k] = v
	}
}

// Snapshot captures the side-store for persistence.
func (h *History) Snapshot() types.HistorySnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := types.HistorySnapshot{Additional: h.additional}
	for _, e := range h.entries {
		snap.Messages = append(snap.Messages, types.HistoryEntrySnapshot{ID: e.id, Content: e.content, Additional: e.additional})
	}
	return snap
}

// parseJSONObject decodes a JSON object, returning an empty map for
// malformed or non-object input so a bad tool payload never aborts
// history derivation.
func parseJSONObject(raw string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}
