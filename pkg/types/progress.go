package types

import "encoding/json"

// Progress kinds.
const (
	ProgressKindContent   = "content"
	ProgressKindMarkdown  = "markdownContent"
	ProgressKindReasoning = "reasoning"
	ProgressKindAsync     = "asyncContent"
	ProgressKindTreeData  = "treeData"
	ProgressKindComponent = "component"
	ProgressKindToolCall  = "toolCall"
)

// Progress is one incremental unit of assistant output delivered while a
// response streams. Events are applied in delivery order; unrecognized
// kinds are logged and dropped by the session layer rather than failing
// the turn.
type Progress interface {
	ProgressKind() string
}

// ContentProgress is a plain text delta.
type ContentProgress struct {
	Text string
}

func (ContentProgress) ProgressKind() string { return ProgressKindContent }

// MarkdownProgress is an already-typed markdown delta. Its value is
// concatenated with a trailing markdown part rather than its raw string,
// preserving trust metadata.
type MarkdownProgress struct {
	Content Markdown
}

func (MarkdownProgress) ProgressKind() string { return ProgressKindMarkdown }

// ReasoningProgress is a chain-of-thought delta. Consecutive deltas
// merge into one reasoning part; reasoning never contributes to the
// flattened response text.
type ReasoningProgress struct {
	Text string
}

func (ReasoningProgress) ProgressKind() string { return ProgressKindReasoning }

// AsyncValue is the settled value of an async resolution. Exactly one
// field should be set: Text and Markdown coerce to a markdown part, Part
// is used as-is.
type AsyncValue struct {
	Text     string
	Markdown *Markdown
	Part     Part
}

// AsyncProgress reserves a placeholder part whose content arrives later.
// Resolved must deliver at most one value and then close; closing without
// a value leaves the placeholder in place.
type AsyncProgress struct {
	Placeholder string
	Resolved    <-chan AsyncValue
}

func (AsyncProgress) ProgressKind() string { return ProgressKindAsync }

// TreeDataProgress pushes an opaque structured tree part.
type TreeDataProgress struct {
	Data json.RawMessage
}

func (TreeDataProgress) ProgressKind() string { return ProgressKindTreeData }

// ComponentProgress pushes a reference to a named display component.
type ComponentProgress struct {
	Component string
	Value     json.RawMessage
}

func (ComponentProgress) ProgressKind() string { return ProgressKindComponent }

// ToolCallProgress upserts a tool call part keyed by the call id.
type ToolCallProgress struct {
	Call ToolCall
}

func (ToolCallProgress) ProgressKind() string { return ProgressKindToolCall }

// RawProgress is a progress event of a kind this build does not know.
// Sessions log and drop it.
type RawProgress struct {
	Kind string
	Data json.RawMessage
}

func (p RawProgress) ProgressKind() string { return p.Kind }
