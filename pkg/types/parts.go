package types

import "encoding/json"

// Part kinds.
const (
	PartKindMarkdown  = "markdown"
	PartKindReasoning = "reasoning"
	PartKindAsync     = "async"
	PartKindTreeData  = "treeData"
	PartKindComponent = "component"
	PartKindToolCall  = "toolCall"
)

// Part is one raw accumulated fragment of a response, as emitted by
// progress events. Parts carry a stable identity so late mutations
// (async resolutions, tool-call upserts) can land regardless of how the
// surrounding sequence has changed since the part was pushed.
type Part interface {
	PartKind() string
	PartID() string
}

// MarkdownPart is display text. Consecutive markdown parts are merged
// when the coalesced view is derived.
type MarkdownPart struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"` // always "markdown"
	Content Markdown `json:"content"`
}

func (p *MarkdownPart) PartKind() string { return PartKindMarkdown }
func (p *MarkdownPart) PartID() string   { return p.ID }

// ReasoningPart holds accumulated chain-of-thought text. It is shown
// separately from the answer and projects to the empty string in the
// flattened response text.
type ReasoningPart struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"` // always "reasoning"
	Content string `json:"content"`
}

func (p *ReasoningPart) PartKind() string { return PartKindReasoning }
func (p *ReasoningPart) PartID() string   { return p.ID }

// AsyncPart is a placeholder for content still being resolved. It
// projects its placeholder text until the resolution replaces it.
type AsyncPart struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"` // always "async"
	Content string `json:"content"`
}

func (p *AsyncPart) PartKind() string { return PartKindAsync }
func (p *AsyncPart) PartID() string   { return p.ID }

// TreeDataPart carries opaque structured tree data. It is never merged
// with neighboring parts and projects to the empty string.
type TreeDataPart struct {
	ID   string          `json:"id"`
	Kind string          `json:"kind"` // always "treeData"
	Data json.RawMessage `json:"data,omitempty"`
}

func (p *TreeDataPart) PartKind() string { return PartKindTreeData }
func (p *TreeDataPart) PartID() string   { return p.ID }

// ComponentPart references a named display component with an opaque
// value payload.
type ComponentPart struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"` // always "component"
	Component string          `json:"component"`
	Value     json.RawMessage `json:"value,omitempty"`
}

func (p *ComponentPart) PartKind() string { return PartKindComponent }
func (p *ComponentPart) PartID() string   { return p.ID }

// ToolCallPart records one tool invocation. Progress events sharing the
// same call id replace the payload in place rather than appending.
type ToolCallPart struct {
	ID   string   `json:"id"`
	Kind string   `json:"kind"` // always "toolCall"
	Call ToolCall `json:"call"`
}

func (p *ToolCallPart) PartKind() string { return PartKindToolCall }
func (p *ToolCallPart) PartID() string   { return p.ID }

// ToolCall is the payload of a tool call part. Arguments and Result are
// kept in their serialized form; history derivation decodes them
// leniently.
type ToolCall struct {
	ID       string       `json:"id"`
	Function FunctionCall `json:"function"`
	Result   string       `json:"result,omitempty"`
}

// FunctionCall names the invoked function and its serialized arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// partEnvelope is used to sniff the kind during part unmarshaling.
type partEnvelope struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// UnmarshalPart unmarshals a JSON part into its concrete type. Unknown
// kinds decode into a markdown part so a newer snapshot never fails to
// load on an older build.
func UnmarshalPart(data []byte) (Part, error) {
	var env partEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Kind {
	case PartKindReasoning:
		var p ReasoningPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case PartKindAsync:
		var p AsyncPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case PartKindTreeData:
		var p TreeDataPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case PartKindComponent:
		var p ComponentPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case PartKindToolCall:
		var p ToolCallPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		var p MarkdownPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}
}

// PartList is a JSON round-trippable slice of parts.
type PartList []Part

// UnmarshalJSON decodes each element through UnmarshalPart.
func (l *PartList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	parts := make([]Part, 0, len(raws))
	for _, raw := range raws {
		part, err := UnmarshalPart(raw)
		if err != nil {
			return err
		}
		parts = append(parts, part)
	}

	*l = parts
	return nil
}
