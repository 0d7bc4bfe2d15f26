package models

import (
	"encoding/json"
	"fmt"
)

// NodeKind identifies the structural type of a parsed node.
type NodeKind string

const (
	KindHeading    NodeKind = "heading"
	KindParagraph  NodeKind = "paragraph"
	KindList       NodeKind = "list"
	KindItem       NodeKind = "item"
	KindLink       NodeKind = "link"
	KindCodeBlock  NodeKind = "code_block"
	KindCodeSpan   NodeKind = "code_span"
	KindBlockquote NodeKind = "blockquote"
	KindText       NodeKind = "text"
	KindRule       NodeKind = "rule"
	KindHTMLBlock  NodeKind = "html_block"
	KindTag        NodeKind = "tag"
)

// TaskState describes a list item's checkbox, if any.
type TaskState string

const (
	TaskNone      TaskState = ""
	TaskUnchecked TaskState = "unchecked"
	TaskChecked   TaskState = "checked"
)

// LinkForm distinguishes how a link was written in the source.
type LinkForm string

const (
	LinkWiki   LinkForm = "wiki"
	LinkInline LinkForm = "inline"
	LinkAuto   LinkForm = "auto"
)

// Node is one structural element of a parsed document. Parent is an index
// into the owning arena (-1 for top-level nodes); nodes never reference each
// other by pointer.
type Node struct {
	ID         int64       `json:"id,omitempty"`
	DocumentID string      `json:"document_id"`
	Parent     int         `json:"parent"`
	Kind       NodeKind    `json:"kind"`
	Range      Range       `json:"range"`
	Payload    NodePayload `json:"payload,omitempty"`
}

// NodePayload is the closed union of kind-specific node data. Exactly one
// variant is non-nil for kinds that carry data; plain structural kinds
// (paragraph, blockquote, rule) have none.
type NodePayload struct {
	Heading   *HeadingPayload   `json:"heading,omitempty"`
	List      *ListPayload      `json:"list,omitempty"`
	Item      *ItemPayload      `json:"item,omitempty"`
	Link      *LinkPayload      `json:"link,omitempty"`
	CodeBlock *CodeBlockPayload `json:"code_block,omitempty"`
	Text      *TextPayload      `json:"text,omitempty"`
	Tag       *TagPayload       `json:"tag,omitempty"`
}

// HeadingPayload carries the heading level, its text, and the optional
// trailing attribute block ({#id .class key=value}).
type HeadingPayload struct {
	Level   int               `json:"level"`
	Content string            `json:"content"`
	MetaID  string            `json:"meta_id,omitempty"`
	Classes []string          `json:"classes,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// ListPayload records whether the list is ordered and its start index.
type ListPayload struct {
	Ordered bool `json:"ordered"`
	Start   int  `json:"start,omitempty"`
}

// ItemPayload records a list item's task checkbox state.
type ItemPayload struct {
	Task TaskState `json:"task,omitempty"`
}

// LinkPayload carries the raw, unresolved target text verbatim. Resolution
// happens later against the full identifier universe.
type LinkPayload struct {
	RawTarget string   `json:"raw_target"`
	Title     string   `json:"title,omitempty"`
	Form      LinkForm `json:"form"`
}

// CodeBlockPayload records fence info for code blocks.
type CodeBlockPayload struct {
	Fenced bool   `json:"fenced"`
	Info   string `json:"info,omitempty"`
}

// TextPayload holds literal text content (also used for code spans and html).
type TextPayload struct {
	Content string `json:"content"`
}

// TagPayload holds an inline #tag token.
type TagPayload struct {
	Name string `json:"name"`
}

// MarshalPayload serializes a payload for storage. Empty unions become "".
func MarshalPayload(p NodePayload) (string, error) {
	if p == (NodePayload{}) {
		return "", nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("models: marshal payload: %w", err)
	}
	return string(raw), nil
}

// UnmarshalPayload is the inverse of MarshalPayload.
func UnmarshalPayload(raw string) (NodePayload, error) {
	var p NodePayload
	if raw == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("models: unmarshal payload: %w", err)
	}
	return p, nil
}
