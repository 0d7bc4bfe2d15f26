// Package ast maps a flat markdown event stream into a range-addressed node
// arena. Nodes reference their parent by index, never by pointer, so a
// document's tree can be persisted and rebuilt relationally.
package ast

import (
	"github.com/zet-dev/zet/internal/models"
	"github.com/zet-dev/zet/internal/parser"
)

// Tree is the node arena for one document. Nodes appear in document order;
// Parent is an index into Nodes (-1 for roots).
type Tree struct {
	DocumentID string
	Nodes      []models.Node
}

// LinkRef is one raw link occurrence collected during the build, resolved
// later against the full identifier universe.
type LinkRef struct {
	NodeIndex int
	RawTarget string
	Title     string
	Form      models.LinkForm
	Range     models.Range
}

// Build folds the event stream into a tree. bodyOffset translates body-local
// event offsets into whole-file offsets, which is what node ranges store.
//
// The builder is tolerant by design: a close without a matching open is
// dropped, and anything left open at the end of the stream is finalized at
// the end of the body. A malformed construct never fails the document.
func Build(documentID string, bodyLen int, bodyOffset int, events []parser.Event) (*Tree, []LinkRef) {
	t := &Tree{DocumentID: documentID}
	var links []LinkRef
	var stack []int

	parent := func() int {
		if len(stack) == 0 {
			return -1
		}
		return stack[len(stack)-1]
	}

	for _, ev := range events {
		switch ev.Type {
		case parser.EventOpen:
			n := models.Node{
				DocumentID: documentID,
				Parent:     parent(),
				Kind:       ev.Kind,
				Range:      models.Range{Start: ev.Start + bodyOffset, End: ev.Start + bodyOffset},
				Payload:    openPayload(ev),
			}
			stack = append(stack, len(t.Nodes))
			t.Nodes = append(t.Nodes, n)

		case parser.EventClose:
			// Pop to the innermost open node of this kind; unmatched closes
			// are dropped.
			idx := -1
			for i := len(stack) - 1; i >= 0; i-- {
				if t.Nodes[stack[i]].Kind == ev.Kind {
					idx = i
					break
				}
			}
			if idx < 0 {
				continue
			}
			for i := len(stack) - 1; i >= idx; i-- {
				t.finalize(stack[i], ev.End+bodyOffset)
			}
			stack = stack[:idx]

		case parser.EventLeaf:
			n := models.Node{
				DocumentID: documentID,
				Parent:     parent(),
				Kind:       ev.Kind,
				Range:      models.Range{Start: ev.Start + bodyOffset, End: ev.End + bodyOffset},
				Payload:    leafPayload(ev),
			}
			if ev.Kind == models.KindLink {
				links = append(links, LinkRef{
					NodeIndex: len(t.Nodes),
					RawTarget: ev.Raw,
					Title:     ev.Title,
					Form:      ev.Form,
					Range:     n.Range,
				})
			}
			t.Nodes = append(t.Nodes, n)
		}
	}

	// Unterminated constructs close at end of body.
	for i := len(stack) - 1; i >= 0; i-- {
		t.finalize(stack[i], bodyLen+bodyOffset)
	}

	return t, links
}

// finalize sets a node's end offset and widens ancestors when a child ran
// past them, keeping the containment invariant intact.
func (t *Tree) finalize(idx, end int) {
	n := &t.Nodes[idx]
	if end > n.Range.End {
		n.Range.End = end
	}
	if n.Kind == models.KindHeading && n.Payload.Heading != nil {
		parseHeadingAttributes(n.Payload.Heading)
	}
	for p := n.Parent; p >= 0; p = t.Nodes[p].Parent {
		if t.Nodes[p].Range.End < n.Range.End {
			t.Nodes[p].Range.End = n.Range.End
		}
	}
}

func openPayload(ev parser.Event) models.NodePayload {
	switch ev.Kind {
	case models.KindHeading:
		return models.NodePayload{Heading: &models.HeadingPayload{Level: ev.Level, Content: ev.Raw}}
	case models.KindList:
		return models.NodePayload{List: &models.ListPayload{Ordered: ev.Ordered}}
	case models.KindItem:
		return models.NodePayload{Item: &models.ItemPayload{Task: ev.Task}}
	case models.KindCodeBlock:
		return models.NodePayload{CodeBlock: &models.CodeBlockPayload{Fenced: ev.Fenced, Info: ev.Raw}}
	}
	return models.NodePayload{}
}

func leafPayload(ev parser.Event) models.NodePayload {
	switch ev.Kind {
	case models.KindLink:
		return models.NodePayload{Link: &models.LinkPayload{RawTarget: ev.Raw, Title: ev.Title, Form: ev.Form}}
	case models.KindText, models.KindCodeSpan, models.KindHTMLBlock:
		return models.NodePayload{Text: &models.TextPayload{Content: ev.Raw}}
	case models.KindTag:
		return models.NodePayload{Tag: &models.TagPayload{Name: ev.Raw}}
	}
	return models.NodePayload{}
}

// FirstHeading returns the text of the first level-1 heading, or "".
func (t *Tree) FirstHeading() string {
	for _, n := range t.Nodes {
		if n.Kind == models.KindHeading && n.Payload.Heading != nil && n.Payload.Heading.Level == 1 {
			return n.Payload.Heading.Content
		}
	}
	return ""
}

// Tags returns the distinct inline tag names in document order.
func (t *Tree) Tags() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, n := range t.Nodes {
		if n.Kind != models.KindTag || n.Payload.Tag == nil {
			continue
		}
		if _, dup := seen[n.Payload.Tag.Name]; dup {
			continue
		}
		seen[n.Payload.Tag.Name] = struct{}{}
		out = append(out, n.Payload.Tag.Name)
	}
	return out
}
