package ast

import (
	"testing"

	"github.com/zet-dev/zet/internal/models"
	"github.com/zet-dev/zet/internal/parser"
)

func buildDoc(t *testing.T, body string) (*Tree, []LinkRef) {
	t.Helper()
	events := parser.Scan([]byte(body))
	return Build("doc", len(body), 0, events)
}

// Every node's range must sit inside its parent's range, and every range
// must be valid and bounded by the document.
func checkContainment(t *testing.T, tree *Tree, bodyLen int) {
	t.Helper()
	for i, n := range tree.Nodes {
		if n.Range.Start < 0 || n.Range.End > bodyLen || n.Range.Start > n.Range.End {
			t.Errorf("node %d (%s) has invalid range %+v", i, n.Kind, n.Range)
		}
		if n.Parent < -1 || n.Parent >= len(tree.Nodes) {
			t.Fatalf("node %d has out-of-arena parent %d", i, n.Parent)
		}
		if n.Parent >= 0 {
			p := tree.Nodes[n.Parent]
			if n.Range.Start < p.Range.Start || n.Range.End > p.Range.End {
				t.Errorf("node %d (%s, %+v) escapes parent %d (%s, %+v)",
					i, n.Kind, n.Range, n.Parent, p.Kind, p.Range)
			}
			if n.Parent >= i {
				t.Errorf("node %d references later parent %d", i, n.Parent)
			}
		}
	}
}

func TestBuildContainment(t *testing.T) {
	body := "# Title\n\npara with [[link]] and #tag\n\n- [ ] item one\n  - nested\n\n> quote\n\n```go\ncode\n```\n"
	tree, _ := buildDoc(t, body)
	if len(tree.Nodes) == 0 {
		t.Fatal("empty tree")
	}
	checkContainment(t, tree, len(body))
}

func TestBuildParentIndices(t *testing.T) {
	body := "- outer\n  - inner\n"
	tree, _ := buildDoc(t, body)

	// Expect list > item > (text), list > item > ... with nested list inside
	// the outer one.
	var lists, items []int
	for i, n := range tree.Nodes {
		switch n.Kind {
		case models.KindList:
			lists = append(lists, i)
		case models.KindItem:
			items = append(items, i)
		}
	}
	if len(lists) != 2 || len(items) != 2 {
		t.Fatalf("lists = %d items = %d, want 2/2", len(lists), len(items))
	}
	if tree.Nodes[lists[0]].Parent != -1 {
		t.Errorf("outer list parent = %d, want -1", tree.Nodes[lists[0]].Parent)
	}
	if tree.Nodes[items[0]].Parent != lists[0] {
		t.Errorf("first item parent = %d, want %d", tree.Nodes[items[0]].Parent, lists[0])
	}
	if tree.Nodes[lists[1]].Parent != items[0] {
		t.Errorf("nested list parent = %d, want %d", tree.Nodes[lists[1]].Parent, items[0])
	}
}

func TestBuildDedentReturnsToOuterList(t *testing.T) {
	body := "- a\n  - b\n- c\n"
	tree, _ := buildDoc(t, body)
	checkContainment(t, tree, len(body))

	var lists, items []int
	for i, n := range tree.Nodes {
		switch n.Kind {
		case models.KindList:
			lists = append(lists, i)
		case models.KindItem:
			items = append(items, i)
		}
	}
	if len(lists) != 2 || len(items) != 3 {
		t.Fatalf("lists = %d items = %d, want 2/3", len(lists), len(items))
	}
	if tree.Nodes[lists[1]].Parent != items[0] {
		t.Errorf("nested list parent = %d, want item %d", tree.Nodes[lists[1]].Parent, items[0])
	}
	if tree.Nodes[items[1]].Parent != lists[1] {
		t.Errorf("nested item parent = %d, want %d", tree.Nodes[items[1]].Parent, lists[1])
	}
	if tree.Nodes[items[2]].Parent != lists[0] {
		t.Errorf("dedented item parent = %d, want outer list %d", tree.Nodes[items[2]].Parent, lists[0])
	}
}

func TestBuildBodyOffsetTranslation(t *testing.T) {
	body := "# Head\n"
	const off = 40 // pretend 40 bytes of frontmatter preceded the body
	events := parser.Scan([]byte(body))
	tree, _ := Build("doc", len(body), off, events)

	for _, n := range tree.Nodes {
		if n.Range.Start < off {
			t.Errorf("node %s starts at %d, before body offset %d", n.Kind, n.Range.Start, off)
		}
		if n.Range.End > off+len(body) {
			t.Errorf("node %s ends at %d, past %d", n.Kind, n.Range.End, off+len(body))
		}
	}
}

func TestBuildCollectsLinks(t *testing.T) {
	body := "see [[alpha]] and [beta](b.md)\n"
	tree, links := buildDoc(t, body)
	if len(links) != 2 {
		t.Fatalf("links = %d, want 2", len(links))
	}
	if links[0].RawTarget != "alpha" || links[0].Form != models.LinkWiki {
		t.Errorf("link 0 = %+v", links[0])
	}
	if links[1].RawTarget != "b.md" || links[1].Title != "beta" {
		t.Errorf("link 1 = %+v", links[1])
	}
	for _, l := range links {
		n := tree.Nodes[l.NodeIndex]
		if n.Kind != models.KindLink {
			t.Errorf("link ref points at %s node", n.Kind)
		}
		if n.Range != l.Range {
			t.Errorf("link ref range %+v != node range %+v", l.Range, n.Range)
		}
	}
}

func TestBuildHeadingAttributes(t *testing.T) {
	body := "## Custom Section {#custom-id .wide key=val}\n"
	tree, _ := buildDoc(t, body)

	var h *models.HeadingPayload
	for _, n := range tree.Nodes {
		if n.Kind == models.KindHeading {
			h = n.Payload.Heading
		}
	}
	if h == nil {
		t.Fatal("no heading payload")
	}
	if h.Content != "Custom Section" {
		t.Errorf("content = %q", h.Content)
	}
	if h.MetaID != "custom-id" {
		t.Errorf("meta id = %q", h.MetaID)
	}
	if len(h.Classes) != 1 || h.Classes[0] != "wide" {
		t.Errorf("classes = %v", h.Classes)
	}
	if h.Attrs["key"] != "val" {
		t.Errorf("attrs = %v", h.Attrs)
	}
}

func TestBuildHeadingNonAttributeBraces(t *testing.T) {
	body := "# Title {not attributes}\n"
	tree, _ := buildDoc(t, body)
	for _, n := range tree.Nodes {
		if n.Kind == models.KindHeading {
			if n.Payload.Heading.Content != "Title {not attributes}" {
				t.Errorf("content = %q", n.Payload.Heading.Content)
			}
		}
	}
}

func TestBuildFirstHeading(t *testing.T) {
	body := "## Not this one\n\n# The Title\n\n# Second\n"
	tree, _ := buildDoc(t, body)
	if got := tree.FirstHeading(); got != "The Title" {
		t.Errorf("FirstHeading = %q", got)
	}
}

func TestBuildTags(t *testing.T) {
	body := "text #one more #two and #one again\n"
	tree, _ := buildDoc(t, body)
	tags := tree.Tags()
	if len(tags) != 2 || tags[0] != "one" || tags[1] != "two" {
		t.Errorf("tags = %v", tags)
	}
}

func TestBuildUnterminatedFence(t *testing.T) {
	body := "```\nstill open"
	tree, _ := buildDoc(t, body)
	checkContainment(t, tree, len(body))
	for _, n := range tree.Nodes {
		if n.Kind == models.KindCodeBlock && n.Range.End != len(body) {
			t.Errorf("unterminated fence ends at %d, want %d", n.Range.End, len(body))
		}
	}
}

func TestBuildEmptyBody(t *testing.T) {
	tree, links := buildDoc(t, "")
	if len(tree.Nodes) != 0 || len(links) != 0 {
		t.Errorf("empty body produced %d nodes, %d links", len(tree.Nodes), len(links))
	}
}
