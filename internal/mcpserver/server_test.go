package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/zet-dev/zet/internal/index"
	"github.com/zet-dev/zet/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()

	root, store := testutil.TestCollection(t)
	db := testutil.TestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	syncer := index.NewSyncer(db, store, logger, 2, nil)
	return New(store, db, syncer), root
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_documents":
		result, err = srv.searchDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "resolve_link":
		result, err = srv.resolveLink(ctx, req)
	case "sync_collection":
		result, err = srv.syncCollection(ctx, req)
	case "get_document_contract":
		result, err = srv.getDocumentContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func seedAndSync(t *testing.T, srv *Server, root string) {
	t.Helper()
	testutil.WriteFile(t, root, "alpha.md", "# Alpha\n\nSee [[notes/beta]].\n")
	testutil.WriteFile(t, root, "notes/beta.md", "---\ntags:\n  - ref\n---\n# Beta\n")
	r := callTool(t, srv, "sync_collection", nil)
	if r.IsError {
		t.Fatalf("sync failed: %s", resultText(r))
	}
}

func TestSyncAndReadDocument(t *testing.T) {
	srv, root := testServer(t)
	seedAndSync(t, srv, root)

	r := callTool(t, srv, "read_document", map[string]interface{}{"ref": "alpha"})
	if r.IsError {
		t.Fatalf("read error: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `"id": "alpha"`) && !strings.Contains(text, `"id":"alpha"`) {
		t.Errorf("read result missing id: %s", text)
	}
	if !strings.Contains(text, "notes/beta") {
		t.Errorf("read result missing outgoing link: %s", text)
	}

	// Path references work too.
	r = callTool(t, srv, "read_document", map[string]interface{}{"ref": "notes/beta.md"})
	if r.IsError {
		t.Fatalf("read by path error: %s", resultText(r))
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]interface{}{"ref": "nope"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestListDocumentsTool(t *testing.T) {
	srv, root := testServer(t)

	r := callTool(t, srv, "list_documents", nil)
	if resultText(r) != "no documents" {
		t.Errorf("empty list = %q", resultText(r))
	}

	seedAndSync(t, srv, root)

	r = callTool(t, srv, "list_documents", nil)
	text := resultText(r)
	if !strings.Contains(text, "alpha") || !strings.Contains(text, "notes/beta") {
		t.Errorf("list = %q", text)
	}

	r = callTool(t, srv, "list_documents", map[string]interface{}{"tag": "ref"})
	text = resultText(r)
	if strings.Contains(text, "alpha.md") || !strings.Contains(text, "notes/beta") {
		t.Errorf("tag-filtered list = %q", text)
	}
}

func TestGetBacklinksTool(t *testing.T) {
	srv, root := testServer(t)
	seedAndSync(t, srv, root)

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"id": "notes/beta"})
	text := resultText(r)
	if !strings.Contains(text, "alpha") {
		t.Errorf("backlinks = %q", text)
	}

	r = callTool(t, srv, "get_backlinks", map[string]interface{}{"id": "alpha"})
	if resultText(r) != "no backlinks found" {
		t.Errorf("no-backlinks result = %q", resultText(r))
	}
}

func TestSearchDocumentsTool(t *testing.T) {
	srv, root := testServer(t)
	seedAndSync(t, srv, root)

	r := callTool(t, srv, "search_documents", map[string]interface{}{"query": "Alpha"})
	if r.IsError {
		t.Fatalf("search error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "alpha") {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestResolveLinkTool(t *testing.T) {
	srv, root := testServer(t)
	seedAndSync(t, srv, root)

	r := callTool(t, srv, "resolve_link", map[string]interface{}{
		"target": "beta",
		"from":   "alpha.md",
	})
	text := resultText(r)
	if !strings.Contains(text, "internal") || !strings.Contains(text, "notes/beta") {
		t.Errorf("resolve = %q", text)
	}

	r = callTool(t, srv, "resolve_link", map[string]interface{}{"target": "missing"})
	if !strings.Contains(resultText(r), "unresolved") {
		t.Errorf("unresolved = %q", resultText(r))
	}
}

func TestDocumentContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_document_contract", nil)
	if !strings.Contains(resultText(r), "frontmatter") {
		t.Errorf("contract = %q", resultText(r))
	}
}
