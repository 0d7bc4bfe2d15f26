package ast

import (
	"strings"

	"github.com/zet-dev/zet/internal/models"
)

// parseHeadingAttributes extracts a trailing inline attribute block of the
// form {#id .class key=value} from the heading text. The block is removed
// from Content; a heading without one is left untouched.
func parseHeadingAttributes(h *models.HeadingPayload) {
	content := strings.TrimRight(h.Content, " \t")
	if !strings.HasSuffix(content, "}") {
		return
	}
	open := strings.LastIndex(content, "{")
	if open < 0 {
		return
	}
	block := content[open+1 : len(content)-1]

	var (
		metaID  string
		classes []string
		attrs   map[string]string
	)
	for _, tok := range strings.Fields(block) {
		switch {
		case strings.HasPrefix(tok, "#"):
			metaID = tok[1:]
		case strings.HasPrefix(tok, "."):
			classes = append(classes, tok[1:])
		case strings.Contains(tok, "="):
			key, val, _ := strings.Cut(tok, "=")
			if key == "" {
				return // malformed block; leave content as-is
			}
			if attrs == nil {
				attrs = make(map[string]string)
			}
			attrs[key] = strings.Trim(val, `"`)
		default:
			// Not an attribute block (e.g. a literal brace expression).
			return
		}
	}

	h.Content = strings.TrimRight(content[:open], " \t")
	h.MetaID = metaID
	h.Classes = classes
	h.Attrs = attrs
}
