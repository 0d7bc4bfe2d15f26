// Package parser turns raw markdown bytes into frontmatter plus a flat
// stream of typed structural events with byte ranges.
package parser

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the parsed YAML header of a document together with the
// typed fields the indexer cares about. Everything else stays in Raw.
type Frontmatter struct {
	Raw     map[string]any
	ID      string
	Title   string
	Aliases []string
	Tags    []string
}

// ExtractFrontmatter separates the YAML frontmatter (between leading ---
// delimiters) from the markdown body. BodyOffset is the byte position of the
// body within data, so node ranges computed against the body can be
// translated back to whole-file offsets.
//
// Malformed or missing frontmatter is never an error: the whole content is
// returned as body and Frontmatter is nil.
func ExtractFrontmatter(data []byte) (fm *Frontmatter, body []byte, bodyOffset int) {
	const delim = "---"

	rest, ok := bytes.CutPrefix(data, []byte(delim+"\n"))
	if !ok {
		if rest, ok = bytes.CutPrefix(data, []byte(delim+"\r\n")); !ok {
			return nil, data, 0
		}
	}

	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter; treat everything as body.
		return nil, data, 0
	}
	yamlBlock := rest[:idx]

	after := rest[idx+1+len(delim):]
	// The closing delimiter line may end with \n or \r\n, or be the last line.
	if nl := bytes.IndexByte(after, '\n'); nl >= 0 {
		after = after[nl+1:]
	} else {
		after = nil
	}
	bodyOffset = len(data) - len(after)

	var raw map[string]any
	if err := yaml.Unmarshal(yamlBlock, &raw); err != nil {
		// Invalid YAML: fall back to body-only.
		return nil, data, 0
	}
	return typedFrontmatter(raw), after, bodyOffset
}

func typedFrontmatter(raw map[string]any) *Frontmatter {
	fm := &Frontmatter{Raw: raw}
	if raw == nil {
		return fm
	}
	if s, ok := raw["id"].(string); ok {
		fm.ID = strings.TrimSpace(s)
	}
	if s, ok := raw["title"].(string); ok {
		fm.Title = strings.TrimSpace(s)
	}
	fm.Aliases = stringList(raw["aliases"])
	fm.Tags = stringList(raw["tags"])
	return fm
}

// stringList accepts either a YAML list of strings or a single scalar.
func stringList(v any) []string {
	var out []string
	switch vv := v.(type) {
	case []any:
		for _, item := range vv {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		if s := strings.TrimSpace(vv); s != "" {
			out = append(out, s)
		}
	}
	return out
}
