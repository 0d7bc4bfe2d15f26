package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zet-dev/zet/internal/models"
)

// EventType distinguishes structural open/close markers from atomic leaves.
type EventType int

const (
	EventOpen EventType = iota
	EventClose
	EventLeaf
)

// Event is one typed markdown event. Start/End are byte offsets into the
// body that produced it. Open events carry Start (End is unknown until the
// matching Close); Close events carry End; Leaf events carry both.
type Event struct {
	Type  EventType
	Kind  models.NodeKind
	Start int
	End   int

	Level   int              // heading level
	Ordered bool             // list orderedness
	Task    models.TaskState // item checkbox state
	Raw     string           // link target, text content, tag name, heading text, code fence info
	Title   string           // link display text
	Form    models.LinkForm  // link form
	Fenced  bool             // code block fence
}

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})[ \t]+(.*)$`)
	fenceRe    = regexp.MustCompile("^(```+|~~~+)[ \t]*([^`]*)$")
	ruleRe     = regexp.MustCompile(`^(?:-{3,}|\*{3,}|_{3,})[ \t]*$`)
	listItemRe = regexp.MustCompile(`^([ \t]*)([-*+]|\d{1,9}[.)])[ \t]+(.*)$`)
	taskRe     = regexp.MustCompile(`^\[([ xX])\][ \t]+`)

	wikiRe = regexp.MustCompile(`\[\[([^\[\]]+?)\]\]`)
	linkRe = regexp.MustCompile(`\[([^\[\]]*)\]\(([^()\s]+)\)`)
	autoRe = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9+.-]*://[^>\s]+)>`)
	codeRe = regexp.MustCompile("`([^`\n]+)`")
	tagRe  = regexp.MustCompile(`(^|[ \t])#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Scan tokenizes a markdown body (frontmatter already stripped) into a flat
// event stream. The scanner is line-oriented and deliberately permissive:
// malformed constructs degrade to text or best-effort ranges instead of
// failing the document.
func Scan(body []byte) []Event {
	s := &scanner{src: string(body)}
	s.run()
	return s.events
}

type scanner struct {
	src    string
	events []Event

	paraOpen  bool
	quoteOpen bool
	lastEnd   int // end offset of the last content line seen

	// open lists, innermost last
	lists []openList
}

// openList tracks one open list level: the indent width of its items and
// whether an item is still open. Items stay open past their own line so a
// deeper list nests inside the item that introduced it; the close is emitted
// when a sibling item, a dedent, or the end of the list arrives.
type openList struct {
	indent   int
	itemOpen bool
}

type scanLine struct {
	text  string
	start int
	end   int // excludes the newline
}

func (s *scanner) run() {
	lines := splitLines(s.src)

	for i := 0; i < len(lines); i++ {
		ln := lines[i]
		trimmed := strings.TrimLeft(ln.text, " \t")
		indent := len(ln.text) - len(trimmed)

		switch {
		case strings.TrimSpace(ln.text) == "":
			s.closeParagraph()
			s.closeBlockquote()

		case fenceRe.MatchString(trimmed) && indent < 4:
			s.closeBlocks()
			i = s.scanFence(lines, i)

		case headingRe.MatchString(trimmed) && indent == 0:
			s.closeBlocks()
			s.scanHeading(ln)

		case ruleRe.MatchString(trimmed) && indent == 0:
			s.closeBlocks()
			s.leaf(Event{Kind: models.KindRule, Start: ln.start, End: ln.end})

		case listItemRe.MatchString(ln.text):
			s.closeParagraph()
			s.closeBlockquote()
			s.scanListItem(ln)

		case strings.HasPrefix(trimmed, ">"):
			s.closeParagraph()
			s.closeLists(0)
			s.scanQuoteLine(ln, indent)

		case strings.HasPrefix(trimmed, "<") && indent == 0 && !s.paraOpen:
			s.closeBlocks()
			i = s.scanHTMLBlock(lines, i)

		default:
			s.closeBlockquote()
			s.closeLists(0)
			if !s.paraOpen {
				s.events = append(s.events, Event{Type: EventOpen, Kind: models.KindParagraph, Start: ln.start})
				s.paraOpen = true
			}
			s.inline(ln.text, ln.start)
		}

		if strings.TrimSpace(ln.text) != "" {
			s.lastEnd = ln.end
		}
	}

	s.closeBlocks()
}

func (s *scanner) leaf(ev Event) {
	ev.Type = EventLeaf
	s.events = append(s.events, ev)
}

func (s *scanner) closeParagraph() {
	if s.paraOpen {
		s.events = append(s.events, Event{Type: EventClose, Kind: models.KindParagraph, End: s.lastEnd})
		s.paraOpen = false
	}
}

func (s *scanner) closeBlockquote() {
	if s.quoteOpen {
		s.events = append(s.events, Event{Type: EventClose, Kind: models.KindBlockquote, End: s.lastEnd})
		s.quoteOpen = false
	}
}

// closeTopItem closes the pending item of the innermost list, if any.
func (s *scanner) closeTopItem() {
	if n := len(s.lists); n > 0 && s.lists[n-1].itemOpen {
		s.events = append(s.events, Event{Type: EventClose, Kind: models.KindItem, End: s.lastEnd})
		s.lists[n-1].itemOpen = false
	}
}

// closeTopList closes the innermost list and its pending item.
func (s *scanner) closeTopList() {
	s.closeTopItem()
	s.events = append(s.events, Event{Type: EventClose, Kind: models.KindList, End: s.lastEnd})
	s.lists = s.lists[:len(s.lists)-1]
}

// closeLists closes open lists whose indent is >= toIndent.
func (s *scanner) closeLists(toIndent int) {
	for len(s.lists) > 0 && s.lists[len(s.lists)-1].indent >= toIndent {
		s.closeTopList()
	}
}

func (s *scanner) closeBlocks() {
	s.closeParagraph()
	s.closeBlockquote()
	s.closeLists(0)
}

func (s *scanner) scanHeading(ln scanLine) {
	m := headingRe.FindStringSubmatch(ln.text)
	level := len(m[1])
	content := m[2]
	contentStart := ln.start + len(ln.text) - len(content)

	s.events = append(s.events, Event{
		Type: EventOpen, Kind: models.KindHeading,
		Start: ln.start, Level: level, Raw: content,
	})
	s.inline(content, contentStart)
	s.events = append(s.events, Event{Type: EventClose, Kind: models.KindHeading, End: ln.end})
}

// scanFence consumes a fenced code block starting at lines[i] and returns
// the index of its last consumed line. An unterminated fence closes at EOF
// rather than failing the document.
func (s *scanner) scanFence(lines []scanLine, i int) int {
	open := lines[i]
	trimmed := strings.TrimLeft(open.text, " \t")
	m := fenceRe.FindStringSubmatch(trimmed)
	marker := m[1][:3]
	info := strings.TrimSpace(m[2])

	s.events = append(s.events, Event{
		Type: EventOpen, Kind: models.KindCodeBlock,
		Start: open.start, Fenced: true, Raw: info,
	})

	innerStart := open.end + 1
	end := len(s.src)
	last := len(lines) - 1
	for j := i + 1; j < len(lines); j++ {
		if strings.HasPrefix(strings.TrimLeft(lines[j].text, " \t"), marker) {
			if innerEnd := lines[j].start; innerEnd > innerStart {
				s.leaf(Event{
					Kind: models.KindText, Start: innerStart, End: innerEnd - 1,
					Raw: s.src[innerStart : innerEnd-1],
				})
			}
			end = lines[j].end
			last = j
			break
		}
		if j == len(lines)-1 {
			if innerStart < len(s.src) {
				s.leaf(Event{
					Kind: models.KindText, Start: innerStart, End: len(s.src),
					Raw: s.src[innerStart:],
				})
			}
		}
	}

	s.events = append(s.events, Event{Type: EventClose, Kind: models.KindCodeBlock, End: end})
	s.lastEnd = end
	return last
}

func (s *scanner) scanListItem(ln scanLine) {
	m := listItemRe.FindStringSubmatch(ln.text)
	indent := len(m[1])
	marker := m[2]
	content := m[3]
	itemStart := ln.start + indent
	contentStart := ln.start + len(ln.text) - len(content)

	// Dedent closes deeper lists; a deeper indent opens a nested one inside
	// the still-open item of the outer list.
	for len(s.lists) > 0 && s.lists[len(s.lists)-1].indent > indent {
		s.closeTopList()
	}
	if len(s.lists) == 0 || s.lists[len(s.lists)-1].indent < indent {
		ordered := marker[0] >= '0' && marker[0] <= '9'
		s.events = append(s.events, Event{
			Type: EventOpen, Kind: models.KindList,
			Start: itemStart, Ordered: ordered,
		})
		s.lists = append(s.lists, openList{indent: indent})
	} else {
		// Sibling at the same indent ends the previous item.
		s.closeTopItem()
	}

	task := models.TaskNone
	if tm := taskRe.FindStringSubmatch(content); tm != nil {
		if tm[1] == " " {
			task = models.TaskUnchecked
		} else {
			task = models.TaskChecked
		}
		contentStart += len(tm[0])
		content = content[len(tm[0]):]
	}

	s.events = append(s.events, Event{Type: EventOpen, Kind: models.KindItem, Start: itemStart, Task: task})
	s.lists[len(s.lists)-1].itemOpen = true
	s.inline(content, contentStart)
	s.lastEnd = ln.end
}

func (s *scanner) scanQuoteLine(ln scanLine, indent int) {
	if !s.quoteOpen {
		s.events = append(s.events, Event{Type: EventOpen, Kind: models.KindBlockquote, Start: ln.start + indent})
		s.quoteOpen = true
	}
	content := strings.TrimPrefix(ln.text[indent:], ">")
	content = strings.TrimPrefix(content, " ")
	s.inline(content, ln.start+len(ln.text)-len(content))
}

// scanHTMLBlock consumes consecutive lines of a raw HTML block and returns
// the index of the last consumed line.
func (s *scanner) scanHTMLBlock(lines []scanLine, i int) int {
	start := lines[i].start
	last := i
	for j := i; j < len(lines); j++ {
		if strings.TrimSpace(lines[j].text) == "" {
			break
		}
		last = j
	}
	end := lines[last].end
	s.leaf(Event{Kind: models.KindHTMLBlock, Start: start, End: end, Raw: s.src[start:end]})
	s.lastEnd = end
	return last
}

type inlineMatch struct {
	start, end int
	ev         Event
}

// inline scans a text segment for links, code spans, and tags. off is the
// absolute offset of text within the body. Plain text between matches is
// emitted as text leaves so every byte stays addressable.
func (s *scanner) inline(text string, off int) {
	var matches []inlineMatch

	for _, m := range wikiRe.FindAllStringSubmatchIndex(text, -1) {
		inner := text[m[2]:m[3]]
		target, title := inner, ""
		if p := strings.Index(inner, "|"); p >= 0 {
			target = strings.TrimSpace(inner[:p])
			title = strings.TrimSpace(inner[p+1:])
		} else {
			target = strings.TrimSpace(target)
		}
		if target == "" {
			continue
		}
		matches = append(matches, inlineMatch{m[0], m[1], Event{
			Kind: models.KindLink, Start: off + m[0], End: off + m[1],
			Raw: target, Title: title, Form: models.LinkWiki,
		}})
	}
	for _, m := range linkRe.FindAllStringSubmatchIndex(text, -1) {
		matches = append(matches, inlineMatch{m[0], m[1], Event{
			Kind: models.KindLink, Start: off + m[0], End: off + m[1],
			Raw: text[m[4]:m[5]], Title: text[m[2]:m[3]], Form: models.LinkInline,
		}})
	}
	for _, m := range autoRe.FindAllStringSubmatchIndex(text, -1) {
		matches = append(matches, inlineMatch{m[0], m[1], Event{
			Kind: models.KindLink, Start: off + m[0], End: off + m[1],
			Raw: text[m[2]:m[3]], Form: models.LinkAuto,
		}})
	}
	for _, m := range codeRe.FindAllStringSubmatchIndex(text, -1) {
		matches = append(matches, inlineMatch{m[0], m[1], Event{
			Kind: models.KindCodeSpan, Start: off + m[0], End: off + m[1],
			Raw: text[m[2]:m[3]],
		}})
	}
	for _, m := range tagRe.FindAllStringSubmatchIndex(text, -1) {
		hash := m[4] - 1 // position of '#'
		matches = append(matches, inlineMatch{hash, m[5], Event{
			Kind: models.KindTag, Start: off + hash, End: off + m[5],
			Raw: text[m[4]:m[5]],
		}})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].end > matches[j].end
	})

	pos := 0
	for _, m := range matches {
		if m.start < pos {
			continue // overlaps an earlier match, e.g. a link inside a code span
		}
		s.emitText(text[pos:m.start], off+pos)
		s.leaf(m.ev)
		pos = m.end
	}
	s.emitText(text[pos:], off+pos)
}

func (s *scanner) emitText(text string, off int) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s.leaf(Event{Kind: models.KindText, Start: off, End: off + len(text), Raw: text})
}

func splitLines(src string) []scanLine {
	var out []scanLine
	start := 0
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			end := i
			if end > start && src[end-1] == '\r' {
				end--
			}
			out = append(out, scanLine{text: src[start:end], start: start, end: end})
			start = i + 1
		}
	}
	if start < len(src) {
		out = append(out, scanLine{text: src[start:], start: start, end: len(src)})
	}
	return out
}
