package mcpserver

// DocumentFormatContract describes the canonical Markdown document format
// that LLM consumers should assume when reading documents or writing new
// ones to the collection on disk.
const DocumentFormatContract = `# Zet Document Format Contract

Every Markdown document in a Zet collection follows this structure.

## Structure

` + "```" + `markdown
---
id: custom-id                       # OPTIONAL – overrides the path-derived id
title: Human-readable title         # OPTIONAL – falls back to the first heading
aliases:                            # OPTIONAL – alternative link targets
  - alt-name
tags:                               # OPTIONAL – YAML list; merged with #inline tags
  - tag-one
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other documents (without .md extension).
Use [[target|alias]] for display text that differs from the target.
Use [relative/path.md](relative/path.md) for path-form links.
` + "```" + `

## Rules

1. **Frontmatter is optional.** When present, the ` + "```" + `---` + "```" + ` fences must be the
   first thing in the file (no leading blank lines).
2. **Document ids** default to the slugified path without extension
   (` + "`" + `Topics/My Note.md` + "`" + ` becomes ` + "`" + `topics/my-note` + "`" + `). A frontmatter ` + "`" + `id` + "`" + ` overrides it
   and must be unique across the collection.
3. **Tags** are lowercase, kebab-case (e.g. ` + "`" + `project-x` + "`" + `, ` + "`" + `meeting-notes` + "`" + `).
4. **Wikilinks** use double brackets: ` + "`" + `[[other-note]]` + "`" + `. A target without a ` + "`" + `.md` + "`" + `
   extension matches by id, alias, or unambiguous path suffix; a target ending
   in ` + "`" + `.md` + "`" + ` matches by exact relative path only.
5. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
6. **Encoding** is UTF-8 with a trailing newline.
7. **Fragments** (` + "`" + `[[note#section]]` + "`" + `) target the document; the fragment is not
   resolved further.

## Example

` + "```" + `markdown
---
title: Weekly standup 2025-01-20
tags:
  - meeting-notes
---

# Weekly standup 2025-01-20

Attendees: Alice, Bob. #project-x

## Action items

- [ ] [[alice]] to review the [[design-doc]]
- [x] Bob updated [[project-x/roadmap|the roadmap]]
` + "```" + `
`
