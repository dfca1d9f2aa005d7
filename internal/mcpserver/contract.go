package mcpserver

// ChapterFormatURI identifies the chapter format resource.
const ChapterFormatURI = "folio://chapter-format"

// ChapterFormat describes how chapter content is interpreted by the search
// index, for LLM consumers creating or editing chapters.
const ChapterFormat = `# Folio Chapter Format

A chapter is plain text, usually Markdown. Nothing is required; the rules
below only affect how a chapter is indexed and linked.

## Optional frontmatter

` + "```" + `markdown
---
title: The Long Night        # shown in search results and matched by links
tags:                         # YAML list or a comma separated string
  - draft
  - act-one
---
` + "```" + `

The ` + "`" + `---` + "`" + ` fences must open the chapter. Frontmatter that is not valid YAML is
treated as ordinary text.

## Title

The frontmatter ` + "`" + `title` + "`" + ` wins. Otherwise the first ` + "`" + `# ` + "`" + ` heading is the title.
The chapter name (for example "Chapter 3") is separate and is changed with the
rename_document tool.

## Links

` + "`" + `[[Target]]` + "`" + ` or ` + "`" + `[[Target|label]]` + "`" + ` links to the chapter of the same project whose
name or title equals Target, ignoring case. Links feed the backlinks view.

## Tags

Frontmatter tags plus inline ` + "`" + `#hashtags` + "`" + ` in the body.

## Word count

Words are runs of letters and digits. Apostrophes and hyphens inside a word
join it, so "don't" and "well-known" count once.
`
