// Package parser analyzes chapter text: an optional YAML header, the chapter
// title, #tags, [[links]] to other chapters and a word count.
package parser

import (
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

var (
	linkRe = regexp.MustCompile(`\[\[([^\[\]]*?)\]\]`)
	tagRe  = regexp.MustCompile(`(?:^|\s)#([\p{L}][\p{L}\p{N}_/-]*)`)
)

const headerDelim = "---"

// Chapter is the analysis of one document's content.
type Chapter struct {
	Meta  map[string]any
	Body  string
	Title string
	Tags  []string
	Links []string
	Words int
}

// Analyze never fails: a malformed header is treated as body text.
func Analyze(content string) Chapter {
	meta, body := splitHeader(content)
	return Chapter{
		Meta:  meta,
		Body:  body,
		Title: titleOf(meta, body),
		Tags:  collectTags(meta, body),
		Links: linkTargets(body),
		Words: CountWords(body),
	}
}

// splitHeader separates a leading "---" YAML block from the body.
func splitHeader(content string) (map[string]any, string) {
	trimmed := strings.TrimLeft(content, "\r\n")
	if !strings.HasPrefix(trimmed, headerDelim) {
		return nil, content
	}
	rest := trimmed[len(headerDelim):]
	end := strings.Index(rest, "\n"+headerDelim)
	if end < 0 {
		return nil, content
	}

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return nil, content
	}
	body := rest[end+1+len(headerDelim):]
	return meta, strings.TrimLeft(body, "\r\n")
}

// linkTargets returns distinct [[Target]] names in order of appearance.
// "[[Target|label]]" links to Target.
func linkTargets(body string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range linkRe.FindAllStringSubmatch(body, -1) {
		target, _, _ := strings.Cut(m[1], "|")
		target = strings.TrimSpace(target)
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		out = append(out, target)
	}
	return out
}

// collectTags merges header tags (list or comma separated string) with
// inline #tags, header first, without duplicates.
func collectTags(meta map[string]any, body string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(tag string) {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		out = append(out, tag)
	}

	switch v := meta["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			add(s)
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// titleOf prefers the header title, then the first "# " heading.
func titleOf(meta map[string]any, body string) string {
	if s, ok := meta["title"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if heading, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(heading)
		}
	}
	return ""
}

// CountWords counts runs of letters or digits; apostrophes and hyphens
// inside a word do not split it.
func CountWords(text string) int {
	n := 0
	inWord := false
	runes := []rune(text)
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				n++
				inWord = true
			}
		case inWord && (r == '\'' || r == '’' || r == '-') && i+1 < len(runes) &&
			(unicode.IsLetter(runes[i+1]) || unicode.IsDigit(runes[i+1])):
			// joined word such as "don't" or "well-known"
		default:
			inWord = false
		}
	}
	return n
}
