package parser

import (
	"regexp"
	"strings"
)

// DirectiveRule is a named whole-line infrastructure pattern. The name is
// recorded in the discard manifest whenever the rule removes a line.
type DirectiveRule struct {
	Name string
	Re   *regexp.Regexp
}

// directiveRules are the recognized infrastructure directives of the legacy
// prompt framework: template inclusion references and the generated closing
// line. Evaluated in order; first match wins.
var directiveRules = []DirectiveRule{
	{Name: "template-include", Re: regexp.MustCompile(`^\s*\{\{\s*(?:include|inject|import)\s*:\s*[^{}]+?\s*\}\}\s*$`)},
	{Name: "comment-include", Re: regexp.MustCompile(`^\s*<!--\s*include:\s*[^>]+?\s*-->\s*$`)},
	{Name: "prompt-end", Re: regexp.MustCompile(`^\s*-{3,}\s*END OF SYSTEM PROMPT\s*-{3,}\s*$`)},
}

// includeTargetRe captures the referenced path inside an inclusion directive.
var includeTargetRe = regexp.MustCompile(`(?:\{\{\s*(?:include|inject|import)\s*:\s*([^{}]+?)\s*\}\})|(?:<!--\s*include:\s*([^>]+?)\s*-->)`)

// boilerplate is the fixed set of trailing strings the legacy framework
// appends to every generated document. Matched exactly (modulo surrounding
// whitespace); near-matches are content and must be kept.
var boilerplate = []string{
	"Remember: follow the workflow above exactly as written.",
	"This file is generated by the prompt framework. Do not edit by hand.",
}

// sectionOpenRe matches a named structural delimiter alone on a line.
var sectionOpenRe = regexp.MustCompile(`^<([a-z][a-z0-9_-]*)>$`)

// MatchDirective returns the name of the directive rule matching line, or ""
// when no rule matches. Lines that merely resemble directives but use an
// unrecognized verb do not match: when in doubt, keep.
func MatchDirective(line string) string {
	for _, r := range directiveRules {
		if r.Re.MatchString(line) {
			return r.Name
		}
	}
	return ""
}

// IsBoilerplate reports whether s, trimmed of surrounding whitespace, exactly
// equals one of the known trailing boilerplate strings.
func IsBoilerplate(s string) bool {
	t := strings.TrimSpace(s)
	for _, b := range boilerplate {
		if t == b {
			return true
		}
	}
	return false
}

// Boilerplate returns a copy of the known trailing boilerplate strings.
func Boilerplate() []string {
	out := make([]string, len(boilerplate))
	copy(out, boilerplate)
	return out
}

// SectionOpen returns the delimiter name when line (trimmed) is an opening
// structural tag, else "".
func SectionOpen(line string) string {
	m := sectionOpenRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return ""
	}
	return m[1]
}

// SectionClose reports whether line (trimmed) closes the named delimiter.
func SectionClose(line, name string) bool {
	return strings.TrimSpace(line) == "</"+name+">"
}

// sectionCloseAnyRe matches a closing structural delimiter alone on a line,
// regardless of name.
var sectionCloseAnyRe = regexp.MustCompile(`^</([a-z][a-z0-9_-]*)>$`)

// IsSectionDelimiter reports whether line is a structural delimiter standing
// alone: an opening or closing section tag.
func IsSectionDelimiter(line string) bool {
	t := strings.TrimSpace(line)
	return sectionOpenRe.MatchString(t) || sectionCloseAnyRe.MatchString(t)
}

// isFence reports whether line is a frontmatter fence.
func isFence(line string) bool {
	return strings.TrimSpace(line) == "---"
}

// isBlank reports whether line contains only whitespace.
func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
