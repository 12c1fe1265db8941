// internal/app/system/htmlsanitize/htmlsanitize.go
//
// Package htmlsanitize strips unsafe HTML from user-generated content
// before it is stored. Forum posts, comments, and chat messages accept
// limited rich text; everything else (scripts, event handlers,
// javascript: URLs) is removed.
package htmlsanitize

import "github.com/microcosm-cc/bluemonday"

var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	// Tables, with the structural and styling attributes editors emit.
	p.AllowElements("table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption")
	p.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
	p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "th", "td")

	// Inline formatting beyond the UGC defaults.
	p.AllowElements("u", "s", "sub", "sup", "mark")

	return p
}

// Sanitize returns s with unsafe HTML removed. Safe formatting
// (paragraphs, emphasis, lists, tables, links) is preserved.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}

// StripAll removes every HTML tag, returning plain text. Used for
// fields that must never contain markup (titles, names).
var stripPolicy = bluemonday.StrictPolicy()

func StripAll(s string) string {
	if s == "" {
		return ""
	}
	return stripPolicy.Sanitize(s)
}
