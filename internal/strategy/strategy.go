// Package strategy defines the closed set of answering strategies a
// question can be routed to.
package strategy

import (
	"strings"
	"unicode"
)

// Label is a routing decision. The zero value is General.
type Label int

const (
	// General answers from model knowledge alone.
	General Label = iota
	// University answers from the university knowledge base.
	University
	// WebSearch answers from live web search results.
	WebSearch
)

// String returns the wire name of the label.
func (l Label) String() string {
	switch l {
	case University:
		return "university"
	case WebSearch:
		return "web_search"
	default:
		return "general"
	}
}

// Normalize maps raw classifier output to a Label. Anything that is not
// recognisably university or web search becomes General.
func Normalize(raw string) Label {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r) || r == '`'
	})

	switch s {
	case "university":
		return University
	case "web search", "web_search", "websearch", "web-search":
		return WebSearch
	default:
		return General
	}
}
