package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// noiseSelectors are removed before text extraction.
const noiseSelectors = "script, style, noscript, template, svg, iframe, nav, header, footer"

var (
	phonePattern      = regexp.MustCompile(`(\+?\d{1,3}[\s\-]?)?(\(?\d{2,4}\)?[\s\-]?)?[\d\s\-]{7,}\d`)
	contactLabel      = regexp.MustCompile(`(?i)\b(?:phone|tel|office):\s*`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Title returns the cleaned <title> text.
func Title(doc *goquery.Document) string {
	return CleanText(doc.Find("title").First().Text())
}

// BodyText returns the visible body text with layout chrome and contact
// numbers removed. doc is modified.
func BodyText(doc *goquery.Document) string {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		body = doc.Selection
	}
	body.Find(noiseSelectors).Remove()

	var parts []string
	for _, n := range body.Nodes {
		collectText(n, &parts)
	}
	return CleanText(RemoveContactInfo(CleanText(strings.Join(parts, " "))))
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// CleanText collapses whitespace, including non-breaking spaces, and
// normalizes to NFC.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return norm.NFC.String(strings.TrimSpace(s))
}

// RemoveContactInfo strips phone and office numbers and their labels.
func RemoveContactInfo(s string) string {
	s = phonePattern.ReplaceAllString(s, "")
	return contactLabel.ReplaceAllString(s, "")
}
