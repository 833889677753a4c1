package crawler

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// skippedExtensions are linked files that are not HTML pages.
var skippedExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {}, ".webp": {}, ".ico": {},
	".zip": {}, ".rar": {}, ".7z": {}, ".gz": {}, ".tar": {},
	".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {},
	".css": {}, ".js": {}, ".xml": {}, ".json": {},
}

// Scope decides which URLs belong to the crawl.
type Scope struct {
	hosts map[string]struct{}
}

// NewScope allows the seed's host with and without a "www." prefix.
func NewScope(seed *url.URL) Scope {
	host := strings.ToLower(seed.Hostname())
	bare := strings.TrimPrefix(host, "www.")
	return Scope{hosts: map[string]struct{}{bare: {}, "www." + bare: {}}}
}

// Allows reports whether u is an in-scope HTML page URL.
func (s Scope) Allows(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if _, ok := s.hosts[strings.ToLower(u.Hostname())]; !ok {
		return false
	}
	_, skip := skippedExtensions[strings.ToLower(path.Ext(u.Path))]
	return !skip
}

// Normalize resolves href against base and drops the fragment. It returns
// nil for unparseable or non-navigational links.
func Normalize(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return nil
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	u := base.ResolveReference(ref)
	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u
}

// Links returns the in-scope links of doc in document order, deduplicated.
func Links(doc *goquery.Document, base *url.URL, scope Scope) []string {
	seen := make(map[string]struct{})
	var out []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		u := Normalize(base, href)
		if u == nil || !scope.Allows(u) {
			return
		}
		s := u.String()
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	})
	return out
}
