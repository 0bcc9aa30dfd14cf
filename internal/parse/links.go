package parse

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is one URL-bearing attribute found in a document
type Link struct {
	Element string // lower-case tag name, e.g. "a", "img", "form"
	Attr    string // attribute the URL came from, e.g. "href", "src"
	URL     string // absolute URL
	Pos     int    // document order of the element
}

// linkAttrs lists the attributes that carry links, per element-agnostic HTML rules
var linkAttrs = map[string]bool{
	"href":       true,
	"src":        true,
	"action":     true,
	"formaction": true,
	"cite":       true,
	"background": true,
	"longdesc":   true,
	"lowsrc":     true,
	"usemap":     true,
	"poster":     true,
	"data":       true,
	"codebase":   true,
}

// Links parses an HTML document and returns every link attribute resolved to
// an absolute http(s) URL. Relative links are resolved against the document's
// <base href> if present, otherwise against baseURL.
func Links(body []byte, baseURL string) ([]Link, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Honor <base href> declarations
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = resolved
		}
	}

	links := make([]Link, 0)
	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		node := s.Get(0)
		name := goquery.NodeName(s)
		if name == "base" {
			return
		}

		for _, attr := range node.Attr {
			key := strings.ToLower(attr.Key)
			if !linkAttrs[key] {
				continue
			}

			abs, ok := resolve(base, attr.Val)
			if !ok {
				continue
			}

			links = append(links, Link{
				Element: name,
				Attr:    key,
				URL:     abs,
				Pos:     i,
			})
		}
	})

	return links, nil
}

// IsHTML reports whether a Content-Type header denotes an HTML document
func IsHTML(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/html")
}

// resolve makes ref absolute against base, dropping non-http(s) schemes
func resolve(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	u, err := base.Parse(ref)
	if err != nil {
		return "", false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}
