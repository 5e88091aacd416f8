// Package epreuves extracts the competition classes ("épreuves")
// linked from an FFE competition page, so the UI can offer one-click
// target creation per class.
package epreuves

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/domain"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/fetch"
)

const ffeBase = "https://ffecompet.ffe.com"

// Parse collects anchors whose href points at a class page. Relative
// hrefs resolve against the FFE host; duplicates (by URL) are dropped.
func Parse(body string) []domain.Epreuve {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var out []domain.Epreuve
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if e, ok := epreuveFromAnchor(n); ok && !seen[e.URL] {
				seen[e.URL] = true
				out = append(out, e)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func epreuveFromAnchor(n *html.Node) (domain.Epreuve, bool) {
	var href string
	for _, a := range n.Attr {
		if a.Key == "href" {
			href = strings.TrimSpace(a.Val)
			break
		}
	}
	if href == "" || !strings.Contains(href, "epreuve") {
		return domain.Epreuve{}, false
	}

	label := strings.TrimSpace(anchorText(n))
	if label == "" {
		return domain.Epreuve{}, false
	}

	if !strings.HasPrefix(href, "http") {
		if !strings.HasPrefix(href, "/") {
			href = "/" + href
		}
		href = ffeBase + href
	}
	return domain.Epreuve{Label: label, URL: href}, true
}

func anchorText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Load fetches a competition page and parses its classes.
func Load(ctx context.Context, f fetch.Fetcher, url string) ([]domain.Epreuve, error) {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("load epreuves: %w", err)
	}
	return Parse(body), nil
}
