package citation

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

var htmlMarkers = []string{"<html", "<body", "<p>", "<p ", "<div", "<br", "<span", "<article"}

// PlainText returns the visible text of content, stripping markup when it looks like HTML
func PlainText(content string) (string, error) {
	if !looksLikeHTML(content) {
		return content, nil
	}
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return visibleText(doc), nil
}

func looksLikeHTML(content string) bool {
	lower := strings.ToLower(content)
	for _, m := range htmlMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// visibleText concatenates text nodes, skipping scripts, styles and embedded frames
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return collapseSpaces(buf.String())
}
