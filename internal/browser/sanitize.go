package browser

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StripPage removes scripts, styles, embedded media and comments from a
// page dump. Structure, classes and attributes are left alone, so the
// result still matches the selectors used against the live page. The one
// exception is inline event handlers, which are dropped.
func StripPage(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	stripNode(doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return buf.String(), nil
}

func stripNode(n *html.Node) {
	var toRemove []*html.Node

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if shouldStrip(c) {
			toRemove = append(toRemove, c)
			continue
		}
		stripNode(c)
	}

	for _, node := range toRemove {
		n.RemoveChild(node)
	}

	if n.Type == html.ElementNode {
		attrs := n.Attr[:0]
		for _, attr := range n.Attr {
			if !strings.HasPrefix(attr.Key, "on") {
				attrs = append(attrs, attr)
			}
		}
		n.Attr = attrs
	}
}

func shouldStrip(n *html.Node) bool {
	switch n.Type {
	case html.CommentNode:
		return true
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Link, atom.Iframe,
			atom.Svg, atom.Img, atom.Video, atom.Audio, atom.Canvas, atom.Picture, atom.Source:
			return true
		}
	}
	return false
}
