package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ParseHTML parses an HTML document into a DOM tree.
func ParseHTML(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

type matcher func(*html.Node) bool

// findAll returns every element under root matching m, in document order.
func findAll(root *html.Node, m matcher) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && m(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// findFirst returns the first element under root matching m.
func findFirst(root *html.Node, m matcher) *html.Node {
	if root == nil {
		return nil
	}
	if root.Type == html.ElementNode && m(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := findFirst(c, m); n != nil {
			return n
		}
	}
	return nil
}

func byTag(tag string) matcher {
	return func(n *html.Node) bool { return n.Data == tag }
}

func byAttr(key string) matcher {
	return func(n *html.Node) bool {
		_, ok := attr(n, key)
		return ok
	}
}

// byClass matches elements carrying cls as one of their classes.
func byClass(cls string) matcher {
	return func(n *html.Node) bool {
		v, _ := attr(n, "class")
		for _, c := range strings.Fields(v) {
			if c == cls {
				return true
			}
		}
		return false
	}
}

// byClassContaining matches elements whose class attribute contains sub.
func byClassContaining(sub string) matcher {
	return func(n *html.Node) bool {
		v, _ := attr(n, "class")
		return strings.Contains(strings.ToLower(v), sub)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func attrValue(n *html.Node, key string) string {
	v, _ := attr(n, key)
	return v
}

// textContent concatenates every text node under n.
func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
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

// childrenOf returns the direct element children of n with the given tag.
func childrenOf(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

// documentTitle returns the trimmed text of the first <title> element.
func documentTitle(doc *html.Node) string {
	return strings.TrimSpace(textContent(findFirst(doc, byTag("title"))))
}
