package fragment

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/homectl/internal/errors"
)

// Fragment is parsed server markup.
type Fragment struct {
	nodes []*html.Node
}

// Parse parses markup as the content of a <body> element.
func Parse(markup string) (*Fragment, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, errors.New("E122").Wrap(err)
	}
	return &Fragment{nodes: nodes}, nil
}

// IDs returns the id attributes of every element, in document order.
func (f *Fragment) IDs() []string {
	var ids []string
	f.walk(func(n *html.Node) bool {
		if id := attr(n, "id"); id != "" {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

// Has reports whether an element with the id exists.
func (f *Fragment) Has(id string) bool {
	found := false
	f.walk(func(n *html.Node) bool {
		if attr(n, "id") == id {
			found = true
			return false
		}
		return true
	})
	return found
}

// Empty reports whether the fragment has no element nodes.
func (f *Fragment) Empty() bool {
	empty := true
	f.walk(func(*html.Node) bool {
		empty = false
		return false
	})
	return empty
}

// walk visits element nodes depth-first until fn returns false.
func (f *Fragment) walk(fn func(*html.Node) bool) {
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		if n.Type == html.ElementNode && !fn(n) {
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	for _, n := range f.nodes {
		if !visit(n) {
			return
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
