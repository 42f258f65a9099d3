// Package dom provides querySelector-style shorthands over parsed HTML
// documents.
//
// Q and QQ take either a selector, searched under the document's default
// root (its body), or an explicit root element followed by a selector:
//
//	doc, _ := dom.Parse(r)
//	title, _ := doc.Q("h1")
//	items, _ := doc.QQ(list, "li")
//
// Only descendants of the root are searched and results come back in
// document order. Zero matches is not an error.
package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Document is a parsed HTML tree with a default search root.
type Document struct {
	node *html.Node
	root *html.Node
}

// Option applies a configuration option to the Document.
type Option func(*Document)

// WithRoot sets the default search root used by single-argument lookups.
func WithRoot(root *html.Node) Option {
	return func(d *Document) {
		if root != nil {
			d.root = root
		}
	}
}

// New wraps an already parsed tree. The default root is the first <body>
// element unless WithRoot is given.
func New(doc *html.Node, opts ...Option) (*Document, error) {
	if doc == nil {
		return nil, ErrNilRoot
	}
	d := &Document{node: doc}
	for _, opt := range opts {
		opt(d)
	}
	if d.root == nil {
		d.root = findBody(doc)
	}
	if d.root == nil {
		return nil, ErrNoBody
	}
	return d, nil
}

// Parse reads an HTML document from r.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	node, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return New(node, opts...)
}

// ParseString parses an HTML document held in s.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// Node returns the underlying document node.
func (d *Document) Node() *html.Node { return d.node }

// Root returns the default search root.
func (d *Document) Root() *html.Node { return d.root }

// Q returns the first element matching the selector, or nil when nothing
// matches.
func (d *Document) Q(target any, selector ...string) (*html.Node, error) {
	root, sel, err := d.resolve(target, selector)
	if err != nil {
		return nil, err
	}
	return First(root, sel)
}

// QQ returns every element matching the selector in document order.
func (d *Document) QQ(target any, selector ...string) ([]*html.Node, error) {
	root, sel, err := d.resolve(target, selector)
	if err != nil {
		return nil, err
	}
	return All(root, sel)
}

func (d *Document) resolve(target any, selector []string) (*html.Node, string, error) {
	root, sel, scoped, err := ResolveArgs[*html.Node](target, selector...)
	if err != nil {
		return nil, "", err
	}
	if !scoped {
		root = d.root
	}
	return root, sel, nil
}

// First returns the first descendant of root matching selector.
func First(root *html.Node, selector string) (*html.Node, error) {
	m, err := compile(root, selector)
	if err != nil {
		return nil, err
	}
	return cascadia.Query(root, m), nil
}

// All returns every descendant of root matching selector. The result is
// never nil.
func All(root *html.Node, selector string) ([]*html.Node, error) {
	m, err := compile(root, selector)
	if err != nil {
		return nil, err
	}
	nodes := cascadia.QueryAll(root, m)
	if nodes == nil {
		nodes = []*html.Node{}
	}
	return nodes, nil
}

func compile(root *html.Node, selector string) (cascadia.Matcher, error) {
	if root == nil {
		return nil, ErrNilRoot
	}
	if strings.TrimSpace(selector) == "" {
		return nil, fmt.Errorf("%w: empty selector", ErrInvalidSelector)
	}
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSelector, selector, err)
	}
	return group, nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}
