// Package live runs the Q/QQ shorthands against a page loaded in a real
// browser driven by rod.
package live

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/okian/pagekit/pkg/dom"
)

const defaultRootSelector = "body"

// Page queries a live browser page.
type Page struct {
	page         *rod.Page
	rootSelector string
}

// Option applies a configuration option to the Page.
type Option func(*Page)

// WithRootSelector sets the selector that locates the default search root.
func WithRootSelector(selector string) Option {
	return func(p *Page) {
		if selector != "" {
			p.rootSelector = selector
		}
	}
}

// New wraps an open rod page.
func New(page *rod.Page, opts ...Option) *Page {
	p := &Page{page: page, rootSelector: defaultRootSelector}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Q returns the first element matching the selector, or nil when nothing
// matches. It does not wait for elements to appear.
func (p *Page) Q(ctx context.Context, target any, selector ...string) (*rod.Element, error) {
	root, sel, err := p.resolve(ctx, target, selector)
	if err != nil {
		return nil, err
	}
	found, el, err := root.Context(ctx).Has(sel)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", sel, err)
	}
	if !found {
		return nil, nil
	}
	return el, nil
}

// QQ returns every element matching the selector in document order.
func (p *Page) QQ(ctx context.Context, target any, selector ...string) ([]*rod.Element, error) {
	root, sel, err := p.resolve(ctx, target, selector)
	if err != nil {
		return nil, err
	}
	els, err := root.Context(ctx).Elements(sel)
	if err != nil {
		return nil, fmt.Errorf("query all %q: %w", sel, err)
	}
	out := make([]*rod.Element, len(els))
	copy(out, els)
	return out, nil
}

func (p *Page) resolve(ctx context.Context, target any, selector []string) (*rod.Element, string, error) {
	root, sel, scoped, err := dom.ResolveArgs[*rod.Element](target, selector...)
	if err != nil {
		return nil, "", err
	}
	if scoped {
		if root == nil {
			return nil, "", dom.ErrNilRoot
		}
		return root, sel, nil
	}
	found, body, err := p.page.Context(ctx).Has(p.rootSelector)
	if err != nil {
		return nil, "", fmt.Errorf("locate root %q: %w", p.rootSelector, err)
	}
	if !found {
		return nil, "", dom.ErrNoBody
	}
	return body, sel, nil
}

// Launch starts a local browser and connects to it.
func Launch(ctx context.Context, headless bool) (*rod.Browser, error) {
	u, err := launcher.New().Headless(headless).Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return browser, nil
}
