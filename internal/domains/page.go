package domains

import (
	"context"

	"github.com/chromedp/cdproto/page"
)

const domainPage = "Page"

// Page is the page domain.
type Page struct {
	caller Caller
}

// NewPage returns the Page domain bound to caller.
func NewPage(caller Caller) *Page {
	return &Page{caller: caller}
}

// Enable turns on page event reporting.
func (p *Page) Enable(ctx context.Context) error {
	return call(ctx, p.caller, domainPage, "enable", page.Enable(), nil)
}

// BringToFront activates the page's window.
func (p *Page) BringToFront(ctx context.Context) error {
	return call(ctx, p.caller, domainPage, "bringToFront", page.BringToFront(), nil)
}
