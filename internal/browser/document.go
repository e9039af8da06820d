package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const clickablePollInterval = 25 * time.Millisecond

// ClickFunc mutates the document in response to a click on target. It runs
// with the document locked for writing.
type ClickFunc func(doc *goquery.Document, target *goquery.Selection) error

type clickHandler struct {
	selector string
	fn       ClickFunc
}

// Document is a Driver over static HTML, such as a page saved with
// `scrape --dump-html`. Elements that are [hidden] (or inside one) are
// invisible to queries, [disabled] elements cannot be clicked, and clicks
// only have an effect through handlers registered with OnClick.
type Document struct {
	mu       sync.RWMutex
	doc      *goquery.Document
	url      string
	handlers []clickHandler
}

var _ Driver = (*Document)(nil)

// NewDocument parses r as HTML. url is reported as the snapshot source.
func NewDocument(r io.Reader, url string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML with goquery: %w", err)
	}
	return &Document{doc: doc, url: url}, nil
}

// LoadDocument reads and parses an HTML file.
func LoadDocument(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return NewDocument(f, "file://"+filepath.ToSlash(abs))
}

// OnClick registers fn to run whenever an element matching selector is clicked.
func (d *Document) OnClick(selector string, fn ClickFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, clickHandler{selector: selector, fn: fn})
}

// URL returns the document's source.
func (d *Document) URL() string {
	return d.url
}

// HTML renders the current state of the document.
func (d *Document) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return goquery.OuterHtml(d.doc.Selection)
}

// Query implements Driver.
func (d *Document) Query(ctx context.Context, selector string, scope Element, wait *Wait) ([]Element, error) {
	var root *goquery.Selection
	if scope != nil {
		el, err := d.element(scope)
		if err != nil {
			return nil, err
		}
		root = el.sel
	}

	if found := d.find(selector, root); len(found) > 0 || wait == nil {
		return found, nil
	}

	interval := wait.Interval
	if interval <= 0 {
		interval = clickablePollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	timer := time.NewTimer(wait.Timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-ticker.C:
			if found := d.find(selector, root); len(found) > 0 {
				return found, nil
			}
		}
	}
}

func (d *Document) find(selector string, root *goquery.Selection) []Element {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if root == nil {
		root = d.doc.Selection
	}
	var out []Element
	root.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if hidden(s) {
			return
		}
		out = append(out, &docElement{sel: s})
	})
	return out
}

// Text implements Driver. Whitespace runs collapse to single spaces, the
// way a browser renders them.
func (d *Document) Text(ctx context.Context, el Element) (string, error) {
	e, err := d.element(el)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return strings.Join(strings.Fields(e.sel.Text()), " "), nil
}

// Attribute implements Driver.
func (d *Document) Attribute(ctx context.Context, el Element, name string) (string, error) {
	e, err := d.element(el)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return e.sel.AttrOr(name, ""), nil
}

// Click implements Driver.
func (d *Document) Click(ctx context.Context, el Element) error {
	e, err := d.element(el)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !clickable(e.sel) {
		return fmt.Errorf("%w: %s", ErrNotClickable, e)
	}
	for _, h := range d.handlers {
		if !e.sel.Is(h.selector) {
			continue
		}
		if err := h.fn(d.doc, e.sel); err != nil {
			return fmt.Errorf("click %s: %w", e, err)
		}
	}
	return nil
}

// WaitClickable implements Driver.
func (d *Document) WaitClickable(ctx context.Context, el Element, timeout time.Duration) error {
	e, err := d.element(el)
	if err != nil {
		return err
	}

	ready := func() bool {
		d.mu.RLock()
		defer d.mu.RUnlock()
		return clickable(e.sel)
	}
	if ready() {
		return nil
	}

	ticker := time.NewTicker(clickablePollInterval)
	defer ticker.Stop()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("%w: %s not clickable after %v", ErrTimeout, e, timeout)
		case <-ticker.C:
			if ready() {
				return nil
			}
		}
	}
}

// Close implements Driver; a document holds no remote resources.
func (d *Document) Close() error {
	return nil
}

func (d *Document) element(el Element) (*docElement, error) {
	e, ok := el.(*docElement)
	if !ok || e == nil {
		return nil, fmt.Errorf("element %v was not produced by this document", el)
	}
	return e, nil
}

func hidden(s *goquery.Selection) bool {
	return s.Closest("[hidden]").Length() > 0
}

func clickable(s *goquery.Selection) bool {
	_, disabled := s.Attr("disabled")
	return !disabled && !hidden(s)
}

type docElement struct {
	sel *goquery.Selection
}

func (e *docElement) String() string {
	name := goquery.NodeName(e.sel)
	if cls, ok := e.sel.Attr("class"); ok && cls != "" {
		return fmt.Sprintf("<%s class=%q>", name, cls)
	}
	return "<" + name + ">"
}
