package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/lance13c/mlbstats/internal/logging"
)

const defaultCommandTimeout = 30 * time.Second

// Options configures Open.
type Options struct {
	// Endpoint is a DevTools address (http://host:port or ws://...). When
	// empty a local Chrome is launched instead.
	Endpoint string
	URL      string
	Headless bool
	// ExecPath overrides Chrome discovery for local launches.
	ExecPath string
	// CommandTimeout bounds every single-attempt command.
	CommandTimeout time.Duration
}

// Session owns one browser tab driven over the DevTools protocol.
type Session struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	url      string
	remote   bool
	headless bool
	timeout  time.Duration

	closeOnce sync.Once
	closeErr  error
}

var _ Driver = (*Session)(nil)

// Open connects to (or launches) a browser and navigates to opts.URL.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("%w: no target URL", ErrNavigation)
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaultCommandTimeout
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)

	if opts.Endpoint != "" {
		version, err := Probe(ctx, opts.Endpoint)
		if err != nil {
			return nil, err
		}
		logging.Info("Connected to %s at %s", version.Browser, opts.Endpoint)
		if opts.Headless {
			logging.Debug("Headless mode is decided by the remote browser's own launch flags")
		}
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), version.WebSocketDebuggerURL, chromedp.NoModifyURL)
	} else {
		chromePath := opts.ExecPath
		if chromePath == "" {
			var err error
			if chromePath, err = FindChrome(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrConnection, err)
			}
		}
		logging.Info("Using Chrome from: %s (headless=%t)", chromePath, opts.Headless)

		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.ExecPath(chromePath),
			chromedp.WindowSize(1920, 1080),
		)
		if !opts.Headless {
			allocOpts = append(allocOpts, chromedp.Flag("headless", false))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	}

	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, v ...interface{}) {
			logging.Debug("[Chrome] "+format, v...)
		}),
		chromedp.WithErrorf(func(format string, v ...interface{}) {
			logging.Debug("[Chrome error] "+format, v...)
		}),
	)

	s := &Session{
		allocCancel: allocCancel,
		ctx:         tabCtx,
		cancel:      cancel,
		url:         opts.URL,
		remote:      opts.Endpoint != "",
		headless:    opts.Headless,
		timeout:     opts.CommandTimeout,
	}

	// The first Run allocates the browser and must use the tab context
	// itself; a derived timeout context would tear the browser down with it.
	// Cancelling ctx during startup cancels the tab instead.
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		s.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: failed to start browser: %w", ErrConnection, err)
	}

	if err := s.navigate(ctx, opts.URL); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) navigate(ctx context.Context, url string) error {
	rctx, done := s.bind(ctx, s.timeout)
	defer done()

	resp, err := chromedp.RunResponse(rctx, chromedp.Navigate(url))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}
	if resp != nil && resp.Status >= 400 {
		return fmt.Errorf("%w: %s: HTTP %d", ErrNavigation, url, resp.Status)
	}
	logging.Info("Navigated to %s", url)
	return nil
}

// URL returns the page the session was opened on.
func (s *Session) URL() string {
	return s.url
}

// bind derives a command context from the tab context that also ends when
// the caller's ctx does, bounded by timeout (or the caller's earlier deadline).
func (s *Session) bind(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		rctx   context.Context
		cancel context.CancelFunc
	)
	if dl, ok := ctx.Deadline(); ok && (timeout <= 0 || time.Until(dl) < timeout) {
		rctx, cancel = context.WithDeadline(s.ctx, dl)
	} else if timeout > 0 {
		rctx, cancel = context.WithTimeout(s.ctx, timeout)
	} else {
		rctx, cancel = context.WithCancel(s.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return rctx, func() {
		stop()
		cancel()
	}
}

// Query implements Driver.
func (s *Session) Query(ctx context.Context, selector string, scope Element, wait *Wait) ([]Element, error) {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll}
	if scope != nil {
		parent, err := s.node(scope)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chromedp.FromNode(parent))
	}

	timeout := s.timeout
	if wait != nil {
		timeout = wait.Timeout
		if wait.Interval > 0 {
			opts = append(opts, chromedp.RetryInterval(wait.Interval))
		}
	} else {
		opts = append(opts, chromedp.AtLeast(0))
	}

	rctx, done := s.bind(ctx, timeout)
	defer done()

	var nodes []*cdp.Node
	if err := chromedp.Run(rctx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if wait != nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}

	els := make([]Element, len(nodes))
	for i, n := range nodes {
		els[i] = nodeElement{n}
	}
	return els, nil
}

// Text implements Driver.
func (s *Session) Text(ctx context.Context, el Element) (string, error) {
	n, err := s.node(el)
	if err != nil {
		return "", err
	}
	rctx, done := s.bind(ctx, s.timeout)
	defer done()

	var text string
	if err := chromedp.Run(rctx, chromedp.Text([]cdp.NodeID{n.NodeID}, &text, chromedp.ByNodeID)); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("text of %s: %w", el, err)
	}
	return strings.TrimSpace(text), nil
}

// Attribute implements Driver.
func (s *Session) Attribute(ctx context.Context, el Element, name string) (string, error) {
	n, err := s.node(el)
	if err != nil {
		return "", err
	}
	rctx, done := s.bind(ctx, s.timeout)
	defer done()

	var (
		value string
		ok    bool
	)
	if err := chromedp.Run(rctx, chromedp.AttributeValue([]cdp.NodeID{n.NodeID}, name, &value, &ok, chromedp.ByNodeID)); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("attribute %q of %s: %w", name, el, err)
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

// Click implements Driver.
func (s *Session) Click(ctx context.Context, el Element) error {
	n, err := s.node(el)
	if err != nil {
		return err
	}
	rctx, done := s.bind(ctx, s.timeout)
	defer done()

	if err := chromedp.Run(rctx, chromedp.MouseClickNode(n)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %w", ErrNotClickable, el, err)
	}
	return nil
}

// WaitClickable implements Driver.
func (s *Session) WaitClickable(ctx context.Context, el Element, timeout time.Duration) error {
	n, err := s.node(el)
	if err != nil {
		return err
	}
	rctx, done := s.bind(ctx, timeout)
	defer done()

	ids := []cdp.NodeID{n.NodeID}
	err = chromedp.Run(rctx,
		chromedp.WaitVisible(ids, chromedp.ByNodeID),
		chromedp.WaitEnabled(ids, chromedp.ByNodeID),
	)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s not clickable after %v", ErrTimeout, el, timeout)
	default:
		return fmt.Errorf("%w: %s: %w", ErrNotClickable, el, err)
	}
}

// HTML returns the outer HTML of the current document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	rctx, done := s.bind(ctx, s.timeout)
	defer done()

	var html string
	if err := chromedp.Run(rctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

// Close releases the tab (and the browser, when it was launched locally).
// Only the first call does any work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = err
		}
		s.cancel()
		s.allocCancel()
		logging.Debug("Browser session closed (remote=%t)", s.remote)
	})
	return s.closeErr
}

func (s *Session) node(el Element) (*cdp.Node, error) {
	ne, ok := el.(nodeElement)
	if !ok || ne.n == nil {
		return nil, fmt.Errorf("element %v was not produced by this session", el)
	}
	return ne.n, nil
}

type nodeElement struct {
	n *cdp.Node
}

func (e nodeElement) String() string {
	if cls := e.n.AttributeValue("class"); cls != "" {
		return fmt.Sprintf("<%s class=%q #%d>", e.n.LocalName, cls, e.n.NodeID)
	}
	return fmt.Sprintf("<%s #%d>", e.n.LocalName, e.n.NodeID)
}
