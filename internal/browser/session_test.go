package browser

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	withChrome = flag.Bool("with-chrome", false, "run Session tests against a locally launched Chrome")
	devtools   = flag.String("devtools", "", "run Session tests against this DevTools endpoint")
)

const sessionPage = `<!DOCTYPE html>
<html><body>
<button id="go" onclick="document.body.insertAdjacentHTML('beforeend', '<p class=&quot;clicked&quot;>ok</p>')">Go</button>
<button id="off" disabled>Off</button>
<button id="gone" style="display:none">Gone</button>
<a id="link" href="#" aria-label="Aaron Judge">Judge</a>
<table id="grid"><tr><td>1</td><td>2</td></tr></table>
<div id="late"></div>
<script>
setTimeout(function () {
  document.getElementById('late').innerHTML = '<span class="late-item">here</span>';
}, 300);
</script>
</body></html>`

func newSessionSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(sessionPage))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone fishing", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// sessionOptions returns Options for a live browser or skips the test. A
// remote endpoint must be able to reach the test server's loopback address.
func sessionOptions(t *testing.T, url string) Options {
	t.Helper()
	opts := Options{URL: url, Headless: true, CommandTimeout: 10 * time.Second}
	switch {
	case *devtools != "":
		opts.Endpoint = *devtools
	case *withChrome:
		path, err := FindChrome()
		if err != nil {
			t.Skip(err)
		}
		opts.ExecPath = path
	default:
		t.Skip("neither -with-chrome nor -devtools set")
	}
	return opts
}

func openSession(t *testing.T, url string) *Session {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), time.Minute)
	defer cancel()
	s, err := Open(ctx, sessionOptions(t, url))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionQuery(t *testing.T) {
	srv := newSessionSite(t)
	s := openSession(t, srv.URL+"/stats")
	ctx := t.Context()

	cells, err := s.Query(ctx, "td", nil, nil)
	require.NoError(t, err)
	assert.Len(t, cells, 2)

	none, err := s.Query(ctx, ".never", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	start := time.Now()
	none, err = s.Query(ctx, ".never", nil, &Wait{Timeout: 300 * time.Millisecond, Interval: 50 * time.Millisecond})
	require.NoError(t, err, "a wait that runs out is not an error")
	assert.Empty(t, none)
	assert.Less(t, time.Since(start), 5*time.Second)

	late, err := s.Query(ctx, ".late-item", nil, &Wait{Timeout: 5 * time.Second, Interval: 50 * time.Millisecond})
	require.NoError(t, err)
	assert.Len(t, late, 1)

	grid, err := First(ctx, s, "#grid", nil, nil)
	require.NoError(t, err)
	scoped, err := s.Query(ctx, "td", grid, nil)
	require.NoError(t, err)
	assert.Len(t, scoped, 2)

	text, err := s.Text(ctx, scoped[0])
	require.NoError(t, err)
	assert.Equal(t, "1", text)
}

func TestSessionAttribute(t *testing.T) {
	srv := newSessionSite(t)
	s := openSession(t, srv.URL+"/stats")
	ctx := t.Context()

	link, err := First(ctx, s, "#link", nil, nil)
	require.NoError(t, err)

	label, err := s.Attribute(ctx, link, "aria-label")
	require.NoError(t, err)
	assert.Equal(t, "Aaron Judge", label)

	missing, err := s.Attribute(ctx, link, "data-missing")
	require.NoError(t, err)
	assert.Equal(t, "", missing)
}

func TestSessionClick(t *testing.T) {
	srv := newSessionSite(t)
	s := openSession(t, srv.URL+"/stats")
	ctx := t.Context()

	goBtn, err := First(ctx, s, "#go", nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.WaitClickable(ctx, goBtn, 5*time.Second))
	require.NoError(t, s.Click(ctx, goBtn))

	clicked, err := s.Query(ctx, ".clicked", nil, &Wait{Timeout: 5 * time.Second, Interval: 50 * time.Millisecond})
	require.NoError(t, err)
	assert.Len(t, clicked, 1)

	off, err := First(ctx, s, "#off", nil, nil)
	require.NoError(t, err)
	err = s.WaitClickable(ctx, off, 300*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	gone, err := First(ctx, s, "#gone", nil, nil)
	require.NoError(t, err)
	err = s.Click(ctx, gone)
	assert.ErrorIs(t, err, ErrNotClickable)

	html, err := s.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "Aaron Judge")
}

func TestSessionOpenHTTPError(t *testing.T) {
	srv := newSessionSite(t)
	opts := sessionOptions(t, srv.URL+"/missing")

	ctx, cancel := context.WithTimeout(t.Context(), time.Minute)
	defer cancel()
	s, err := Open(ctx, opts)
	if s != nil {
		s.Close()
	}
	assert.ErrorIs(t, err, ErrNavigation)
	assert.ErrorContains(t, err, "404")
}

func TestOpenStopsWhenContextEnds(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script executables")
	}
	// Never prints a DevTools address, so startup only ends when the
	// process is killed.
	stub := fakeExecutable(t, t.TempDir(), "chrome", "#!/bin/sh\nexec sleep 30\n")

	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	s, err := Open(ctx, Options{URL: "about:blank", ExecPath: stub, Headless: true})
	assert.Nil(t, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestOpenRequiresURL(t *testing.T) {
	_, err := Open(t.Context(), Options{ExecPath: filepath.Join(t.TempDir(), "chrome")})
	assert.ErrorIs(t, err, ErrNavigation)
}
