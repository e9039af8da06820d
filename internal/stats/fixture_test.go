package stats

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lance13c/mlbstats/internal/browser"
	"github.com/stretchr/testify/require"
)

const (
	variantButtons = ".stats-navigation div.group-secondary button"
	fixtureURL     = "https://www.mlb.com/stats/"
)

var (
	standardColumns = []string{"player", "pos", "team", "g", "ab", "r", "h", "2b", "3b", "hr", "rbi", "bb", "so", "sb", "cs", "avg", "obp", "slg", "ops"}
	expandedColumns = []string{"player", "pos", "team", "pa", "hbp", "sac", "sf", "gidp", "go/ao", "xbh", "tb", "ibb", "babip", "iso", "ab/hr", "bb/k", "bb%", "so%"}
)

// fixture is the saved stats page wired so that clicks behave like the
// live page: the variant buttons swap tables and the banner closes.
type fixture struct {
	doc          *browser.Document
	switches     atomic.Int32
	bannerClicks atomic.Int32
}

type mutator func(*goquery.Document)

func withoutBanner(d *goquery.Document) {
	d.Find(".banner").Remove()
}

func startingOn(label string) mutator {
	return func(d *goquery.Document) {
		showVariant(d, label)
	}
}

func showVariant(d *goquery.Document, label string) {
	d.Find(variantButtons).Each(func(_ int, s *goquery.Selection) {
		if strings.EqualFold(strings.TrimSpace(s.Text()), label) {
			s.AddClass("selected")
		} else {
			s.RemoveClass("selected")
		}
	})
	d.Find("div.stats-table").Each(func(_ int, s *goquery.Selection) {
		if strings.EqualFold(s.AttrOr("data-variant", ""), label) {
			s.RemoveAttr("hidden")
		} else {
			s.SetAttr("hidden", "")
		}
	})
}

func newFixture(t *testing.T, mutators ...mutator) *fixture {
	t.Helper()

	raw, err := os.ReadFile("testdata/stats.html")
	require.NoError(t, err)

	gq, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	require.NoError(t, err)
	for _, m := range mutators {
		m(gq)
	}
	html, err := goquery.OuterHtml(gq.Selection)
	require.NoError(t, err)

	doc, err := browser.NewDocument(strings.NewReader(html), fixtureURL)
	require.NoError(t, err)

	f := &fixture{doc: doc}
	doc.OnClick(variantButtons, func(d *goquery.Document, target *goquery.Selection) error {
		f.switches.Add(1)
		showVariant(d, strings.TrimSpace(target.Text()))
		return nil
	})
	doc.OnClick(".banner-close-button", func(d *goquery.Document, _ *goquery.Selection) error {
		f.bannerClicks.Add(1)
		d.Find(".banner").Remove()
		return nil
	})
	return f
}

func fastOptions() PageOptions {
	return PageOptions{
		BannerTimeout:  50 * time.Millisecond,
		BannerInterval: 10 * time.Millisecond,
		ClickTimeout:   100 * time.Millisecond,
	}
}

func (f *fixture) page() *Page {
	return NewPage(f.doc, fastOptions())
}

// failingDriver fails every Text read whose value equals failOn.
type failingDriver struct {
	browser.Driver
	failOn string
	err    error
}

func (f failingDriver) Text(ctx context.Context, el browser.Element) (string, error) {
	text, err := f.Driver.Text(ctx, el)
	if err == nil && text == f.failOn {
		return "", f.err
	}
	return text, err
}
