package source

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/stock"
)

// Selectors locate products on a category listing.
type Selectors struct {
	Item   string // one element per product
	Link   string // within Item: anchor whose text is the name and href the link
	Status string // within Item: stock status text
}

// CategoryPage scrapes an HTML listing of products.
type CategoryPage struct {
	id        string
	url       string
	selectors Selectors
	fetcher   *Fetcher
	logger    *zap.SugaredLogger
}

// NewCategoryPage creates a category source.
func NewCategoryPage(id, pageURL string, sel Selectors, fetcher *Fetcher, logger *zap.SugaredLogger) *CategoryPage {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CategoryPage{id: id, url: pageURL, selectors: sel, fetcher: fetcher, logger: logger}
}

// ID returns the source id.
func (p *CategoryPage) ID() string { return p.id }

// Fetch downloads and parses the listing.
func (p *CategoryPage) Fetch(ctx context.Context) ([]stock.Observation, error) {
	body, err := p.fetcher.Get(ctx, p.url)
	if err != nil {
		return nil, err
	}
	obs, skipped, err := ParseCategoryPage(bytes.NewReader(body), p.id, p.url, p.selectors)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		p.logger.Debugw("Skipped listing entries without a product link", "source", p.id, "count", skipped)
	}
	return obs, nil
}

// ParseCategoryPage extracts one observation per item element. Items without
// a link element are skipped and counted. Relative hrefs resolve against
// pageURL; a missing status element yields empty status text.
func ParseCategoryPage(r io.Reader, sourceID, pageURL string, sel Selectors) ([]stock.Observation, int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, 0, errors.Wrap(err, "parse HTML")
	}
	base, _ := url.Parse(pageURL)

	var (
		obs     []stock.Observation
		skipped int
	)
	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		link := item.Find(sel.Link).First()
		if link.Length() == 0 {
			skipped++
			return
		}

		o := stock.Observation{
			Source: sourceID,
			Name:   collapseSpace(link.Text()),
			Page:   pageURL,
		}
		if href, ok := link.Attr("href"); ok {
			o.Link = resolve(base, href)
		}
		if status := item.Find(sel.Status).First(); status.Length() > 0 {
			o.StatusText = collapseSpace(status.Text())
		}
		obs = append(obs, o)
	})

	return obs, skipped, nil
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// collapseSpace trims and folds internal whitespace runs (Magento markup is
// full of newlines inside anchors).
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
