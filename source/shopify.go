package source

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/stock"
)

// Status text emitted for Shopify products; stock.Classify maps these exactly.
const (
	shopifyInStock    = "In Stock"
	shopifyOutOfStock = "Out of Stock"
)

// ShopifyProduct polls the public product JSON (/products/<handle>.js) of a
// Shopify storefront for a fixed list of handles.
type ShopifyProduct struct {
	id      string
	baseURL string
	handles []string
	fetcher *Fetcher
	logger  *zap.SugaredLogger
}

type shopifyProductJSON struct {
	Title    string `json:"title"`
	Handle   string `json:"handle"`
	Variants []struct {
		Available bool `json:"available"`
	} `json:"variants"`
}

// NewShopifyProduct creates a Shopify source.
func NewShopifyProduct(id, baseURL string, handles []string, fetcher *Fetcher, logger *zap.SugaredLogger) *ShopifyProduct {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ShopifyProduct{
		id:      id,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		handles: handles,
		fetcher: fetcher,
		logger:  logger,
	}
}

// ID returns the source id.
func (s *ShopifyProduct) ID() string { return s.id }

// Fetch requests each handle in turn. A failed handle is logged and left out
// of the batch, so its stored status is untouched. Only when every handle
// fails does the source as a whole fail.
func (s *ShopifyProduct) Fetch(ctx context.Context) ([]stock.Observation, error) {
	var (
		obs     []stock.Observation
		lastErr error
	)
	for _, handle := range s.handles {
		if ctx.Err() != nil {
			return obs, ctx.Err()
		}
		o, err := s.fetchHandle(ctx, handle)
		if err != nil {
			s.logger.Warnw("Shopify product fetch failed", "source", s.id, "handle", handle, "error", err)
			lastErr = err
			continue
		}
		obs = append(obs, o)
	}
	if len(obs) == 0 && lastErr != nil {
		return nil, errors.Wrapf(lastErr, "all %d handles failed", len(s.handles))
	}
	return obs, nil
}

func (s *ShopifyProduct) fetchHandle(ctx context.Context, handle string) (stock.Observation, error) {
	productURL := s.baseURL + "/products/" + url.PathEscape(handle)
	body, err := s.fetcher.Get(ctx, productURL+".js")
	if err != nil {
		return stock.Observation{}, err
	}
	return ParseShopifyProduct(body, s.id, handle, productURL)
}

// ParseShopifyProduct maps a product JSON document to an observation.
// The product is in stock if any variant is available.
func ParseShopifyProduct(body []byte, sourceID, handle, productURL string) (stock.Observation, error) {
	var p shopifyProductJSON
	if err := json.Unmarshal(body, &p); err != nil {
		return stock.Observation{}, errors.Wrapf(err, "decode product %s", handle)
	}

	status := shopifyOutOfStock
	for _, v := range p.Variants {
		if v.Available {
			status = shopifyInStock
			break
		}
	}

	name := strings.TrimSpace(p.Title)
	if name == "" {
		name = handle
	}

	return stock.Observation{
		Source:     sourceID,
		Name:       name,
		StatusText: status,
		Link:       productURL,
		Identity:   handle,
		Page:       productURL,
	}, nil
}
