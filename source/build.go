package source

import (
	"go.uber.org/zap"

	"github.com/teranos/restock/am"
	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/internal/httpclient"
	"github.com/teranos/restock/internal/util"
	"github.com/teranos/restock/stock"
)

// Plan is the set of sources for a scan cycle and the rules that judge them.
type Plan struct {
	Sources  []Source
	Registry *stock.Registry
}

// NewClient builds the outbound client used by the fetcher.
func NewClient(cfg *am.Config) *httpclient.Client {
	return httpclient.NewWithOptions(cfg.FetchTimeout(), httpclient.Options{
		BlockPrivateIP: util.Ptr(!cfg.Scan.AllowPrivateHosts),
		UserAgent:      cfg.Scan.UserAgent,
	})
}

// NewFetcherFromConfig builds the shared fetcher for cfg.
func NewFetcherFromConfig(cfg *am.Config, client *httpclient.Client, logger *zap.SugaredLogger) *Fetcher {
	return NewFetcher(client, FetcherConfig{
		Timeout:           cfg.FetchTimeout(),
		Accept:            cfg.Scan.Accept,
		RequestsPerMinute: cfg.Scan.RequestsPerMinute,
	}, logger)
}

// Build creates one Source and one Rule per configured source entry.
func Build(configs []am.SourceConfig, fetcher *Fetcher, logger *zap.SugaredLogger) (*Plan, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	sources := make([]Source, 0, len(configs))
	rules := make([]stock.Rule, 0, len(configs))

	for _, sc := range configs {
		if err := sc.Validate(); err != nil {
			return nil, err
		}

		log := logger.With("source", sc.ID)
		switch sc.Kind {
		case am.KindCategory:
			sources = append(sources, NewCategoryPage(sc.ID, sc.URL, selectorsFor(sc), fetcher, log))
		case am.KindShopify:
			sources = append(sources, NewShopifyProduct(sc.ID, sc.BaseURL, sc.Handles, fetcher, log))
		default:
			return nil, errors.NewInvalidRequestError("source %s: unknown kind %q", sc.ID, sc.Kind)
		}

		rules = append(rules, RuleFor(sc))
	}

	reg, err := stock.NewRegistry(rules...)
	if err != nil {
		return nil, errors.Wrap(err, "build rule registry")
	}
	return &Plan{Sources: sources, Registry: reg}, nil
}

// RuleFor maps a source entry to its tracking rule.
func RuleFor(sc am.SourceConfig) stock.Rule {
	return stock.Rule{
		Source:      sc.ID,
		Namespace:   sc.Namespace,
		Require:     sc.Require,
		Forbid:      sc.Forbid,
		Mode:        stock.Mode(sc.Mode),
		KeyBy:       stock.KeyStrategy(sc.KeyBy),
		AlertTitle:  sc.AlertTitle,
		AlertPrefix: sc.AlertPrefix,
		SkipIgnored: sc.SkipIgnored,
	}
}

func selectorsFor(sc am.SourceConfig) Selectors {
	sel := Selectors{
		Item:   sc.ItemSelector,
		Link:   sc.LinkSelector,
		Status: sc.StatusSelector,
	}
	if sel.Item == "" {
		sel.Item = am.DefaultItemSelector
	}
	if sel.Link == "" {
		sel.Link = am.DefaultLinkSelector
	}
	if sel.Status == "" {
		sel.Status = am.DefaultStatusSelector
	}
	return sel
}
