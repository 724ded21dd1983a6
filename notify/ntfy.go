package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/internal/httpclient"
	"github.com/teranos/restock/stock"
)

// NtfyConfig configures delivery to an ntfy server.
type NtfyConfig struct {
	BaseURL      string // e.g. https://ntfy.sh
	Topic        string
	Priority     string
	Tags         []string
	DefaultTitle string
	Timeout      time.Duration
}

// Ntfy publishes alerts to an ntfy topic with a plain-text POST.
type Ntfy struct {
	client   *httpclient.Client
	cfg      NtfyConfig
	topicURL string
	logger   *zap.SugaredLogger
}

// NewNtfy creates an ntfy notifier.
func NewNtfy(client *httpclient.Client, cfg NtfyConfig, logger *zap.SugaredLogger) (*Ntfy, error) {
	if cfg.Topic == "" {
		return nil, errors.NewInvalidRequestError("ntfy topic is empty")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, errors.NewInvalidRequestError("ntfy base URL %q is invalid", cfg.BaseURL)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Ntfy{
		client:   client,
		cfg:      cfg,
		topicURL: base.String() + "/" + url.PathEscape(cfg.Topic),
		logger:   logger,
	}, nil
}

// Notify posts "ITEM: <name>" with Title, Click, Priority and Tags headers.
func (n *Ntfy) Notify(ctx context.Context, alert stock.Alert) error {
	if n.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topicURL, strings.NewReader("ITEM: "+alert.Name))
	if err != nil {
		return errors.Mark(errors.Wrap(err, "build ntfy request"), errors.ErrDeliveryFailed)
	}

	title := alert.Title
	if title == "" {
		title = n.cfg.DefaultTitle
	}
	if title != "" {
		req.Header.Set("Title", title)
	}
	if alert.Link != "" {
		req.Header.Set("Click", alert.Link)
	}
	if n.cfg.Priority != "" {
		req.Header.Set("Priority", n.cfg.Priority)
	}
	if len(n.cfg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(n.cfg.Tags, ","))
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "post to ntfy topic %s", n.cfg.Topic), errors.ErrDeliveryFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := errors.WithDetail(
			errors.Newf("ntfy returned %d", resp.StatusCode),
			fmt.Sprintf("body: %s", strings.TrimSpace(string(msg))),
		)
		return errors.Mark(err, errors.ErrDeliveryFailed)
	}

	n.logger.Infow("Alert sent", "title", title, "item_name", alert.Name, "topic", n.cfg.Topic)
	return nil
}
