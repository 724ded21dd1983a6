// Package notify delivers alerts. Delivery is best effort: a failed
// dispatch is reported to the caller for logging and is never retried.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/restock/stock"
)

// Notifier delivers one alert per call.
type Notifier interface {
	Notify(ctx context.Context, alert stock.Alert) error
}

// LogNotifier writes alerts to the log instead of sending them (dry runs, notify.backend = "log").
type LogNotifier struct {
	logger *zap.SugaredLogger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.SugaredLogger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the alert at warn so it shows at default verbosity.
func (n *LogNotifier) Notify(_ context.Context, alert stock.Alert) error {
	n.logger.Warnw("ALERT",
		"title", alert.Title,
		"item_name", alert.Name,
		"item_key", string(alert.Key),
		"link", alert.Link,
	)
	return nil
}
