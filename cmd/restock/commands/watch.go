package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/restock/am"
	"github.com/teranos/restock/logger"
	"github.com/teranos/restock/scan"
	"github.com/teranos/restock/sym"
)

// WatchCmd runs the scan loop until interrupted
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: sym.Watch + " Scan forever on a fixed interval",
	Long: sym.Watch + ` Run a scan cycle, sleep for scan.interval_seconds, repeat.

Cycles never overlap. No single-cycle failure stops the loop: failed sources
are skipped, an unreadable snapshot starts empty, and failed deliveries or
backups are logged. Ctrl+C finishes shutdown after the current request.

With --reload, edits to the active config file change sources, rules and the
interval from the next cycle on. Notifier, state and backup settings need a
restart.

Examples:
  restock watch
  restock watch --reload -v`,
	RunE: runWatch,
}

var watchReload bool

func init() {
	WatchCmd.Flags().BoolVar(&watchReload, "reload", false, "Reload sources and interval when the config file changes")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	log := logger.ComponentLogger("watch")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := scan.NewTicker(ctx, a.runner, cfg.Interval(), logger.ComponentLogger("scan"))
	ticker.OnReport(func(rep *scan.Report) {
		if n := len(rep.Deliveries); n > 0 {
			fmt.Printf("%s %d alert(s) dispatched in run %s\n", sym.Alert, n, shortID(rep.RunID))
		}
	})

	if watchReload {
		path := watchedConfigPath()
		if path == "" {
			log.Warnw("No config file found, --reload has nothing to watch")
		} else {
			watcher, err := am.NewConfigWatcher(path)
			if err != nil {
				return err
			}
			watcher.OnReload(func(next *am.Config) error {
				plan, err := buildPlan(next, logger.ComponentLogger("source"))
				if err != nil {
					return err
				}
				a.runner.Reconfigure(plan)
				ticker.SetInterval(next.Interval())
				return nil
			})
			watcher.Start()
			defer watcher.Stop()
			log.Infow("Watching config for changes", "path", path)
		}
	}

	fmt.Printf("%s Watching %d source(s) every %s, state at %s\n",
		sym.Open, len(cfg.EffectiveSources()), cfg.Interval(), a.store.Location())
	fmt.Printf("%s Press Ctrl+C to stop\n\n", sym.Watch)

	logger.AddOpenSymbol(log).Infow("Watch started",
		"sources", len(cfg.EffectiveSources()),
		"interval", cfg.Interval().String(),
		"state", a.store.Location())

	ticker.Start()
	<-ticker.Done()

	fmt.Printf("\n%s Stopping...\n", sym.Close)
	ticker.Stop()
	logger.AddCloseSymbol(log).Infow("Watch stopped", "cycles", ticker.Cycles())
	return nil
}
