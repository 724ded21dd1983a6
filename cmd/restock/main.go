package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/restock/cmd/restock/commands"
	"github.com/teranos/restock/logger"
	"github.com/teranos/restock/sym"
)

var rootCmd = &cobra.Command{
	Use:   "restock",
	Short: "restock - retailer stock watcher with edge-triggered alerts",
	Long: `restock - watch retailer pages and alert when an item comes back in stock.

Each scan fetches every configured source, keeps the items its rules track,
diffs them against the saved snapshot and sends one alert per item that
crossed into In Stock. The snapshot is then saved and optionally pushed to a
git remote as a heartbeat.

Available commands:
  watch  - Scan forever on a fixed interval
  scan   - Run a single scan cycle
  state  - Inspect the saved snapshot
  runs   - Show recent scan cycles
  am     - Show or initialise configuration

Examples:
  restock watch -v              # Scan every interval with info logging
  restock watch --reload        # Pick up am.toml edits without restarting
  restock scan --dry-run        # One cycle, log alerts instead of sending
  restock state show -o json    # Dump the snapshot`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Logger.Debugw("Logger ready", "verbosity", logger.LevelName(verbosity), "json", jsonLogs)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.Long += "\n\n" + symbolLegend()

	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs")
	rootCmd.PersistentFlags().StringVarP(&commands.ConfigPath, "config", "c", "", "Config file (default: search /etc/restock, ~/.restock, ./am.toml)")

	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.ScanCmd)
	rootCmd.AddCommand(commands.StateCmd)
	rootCmd.AddCommand(commands.RunsCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

// symbolLegend explains the glyphs used in output and log fields.
func symbolLegend() string {
	cmds := make([]string, 0, len(sym.CommandToSymbol))
	for cmd := range sym.CommandToSymbol {
		cmds = append(cmds, cmd)
	}
	sort.Strings(cmds)

	var b strings.Builder
	b.WriteString("Symbols:")
	for _, cmd := range cmds {
		fmt.Fprintf(&b, "\n  %s  %s", sym.CommandToSymbol[cmd], sym.CommandDescriptions[cmd])
	}
	return b.String()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
