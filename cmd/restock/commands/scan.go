package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/restock/scan"
	"github.com/teranos/restock/sym"
)

// ScanCmd runs one scan cycle
var ScanCmd = &cobra.Command{
	Use:   "scan",
	Short: sym.Scan + " Run a single scan cycle",
	Long: sym.Scan + ` Fetch every source once, diff against the saved snapshot and alert.

With --dry-run, alerts are logged instead of sent and the snapshot is neither
saved nor backed up, so the same alerts will fire again on the next real scan.

Examples:
  restock scan
  restock scan --dry-run -v`,
	RunE: runScan,
}

var scanDryRun bool

func init() {
	ScanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "Log alerts instead of sending; do not save or back up")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, scanDryRun)
	if err != nil {
		return err
	}
	defer a.close()

	rep, err := a.runner.RunOnce(cmd.Context())
	printReport(os.Stdout, rep, scanDryRun)
	return err
}

// printReport renders a cycle summary for humans.
func printReport(w io.Writer, rep *scan.Report, dryRun bool) {
	if rep == nil {
		return
	}
	if dryRun {
		fmt.Fprintln(w, pterm.Warning.Sprint("DRY RUN: snapshot not saved, alerts logged only"))
	}

	header := fmt.Sprintf("%s Scan %s: %s in %s", sym.Scan, shortID(rep.RunID), rep.Status, rep.Duration.Round(time.Millisecond))
	switch rep.Status {
	case scan.RunCompleted:
		fmt.Fprintln(w, pterm.Success.Sprint(header))
	case scan.RunPartial:
		fmt.Fprintln(w, pterm.Warning.Sprint(header))
	default:
		fmt.Fprintln(w, pterm.Error.Sprint(header))
	}

	fmt.Fprintf(w, "  Sources: %d ok, %d failed\n", rep.SourcesOK, len(rep.Failures))
	fmt.Fprintf(w, "  Observations: %d (%d tracked, %d dropped)\n", rep.Observations, rep.Tracked, len(rep.Dropped))
	fmt.Fprintf(w, "  Changes: %d\n", len(rep.Changes))

	for _, f := range rep.Failures {
		fmt.Fprintf(w, "  %s %s: %v\n", sym.Skipped, f.Source, f.Err)
	}
	for _, d := range rep.Deliveries {
		mark := "sent"
		if d.Err != nil {
			mark = "failed: " + d.Err.Error()
		}
		fmt.Fprintf(w, "  %s %s (%s) %s\n", sym.Alert, d.Alert.Name, d.Alert.Title, mark)
	}
	if rep.LoadErr != nil {
		fmt.Fprintf(w, "  snapshot unreadable, started empty: %v\n", rep.LoadErr)
	}
	if rep.BackupErr != nil {
		fmt.Fprintf(w, "  %s backup failed: %v\n", sym.Backup, rep.BackupErr)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
