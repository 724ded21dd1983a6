package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/scan"
	"github.com/teranos/restock/sym"
)

// RunsCmd groups scan history commands
var RunsCmd = &cobra.Command{
	Use:   "runs",
	Short: sym.Runs + " Show recent scan cycles",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recent scan runs, newest first",
	Long: `List recent scan runs from the database.

Examples:
  restock runs ls
  restock runs ls --limit 50
  restock runs ls --alerts      # include the alerts each run dispatched`,
	RunE: runRunsLs,
}

var (
	runsLimit  int
	runsAlerts bool
)

func init() {
	runsLsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to show")
	runsLsCmd.Flags().BoolVar(&runsAlerts, "alerts", false, "Show alerts dispatched by each run")
	RunsCmd.AddCommand(runsLsCmd)
}

func runRunsLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if database == nil {
		return errors.WithHint(errors.New("run history is disabled"), "set database.path in am.toml")
	}
	defer database.Close()

	store := scan.NewRunStore(database)
	runs, err := store.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	if err := renderRuns(os.Stdout, runs); err != nil {
		return err
	}

	if !runsAlerts {
		return nil
	}
	for _, run := range runs {
		alerts, err := store.ListAlerts(cmd.Context(), run.ID)
		if err != nil {
			return err
		}
		if len(alerts) == 0 {
			continue
		}
		fmt.Printf("\n%s %s\n", sym.Alert, shortID(run.ID))
		for _, a := range alerts {
			status := "delivered"
			if !a.Delivered {
				status = "failed"
				if a.ErrorMessage != nil {
					status += ": " + *a.ErrorMessage
				}
			}
			fmt.Printf("  %s  %s  %s\n", a.Title, a.ItemName, status)
		}
	}
	return nil
}

func renderRuns(w io.Writer, runs []scan.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No scan runs recorded yet")
		return nil
	}

	data := pterm.TableData{{"Run", "Started", "Status", "Duration", "Sources", "Tracked", "Alerts", "Error"}}
	for _, r := range runs {
		duration := "-"
		if r.DurationMS != nil {
			duration = (time.Duration(*r.DurationMS) * time.Millisecond).String()
		}
		errMsg := ""
		if r.ErrorMessage != nil {
			errMsg = *r.ErrorMessage
		}
		data = append(data, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format("01-02 15:04:05"),
			string(r.Status),
			duration,
			fmt.Sprintf("%d/%d", r.SourcesOK, r.SourcesOK+r.SourcesFailed),
			strconv.Itoa(r.Tracked),
			strconv.Itoa(r.Alerts),
			errMsg,
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render table")
	}
	fmt.Fprintln(w, table)
	return nil
}
