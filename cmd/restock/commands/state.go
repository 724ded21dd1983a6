package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/stock"
	"github.com/teranos/restock/sym"
)

// StateCmd groups snapshot inspection
var StateCmd = &cobra.Command{
	Use:   "state",
	Short: sym.State + " Inspect the saved snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show every tracked item and its last status",
	Long: `Show the snapshot from the configured state backend.

Ignored variants (recorded for bookkeeping but never alerted on) are hidden
unless --all is given.

Examples:
  restock state show
  restock state show --all -o yaml`,
	RunE: runStateShow,
}

var (
	stateOutput string
	stateAll    bool
)

func init() {
	stateShowCmd.Flags().StringVarP(&stateOutput, "output", "o", "table", "Output format: table, json, yaml")
	stateShowCmd.Flags().BoolVar(&stateAll, "all", false, "Include ignored variants")
	StateCmd.AddCommand(stateShowCmd)
}

func runStateShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}
	store, err := newStore(cfg, database)
	if err != nil {
		return err
	}

	m, err := store.Load(cmd.Context())
	if err != nil {
		// Load still returned a usable (empty) map
		fmt.Fprintln(os.Stderr, pterm.Warning.Sprintf("%s: %v", store.Location(), err))
	}
	return renderState(os.Stdout, m, stateOutput, stateAll)
}

// stateView is the exported shape for json and yaml output.
type stateView struct {
	LastChecked string            `json:"last_checked,omitempty" yaml:"last_checked,omitempty"`
	Items       map[string]string `json:"items" yaml:"items"`
}

func renderState(w io.Writer, m *stock.StateMap, format string, all bool) error {
	keys := visibleKeys(m, all)

	switch format {
	case "json", "yaml":
		view := stateView{Items: make(map[string]string, len(keys))}
		if t := m.LastChecked(); !t.IsZero() {
			view.LastChecked = t.Format(time.RFC3339)
		}
		for _, k := range keys {
			view.Items[string(k)] = string(m.Get(k))
		}
		if format == "json" {
			data, err := json.MarshalIndent(view, "", "  ")
			if err != nil {
				return errors.Wrap(err, "failed to marshal state to JSON")
			}
			fmt.Fprintln(w, string(data))
			return nil
		}
		data, err := yaml.Marshal(view)
		if err != nil {
			return errors.Wrap(err, "failed to marshal state to YAML")
		}
		fmt.Fprint(w, string(data))
		return nil

	case "table":
		if len(keys) == 0 {
			fmt.Fprintln(w, "No items recorded yet")
			return nil
		}
		data := pterm.TableData{{"Namespace", "Item", "Status"}}
		for _, k := range keys {
			ns := k.Namespace()
			if k.IsIgnored() {
				ns += " (ignored)"
			}
			data = append(data, []string{ns, k.Identity(), string(m.Get(k))})
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return errors.Wrap(err, "failed to render table")
		}
		fmt.Fprintln(w, table)
		if t := m.LastChecked(); !t.IsZero() {
			fmt.Fprintf(w, "Last checked: %s\n", t.Local().Format("2006-01-02 15:04:05"))
		}
		return nil

	default:
		return errors.NewInvalidRequestError("unsupported format: %s (supported: %s)", format, strings.Join([]string{"table", "json", "yaml"}, ", "))
	}
}

func visibleKeys(m *stock.StateMap, all bool) []stock.ItemKey {
	var out []stock.ItemKey
	for _, k := range m.Keys() {
		if !all && k.IsIgnored() {
			continue
		}
		out = append(out, k)
	}
	return out
}
