package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/restock/am"
	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Show or initialise configuration",
	Long: sym.AM + ` am: restock configuration

Configuration sources (later overrides earlier):
1. Built-in defaults
2. /etc/restock/am.toml
3. ~/.restock/am.toml
4. ./am.toml (searched upwards from the working directory)
5. RESTOCK_* environment variables (e.g. RESTOCK_NOTIFY_TOPIC)

Examples:
  restock am show                 # Effective configuration as TOML
  restock am show --format json
  restock am show --where         # Which file or env var set each key
  restock am init                 # Write ./am.toml with the defaults`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runAmShow,
}

var amInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the defaults",
	Long: `Write the default configuration, including the built-in source list,
to path (default ./am.toml). An existing file is rotated to .back1-.back3.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAmInit,
}

var (
	amFormat string
	amWhere  bool
)

func init() {
	amShowCmd.Flags().StringVar(&amFormat, "format", "toml", "Output format: toml, json, yaml")
	amShowCmd.Flags().BoolVar(&amWhere, "where", false, "Show where each setting comes from")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amInitCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if amWhere {
		return renderWhere(os.Stdout, am.SettingKeys())
	}

	shown := *cfg
	shown.Sources = cfg.EffectiveSources()
	return renderConfig(os.Stdout, &shown, amFormat)
}

func renderConfig(w io.Writer, cfg *am.Config, format string) error {
	switch format {
	case "toml":
		data, err := am.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "# restock configuration\n%s", data)
	case "json":
		redacted := *cfg
		redacted.Backup.Token = redact(cfg.Backup.Token)
		data, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Fprintln(w, string(data))
	case "yaml":
		redacted := *cfg
		redacted.Backup.Token = redact(cfg.Backup.Token)
		data, err := yaml.Marshal(redacted)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(w, "# restock configuration\n%s", data)
	default:
		return errors.NewInvalidRequestError("unsupported format: %s (supported: toml, json, yaml)", format)
	}
	return nil
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

func renderWhere(w io.Writer, keys []string) error {
	if ConfigPath != "" {
		fmt.Fprintf(w, "Loaded from --config %s; the search cascade was skipped.\n", ConfigPath)
		return nil
	}
	files := am.MergedFiles()
	if len(files) == 0 {
		fmt.Fprintln(w, "No config files found; using defaults and environment")
	} else {
		fmt.Fprintln(w, "Merged config files (later overrides earlier):")
		for i, f := range files {
			fmt.Fprintf(w, "  %d. %s\n", i+1, f)
		}
	}
	fmt.Fprintln(w)

	data := pterm.TableData{{"Setting", "Source"}}
	for _, k := range keys {
		data = append(data, []string{k, am.KeySource(k)})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render table")
	}
	fmt.Fprintln(w, table)
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := "am.toml"
	if len(args) == 1 {
		path = args[0]
	}
	if err := am.WriteDefault(path); err != nil {
		return err
	}
	fmt.Printf("%s Wrote default configuration to %s\n", sym.AM, path)
	return nil
}
