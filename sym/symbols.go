// Package sym defines canonical symbols for restock operations and system markers.
// These symbols are stable across CLI output and structured log fields.
package sym

// Command symbols. Each has a CLI command.
const (
	AM    = "≡" // am: configuration and system settings
	Scan  = "꩜" // scan: one full observation cycle
	Watch = "⟳" // watch: the fixed-interval scan loop
	State = "⊔" // state: the persisted item→status snapshot
	Runs  = "✦" // runs: scan run history
)

// System markers used in log fields and summaries.
const (
	Alert   = "⚑" // an edge-triggered alert
	Backup  = "⇡" // snapshot pushed to the backup remote
	Open    = "✿" // graceful startup
	Close   = "❀" // graceful shutdown
	Skipped = "∅" // source skipped for this cycle
)

// SymbolToCommand maps glyph strings to their text command equivalents.
var SymbolToCommand = map[string]string{
	AM:    "am",
	Scan:  "scan",
	Watch: "watch",
	State: "state",
	Runs:  "runs",
}

// CommandToSymbol maps text commands to their canonical glyph strings.
var CommandToSymbol = map[string]string{
	"am":    AM,
	"scan":  Scan,
	"watch": Watch,
	"state": State,
	"runs":  Runs,
}

// CommandDescriptions provides human-readable explanations used in help output.
var CommandDescriptions = map[string]string{
	"am":    "Configuration: sources, notifier, state and backup settings",
	"scan":  "Scan: fetch every source once, diff against state, alert",
	"watch": "Watch: scan forever on a fixed interval",
	"state": "State: inspect the persisted item snapshot",
	"runs":  "Runs: recent scan cycles and dispatched alerts",
}
