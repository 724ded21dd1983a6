package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across restock.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity
	FieldRunID     = "run_id"
	FieldComponent = "component"

	// Scan domain
	FieldSource    = "source"
	FieldItemKey   = "item_key"
	FieldItemName  = "item_name"
	FieldPrevious  = "prev"
	FieldCurrent   = "curr"
	FieldLink      = "link"
	FieldURL       = "url"
	FieldMode      = "mode"
	FieldReason    = "reason"
	FieldEligible  = "alert_eligible"
	FieldTitle     = "title"
	FieldStatePath = "state_path"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldInterval   = "interval"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount        = "count"
	FieldObservations = "observations"
	FieldTracked      = "tracked"
	FieldAlerts       = "alerts"
	FieldFailed       = "failed"

	// Status
	FieldStatus = "status"

	// Network
	FieldHost = "host"

	// Glyph from the sym package (꩜, ⚑, ✿, …)
	FieldSymbol = "symbol"
)

// ComponentLogger returns a named child of the global logger.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	runner := scan.NewRunner(plan, store, n, b, logger.ComponentLogger("scan"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
// Example:
//
//	runLog := logger.ChildLogger(baseLogger, logger.FieldRunID, runID)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
