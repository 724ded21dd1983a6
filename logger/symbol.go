package logger

import (
	"github.com/teranos/restock/sym"
	"go.uber.org/zap"
)

// Symbol-aware logger wrappers.
// The symbol goes in a structured field, not in the message, so logs stay
// queryable by symbol and messages stay clean.
//
// Usage:
//
//	type Ticker struct {
//	    scanLog *zap.SugaredLogger
//	}
//	t.scanLog = logger.AddScanSymbol(baseLogger)

// AddScanSymbol wraps a logger with the Scan symbol (꩜)
func AddScanSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Scan)
}

// AddAlertSymbol wraps a logger with the Alert symbol (⚑)
func AddAlertSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Alert)
}

// AddStateSymbol wraps a logger with the State symbol (⊔)
func AddStateSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.State)
}

// AddBackupSymbol wraps a logger with the Backup symbol (⇡)
func AddBackupSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Backup)
}

// AddOpenSymbol wraps a logger with the Open symbol (✿)
func AddOpenSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Open)
}

// AddCloseSymbol wraps a logger with the Close symbol (❀)
func AddCloseSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Close)
}
