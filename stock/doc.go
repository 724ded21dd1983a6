// Package stock is the decision core of restock.
//
// A scan cycle hands it a batch of normalized Observations. A Registry of
// per-source Rules decides which observations are tracked, under which
// ItemKey, and whether they may ever alert. Diff then reconciles the tracked
// batch against the previous StateMap and returns the next StateMap together
// with the alerts to dispatch. Nothing in this package performs I/O.
//
// A StateMap is owned by exactly one scan cycle at a time. Diff never
// mutates its input map, so the caller can discard the result without
// side effects (dry runs do exactly that).
package stock
