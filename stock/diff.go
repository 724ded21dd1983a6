package stock

// Alert is one notification to dispatch.
type Alert struct {
	Key   ItemKey
	Name  string // display name including any rule prefix
	Link  string
	Title string
}

// Change is a status change observed during a diff. New keys are changes
// from Unknown (or from absent, for presence items).
type Change struct {
	Key     ItemKey
	Prev    Status
	Curr    Status
	New     bool
	Alerted bool
}

// Result is everything Diff decided.
type Result struct {
	State   *StateMap
	Alerts  []Alert
	Changes []Change
}

// Diff reconciles a tracked batch against prev and returns the next state.
// prev is not modified. Alerts come out in batch order.
//
// Transition items alert iff curr == InStock, prev != InStock and the item is
// alert-eligible; the new status is always recorded. Presence items alert the
// first time their key appears and are then recorded as Seen. Duplicate keys
// within one batch see the state written by the earlier occurrence, so a
// batch diffed against its own result yields no alerts.
func Diff(prev *StateMap, batch []Tracked) Result {
	next := prev.Clone()
	res := Result{State: next}

	for _, t := range batch {
		before, existed := next.Lookup(t.Key)
		if !existed {
			before = Unknown
		}

		curr := t.Status
		alert := false

		switch t.Mode {
		case ModePresence:
			curr = Seen
			alert = !existed && t.AlertEligible
		default:
			alert = t.AlertEligible && curr == InStock && before != InStock
		}

		next.Set(t.Key, curr)

		if alert {
			res.Alerts = append(res.Alerts, Alert{
				Key:   t.Key,
				Name:  t.Prefix + t.Name,
				Link:  t.Link,
				Title: t.Title,
			})
		}
		if !existed || before != curr {
			res.Changes = append(res.Changes, Change{
				Key:     t.Key,
				Prev:    before,
				Curr:    curr,
				New:     !existed,
				Alerted: alert,
			})
		}
	}
	return res
}
