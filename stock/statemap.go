package stock

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/teranos/restock/errors"
)

// LastCheckedKey is the reserved snapshot entry holding the last scan time.
const LastCheckedKey = "_last_checked"

// Older snapshots wrote Python's str(datetime.now()); fractional seconds
// are accepted by time.Parse without appearing in the layout.
const legacyTimeLayout = "2006-01-02 15:04:05"

// StateMap is the last known Status per ItemKey plus the last scan time.
// The zero value is an empty map ready for use.
type StateMap struct {
	items       map[ItemKey]Status
	lastChecked time.Time
}

// NewStateMap returns an empty map.
func NewStateMap() *StateMap {
	return &StateMap{items: make(map[ItemKey]Status)}
}

// Get returns the stored status, Unknown when absent.
func (m *StateMap) Get(k ItemKey) Status {
	if s, ok := m.items[k]; ok {
		return s
	}
	return Unknown
}

// Lookup returns the stored status and whether k is present.
func (m *StateMap) Lookup(k ItemKey) (Status, bool) {
	s, ok := m.items[k]
	return s, ok
}

// Has reports whether k was ever recorded.
func (m *StateMap) Has(k ItemKey) bool {
	_, ok := m.items[k]
	return ok
}

// Set records s for k.
func (m *StateMap) Set(k ItemKey, s Status) {
	if m.items == nil {
		m.items = make(map[ItemKey]Status)
	}
	m.items[k] = s
}

// Len counts item entries. The last-checked entry is not an item.
func (m *StateMap) Len() int { return len(m.items) }

// Keys returns item keys in sorted order.
func (m *StateMap) Keys() []ItemKey {
	keys := make([]ItemKey, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// LastChecked is the completion time of the scan that produced this map.
func (m *StateMap) LastChecked() time.Time { return m.lastChecked }

// Touch stamps the map with the scan completion time.
func (m *StateMap) Touch(t time.Time) { m.lastChecked = t }

// Clone returns an independent copy.
func (m *StateMap) Clone() *StateMap {
	if m == nil {
		return NewStateMap()
	}
	c := &StateMap{items: make(map[ItemKey]Status, len(m.items)), lastChecked: m.lastChecked}
	for k, s := range m.items {
		c.items[k] = s
	}
	return c
}

// Equal compares items only; timestamps differ on every save.
// A nil map equals only another nil map.
func (m *StateMap) Equal(o *StateMap) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Len() != o.Len() {
		return false
	}
	for k, s := range m.items {
		if other, ok := o.items[k]; !ok || other != s {
			return false
		}
	}
	return true
}

// MarshalJSON writes a flat object: item keys to status strings plus LastCheckedKey.
func (m *StateMap) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(m.items)+1)
	for k, s := range m.items {
		flat[string(k)] = string(s)
	}
	if !m.lastChecked.IsZero() {
		flat[LastCheckedKey] = m.lastChecked.Format(time.RFC3339)
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat snapshot object. A non-string value makes the
// whole snapshot corrupt; an unparseable timestamp is dropped.
func (m *StateMap) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return errors.Mark(errors.Wrap(err, "decode snapshot"), errors.ErrCorruptSnapshot)
	}

	items := make(map[ItemKey]Status, len(flat))
	var lastChecked time.Time
	for k, raw := range flat {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return errors.Mark(errors.Wrapf(err, "snapshot entry %q", k), errors.ErrCorruptSnapshot)
		}
		if k == LastCheckedKey {
			lastChecked = parseLastChecked(v)
			continue
		}
		items[ItemKey(k)] = ParseStatus(v)
	}

	m.items = items
	m.lastChecked = lastChecked
	return nil
}

func parseLastChecked(v string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(legacyTimeLayout, v, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
