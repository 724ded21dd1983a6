package stock

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/restock/errors"
)

func TestStateMapDefaults(t *testing.T) {
	var m StateMap
	assert.Equal(t, Unknown, m.Get("predator::anything"))
	assert.False(t, m.Has("predator::anything"))
	assert.Zero(t, m.Len())

	m.Set("predator::BK Rush Break Cue", InStock)
	assert.Equal(t, InStock, m.Get("predator::BK Rush Break Cue"))
}

func TestStateMapCloneIsIndependent(t *testing.T) {
	m := NewStateMap()
	m.Set("a::1", InStock)

	c := m.Clone()
	c.Set("a::1", OutOfStock)
	c.Set("a::2", InStock)

	assert.Equal(t, InStock, m.Get("a::1"))
	assert.False(t, m.Has("a::2"))

	var nilMap *StateMap
	assert.NotNil(t, nilMap.Clone())
}

func TestStateMapEqualNil(t *testing.T) {
	m := NewStateMap()
	var nilMap *StateMap

	assert.False(t, m.Equal(nil))
	assert.False(t, nilMap.Equal(m))
	assert.True(t, nilMap.Equal(nil))

	o := NewStateMap()
	assert.True(t, m.Equal(o))
	o.Set("a::1", InStock)
	assert.False(t, m.Equal(o))
}

func TestStateMapKeysSorted(t *testing.T) {
	m := NewStateMap()
	m.Set("predator::P3", OutOfStock)
	m.Set("mezz::power-break-g", InStock)
	m.Set("_ignored::predator::BK Rush Black", InStock)

	assert.Equal(t, []ItemKey{"_ignored::predator::BK Rush Black", "mezz::power-break-g", "predator::P3"}, m.Keys())
}

func TestStateMapJSONRoundTrip(t *testing.T) {
	m := NewStateMap()
	m.Set("predator::BK Rush Break Cue", InStock)
	m.Set("limited::le-special-edition", Seen)
	checked := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	m.Touch(checked)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var flat map[string]string
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "In Stock", flat["predator::BK Rush Break Cue"])
	assert.Equal(t, "Seen", flat["limited::le-special-edition"])
	assert.Equal(t, "2026-03-14T09:26:53Z", flat[LastCheckedKey])

	back := NewStateMap()
	require.NoError(t, json.Unmarshal(data, back))
	assert.True(t, m.Equal(back))
	assert.True(t, checked.Equal(back.LastChecked()))
	assert.False(t, back.Has(LastCheckedKey), "metadata is not an item")
}

func TestStateMapLegacySnapshot(t *testing.T) {
	legacy := `{
    "predator::BK Rush Break Cue": "Out of Stock",
    "mezz::power-break-g": "In Stock",
    "BK Rush Break Cue": "Low stock",
    "_last_checked": "2025-11-02 18:04:11.532817"
}`
	m := NewStateMap()
	require.NoError(t, json.Unmarshal([]byte(legacy), m))

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, OutOfStock, m.Get("predator::BK Rush Break Cue"))
	assert.Equal(t, Unknown, m.Get("BK Rush Break Cue"))
	assert.Equal(t, 2025, m.LastChecked().Year())
	assert.Equal(t, 11, int(m.LastChecked().Month()))
}

func TestStateMapCorruptSnapshot(t *testing.T) {
	for _, doc := range []string{`{"a::1": 3}`, `[1,2]`, `"just text"`} {
		m := NewStateMap()
		err := json.Unmarshal([]byte(doc), m)
		require.Error(t, err, doc)
		assert.True(t, errors.Is(err, errors.ErrCorruptSnapshot), doc)
	}
}

func TestStateMapBadTimestampIgnored(t *testing.T) {
	m := NewStateMap()
	require.NoError(t, json.Unmarshal([]byte(`{"_last_checked": "yesterday"}`), m))
	assert.True(t, m.LastChecked().IsZero())
}
