package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/restock/errors"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(
		bkRushRule,
		Rule{Source: "predator-p3", Namespace: "predator", Require: []string{"P3"}},
		Rule{Source: "mezz-pbg", Namespace: "mezz", KeyBy: KeyByHandle, AlertTitle: "Mezz PBG In Stock", AlertPrefix: "Mezz PBG: "},
		Rule{Source: "limited", Namespace: "limited", Mode: ModePresence, KeyBy: KeyBySlug},
	)
	require.NoError(t, err)
	return reg
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(Rule{Source: "a"}, Rule{Source: "a"})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestNewRegistryRejectsInvalidRule(t *testing.T) {
	_, err := NewRegistry(Rule{Source: "a", Mode: "sometimes"})
	assert.Error(t, err)
}

func TestRegistrySources(t *testing.T) {
	reg := defaultRegistry(t)
	assert.Equal(t, []string{"predator-bk-rush", "predator-p3", "mezz-pbg", "limited"}, reg.Sources())

	r, ok := reg.Rule("mezz-pbg")
	require.True(t, ok)
	assert.Equal(t, ModeTransition, r.Mode, "defaults applied at registration")
}

func TestRegistryApply(t *testing.T) {
	reg := defaultRegistry(t)
	page := "https://www.predatorcues.com/usa/pool-cues/break-jump-cues/bk-rush-break-cues.html"

	batch := []Observation{
		{Source: "predator-bk-rush", Name: " BK Rush Break Cue ", StatusText: "In Stock", Page: page},
		{Source: "predator-bk-rush", Name: "BK Rush Break Cue Black", StatusText: "In Stock", Page: page},
		{Source: "predator-bk-rush", Name: "Air Rush Jump Cue", StatusText: "In Stock", Page: page},
		{Source: "predator-bk-rush", Name: "", StatusText: "In Stock", Page: page},
		{Source: "mezz-pbg", Name: "Power Break G", Identity: "power-break-g", StatusText: "Out of Stock", Link: "https://mezzusa.com/products/power-break-g"},
		{Source: "nowhere", Name: "Stray"},
	}

	tracked, dropped := reg.Apply(batch)

	require.Len(t, tracked, 3)
	assert.Equal(t, ItemKey("predator::BK Rush Break Cue"), tracked[0].Key)
	assert.Equal(t, InStock, tracked[0].Status)
	assert.Equal(t, page, tracked[0].Link, "missing link falls back to the page")
	assert.True(t, tracked[0].AlertEligible)
	assert.Equal(t, DefaultTransitionTitle, tracked[0].Title)

	assert.True(t, tracked[1].Key.IsIgnored())
	assert.False(t, tracked[1].AlertEligible)

	assert.Equal(t, ItemKey("mezz::power-break-g"), tracked[2].Key)
	assert.Equal(t, "Mezz PBG: ", tracked[2].Prefix)
	assert.Equal(t, "Mezz PBG In Stock", tracked[2].Title)

	require.Len(t, dropped, 3)
	assert.Contains(t, dropped[0].Reason, "required marker")
	assert.True(t, errors.Is(dropped[1].Err, errors.ErrMalformedObservation))
	assert.Equal(t, "no rule for source", dropped[2].Reason)
}
