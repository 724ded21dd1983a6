package stock

import (
	"github.com/teranos/restock/errors"
)

// Tracked is an observation that passed its source's rule, ready for Diff.
type Tracked struct {
	Key           ItemKey
	Name          string
	Status        Status
	Link          string
	AlertEligible bool
	Mode          Mode
	Title         string
	Prefix        string
}

// Dropped records an observation that never reached Diff.
type Dropped struct {
	Observation Observation
	Reason      string
	Err         error // set for malformed observations
}

// Registry maps observation sources to their Rule. Adding a source is a
// data change: register another Rule.
type Registry struct {
	rules map[string]Rule
	order []string
}

// NewRegistry validates the rules and indexes them by source.
func NewRegistry(rules ...Rule) (*Registry, error) {
	reg := &Registry{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := reg.rules[r.Source]; dup {
			return nil, errors.NewInvalidRequestError("duplicate rule for source %q", r.Source)
		}
		reg.rules[r.Source] = r.withDefaults()
		reg.order = append(reg.order, r.Source)
	}
	return reg, nil
}

// Rule returns the rule registered for source.
func (reg *Registry) Rule(source string) (Rule, bool) {
	r, ok := reg.rules[source]
	return r, ok
}

// Sources lists registered sources in registration order.
func (reg *Registry) Sources() []string {
	return append([]string(nil), reg.order...)
}

// Apply normalizes and filters a batch. Order is preserved.
func (reg *Registry) Apply(batch []Observation) ([]Tracked, []Dropped) {
	tracked := make([]Tracked, 0, len(batch))
	var dropped []Dropped

	for _, raw := range batch {
		obs, err := raw.Normalize()
		if err != nil {
			dropped = append(dropped, Dropped{Observation: raw, Reason: "malformed", Err: err})
			continue
		}
		rule, ok := reg.rules[obs.Source]
		if !ok {
			dropped = append(dropped, Dropped{Observation: obs, Reason: "no rule for source"})
			continue
		}
		d := rule.Decide(obs)
		if !d.Tracked {
			dropped = append(dropped, Dropped{Observation: obs, Reason: d.Reason})
			continue
		}
		tracked = append(tracked, Tracked{
			Key:           d.Key,
			Name:          obs.Name,
			Status:        Classify(obs.StatusText),
			Link:          obs.Link,
			AlertEligible: d.AlertEligible,
			Mode:          rule.Mode,
			Title:         rule.AlertTitle,
			Prefix:        rule.AlertPrefix,
		})
	}
	return tracked, dropped
}
