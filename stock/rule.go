package stock

import (
	"strings"

	"github.com/teranos/restock/errors"
)

// Mode selects how a source's items produce alerts. A rule has exactly one.
type Mode string

const (
	// ModeTransition alerts on the edge into InStock.
	ModeTransition Mode = "transition"
	// ModePresence alerts the first time a key is ever seen, regardless of status.
	ModePresence Mode = "presence"
)

// KeyStrategy selects the identity part of an ItemKey.
// Switching strategy for an existing source orphans its history.
type KeyStrategy string

const (
	KeyByName   KeyStrategy = "name"
	KeyBySlug   KeyStrategy = "slug"
	KeyByHandle KeyStrategy = "handle"
)

const (
	DefaultTransitionTitle = "In Stock Alert"
	DefaultPresenceTitle   = "New Release Alert"
)

// Rule is the tracking policy for one source.
type Rule struct {
	Source    string      // observation source this rule applies to
	Namespace string      // key namespace; defaults to Source
	Require   []string    // every marker must appear in the name
	Forbid    []string    // any marker excludes the item from alerting
	Mode      Mode        // defaults to ModeTransition
	KeyBy     KeyStrategy // defaults to KeyByName

	AlertTitle  string // notification title; mode default when empty
	AlertPrefix string // prepended to the item name in alerts

	// SkipIgnored drops forbidden variants entirely instead of recording them
	// under their segregated bookkeeping key.
	SkipIgnored bool
}

// Decision is the outcome of applying a Rule to one observation.
type Decision struct {
	Tracked       bool
	Key           ItemKey
	AlertEligible bool
	Reason        string // why the observation was excluded or made ineligible
}

// withDefaults fills empty fields. It does not validate.
func (r Rule) withDefaults() Rule {
	if r.Namespace == "" {
		r.Namespace = r.Source
	}
	if r.Mode == "" {
		r.Mode = ModeTransition
	}
	if r.KeyBy == "" {
		r.KeyBy = KeyByName
	}
	if r.AlertTitle == "" {
		if r.Mode == ModePresence {
			r.AlertTitle = DefaultPresenceTitle
		} else {
			r.AlertTitle = DefaultTransitionTitle
		}
	}
	return r
}

// Validate reports configuration mistakes in a rule.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Source) == "" {
		return errors.NewInvalidRequestError("rule has no source")
	}
	ns := r.withDefaults().Namespace
	if strings.Contains(ns, keySeparator) {
		return errors.NewInvalidRequestError("rule %s: namespace %q must not contain %q", r.Source, ns, keySeparator)
	}
	if ns == ignoredPrefix {
		return errors.NewInvalidRequestError("rule %s: namespace %q is reserved", r.Source, ignoredPrefix)
	}
	switch r.Mode {
	case "", ModeTransition, ModePresence:
	default:
		return errors.NewInvalidRequestError("rule %s: unknown mode %q", r.Source, r.Mode)
	}
	switch r.KeyBy {
	case "", KeyByName, KeyBySlug, KeyByHandle:
	default:
		return errors.NewInvalidRequestError("rule %s: unknown key strategy %q", r.Source, r.KeyBy)
	}
	return nil
}

// Decide applies the rule to a normalized observation. Pure.
//
// A name missing a required marker is excluded outright. A name carrying a
// forbidden marker is kept for bookkeeping under a segregated key and is
// never alert-eligible.
func (r Rule) Decide(obs Observation) Decision {
	r = r.withDefaults()
	name := strings.ToLower(obs.Name)

	for _, m := range r.Require {
		if !strings.Contains(name, strings.ToLower(m)) {
			return Decision{Reason: "missing required marker " + quote(m)}
		}
	}

	identity := r.identity(obs)
	if identity == "" {
		return Decision{Reason: "empty identity"}
	}

	for _, m := range r.Forbid {
		if strings.Contains(name, strings.ToLower(m)) {
			reason := "forbidden marker " + quote(m)
			if r.SkipIgnored {
				return Decision{Reason: reason}
			}
			return Decision{
				Tracked: true,
				Key:     NewIgnoredKey(r.Namespace, identity),
				Reason:  reason,
			}
		}
	}

	return Decision{
		Tracked:       true,
		Key:           NewKey(r.Namespace, identity),
		AlertEligible: true,
	}
}

func (r Rule) identity(obs Observation) string {
	switch r.KeyBy {
	case KeyBySlug:
		return Slug(obs.Name)
	case KeyByHandle:
		if obs.Identity != "" {
			return obs.Identity
		}
	}
	return obs.Name
}

func quote(s string) string { return `"` + s + `"` }
