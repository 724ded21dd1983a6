package stock

import (
	"strings"

	"github.com/teranos/restock/errors"
)

// Observation is one scraped product record for one scan cycle.
type Observation struct {
	Source     string // rule registry key, e.g. "predator-bk-rush"
	Name       string // display name as scraped
	StatusText string // raw status text, may be empty
	Link       string // product page, may be empty
	Identity   string // stable id supplied by the source (Shopify handle), may be empty
	Page       string // the page the record was scraped from
}

// Normalize trims whitespace and fills Link from Page when absent.
// An observation without a source or a name is malformed.
func (o Observation) Normalize() (Observation, error) {
	o.Source = strings.TrimSpace(o.Source)
	o.Name = strings.TrimSpace(o.Name)
	o.StatusText = strings.TrimSpace(o.StatusText)
	o.Link = strings.TrimSpace(o.Link)
	o.Identity = strings.TrimSpace(o.Identity)

	if o.Source == "" {
		return o, errors.Mark(errors.New("observation has no source"), errors.ErrMalformedObservation)
	}
	if o.Name == "" && o.Identity == "" {
		return o, errors.Mark(errors.Newf("observation from %s has no name", o.Source), errors.ErrMalformedObservation)
	}
	if o.Name == "" {
		o.Name = o.Identity
	}
	if o.Link == "" {
		o.Link = o.Page
	}
	return o, nil
}
