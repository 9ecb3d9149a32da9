// Package station maps GTFS stops onto stations, the nodes of the
// output graph.
//
// Every stop gets a canonical identity: its stop_id or stop_name
// (depending on Policy), normalized, then looked up in a merge
// table. Stops sharing a canonical identity become a single
// station. Identities in the discard set yield no station at all.
package station

import (
	"strings"

	"tidbyt.dev/gtfsgraph/model"
)

type KeySource int

const (
	KeyStopID KeySource = iota
	KeyStopName
)

type Policy struct {
	Key KeySource

	// If non-empty, only the text before the first Separator is
	// kept.
	Separator string

	// Number of trailing characters dropped from the key.
	StripSuffix int

	// Normalized key -> canonical identity.
	Merge map[string]string

	// Canonical identities to exclude.
	Discard map[string]bool
}

// Maps a raw stop id or name to its normalized form.
func (p Policy) Normalize(key string) string {
	if p.Separator != "" {
		key, _, _ = strings.Cut(key, p.Separator)
	}
	key = strings.TrimSpace(key)

	if p.StripSuffix > 0 {
		runes := []rune(key)
		if p.StripSuffix >= len(runes) {
			return ""
		}
		key = string(runes[:len(runes)-p.StripSuffix])
	}

	return key
}

// Canonical identity of a stop. Empty if the stop can't be
// identified.
func (p Policy) Identity(stop *model.Stop) string {
	key := stop.ID
	if p.Key == KeyStopName {
		key = stop.Name
	}

	normalized := p.Normalize(key)
	if merged, found := p.Merge[normalized]; found {
		return merged
	}
	return normalized
}

type Stations struct {
	// One node per canonical identity, in order of first
	// appearance.
	Nodes []model.Node

	// Every resolved stop_id -> canonical identity, discarded
	// stations included.
	Lookup map[string]string

	// Identities of discarded stations that were seen.
	Discarded map[string]bool

	node map[string]bool
}

// Whether the identity is a node of the graph.
func (s *Stations) Has(identity string) bool {
	return s.node[identity]
}

type Resolver struct {
	policy Policy
}

func NewResolver(policy Policy) *Resolver {
	if policy.Merge == nil {
		policy.Merge = map[string]string{}
	}
	if policy.Discard == nil {
		policy.Discard = map[string]bool{}
	}
	return &Resolver{policy: policy}
}

// Resolves stops into stations. The first stop of each identity
// decides the station's coordinates and label.
func (r *Resolver) Resolve(stops []*model.Stop) *Stations {
	stations := &Stations{
		Nodes:     []model.Node{},
		Lookup:    map[string]string{},
		Discarded: map[string]bool{},
		node:      map[string]bool{},
	}

	for _, stop := range stops {
		identity := r.policy.Identity(stop)
		if identity == "" {
			continue
		}

		stations.Lookup[stop.ID] = identity

		if r.policy.Discard[identity] {
			stations.Discarded[identity] = true
			continue
		}

		if stations.node[identity] {
			continue
		}
		stations.node[identity] = true

		label := identity
		if r.policy.Key == KeyStopID && stop.Name != "" {
			label = stop.Name
		}

		stations.Nodes = append(stations.Nodes, model.Node{
			ID:    identity,
			Label: label,
			Lat:   stop.Lat,
			Lon:   stop.Lon,
		})
	}

	return stations
}
