package graph

import (
	"tidbyt.dev/gtfsgraph/model"
	"tidbyt.dev/gtfsgraph/station"
)

// Counts of raw edges that didn't make it into the graph.
type Stats struct {
	// An endpoint missing from stops.txt, or with an empty
	// identity.
	Unresolved int

	// An endpoint is a discarded station.
	Discarded int

	// Both endpoints are the same station.
	Loops int

	// Same station pair as an earlier edge.
	Duplicates int
}

type edgeKey struct {
	a string
	b string
}

func newEdgeKey(a, b string) edgeKey {
	if b < a {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Builds the undirected station graph from raw stop-to-stop edges.
//
// Edges are emitted in the order their station pair first appears
// in raw, with the first color seen for the pair. Edges touching a
// station that isn't a node are dropped, so every edge endpoint is a
// node.
func Build(raw []model.RawEdge, stations *station.Stations) (*model.Graph, Stats) {
	stats := Stats{}

	g := &model.Graph{
		Nodes: append([]model.Node{}, stations.Nodes...),
		Edges: []model.Edge{},
	}

	used := map[edgeKey]bool{}
	for _, e := range raw {
		from, fromFound := stations.Lookup[e.From]
		to, toFound := stations.Lookup[e.To]
		if !fromFound || !toFound || from == "" || to == "" {
			stats.Unresolved++
			continue
		}

		if stations.Discarded[from] || stations.Discarded[to] {
			stats.Discarded++
			continue
		}

		if !stations.Has(from) || !stations.Has(to) {
			stats.Unresolved++
			continue
		}

		if from == to {
			stats.Loops++
			continue
		}

		key := newEdgeKey(from, to)
		if used[key] {
			stats.Duplicates++
			continue
		}
		used[key] = true

		g.Edges = append(g.Edges, model.Edge{
			Source: key.a,
			Target: key.b,
			Color:  e.Color,
		})
	}

	return g, stats
}
