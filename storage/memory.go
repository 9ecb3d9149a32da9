package storage

import (
	"fmt"
	"sort"

	"tidbyt.dev/gtfsgraph/model"
)

// In memory implementation of Storage below

type MemoryStorage struct {
	Graphs   map[string]*MemoryStorageGraph
	Metadata map[string]*ExportMetadata
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		Graphs:   map[string]*MemoryStorageGraph{},
		Metadata: map[string]*ExportMetadata{},
	}
}

func (s *MemoryStorage) ListExports(filter ListExportsFilter) ([]*ExportMetadata, error) {
	exports := []*ExportMetadata{}
	for _, metadata := range s.Metadata {
		if filter.Source != "" && metadata.Source != filter.Source {
			continue
		}
		exports = append(exports, metadata)
	}
	sort.Slice(exports, func(i, j int) bool {
		return exports[i].CreatedAt.After(exports[j].CreatedAt)
	})
	return exports, nil
}

func (s *MemoryStorage) WriteExportMetadata(metadata *ExportMetadata) error {
	s.Metadata[metadata.ID] = metadata
	return nil
}

func (s *MemoryStorage) GetReader(exportID string) (GraphReader, error) {
	g, ok := s.Graphs[exportID]
	if !ok || !g.closed {
		return nil, fmt.Errorf("Graph not found")
	}
	return g, nil
}

// The graph replaces any previous one with the same ID when the
// writer is closed.
func (s *MemoryStorage) GetWriter(exportID string) (GraphWriter, error) {
	return &MemoryStorageGraph{
		id:      exportID,
		storage: s,
		nodes:   []*model.Node{},
		edges:   []*model.Edge{},
	}, nil
}

func (s *MemoryStorage) DeleteExport(exportID string) error {
	delete(s.Graphs, exportID)
	delete(s.Metadata, exportID)
	return nil
}

type MemoryStorageGraph struct {
	id      string
	storage *MemoryStorage
	nodes   []*model.Node
	edges   []*model.Edge
	closed  bool
}

func (g *MemoryStorageGraph) WriteNode(node *model.Node) error {
	n := *node
	g.nodes = append(g.nodes, &n)
	return nil
}

func (g *MemoryStorageGraph) WriteEdge(edge *model.Edge) error {
	e := *edge
	g.edges = append(g.edges, &e)
	return nil
}

func (g *MemoryStorageGraph) Close() error {
	if g.storage == nil {
		return nil
	}
	g.closed = true
	g.storage.Graphs[g.id] = g
	g.storage = nil
	return nil
}

func (g *MemoryStorageGraph) Abort() error {
	g.storage = nil
	g.nodes = nil
	g.edges = nil
	return nil
}

func (g *MemoryStorageGraph) Nodes() ([]*model.Node, error) {
	return g.nodes, nil
}

func (g *MemoryStorageGraph) Edges() ([]*model.Edge, error) {
	return g.edges, nil
}
