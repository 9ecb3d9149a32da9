package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"tidbyt.dev/gtfsgraph/model"
)

// Persists converted station graphs, so that they can be queried
// with SQL or compared across feed versions.
type Storage interface {
	// Retrieves all export records matching the given filter,
	// most recent first.
	ListExports(filter ListExportsFilter) ([]*ExportMetadata, error)

	// Writes an ExportMetadata record. If a record with the same
	// ID exists, it is updated.
	WriteExportMetadata(metadata *ExportMetadata) error

	// Gets a reader for the graph with the given export ID.
	GetReader(exportID string) (GraphReader, error)

	// Gets a writer for the graph with the given export ID.
	GetWriter(exportID string) (GraphWriter, error)

	// Removes an export and its graph. Removing an unknown export
	// is not an error.
	DeleteExport(exportID string) error
}

type ListExportsFilter struct {
	// If set, only include exports of the given data root.
	Source string
}

// Describes a single conversion run.
type ExportMetadata struct {
	ID         string
	Source     string
	Output     string
	RouteTypes string
	NodeCount  int
	EdgeCount  int
	CreatedAt  time.Time
}

// Writes the nodes and edges of a single graph. Nothing is visible
// to readers until Close() returns. Abort() discards everything
// written, leaving any previous graph with the same export ID as it
// was.
type GraphWriter interface {
	WriteNode(node *model.Node) error
	WriteEdge(edge *model.Edge) error
	Close() error
	Abort() error
}

// Reads a graph back, nodes and edges in the order written.
type GraphReader interface {
	Nodes() ([]*model.Node, error)
	Edges() ([]*model.Edge, error)
}

func NewExportID() string {
	return uuid.New().String()
}

// Writes g and its metadata to s. Metadata is written last, so
// listed exports are always complete. On failure nothing of the
// export is left in s.
func Export(s Storage, metadata *ExportMetadata, g *model.Graph) error {
	writer, err := s.GetWriter(metadata.ID)
	if err != nil {
		return fmt.Errorf("getting writer: %w", err)
	}

	if err := writeGraph(writer, g); err != nil {
		if abortErr := writer.Abort(); abortErr != nil {
			return fmt.Errorf("%w (aborting: %v)", err, abortErr)
		}
		return err
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing graph writer: %w", err)
	}

	metadata.NodeCount = len(g.Nodes)
	metadata.EdgeCount = len(g.Edges)
	if err := s.WriteExportMetadata(metadata); err != nil {
		if deleteErr := s.DeleteExport(metadata.ID); deleteErr != nil {
			return fmt.Errorf("writing export metadata: %w (deleting export: %v)", err, deleteErr)
		}
		return fmt.Errorf("writing export metadata: %w", err)
	}

	return nil
}

func writeGraph(writer GraphWriter, g *model.Graph) error {
	for i := range g.Nodes {
		if err := writer.WriteNode(&g.Nodes[i]); err != nil {
			return fmt.Errorf("writing node '%s': %w", g.Nodes[i].ID, err)
		}
	}

	for i := range g.Edges {
		if err := writer.WriteEdge(&g.Edges[i]); err != nil {
			return fmt.Errorf("writing edge '%s'-'%s': %w", g.Edges[i].Source, g.Edges[i].Target, err)
		}
	}

	return nil
}
