package storage

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"tidbyt.dev/gtfsgraph/model"
)

type PSQLStorage struct {
	db *sql.DB
}

// Buffers the graph and writes it with COPY on Close().
type PSQLGraphWriter struct {
	id      string
	db      *sql.DB
	nodeBuf []model.Node
	edgeBuf []model.Edge
}

type PSQLGraphReader struct {
	id string
	db *sql.DB
}

// Creates a new Postgres Storage using the provided connection string.
//
// If clearDB is true, the database will be cleared on startup. You
// probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*PSQLStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if clearDB {
		_, err = db.Exec(`
DROP TABLE IF EXISTS export;
DROP TABLE IF EXISTS node;
DROP TABLE IF EXISTS edge;
`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("clearing db: %w", err)
		}
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS export (
    id TEXT NOT NULL,
    source TEXT NOT NULL,
    output TEXT NOT NULL,
    route_types TEXT NOT NULL,
    node_count INTEGER NOT NULL,
    edge_count INTEGER NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS node (
    export_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    id TEXT NOT NULL,
    label TEXT NOT NULL,
    lat DOUBLE PRECISION NOT NULL,
    lon DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (export_id, id)
);

CREATE TABLE IF NOT EXISTS edge (
    export_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    source TEXT NOT NULL,
    target TEXT NOT NULL,
    color TEXT NOT NULL,
    PRIMARY KEY (export_id, source, target)
);
`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &PSQLStorage{db: db}, nil
}

func (s *PSQLStorage) Close() error {
	return s.db.Close()
}

func (s *PSQLStorage) ListExports(filter ListExportsFilter) ([]*ExportMetadata, error) {
	query := `
SELECT id, source, output, route_types, node_count, edge_count, created_at
FROM export`

	params := []interface{}{}
	if filter.Source != "" {
		query += " WHERE source = $1"
		params = append(params, filter.Source)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}
	defer rows.Close()

	exports := []*ExportMetadata{}
	for rows.Next() {
		var export ExportMetadata
		err := rows.Scan(
			&export.ID,
			&export.Source,
			&export.Output,
			&export.RouteTypes,
			&export.NodeCount,
			&export.EdgeCount,
			&export.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning export: %w", err)
		}
		exports = append(exports, &export)
	}

	return exports, rows.Err()
}

func (s *PSQLStorage) WriteExportMetadata(metadata *ExportMetadata) error {
	_, err := s.db.Exec(`
INSERT INTO export (id, source, output, route_types, node_count, edge_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    source = EXCLUDED.source,
    output = EXCLUDED.output,
    route_types = EXCLUDED.route_types,
    node_count = EXCLUDED.node_count,
    edge_count = EXCLUDED.edge_count,
    created_at = EXCLUDED.created_at`,
		metadata.ID,
		metadata.Source,
		metadata.Output,
		metadata.RouteTypes,
		metadata.NodeCount,
		metadata.EdgeCount,
		metadata.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("writing export metadata: %w", err)
	}
	return nil
}

func (s *PSQLStorage) DeleteExport(exportID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM node WHERE export_id = $1",
		"DELETE FROM edge WHERE export_id = $1",
		"DELETE FROM export WHERE id = $1",
	} {
		if _, err := tx.Exec(stmt, exportID); err != nil {
			return fmt.Errorf("deleting export: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (s *PSQLStorage) GetReader(exportID string) (GraphReader, error) {
	return &PSQLGraphReader{id: exportID, db: s.db}, nil
}

func (s *PSQLStorage) GetWriter(exportID string) (GraphWriter, error) {
	return &PSQLGraphWriter{id: exportID, db: s.db}, nil
}

func (w *PSQLGraphWriter) WriteNode(node *model.Node) error {
	w.nodeBuf = append(w.nodeBuf, *node)
	return nil
}

func (w *PSQLGraphWriter) WriteEdge(edge *model.Edge) error {
	w.edgeBuf = append(w.edgeBuf, *edge)
	return nil
}

func (w *PSQLGraphWriter) Close() error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"node", "edge"} {
		_, err = tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE export_id = $1", table), w.id)
		if err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	stmt, err := tx.Prepare(pq.CopyIn("node", "export_id", "seq", "id", "label", "lat", "lon"))
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	for i, n := range w.nodeBuf {
		_, err = stmt.Exec(w.id, i, n.ID, n.Label, n.Lat, n.Lon)
		if err != nil {
			stmt.Close()
			return fmt.Errorf("COPY node: %w", err)
		}
	}
	if _, err = stmt.Exec(); err != nil {
		stmt.Close()
		return fmt.Errorf("executing statement: %w", err)
	}
	stmt.Close()

	stmt, err = tx.Prepare(pq.CopyIn("edge", "export_id", "seq", "source", "target", "color"))
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	for i, e := range w.edgeBuf {
		_, err = stmt.Exec(w.id, i, e.Source, e.Target, e.Color)
		if err != nil {
			stmt.Close()
			return fmt.Errorf("COPY edge: %w", err)
		}
	}
	if _, err = stmt.Exec(); err != nil {
		stmt.Close()
		return fmt.Errorf("executing statement: %w", err)
	}
	stmt.Close()

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	w.nodeBuf = nil
	w.edgeBuf = nil

	return nil
}

// Nothing reaches the database before Close(), so dropping the
// buffers is enough.
func (w *PSQLGraphWriter) Abort() error {
	w.nodeBuf = nil
	w.edgeBuf = nil
	return nil
}

func (r *PSQLGraphReader) Nodes() ([]*model.Node, error) {
	rows, err := r.db.Query(`
SELECT id, label, lat, lon FROM node WHERE export_id = $1 ORDER BY seq`, r.id)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	nodes := []*model.Node{}
	for rows.Next() {
		n := &model.Node{}
		if err := rows.Scan(&n.ID, &n.Label, &n.Lat, &n.Lon); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		nodes = append(nodes, n)
	}

	return nodes, rows.Err()
}

func (r *PSQLGraphReader) Edges() ([]*model.Edge, error) {
	rows, err := r.db.Query(`
SELECT source, target, color FROM edge WHERE export_id = $1 ORDER BY seq`, r.id)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	edges := []*model.Edge{}
	for rows.Next() {
		e := &model.Edge{}
		if err := rows.Scan(&e.Source, &e.Target, &e.Color); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		edges = append(edges, e)
	}

	return edges, rows.Err()
}
