package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"tidbyt.dev/gtfsgraph/model"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStorage struct {
	SQLiteConfig

	db *sql.DB
}

type SQLiteGraphWriter struct {
	id        string
	tx        *sql.Tx
	nodeQuery *sql.Stmt
	edgeQuery *sql.Stmt
	nodeSeq   int
	edgeSeq   int
}

type SQLiteGraphReader struct {
	id string
	db *sql.DB
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		sourceName = filepath.Join(directory, "gtfsgraph.db")
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS export (
    id TEXT NOT NULL,
    source TEXT NOT NULL,
    output TEXT NOT NULL,
    route_types TEXT NOT NULL,
    node_count INTEGER NOT NULL,
    edge_count INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL,
PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS node (
    export_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    id TEXT NOT NULL,
    label TEXT NOT NULL,
    lat REAL NOT NULL,
    lon REAL NOT NULL,
PRIMARY KEY (export_id, id)
);

CREATE TABLE IF NOT EXISTS edge (
    export_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    source TEXT NOT NULL,
    target TEXT NOT NULL,
    color TEXT NOT NULL,
PRIMARY KEY (export_id, source, target)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db: db,
	}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) ListExports(filter ListExportsFilter) ([]*ExportMetadata, error) {
	query := `
SELECT
    id,
    source,
    output,
    route_types,
    node_count,
    edge_count,
    created_at
FROM export`

	params := []interface{}{}
	if filter.Source != "" {
		query += " WHERE source = ?"
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}

	return exports, nil
}

func (s *SQLiteStorage) WriteExportMetadata(metadata *ExportMetadata) error {
	_, err := s.db.Exec(`
INSERT INTO export (
    id,
    source,
    output,
    route_types,
    node_count,
    edge_count,
    created_at
)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    source = excluded.source,
    output = excluded.output,
    route_types = excluded.route_types,
    node_count = excluded.node_count,
    edge_count = excluded.edge_count,
    created_at = excluded.created_at
`,
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

func (s *SQLiteStorage) DeleteExport(exportID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM node WHERE export_id = ?",
		"DELETE FROM edge WHERE export_id = ?",
		"DELETE FROM export WHERE id = ?",
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

func (s *SQLiteStorage) GetReader(exportID string) (GraphReader, error) {
	return &SQLiteGraphReader{id: exportID, db: s.db}, nil
}

// Starts a transaction holding the storage's only connection. The
// writer must be closed before the storage is used for anything
// else.
func (s *SQLiteStorage) GetWriter(exportID string) (GraphWriter, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}

	for _, table := range []string{"node", "edge"} {
		_, err = tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE export_id = ?", table), exportID)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	nodeQuery, err := tx.Prepare(`
INSERT INTO node (export_id, seq, id, label, lat, lon)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("preparing node insert: %w", err)
	}

	edgeQuery, err := tx.Prepare(`
INSERT INTO edge (export_id, seq, source, target, color)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		nodeQuery.Close()
		tx.Rollback()
		return nil, fmt.Errorf("preparing edge insert: %w", err)
	}

	return &SQLiteGraphWriter{
		id:        exportID,
		tx:        tx,
		nodeQuery: nodeQuery,
		edgeQuery: edgeQuery,
	}, nil
}

func (w *SQLiteGraphWriter) WriteNode(node *model.Node) error {
	_, err := w.nodeQuery.Exec(w.id, w.nodeSeq, node.ID, node.Label, node.Lat, node.Lon)
	if err != nil {
		return fmt.Errorf("inserting node: %w", err)
	}
	w.nodeSeq++
	return nil
}

func (w *SQLiteGraphWriter) WriteEdge(edge *model.Edge) error {
	_, err := w.edgeQuery.Exec(w.id, w.edgeSeq, edge.Source, edge.Target, edge.Color)
	if err != nil {
		return fmt.Errorf("inserting edge: %w", err)
	}
	w.edgeSeq++
	return nil
}

// Hands back the transaction, or nil if the writer is already
// closed or aborted.
func (w *SQLiteGraphWriter) finish() *sql.Tx {
	if w.tx == nil {
		return nil
	}
	tx := w.tx
	w.tx = nil

	w.nodeQuery.Close()
	w.edgeQuery.Close()

	return tx
}

func (w *SQLiteGraphWriter) Close() error {
	tx := w.finish()
	if tx == nil {
		return nil
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (w *SQLiteGraphWriter) Abort() error {
	tx := w.finish()
	if tx == nil {
		return nil
	}
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("rolling back: %w", err)
	}
	return nil
}

func (r *SQLiteGraphReader) Nodes() ([]*model.Node, error) {
	rows, err := r.db.Query(`
SELECT id, label, lat, lon
FROM node
WHERE export_id = ?
ORDER BY seq`, r.id)
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

func (r *SQLiteGraphReader) Edges() ([]*model.Edge, error) {
	rows, err := r.db.Query(`
SELECT source, target, color
FROM edge
WHERE export_id = ?
ORDER BY seq`, r.id)
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
