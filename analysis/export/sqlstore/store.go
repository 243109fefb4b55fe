// Package sqlstore persists ICFGs in a SQLite database so that other tools
// can query them with SQL.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cs-au-dk/icfg/analysis/export"
	"github.com/cs-au-dk/icfg/analysis/icfg"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id       INTEGER PRIMARY KEY,
	label    TEXT NOT NULL,
	repr     TEXT NOT NULL,
	kind     TEXT NOT NULL,
	function TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS edges (
	seq  INTEGER PRIMARY KEY,
	src  INTEGER NOT NULL REFERENCES nodes(id),
	dst  INTEGER NOT NULL REFERENCES nodes(id),
	kind TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS edges_src ON edges(src);
CREATE INDEX IF NOT EXISTS edges_dst ON edges(dst);
`

// Store is a SQLite database holding a single ICFG.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. The path ":memory:" gives a
// private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Every connection to ":memory:" is a distinct database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Write replaces the stored graph with g in a single transaction.
func (s *Store) Write(ctx context.Context, g *icfg.Graph) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range []string{"DELETE FROM edges", "DELETE FROM nodes"} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	insNode, err := tx.PrepareContext(ctx,
		"INSERT INTO nodes (id, label, repr, kind, function) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer insNode.Close()

	for _, n := range g.Nodes() {
		if _, err = insNode.ExecContext(ctx,
			int(n.ID()), n.Label(), n.Repr(), n.Kind().String(), n.Function().String()); err != nil {
			return fmt.Errorf("inserting %s: %w", n, err)
		}
	}

	insEdge, err := tx.PrepareContext(ctx,
		"INSERT INTO edges (seq, src, dst, kind) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer insEdge.Close()

	for i, e := range g.Edges() {
		if _, err = insEdge.ExecContext(ctx, i, int(e.Src), int(e.Dst), e.Kind.String()); err != nil {
			return fmt.Errorf("inserting %s: %w", e, err)
		}
	}

	return tx.Commit()
}

// Read loads the stored graph in its structured export form, nodes ordered by
// id and edges in their original order.
func (s *Store) Read(ctx context.Context) (*export.JSONGraph, error) {
	out := &export.JSONGraph{
		Nodes: []export.JSONNode{},
		Edges: []export.JSONEdge{},
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, label, repr FROM nodes ORDER BY id")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var n export.JSONNode
		if err := rows.Scan(&n.ID, &n.Label, &n.Repr); err != nil {
			rows.Close()
			return nil, err
		}
		out.Nodes = append(out.Nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT src, dst, kind FROM edges ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e export.JSONEdge
		if err := rows.Scan(&e.Src, &e.Dst, &e.Kind); err != nil {
			return nil, err
		}
		out.Edges = append(out.Edges, e)
	}
	return out, rows.Err()
}

// CountByKind reports the number of stored nodes of every kind.
func (s *Store) CountByKind(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM nodes GROUP BY kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

// Callees lists the functions entered by call edges leaving the given function.
func (s *Store) Callees(ctx context.Context, fun icfg.Identity) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT callee.function
		FROM edges
		JOIN nodes AS caller ON caller.id = edges.src
		JOIN nodes AS callee ON callee.id = edges.dst
		WHERE edges.kind = ? AND caller.function = ?
		ORDER BY callee.function`, icfg.Call.String(), fun.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var callees []string
	for rows.Next() {
		var callee string
		if err := rows.Scan(&callee); err != nil {
			return nil, err
		}
		callees = append(callees, callee)
	}
	return callees, rows.Err()
}
