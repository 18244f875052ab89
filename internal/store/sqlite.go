package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/geotree/internal/constants"
	"github.com/nvandessel/geotree/internal/geo"
	"github.com/nvandessel/geotree/internal/pathutil"
	"github.com/nvandessel/geotree/internal/tree"
)

// SQLiteSnapshotStore implements SnapshotStore on a SQLite database.
type SQLiteSnapshotStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteSnapshotStore opens or creates the database at dbPath.
func NewSQLiteSnapshotStore(dbPath string) (*SQLiteSnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory for %s: %w", pathutil.RedactPath(dbPath), err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema in %s: %w", pathutil.RedactPath(dbPath), err)
	}

	return &SQLiteSnapshotStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteSnapshotStore) Path() string {
	return s.dbPath
}

// Save writes run and all of its nodes in one transaction. Saving a run
// whose id already exists replaces it.
func (s *SQLiteSnapshotStore) Save(ctx context.Context, run *Run) (string, error) {
	if err := prepareRun(run); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return "", fmt.Errorf("failed to replace run: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, mode, reconcile_sibling_parents, zero_floor, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, string(run.Mode), run.ReconcileSiblingParents, run.ZeroFloor, run.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	childSeq := make(map[tree.NodeID]int)
	for _, rec := range run.Snapshot.Nodes {
		for i, child := range rec.Children {
			childSeq[child] = i
		}
	}

	for seq, rec := range run.Snapshot.Nodes {
		var parent, position sql.NullInt64
		if rec.Parent != nil {
			parent = sql.NullInt64{Int64: int64(*rec.Parent), Valid: true}
			position = sql.NullInt64{Int64: int64(childSeq[rec.ID]), Valid: true}
		}
		var prohibited sql.NullString
		if len(rec.Prohibited) > 0 {
			data, err := json.Marshal(rec.Prohibited)
			if err != nil {
				return "", fmt.Errorf("failed to encode prohibitions of node %d: %w", rec.ID, err)
			}
			prohibited = sql.NullString{String: string(data), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_nodes (run_id, node_id, seq, parent_id, child_seq, aggregate, prohibited)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID, int64(rec.ID), seq, parent, position, rec.Aggregate, prohibited)
		if err != nil {
			return "", fmt.Errorf("failed to insert node %d: %w", rec.ID, err)
		}

		for _, pc := range rec.Correlations {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO run_correlations (run_id, node_id, peer_id, relation, score, anchor_x, anchor_y, anchor_z)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, run.ID, int64(rec.ID), int64(pc.Peer), pc.Relation.String(), pc.Score,
				pc.Anchor.X, pc.Anchor.Y, pc.Anchor.Z)
			if err != nil {
				return "", fmt.Errorf("failed to insert correlation %d-%d: %w", rec.ID, pc.Peer, err)
			}
		}
	}

	for seq, root := range run.Snapshot.Roots {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_roots (run_id, seq, node_id) VALUES (?, ?, ?)`,
			run.ID, seq, int64(root)); err != nil {
			return "", fmt.Errorf("failed to insert root %d: %w", root, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

// Get loads the run with id.
func (s *SQLiteSnapshotStore) Get(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run := &Run{ID: id}
	var mode, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT mode, reconcile_sibling_parents, zero_floor, created_at FROM runs WHERE id = ?
	`, id).Scan(&mode, &run.ReconcileSiblingParents, &run.ZeroFloor, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	run.Mode = constants.SiblingMode(mode)
	if run.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at for run %s: %w", id, err)
	}

	nodes, err := s.loadNodes(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.loadCorrelations(ctx, id, nodes); err != nil {
		return nil, err
	}
	roots, err := s.loadRoots(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Snapshot = tree.Snapshot{Roots: roots, Nodes: nodes}
	return run, nil
}

// loadNodes reads a run's nodes in insertion order and rebuilds each
// node's children from the parent links.
func (s *SQLiteSnapshotStore) loadNodes(ctx context.Context, runID string) ([]tree.NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, parent_id, aggregate, prohibited
		FROM run_nodes WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []tree.NodeRecord
	index := make(map[tree.NodeID]int)
	for rows.Next() {
		var (
			id         int64
			parent     sql.NullInt64
			rec        tree.NodeRecord
			prohibited sql.NullString
		)
		if err := rows.Scan(&id, &parent, &rec.Aggregate, &prohibited); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		rec.ID = tree.NodeID(uint64(id))
		if parent.Valid {
			p := tree.NodeID(uint64(parent.Int64))
			rec.Parent = &p
		}
		if prohibited.Valid {
			if err := json.Unmarshal([]byte(prohibited.String), &rec.Prohibited); err != nil {
				return nil, fmt.Errorf("invalid prohibitions for node %d: %w", rec.ID, err)
			}
		}
		index[rec.ID] = len(nodes)
		nodes = append(nodes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	childRows, err := s.db.QueryContext(ctx, `
		SELECT parent_id, node_id FROM run_nodes
		WHERE run_id = ? AND parent_id IS NOT NULL
		ORDER BY parent_id, child_seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer childRows.Close()

	for childRows.Next() {
		var parent, child int64
		if err := childRows.Scan(&parent, &child); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		i, ok := index[tree.NodeID(uint64(parent))]
		if !ok {
			return nil, fmt.Errorf("node %d has unknown parent %d", child, parent)
		}
		nodes[i].Children = append(nodes[i].Children, tree.NodeID(uint64(child)))
	}
	return nodes, childRows.Err()
}

// loadCorrelations attaches each node's correlations ordered by peer id.
func (s *SQLiteSnapshotStore) loadCorrelations(ctx context.Context, runID string, nodes []tree.NodeRecord) error {
	index := make(map[tree.NodeID]int, len(nodes))
	for i, rec := range nodes {
		index[rec.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, peer_id, relation, score, anchor_x, anchor_y, anchor_z
		FROM run_correlations WHERE run_id = ? ORDER BY node_id, peer_id
	`, runID)
	if err != nil {
		return fmt.Errorf("failed to query correlations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			node, peer int64
			relation   string
			pc         tree.PeerCorrelation
			anchor     geo.Point
		)
		if err := rows.Scan(&node, &peer, &relation, &pc.Score, &anchor.X, &anchor.Y, &anchor.Z); err != nil {
			return fmt.Errorf("failed to scan correlation: %w", err)
		}
		if pc.Relation, err = tree.ParseRelation(relation); err != nil {
			return fmt.Errorf("correlation %d-%d: %w", node, peer, err)
		}
		pc.Peer = tree.NodeID(uint64(peer))
		pc.Anchor = anchor
		i, ok := index[tree.NodeID(uint64(node))]
		if !ok {
			return fmt.Errorf("correlation references unknown node %d", node)
		}
		nodes[i].Correlations = append(nodes[i].Correlations, pc)
	}
	return rows.Err()
}

func (s *SQLiteSnapshotStore) loadRoots(ctx context.Context, runID string) ([]tree.NodeID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id FROM run_roots WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roots: %w", err)
	}
	defer rows.Close()

	var roots []tree.NodeID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan root: %w", err)
		}
		roots = append(roots, tree.NodeID(uint64(id)))
	}
	return roots, rows.Err()
}

// List returns every run, newest first.
func (s *SQLiteSnapshotStore) List(ctx context.Context) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.mode, r.created_at,
			(SELECT COUNT(*) FROM run_nodes n WHERE n.run_id = r.id),
			(SELECT COUNT(*) FROM run_roots t WHERE t.run_id = r.id)
		FROM runs r
		ORDER BY r.created_at DESC, r.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			sum             RunSummary
			mode, createdAt string
		)
		if err := rows.Scan(&sum.ID, &mode, &createdAt, &sum.Nodes, &sum.Roots); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		sum.Mode = constants.SiblingMode(mode)
		if sum.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at for run %s: %w", sum.ID, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a run; its nodes, roots and correlations cascade.
func (s *SQLiteSnapshotStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteSnapshotStore) Close() error {
	return s.db.Close()
}
