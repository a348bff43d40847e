package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/airealtor/recall/internal/core"
	"github.com/airealtor/recall/pkg/log"
)

type MemoryRepo struct {
	db *sql.DB
}

func NewMemoryRepo(db *sql.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

const nodeColumns = `id, session_id, node_type, summary, importance, payload, content_key, created_at, last_seen_at`

// SaveMemory writes the node and its links in a single transaction.
// An equivalent live or tombstoned node is refreshed in place, so the
// stored row keeps its original id and created_at.
func (r *MemoryRepo) SaveMemory(ctx context.Context, node *core.MemoryNode, links []core.MemoryLink) (*core.MemoryNode, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stored, err := upsertNode(ctx, tx, node)
	if err != nil {
		return nil, err
	}

	for _, link := range links {
		anchor, err := ensureAnchor(ctx, tx, link.Anchor)
		if err != nil {
			return nil, err
		}
		if anchor.ID == stored.ID {
			continue
		}
		if err := insertEdge(ctx, tx, &core.MemoryEdge{
			ID:        uuid.NewString(),
			SessionID: stored.SessionID,
			SourceID:  stored.ID,
			TargetID:  anchor.ID,
			Relation:  link.Relation,
			Weight:    link.Weight,
			CreatedAt: node.LastSeenAt,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Debug().
		Str("node_id", stored.ID).
		Str("node_type", string(stored.NodeType)).
		Int("links", len(links)).
		Msg("memory saved")
	return stored, nil
}

// upsertNode refreshes summary, payload, importance and last_seen_at on
// an equivalent row, and revives it if tombstoned. created_at survives.
func upsertNode(ctx context.Context, tx *sql.Tx, n *core.MemoryNode) (*core.MemoryNode, error) {
	query := `
		INSERT INTO memory_nodes (` + nodeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, node_type, content_key) DO UPDATE SET
			summary      = excluded.summary,
			importance   = excluded.importance,
			payload      = excluded.payload,
			last_seen_at = excluded.last_seen_at,
			deleted_at   = NULL`

	if _, err := tx.ExecContext(ctx, query,
		n.ID, n.SessionID, string(n.NodeType), n.Summary, n.Importance,
		payloadText(n.Payload), n.ContentKey, n.CreatedAt, n.LastSeenAt,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert node: %w", err)
	}

	return readNodeByKey(ctx, tx, n.SessionID, n.NodeType, n.ContentKey)
}

// ensureAnchor inserts the anchor if absent and otherwise only touches
// last_seen_at, so a richer summary or payload written earlier for the
// same entity is never clobbered by a passing reference.
func ensureAnchor(ctx context.Context, tx *sql.Tx, n *core.MemoryNode) (*core.MemoryNode, error) {
	query := `
		INSERT INTO memory_nodes (` + nodeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, node_type, content_key) DO UPDATE SET
			last_seen_at = excluded.last_seen_at,
			deleted_at   = NULL`

	if _, err := tx.ExecContext(ctx, query,
		n.ID, n.SessionID, string(n.NodeType), n.Summary, n.Importance,
		payloadText(n.Payload), n.ContentKey, n.CreatedAt, n.LastSeenAt,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert anchor: %w", err)
	}

	return readNodeByKey(ctx, tx, n.SessionID, n.NodeType, n.ContentKey)
}

func insertEdge(ctx context.Context, tx *sql.Tx, e *core.MemoryEdge) error {
	query := `
		INSERT INTO memory_edges (id, session_id, source_id, target_id, relation, weight, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, source_id, target_id, relation) DO UPDATE SET
			deleted_at = NULL`

	if _, err := tx.ExecContext(ctx, query,
		e.ID, e.SessionID, e.SourceID, e.TargetID, e.Relation, e.Weight, e.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

func readNodeByKey(ctx context.Context, tx *sql.Tx, sessionID string, nodeType core.NodeType, contentKey string) (*core.MemoryNode, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM memory_nodes WHERE session_id = ? AND node_type = ? AND content_key = ?`,
		sessionID, string(nodeType), contentKey,
	)
	return scanNode(row)
}

func (r *MemoryRepo) GetNode(ctx context.Context, sessionID, nodeID string) (*core.MemoryNode, []core.MemoryEdge, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM memory_nodes WHERE session_id = ? AND id = ? AND deleted_at IS NULL`,
		sessionID, nodeID,
	)
	node, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("%w: node %s", core.ErrNotFound, nodeID)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, source_id, target_id, relation, weight, created_at
		FROM memory_edges
		WHERE session_id = ? AND (source_id = ? OR target_id = ?) AND deleted_at IS NULL
		ORDER BY created_at, id`,
		sessionID, nodeID, nodeID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []core.MemoryEdge
	for rows.Next() {
		var e core.MemoryEdge
		if err := rows.Scan(&e.ID, &e.SessionID, &e.SourceID, &e.TargetID, &e.Relation, &e.Weight, &e.CreatedAt); err != nil {
			return nil, nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return node, edges, nil
}

// SaveEdge links two existing live nodes of the same session. Both
// endpoints must exist or core.ErrNotFound is returned.
func (r *MemoryRepo) SaveEdge(ctx context.Context, edge *core.MemoryEdge) (*core.MemoryEdge, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var live int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_nodes WHERE session_id = ? AND id IN (?, ?) AND deleted_at IS NULL`,
		edge.SessionID, edge.SourceID, edge.TargetID,
	).Scan(&live)
	if err != nil {
		return nil, fmt.Errorf("failed to check edge endpoints: %w", err)
	}
	if live != 2 {
		return nil, fmt.Errorf("%w: edge endpoints %s -> %s", core.ErrNotFound, edge.SourceID, edge.TargetID)
	}

	if err := insertEdge(ctx, tx, edge); err != nil {
		return nil, err
	}

	var stored core.MemoryEdge
	err = tx.QueryRowContext(ctx, `
		SELECT id, session_id, source_id, target_id, relation, weight, created_at
		FROM memory_edges
		WHERE session_id = ? AND source_id = ? AND target_id = ? AND relation = ?`,
		edge.SessionID, edge.SourceID, edge.TargetID, edge.Relation,
	).Scan(&stored.ID, &stored.SessionID, &stored.SourceID, &stored.TargetID, &stored.Relation, &stored.Weight, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read edge back: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ForgetNode tombstones the node and every edge touching it. The row
// stays behind so a later equivalent assertion revives it in place.
func (r *MemoryRepo) ForgetNode(ctx context.Context, sessionID, nodeID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	res, err := tx.ExecContext(ctx,
		`UPDATE memory_nodes SET deleted_at = ? WHERE session_id = ? AND id = ? AND deleted_at IS NULL`,
		now, sessionID, nodeID,
	)
	if err != nil {
		return fmt.Errorf("failed to tombstone node: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: node %s", core.ErrNotFound, nodeID)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE memory_edges SET deleted_at = ? WHERE session_id = ? AND (source_id = ? OR target_id = ?) AND deleted_at IS NULL`,
		now, sessionID, nodeID, nodeID,
	); err != nil {
		return fmt.Errorf("failed to tombstone edges: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.FromCtx(ctx).Debug().Str("node_id", nodeID).Msg("memory forgotten")
	return nil
}

func (r *MemoryRepo) CountSession(ctx context.Context, sessionID string) (core.SessionCounts, error) {
	var counts core.SessionCounts

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_nodes WHERE session_id = ? AND deleted_at IS NULL`,
		sessionID,
	).Scan(&counts.Nodes)
	if err != nil {
		return counts, fmt.Errorf("failed to count nodes: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_edges WHERE session_id = ? AND deleted_at IS NULL`,
		sessionID,
	).Scan(&counts.Edges)
	if err != nil {
		return counts, fmt.Errorf("failed to count edges: %w", err)
	}

	return counts, nil
}

// RecentNodes returns up to limit live nodes, most recently seen first.
// rowid breaks ties between writes that landed on the same timestamp.
func (r *MemoryRepo) RecentNodes(ctx context.Context, sessionID string, limit int) ([]core.MemoryNode, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM memory_nodes
		 WHERE session_id = ? AND deleted_at IS NULL
		 ORDER BY last_seen_at DESC, rowid DESC
		 LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent nodes: %w", err)
	}
	defer rows.Close()

	var nodes []core.MemoryNode
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return nodes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*core.MemoryNode, error) {
	var n core.MemoryNode
	var nodeType, payload string

	err := row.Scan(&n.ID, &n.SessionID, &nodeType, &n.Summary, &n.Importance,
		&payload, &n.ContentKey, &n.CreatedAt, &n.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan node: %w", err)
	}

	n.NodeType = core.NodeType(nodeType)
	if payload != "" && payload != "{}" {
		n.Payload = json.RawMessage(payload)
	}
	return &n, nil
}

func payloadText(p json.RawMessage) string {
	if len(p) == 0 {
		return "{}"
	}
	return string(p)
}
