package core

import "context"

// MemoryRepository is the durable store behind the memory graph. All
// methods are session-scoped; implementations must never let one session's
// rows leak into another's results.
type MemoryRepository interface {
	// SaveMemory upserts the node by its equivalence key and, in the same
	// transaction, upserts each link's anchor node and the edge to it.
	// Returns the stored node, with id and created_at preserved when the
	// write landed on an existing row.
	SaveMemory(ctx context.Context, node *MemoryNode, links []MemoryLink) (*MemoryNode, error)

	// GetNode returns a live node and every live edge touching it.
	GetNode(ctx context.Context, sessionID, nodeID string) (*MemoryNode, []MemoryEdge, error)

	// SaveEdge inserts an explicit edge between two existing live nodes of
	// the session. Re-asserting the same (source, target, relation) is a
	// no-op returning the stored edge.
	SaveEdge(ctx context.Context, edge *MemoryEdge) (*MemoryEdge, error)

	// ForgetNode tombstones the node and every edge touching it.
	ForgetNode(ctx context.Context, sessionID, nodeID string) error

	// CountSession reports live node and edge totals.
	CountSession(ctx context.Context, sessionID string) (SessionCounts, error)

	// RecentNodes returns up to limit live nodes, most recently seen first.
	RecentNodes(ctx context.Context, sessionID string, limit int) ([]MemoryNode, error)
}
