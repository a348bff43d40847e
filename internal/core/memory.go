package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// NodeType is the closed set of memory categories the service accepts.
type NodeType string

const (
	NodeFact        NodeType = "fact"
	NodePreference  NodeType = "preference"
	NodeDecision    NodeType = "decision"
	NodeIdentity    NodeType = "identity"
	NodeEvent       NodeType = "event"
	NodeObservation NodeType = "observation"
	NodeGoal        NodeType = "goal"
	NodeTodo        NodeType = "todo"
)

func (t NodeType) IsValid() bool {
	switch t {
	case NodeFact, NodePreference, NodeDecision, NodeIdentity,
		NodeEvent, NodeObservation, NodeGoal, NodeTodo:
		return true
	}
	return false
}

func (t NodeType) String() string {
	return string(t)
}

// importanceByType holds the fixed importance score assigned to each node
// type at creation. Goals are the exception: their score comes from the
// priority tier, see GoalPriority.Importance.
var importanceByType = map[NodeType]float64{
	NodeFact:        0.75,
	NodePreference:  0.85,
	NodeDecision:    0.95,
	NodeIdentity:    0.92,
	NodeEvent:       0.88,
	NodeObservation: 0.82,
	NodeGoal:        0.95,
	NodeTodo:        0.90,
}

// Importance returns the fixed score for the type.
func (t NodeType) Importance() float64 {
	return importanceByType[t]
}

// GoalPriority modulates the importance of goal memories.
type GoalPriority string

const (
	GoalPriorityLow    GoalPriority = "low"
	GoalPriorityMedium GoalPriority = "medium"
	GoalPriorityHigh   GoalPriority = "high"
)

// Importance maps a priority tier to a goal importance score. The highest
// tier pins the score at 1.0; an empty priority falls back to medium.
func (p GoalPriority) Importance() (float64, error) {
	switch p {
	case GoalPriorityLow:
		return 0.90, nil
	case GoalPriorityMedium, "":
		return 0.95, nil
	case GoalPriorityHigh:
		return 1.0, nil
	}
	return 0, fmt.Errorf("%w: unknown goal priority %q", ErrValidation, string(p))
}

// MemoryNode is one remembered item, scoped to a single session.
type MemoryNode struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"session_id"`
	NodeType   NodeType        `json:"node_type"`
	Summary    string          `json:"summary"`
	Importance float64         `json:"importance"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ContentKey string          `json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
	LastSeenAt time.Time       `json:"last_seen_at"`
}

// MemoryEdge is a directed, weighted link between two nodes of the same
// session. Edges reference their endpoints, they do not own them.
type MemoryEdge struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	Relation  string    `json:"relation"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"created_at"`
}

// EntityRef names a CRM entity (contact, property, ...) referenced by a
// memory operation.
type EntityRef struct {
	Type string `json:"entity_type"`
	ID   string `json:"entity_id"`
}

func (r EntityRef) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

func (r EntityRef) String() string {
	return r.Type + ":" + r.ID
}

// MemoryLink pairs an identity anchor node with the relation that ties a
// new memory to it. The anchor is upserted alongside the memory so an edge
// always has a live target.
type MemoryLink struct {
	Anchor   *MemoryNode
	Relation string
	Weight   float64
}

// SessionSummary is the bounded, recency-biased view of one session.
type SessionSummary struct {
	SessionID   string       `json:"session_id"`
	NodeCount   int64        `json:"node_count"`
	EdgeCount   int64        `json:"edge_count"`
	RecentNodes []MemoryNode `json:"recent_nodes"`
}

// SessionCounts carries live node and edge totals for a session.
type SessionCounts struct {
	Nodes int64
	Edges int64
}

// ContentKey reduces text to its equivalence key: lowercase, whitespace
// collapsed, SHA-256 hashed. Two memories of the same session and type with
// equal keys are the same memory.
func ContentKey(text string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// EntityContentKey keys identity nodes by the entity they represent rather
// than by display text, so re-asserting an entity with changed details
// updates the existing node.
func EntityContentKey(ref EntityRef) string {
	return ContentKey(ref.Type + ":" + ref.ID)
}
