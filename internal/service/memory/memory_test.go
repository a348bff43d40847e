package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airealtor/recall/internal/core"
	"github.com/airealtor/recall/internal/storage/sqlite"
)

// newTestMemory runs the service over a real store in a temp directory, so
// the tests cover the full remember path including the schema.
func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { db.Close() })
	return NewMemory(sqlite.NewMemoryRepo(db), nil)
}

func TestRemember_TypeAndImportance(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	conf := 0.7
	tests := []struct {
		name           string
		remember       func() (*core.MemoryNode, error)
		wantType       core.NodeType
		wantImportance float64
		wantSummary    string
	}{
		{
			name: "fact",
			remember: func() (*core.MemoryNode, error) {
				return svc.RememberFact(ctx, FactInput{SessionID: "s1", Fact: "Budget is 450k", Category: "financial"})
			},
			wantType:       core.NodeFact,
			wantImportance: 0.75,
			wantSummary:    "Budget is 450k",
		},
		{
			name: "preference",
			remember: func() (*core.MemoryNode, error) {
				return svc.RememberPreference(ctx, PreferenceInput{SessionID: "s1", Preference: "Needs a home office"})
			},
			wantType:       core.NodePreference,
			wantImportance: 0.85,
			wantSummary:    "Needs a home office",
		},
		{
			name: "decision",
			remember: func() (*core.MemoryNode, error) {
				return svc.RememberDecision(ctx, DecisionInput{SessionID: "s1", Decision: "Offer 440k", Context: "seller motivated"})
			},
			wantType:       core.NodeDecision,
			wantImportance: 0.95,
			wantSummary:    "Offer 440k",
		},
		{
			name: "identity",
			remember: func() (*core.MemoryNode, error) {
				return svc.RememberIdentity(ctx, IdentityInput{SessionID: "s1", EntityType: "contact", EntityID: "ct_1",
					IdentityData: map[string]any{"name": "Jane Doe"}})
			},
			wantType:       core.NodeIdentity,
			wantImportance: 0.92,
			wantSummary:    "Jane Doe",
		},
		{
			name: "event",
			remember: func() (*core.MemoryNode, error) {
				return svc.RememberEvent(ctx, EventInput{SessionID: "s1", EventType: "viewing", Description: "Toured the loft"})
			},
			wantType:       core.NodeEvent,
			wantImportance: 0.88,
			wantSummary:    "Toured the loft",
		},
		{
			name: "observation",
			remember: func() (*core.MemoryNode, error) {
				return svc.RememberObservation(ctx, ObservationInput{SessionID: "s1", Observation: "Hesitant about HOA fees", Confidence: &conf})
			},
			wantType:       core.NodeObservation,
			wantImportance: 0.82,
			wantSummary:    "Hesitant about HOA fees",
		},
		{
			name: "todo",
			remember: func() (*core.MemoryNode, error) {
				return svc.RememberTodo(ctx, TodoInput{SessionID: "s1", Task: "Send comps", DueAt: "2026-09-01T09:00:00Z"})
			},
			wantType:       core.NodeTodo,
			wantImportance: 0.90,
			wantSummary:    "Send comps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := tt.remember()
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, node.NodeType)
			assert.Equal(t, tt.wantImportance, node.Importance)
			assert.Equal(t, tt.wantSummary, node.Summary)
			assert.Equal(t, "s1", node.SessionID)
			assert.NotEmpty(t, node.ID)
			assert.False(t, node.CreatedAt.IsZero())
		})
	}
}

func TestRememberGoal_PriorityTiers(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	tests := []struct {
		priority       core.GoalPriority
		wantImportance float64
	}{
		{core.GoalPriorityLow, 0.90},
		{core.GoalPriorityMedium, 0.95},
		{"", 0.95},
		{core.GoalPriorityHigh, 1.0},
	}
	for i, tt := range tests {
		node, err := svc.RememberGoal(ctx, GoalInput{
			SessionID: "s1",
			Goal:      fmt.Sprintf("goal %d", i),
			Priority:  tt.priority,
		})
		require.NoError(t, err)
		assert.Equal(t, tt.wantImportance, node.Importance, "priority %q", tt.priority)
		assert.Equal(t, core.NodeGoal, node.NodeType)
	}

	_, err := svc.RememberGoal(ctx, GoalInput{SessionID: "s1", Goal: "bad tier", Priority: "urgent"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRememberAliases_StoredIdentically(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	objection, err := svc.RememberObjection(ctx, PreferenceInput{SessionID: "s1", Preference: "Too close to the highway"})
	require.NoError(t, err)
	direct, err := svc.RememberPreference(ctx, PreferenceInput{SessionID: "s2", Preference: "Too close to the highway"})
	require.NoError(t, err)

	assert.Equal(t, core.NodePreference, objection.NodeType)
	assert.Equal(t, direct.NodeType, objection.NodeType)
	assert.Equal(t, direct.Importance, objection.Importance)
	assert.JSONEq(t, string(direct.Payload), string(objection.Payload))

	promise, err := svc.RememberPromise(ctx, TodoInput{SessionID: "s1", Task: "Call back Tuesday"})
	require.NoError(t, err)
	assert.Equal(t, core.NodeTodo, promise.NodeType)
	assert.Equal(t, 0.90, promise.Importance)

	// An alias call that repeats a direct call lands on the same node.
	repeat, err := svc.RememberObjection(ctx, PreferenceInput{SessionID: "s2", Preference: "Too close to the highway"})
	require.NoError(t, err)
	assert.Equal(t, direct.ID, repeat.ID)
}

func TestUpsertByEquivalence(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	first, err := svc.RememberFact(ctx, FactInput{SessionID: "s1", Fact: "Roof replaced in 2019"})
	require.NoError(t, err)

	// Case and whitespace do not make a new memory.
	second, err := svc.RememberFact(ctx, FactInput{SessionID: "s1", Fact: "  ROOF   replaced in 2019 "})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.LastSeenAt.After(first.LastSeenAt), "last_seen_at must advance on re-assertion")

	summary, err := svc.SessionSummary(ctx, "s1", 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.NodeCount)

	// Same text under a different type is a different memory.
	obs, err := svc.RememberObservation(ctx, ObservationInput{SessionID: "s1", Observation: "Roof replaced in 2019"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, obs.ID)
}

func TestRememberPreference_EntityEdge(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	node, err := svc.RememberPreference(ctx, PreferenceInput{
		SessionID:  "s1",
		Preference: "Wants a south-facing garden",
		EntityType: "property",
		EntityID:   "prop_7",
	})
	require.NoError(t, err)

	_, edges, err := svc.GetNode(ctx, "s1", node.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "describes", edges[0].Relation)
	assert.Equal(t, 0.90, edges[0].Weight)
	assert.Equal(t, node.ID, edges[0].SourceID)

	// The edge points at an identity anchor for the entity.
	anchor, _, err := svc.GetNode(ctx, "s1", edges[0].TargetID)
	require.NoError(t, err)
	assert.Equal(t, core.NodeIdentity, anchor.NodeType)
	assert.Equal(t, "property prop_7", anchor.Summary)
}

func TestRememberTodo_EntityEdges(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	node, err := svc.RememberTodo(ctx, TodoInput{
		SessionID:  "s1",
		Task:       "Schedule inspection",
		PropertyID: "prop_7",
		ContactID:  "ct_2",
	})
	require.NoError(t, err)

	_, edges, err := svc.GetNode(ctx, "s1", node.ID)
	require.NoError(t, err)
	require.Len(t, edges, 2)

	byRelation := map[string]float64{}
	for _, e := range edges {
		byRelation[e.Relation] = e.Weight
	}
	assert.Equal(t, 0.88, byRelation["for_property"])
	assert.Equal(t, 0.86, byRelation["involved"])
}

func TestRememberEvent_EntityEdges(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	node, err := svc.RememberEvent(ctx, EventInput{
		SessionID:   "s1",
		EventType:   "viewing",
		Description: "Showed the downtown condo",
		Entities: []core.EntityRef{
			{Type: "contact", ID: "ct_2"},
			{Type: "property", ID: "prop_7"},
		},
		OccurredAt: "2026-08-20T15:00:00Z",
	})
	require.NoError(t, err)

	_, edges, err := svc.GetNode(ctx, "s1", node.ID)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Equal(t, "involved", e.Relation)
		assert.Equal(t, 0.85, e.Weight)
	}

	// Same description under a different event type is a separate memory.
	other, err := svc.RememberEvent(ctx, EventInput{
		SessionID:   "s1",
		EventType:   "offer",
		Description: "Showed the downtown condo",
	})
	require.NoError(t, err)
	assert.NotEqual(t, node.ID, other.ID)

	// A half-filled entity reference is a caller mistake.
	_, err = svc.RememberEvent(ctx, EventInput{
		SessionID:   "s1",
		EventType:   "viewing",
		Description: "Broken reference",
		Entities:    []core.EntityRef{{Type: "contact"}},
	})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRememberIdentity_NoEdgesAndEntityKeyedUpsert(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	first, err := svc.RememberIdentity(ctx, IdentityInput{
		SessionID:    "s1",
		EntityType:   "contact",
		EntityID:     "ct_2",
		IdentityData: map[string]any{"name": "Jane Doe"},
	})
	require.NoError(t, err)

	_, edges, err := svc.GetNode(ctx, "s1", first.ID)
	require.NoError(t, err)
	assert.Empty(t, edges, "identity nodes must not create edges")

	// Display data changed, entity unchanged: same node, fresh summary.
	second, err := svc.RememberIdentity(ctx, IdentityInput{
		SessionID:    "s1",
		EntityType:   "contact",
		EntityID:     "ct_2",
		IdentityData: map[string]any{"name": "Jane Doe-Smith", "stage": "offer"},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Jane Doe-Smith", second.Summary)

	var payload struct {
		IdentityData map[string]any `json:"identity_data"`
	}
	require.NoError(t, json.Unmarshal(second.Payload, &payload))
	assert.Equal(t, "offer", payload.IdentityData["stage"])
}

func TestIdentityAnchorSharedWithLaterIdentity(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	// A todo mentions the property before anyone described it.
	todo, err := svc.RememberTodo(ctx, TodoInput{SessionID: "s1", Task: "Order appraisal", PropertyID: "prop_9"})
	require.NoError(t, err)
	_, edges, err := svc.GetNode(ctx, "s1", todo.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	anchorID := edges[0].TargetID

	// Describing the property later lands on the anchor node.
	identity, err := svc.RememberIdentity(ctx, IdentityInput{
		SessionID:    "s1",
		EntityType:   "property",
		EntityID:     "prop_9",
		IdentityData: map[string]any{"name": "9 Oak St"},
	})
	require.NoError(t, err)
	assert.Equal(t, anchorID, identity.ID)
	assert.Equal(t, "9 Oak St", identity.Summary)
}

func TestSessionSummary_WindowAndOrder(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.RememberFact(ctx, FactInput{SessionID: "s1", Fact: fmt.Sprintf("fact number %02d", i)})
		require.NoError(t, err)
	}

	summary, err := svc.SessionSummary(ctx, "s1", 5)
	require.NoError(t, err)
	assert.EqualValues(t, 12, summary.NodeCount)
	assert.EqualValues(t, 0, summary.EdgeCount)
	require.Len(t, summary.RecentNodes, 5)

	for i, want := range []string{"fact number 11", "fact number 10", "fact number 09", "fact number 08", "fact number 07"} {
		assert.Equal(t, want, summary.RecentNodes[i].Summary)
	}

	// Re-asserting an old fact moves it to the front of the window.
	_, err = svc.RememberFact(ctx, FactInput{SessionID: "s1", Fact: "fact number 03"})
	require.NoError(t, err)
	summary, err = svc.SessionSummary(ctx, "s1", 3)
	require.NoError(t, err)
	assert.EqualValues(t, 12, summary.NodeCount, "re-assertion must not grow the session")
	assert.Equal(t, "fact number 03", summary.RecentNodes[0].Summary)

	// Non-positive max_nodes falls back to the default window.
	summary, err = svc.SessionSummary(ctx, "s1", -1)
	require.NoError(t, err)
	assert.Len(t, summary.RecentNodes, 12)

	// Oversized requests are clamped, not rejected.
	summary, err = svc.SessionSummary(ctx, "s1", 50000)
	require.NoError(t, err)
	assert.Len(t, summary.RecentNodes, 12)
}

func TestSessionSummary_EmptySession(t *testing.T) {
	svc := newTestMemory(t)

	summary, err := svc.SessionSummary(context.Background(), "never-seen", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, summary.NodeCount)
	assert.EqualValues(t, 0, summary.EdgeCount)
	assert.Empty(t, summary.RecentNodes)
}

func TestSessionIsolation(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	nodeA, err := svc.RememberFact(ctx, FactInput{SessionID: "sess-a", Fact: "Only in A"})
	require.NoError(t, err)
	_, err = svc.RememberFact(ctx, FactInput{SessionID: "sess-b", Fact: "Only in B"})
	require.NoError(t, err)

	summary, err := svc.SessionSummary(ctx, "sess-a", 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.NodeCount)
	assert.Equal(t, "Only in A", summary.RecentNodes[0].Summary)

	// Reads from the wrong session do not leak.
	_, _, err = svc.GetNode(ctx, "sess-b", nodeA.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	err = svc.Forget(ctx, "sess-b", nodeA.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestValidationErrors(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()
	badConf := 1.5

	tests := []struct {
		name string
		call func() error
	}{
		{"fact missing session", func() error {
			_, err := svc.RememberFact(ctx, FactInput{Fact: "no session"})
			return err
		}},
		{"fact blank session", func() error {
			_, err := svc.RememberFact(ctx, FactInput{SessionID: "   ", Fact: "blank session"})
			return err
		}},
		{"fact missing text", func() error {
			_, err := svc.RememberFact(ctx, FactInput{SessionID: "s1"})
			return err
		}},
		{"preference missing text", func() error {
			_, err := svc.RememberPreference(ctx, PreferenceInput{SessionID: "s1"})
			return err
		}},
		{"preference half entity ref", func() error {
			_, err := svc.RememberPreference(ctx, PreferenceInput{SessionID: "s1", Preference: "p", EntityType: "property"})
			return err
		}},
		{"decision missing text", func() error {
			_, err := svc.RememberDecision(ctx, DecisionInput{SessionID: "s1"})
			return err
		}},
		{"identity missing entity id", func() error {
			_, err := svc.RememberIdentity(ctx, IdentityInput{SessionID: "s1", EntityType: "contact"})
			return err
		}},
		{"event missing type", func() error {
			_, err := svc.RememberEvent(ctx, EventInput{SessionID: "s1", Description: "d"})
			return err
		}},
		{"observation confidence out of range", func() error {
			_, err := svc.RememberObservation(ctx, ObservationInput{SessionID: "s1", Observation: "o", Confidence: &badConf})
			return err
		}},
		{"goal missing text", func() error {
			_, err := svc.RememberGoal(ctx, GoalInput{SessionID: "s1"})
			return err
		}},
		{"todo missing task", func() error {
			_, err := svc.RememberTodo(ctx, TodoInput{SessionID: "s1"})
			return err
		}},
		{"summary missing session", func() error {
			_, err := svc.SessionSummary(ctx, "", 10)
			return err
		}},
		{"link self loop", func() error {
			_, err := svc.LinkMemories(ctx, LinkInput{SessionID: "s1", SourceID: "x", TargetID: "x"})
			return err
		}},
		{"forget missing node id", func() error {
			return svc.Forget(ctx, "s1", "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestLinkMemories(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	a, err := svc.RememberTodo(ctx, TodoInput{SessionID: "s1", Task: "Order appraisal"})
	require.NoError(t, err)
	b, err := svc.RememberTodo(ctx, TodoInput{SessionID: "s1", Task: "Close escrow"})
	require.NoError(t, err)

	edge, err := svc.LinkMemories(ctx, LinkInput{SessionID: "s1", SourceID: a.ID, TargetID: b.ID, Relation: "blocks"})
	require.NoError(t, err)
	assert.Equal(t, "blocks", edge.Relation)
	assert.Equal(t, 0.92, edge.Weight)

	// Blank relation falls back to related_to.
	c, err := svc.RememberFact(ctx, FactInput{SessionID: "s1", Fact: "Comps attached"})
	require.NoError(t, err)
	fallback, err := svc.LinkMemories(ctx, LinkInput{SessionID: "s1", SourceID: a.ID, TargetID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, "related_to", fallback.Relation)
	assert.Equal(t, 0.85, fallback.Weight)

	// Repeating a link is idempotent.
	again, err := svc.LinkMemories(ctx, LinkInput{SessionID: "s1", SourceID: a.ID, TargetID: b.ID, Relation: "blocks"})
	require.NoError(t, err)
	assert.Equal(t, edge.ID, again.ID)

	summary, err := svc.SessionSummary(ctx, "s1", 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.EdgeCount)

	// Unknown endpoint.
	_, err = svc.LinkMemories(ctx, LinkInput{SessionID: "s1", SourceID: a.ID, TargetID: "missing"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestForget_TombstoneAndRevival(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	node, err := svc.RememberPreference(ctx, PreferenceInput{
		SessionID:  "s1",
		Preference: "No ground floor units",
		EntityType: "contact",
		EntityID:   "ct_2",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Forget(ctx, "s1", node.ID))

	// Gone from reads, counts and the summary window. Edges went with it.
	_, _, err = svc.GetNode(ctx, "s1", node.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	summary, err := svc.SessionSummary(ctx, "s1", 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.NodeCount, "anchor survives the forget")
	assert.EqualValues(t, 0, summary.EdgeCount)

	err = svc.Forget(ctx, "s1", node.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Re-asserting the equivalent preference revives the original node.
	revived, err := svc.RememberPreference(ctx, PreferenceInput{SessionID: "s1", Preference: "no ground floor units"})
	require.NoError(t, err)
	assert.Equal(t, node.ID, revived.ID)

	got, _, err := svc.GetNode(ctx, "s1", node.ID)
	require.NoError(t, err)
	assert.Equal(t, "no ground floor units", got.Summary)
}

func TestGetNode_EdgesBothDirections(t *testing.T) {
	svc := newTestMemory(t)
	ctx := context.Background()

	a, err := svc.RememberFact(ctx, FactInput{SessionID: "s1", Fact: "a"})
	require.NoError(t, err)
	b, err := svc.RememberFact(ctx, FactInput{SessionID: "s1", Fact: "b"})
	require.NoError(t, err)
	c, err := svc.RememberFact(ctx, FactInput{SessionID: "s1", Fact: "c"})
	require.NoError(t, err)

	_, err = svc.LinkMemories(ctx, LinkInput{SessionID: "s1", SourceID: a.ID, TargetID: b.ID})
	require.NoError(t, err)
	_, err = svc.LinkMemories(ctx, LinkInput{SessionID: "s1", SourceID: c.ID, TargetID: a.ID})
	require.NoError(t, err)

	_, edges, err := svc.GetNode(ctx, "s1", a.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 2, "incoming and outgoing edges are both reported")
}

func TestCustomRelationRules(t *testing.T) {
	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rules := core.DefaultRelationRules()
	rules["todo/property"] = core.RelationRule{Relation: "scheduled_for", Weight: 0.91}
	svc := NewMemory(sqlite.NewMemoryRepo(db), rules)
	ctx := context.Background()

	node, err := svc.RememberTodo(ctx, TodoInput{SessionID: "s1", Task: "Stage the house", PropertyID: "prop_1"})
	require.NoError(t, err)

	_, edges, err := svc.GetNode(ctx, "s1", node.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "scheduled_for", edges[0].Relation)
	assert.Equal(t, 0.91, edges[0].Weight)
}

func TestValidationError_IsNotNotFound(t *testing.T) {
	svc := newTestMemory(t)

	_, err := svc.RememberFact(context.Background(), FactInput{SessionID: "s1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrValidation))
	assert.False(t, errors.Is(err, core.ErrNotFound))
}
