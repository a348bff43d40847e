package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airealtor/recall/internal/core"
	"github.com/airealtor/recall/internal/service/memory"
	"github.com/airealtor/recall/internal/storage/sqlite"
)

func newTestHandler(t *testing.T) *toolHandler {
	t.Helper()
	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { db.Close() })
	return &toolHandler{svc: memory.NewMemory(sqlite.NewMemoryRepo(db), nil)}
}

type handlerFunc func(context.Context, mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error)

// callTool drives a handler the way the protocol layer would, with raw
// JSON-shaped arguments.
func callTool(t *testing.T, fn handlerFunc, args map[string]any) *mcpproto.CallToolResult {
	t.Helper()
	req := mcpproto.CallToolRequest{}
	req.Params.Arguments = args

	res, err := fn(context.Background(), req)
	require.NoError(t, err, "handler returned a protocol error")
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcpproto.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	switch content := res.Content[0].(type) {
	case mcpproto.TextContent:
		return content.Text
	case *mcpproto.TextContent:
		return content.Text
	default:
		t.Fatalf("unexpected content type %T", res.Content[0])
		return ""
	}
}

func decodeResult(t *testing.T, res *mcpproto.CallToolResult, target any) {
	t.Helper()
	require.False(t, res.IsError, "tool error: %s", resultText(t, res))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), target))
}

func TestRememberFact_ReturnsNodeJSON(t *testing.T) {
	h := newTestHandler(t)

	res := callTool(t, h.rememberFact, map[string]any{
		"session_id": "s1",
		"fact":       "Budget is 450k",
		"category":   "financial",
	})

	var node core.MemoryNode
	decodeResult(t, res, &node)
	assert.Equal(t, core.NodeFact, node.NodeType)
	assert.Equal(t, "Budget is 450k", node.Summary)
	assert.InDelta(t, 0.75, node.Importance, 1e-9)
	assert.NotEmpty(t, node.ID)
}

func TestRememberGoal_PriorityArgument(t *testing.T) {
	h := newTestHandler(t)

	res := callTool(t, h.rememberGoal, map[string]any{
		"session_id": "s1",
		"goal":       "Close before the school year",
		"priority":   "high",
		"metadata":   map[string]any{"deadline": "2026-08-01"},
	})

	var node core.MemoryNode
	decodeResult(t, res, &node)
	assert.InDelta(t, 1.0, node.Importance, 1e-9)

	res = callTool(t, h.rememberGoal, map[string]any{
		"session_id": "s1",
		"goal":       "Close before the school year",
		"priority":   "urgent",
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "priority")
}

func TestAliases_MapToCanonicalTypes(t *testing.T) {
	h := newTestHandler(t)

	res := callTool(t, h.rememberObjection, map[string]any{
		"session_id": "s1",
		"objection":  "HOA fees are too high",
	})
	var objection core.MemoryNode
	decodeResult(t, res, &objection)
	assert.Equal(t, core.NodePreference, objection.NodeType)
	assert.InDelta(t, 0.85, objection.Importance, 1e-9)

	res = callTool(t, h.rememberPromise, map[string]any{
		"session_id":  "s1",
		"promise":     "Send the disclosure packet",
		"due_at":      "2026-09-01T10:00:00Z",
		"property_id": "prop_7",
	})
	var promise core.MemoryNode
	decodeResult(t, res, &promise)
	assert.Equal(t, core.NodeTodo, promise.NodeType)
	assert.InDelta(t, 0.90, promise.Importance, 1e-9)

	// The alias shares equivalence with the direct tool.
	res = callTool(t, h.rememberTodo, map[string]any{
		"session_id": "s1",
		"task":       "Send the disclosure packet",
	})
	var todo core.MemoryNode
	decodeResult(t, res, &todo)
	assert.Equal(t, promise.ID, todo.ID)
}

func TestRememberEvent_EntityArguments(t *testing.T) {
	h := newTestHandler(t)

	res := callTool(t, h.rememberEvent, map[string]any{
		"session_id":  "s1",
		"event_type":  "showing",
		"description": "Toured the Oak St house",
		"occurred_at": "2026-08-20T15:00:00Z",
		"entities": []any{
			map[string]any{"entity_type": "property", "entity_id": "prop_7"},
			map[string]any{"entity_type": "contact", "entity_id": "c_42"},
		},
	})
	var node core.MemoryNode
	decodeResult(t, res, &node)

	res = callTool(t, h.getMemory, map[string]any{"session_id": "s1", "node_id": node.ID})
	var detail nodeDetail
	decodeResult(t, res, &detail)
	assert.Equal(t, node.ID, detail.Node.ID)
	assert.Len(t, detail.Edges, 2)
	for _, edge := range detail.Edges {
		assert.Equal(t, "involved", edge.Relation)
	}

	res = callTool(t, h.rememberEvent, map[string]any{
		"session_id":  "s1",
		"event_type":  "showing",
		"description": "Toured the Oak St house",
		"entities":    "prop_7",
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "entities must be an array")
}

func TestRememberObservation_ConfidenceArgument(t *testing.T) {
	h := newTestHandler(t)

	res := callTool(t, h.rememberObservation, map[string]any{
		"session_id":  "s1",
		"observation": "Seems anxious about timing",
		"confidence":  0.7,
	})
	var node core.MemoryNode
	decodeResult(t, res, &node)

	var payload struct {
		Confidence *float64 `json:"confidence"`
	}
	require.NoError(t, json.Unmarshal(node.Payload, &payload))
	require.NotNil(t, payload.Confidence)
	assert.InDelta(t, 0.7, *payload.Confidence, 1e-9)

	res = callTool(t, h.rememberObservation, map[string]any{
		"session_id":  "s1",
		"observation": "Seems anxious about timing",
		"confidence":  "very",
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "confidence must be a number")
}

func TestGetSessionSummary_Window(t *testing.T) {
	h := newTestHandler(t)

	for _, fact := range []string{"fact one", "fact two", "fact three"} {
		res := callTool(t, h.rememberFact, map[string]any{"session_id": "s1", "fact": fact})
		require.False(t, res.IsError)
	}

	res := callTool(t, h.getSessionSummary, map[string]any{"session_id": "s1", "max_nodes": 2})
	var summary core.SessionSummary
	decodeResult(t, res, &summary)
	assert.EqualValues(t, 3, summary.NodeCount)
	assert.EqualValues(t, 0, summary.EdgeCount)
	require.Len(t, summary.RecentNodes, 2)
	assert.Equal(t, "fact three", summary.RecentNodes[0].Summary)

	res = callTool(t, h.getSessionSummary, map[string]any{"session_id": "s2"})
	decodeResult(t, res, &summary)
	assert.EqualValues(t, 0, summary.NodeCount)
	assert.Empty(t, summary.RecentNodes)
}

func TestLinkAndForget(t *testing.T) {
	h := newTestHandler(t)

	res := callTool(t, h.rememberGoal, map[string]any{"session_id": "s1", "goal": "Buy this fall"})
	var goal core.MemoryNode
	decodeResult(t, res, &goal)

	res = callTool(t, h.rememberObjection, map[string]any{"session_id": "s1", "objection": "Rates are too high"})
	var objection core.MemoryNode
	decodeResult(t, res, &objection)

	res = callTool(t, h.linkMemories, map[string]any{
		"session_id": "s1",
		"source_id":  objection.ID,
		"target_id":  goal.ID,
		"relation":   "blocks",
	})
	var edge core.MemoryEdge
	decodeResult(t, res, &edge)
	assert.Equal(t, "blocks", edge.Relation)
	assert.InDelta(t, 0.92, edge.Weight, 1e-9)

	res = callTool(t, h.forgetMemory, map[string]any{"session_id": "s1", "node_id": objection.ID})
	var status map[string]string
	decodeResult(t, res, &status)
	assert.Equal(t, "forgotten", status["status"])

	res = callTool(t, h.getMemory, map[string]any{"session_id": "s1", "node_id": objection.ID})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "not found")
}

func TestValidationFailures_AreToolErrors(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name    string
		fn      handlerFunc
		args    map[string]any
		wantMsg string
	}{
		{
			name:    "missing session",
			fn:      h.rememberFact,
			args:    map[string]any{"fact": "Budget is 450k"},
			wantMsg: "session_id is required",
		},
		{
			name:    "missing fact",
			fn:      h.rememberFact,
			args:    map[string]any{"session_id": "s1"},
			wantMsg: "fact is required",
		},
		{
			name:    "half entity reference",
			fn:      h.rememberPreference,
			args:    map[string]any{"session_id": "s1", "preference": "Quiet street", "entity_type": "property"},
			wantMsg: "entity_type and entity_id must be provided together",
		},
		{
			name:    "identity data not an object",
			fn:      h.rememberIdentity,
			args:    map[string]any{"session_id": "s1", "entity_type": "contact", "entity_id": "c_42", "identity_data": "Jane"},
			wantMsg: "identity_data must be an object",
		},
		{
			name:    "self link",
			fn:      h.linkMemories,
			args:    map[string]any{"session_id": "s1", "source_id": "n1", "target_id": "n1"},
			wantMsg: "source_id and target_id must differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, tt.fn, tt.args)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.wantMsg)
		})
	}
}

func TestNewServer_BuildsToolSet(t *testing.T) {
	h := newTestHandler(t)

	srv := NewServer(h.svc, "test")
	require.NotNil(t, srv)
	assert.NotNil(t, srv.HTTPHandler())
}
