package mcp

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airealtor/recall/internal/core"
	"github.com/airealtor/recall/internal/observability"
	"github.com/airealtor/recall/internal/transport/rest"
)

// Full protocol loop against the handler recall serve mounts: a real
// client initializes, lists the tools and calls them over streamable HTTP.
func TestStreamableHTTP_EndToEnd(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	srv := NewServer(h.svc, "test")
	router := rest.NewRouter(h.svc, observability.NewCollector("recall"), []string{"*"}, srv.HTTPHandler())
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	cli, err := mcpclient.NewStreamableHttpClient(ts.URL + "/mcp")
	require.NoError(t, err, "failed to create client")
	t.Cleanup(func() { _ = cli.Close() })

	require.NoError(t, cli.Start(ctx), "failed to start client")

	initReq := mcpproto.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpproto.LATEST_PROTOCOL_VERSION
	initReq.Params.Capabilities = mcpproto.ClientCapabilities{}
	initReq.Params.ClientInfo = mcpproto.Implementation{Name: "recall-test", Version: "0.0.1"}
	_, err = cli.Initialize(ctx, initReq)
	require.NoError(t, err, "failed to initialize client")

	tools, err := cli.ListTools(ctx, mcpproto.ListToolsRequest{})
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.Len(t, names, 14)
	for _, want := range []string{
		"remember_fact", "remember_preference", "remember_decision", "remember_identity",
		"remember_event", "remember_observation", "remember_goal", "remember_todo",
		"remember_objection", "remember_promise",
		"get_session_summary", "get_memory", "link_memories", "forget_memory",
	} {
		assert.Contains(t, names, want)
	}

	callReq := mcpproto.CallToolRequest{}
	callReq.Params.Name = "remember_fact"
	callReq.Params.Arguments = map[string]any{
		"session_id": "s1",
		"fact":       "Pre-approved for 500k",
	}
	res, err := cli.CallTool(ctx, callReq)
	require.NoError(t, err)
	require.False(t, res.IsError, "tool error: %s", resultText(t, res))

	var node core.MemoryNode
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &node))
	assert.Equal(t, core.NodeFact, node.NodeType)
	assert.Equal(t, "Pre-approved for 500k", node.Summary)

	callReq = mcpproto.CallToolRequest{}
	callReq.Params.Name = "get_session_summary"
	callReq.Params.Arguments = map[string]any{"session_id": "s1"}
	res, err = cli.CallTool(ctx, callReq)
	require.NoError(t, err)
	require.False(t, res.IsError)

	var summary core.SessionSummary
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &summary))
	assert.EqualValues(t, 1, summary.NodeCount)
	require.Len(t, summary.RecentNodes, 1)
	assert.Equal(t, node.ID, summary.RecentNodes[0].ID)

	// Validation failures stay tool errors on the wire.
	callReq = mcpproto.CallToolRequest{}
	callReq.Params.Name = "remember_fact"
	callReq.Params.Arguments = map[string]any{"fact": "no session"}
	res, err = cli.CallTool(ctx, callReq)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "session_id is required")
}
