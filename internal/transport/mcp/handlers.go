package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/airealtor/recall/internal/core"
	"github.com/airealtor/recall/internal/service/memory"
)

// toolHandler adapts tool calls onto the memory service. Validation and
// not-found failures come back as tool errors so the assistant can read
// them; only marshaling ever surfaces as a protocol error.
type toolHandler struct {
	svc *memory.Memory
}

// nodeDetail mirrors the REST detail shape so both transports hand the
// assistant the same JSON.
type nodeDetail struct {
	Node  *core.MemoryNode  `json:"node"`
	Edges []core.MemoryEdge `json:"edges"`
}

func (h *toolHandler) rememberFact(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	node, err := h.svc.RememberFact(ctx, memory.FactInput{
		SessionID: req.GetString("session_id", ""),
		Fact:      req.GetString("fact", ""),
		Category:  req.GetString("category", ""),
	})
	return textResult(node, err)
}

func (h *toolHandler) rememberPreference(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	node, err := h.svc.RememberPreference(ctx, memory.PreferenceInput{
		SessionID:  req.GetString("session_id", ""),
		Preference: req.GetString("preference", ""),
		EntityType: req.GetString("entity_type", ""),
		EntityID:   req.GetString("entity_id", ""),
	})
	return textResult(node, err)
}

func (h *toolHandler) rememberDecision(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	node, err := h.svc.RememberDecision(ctx, memory.DecisionInput{
		SessionID: req.GetString("session_id", ""),
		Decision:  req.GetString("decision", ""),
		Context:   req.GetString("context", ""),
	})
	return textResult(node, err)
}

func (h *toolHandler) rememberIdentity(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	data, err := objectArg(req.GetArguments(), "identity_data")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	node, err := h.svc.RememberIdentity(ctx, memory.IdentityInput{
		SessionID:    req.GetString("session_id", ""),
		EntityType:   req.GetString("entity_type", ""),
		EntityID:     req.GetString("entity_id", ""),
		IdentityData: data,
	})
	return textResult(node, err)
}

func (h *toolHandler) rememberEvent(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	entities, err := entitiesArg(req.GetArguments())
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	node, err := h.svc.RememberEvent(ctx, memory.EventInput{
		SessionID:   req.GetString("session_id", ""),
		EventType:   req.GetString("event_type", ""),
		Description: req.GetString("description", ""),
		Entities:    entities,
		OccurredAt:  req.GetString("occurred_at", ""),
	})
	return textResult(node, err)
}

func (h *toolHandler) rememberObservation(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	confidence, err := floatArg(req.GetArguments(), "confidence")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	node, err := h.svc.RememberObservation(ctx, memory.ObservationInput{
		SessionID:   req.GetString("session_id", ""),
		Observation: req.GetString("observation", ""),
		Category:    req.GetString("category", ""),
		Confidence:  confidence,
	})
	return textResult(node, err)
}

func (h *toolHandler) rememberGoal(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	metadata, err := objectArg(req.GetArguments(), "metadata")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	node, err := h.svc.RememberGoal(ctx, memory.GoalInput{
		SessionID: req.GetString("session_id", ""),
		Goal:      req.GetString("goal", ""),
		Metadata:  metadata,
		Priority:  core.GoalPriority(req.GetString("priority", "")),
	})
	return textResult(node, err)
}

func (h *toolHandler) rememberTodo(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	node, err := h.svc.RememberTodo(ctx, todoInput(req))
	return textResult(node, err)
}

func (h *toolHandler) rememberObjection(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	node, err := h.svc.RememberObjection(ctx, memory.PreferenceInput{
		SessionID:  req.GetString("session_id", ""),
		Preference: req.GetString("objection", ""),
		EntityType: req.GetString("entity_type", ""),
		EntityID:   req.GetString("entity_id", ""),
	})
	return textResult(node, err)
}

func (h *toolHandler) rememberPromise(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	in := todoInput(req)
	in.Task = req.GetString("promise", "")
	node, err := h.svc.RememberPromise(ctx, in)
	return textResult(node, err)
}

func (h *toolHandler) getSessionSummary(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	summary, err := h.svc.SessionSummary(ctx, req.GetString("session_id", ""), req.GetInt("max_nodes", 0))
	return textResult(summary, err)
}

func (h *toolHandler) getMemory(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	node, edges, err := h.svc.GetNode(ctx, req.GetString("session_id", ""), req.GetString("node_id", ""))
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	return textResult(nodeDetail{Node: node, Edges: edges}, nil)
}

func (h *toolHandler) linkMemories(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	edge, err := h.svc.LinkMemories(ctx, memory.LinkInput{
		SessionID: req.GetString("session_id", ""),
		SourceID:  req.GetString("source_id", ""),
		TargetID:  req.GetString("target_id", ""),
		Relation:  req.GetString("relation", ""),
	})
	return textResult(edge, err)
}

func (h *toolHandler) forgetMemory(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	nodeID := req.GetString("node_id", "")
	if err := h.svc.Forget(ctx, req.GetString("session_id", ""), nodeID); err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	return textResult(map[string]string{"status": "forgotten", "node_id": nodeID}, nil)
}

func todoInput(req mcpproto.CallToolRequest) memory.TodoInput {
	return memory.TodoInput{
		SessionID:  req.GetString("session_id", ""),
		Task:       req.GetString("task", ""),
		DueAt:      req.GetString("due_at", ""),
		PropertyID: req.GetString("property_id", ""),
		ContactID:  req.GetString("contact_id", ""),
	}
}

// textResult renders the service outcome for the assistant: errors as tool
// errors with the service message, values as JSON text.
func textResult(v any, err error) (*mcpproto.CallToolResult, error) {
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return mcpproto.NewToolResultText(string(data)), nil
}

func objectArg(args map[string]any, key string) (map[string]any, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an object", core.ErrValidation, key)
	}
	return obj, nil
}

func floatArg(args map[string]any, key string) (*float64, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case float64:
		return &v, nil
	case int:
		f := float64(v)
		return &f, nil
	}
	return nil, fmt.Errorf("%w: %s must be a number", core.ErrValidation, key)
}

func entitiesArg(args map[string]any) ([]core.EntityRef, error) {
	raw, ok := args["entities"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: entities must be an array", core.ErrValidation)
	}

	refs := make([]core.EntityRef, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: entities entries must be objects", core.ErrValidation)
		}
		ref := core.EntityRef{}
		ref.Type, _ = obj["entity_type"].(string)
		ref.ID, _ = obj["entity_id"].(string)
		refs = append(refs, ref)
	}
	return refs, nil
}
