package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/airealtor/recall/internal/core"
	"github.com/airealtor/recall/internal/observability"
	"github.com/airealtor/recall/internal/service/memory"
)

// MemoryHandler translates HTTP requests into memory service calls.
type MemoryHandler struct {
	svc       *memory.Memory
	collector *observability.Collector
}

func NewMemoryHandler(svc *memory.Memory, collector *observability.Collector) *MemoryHandler {
	return &MemoryHandler{svc: svc, collector: collector}
}

// objectionRequest and promiseRequest carry the legacy field names. They
// map onto preference and todo inputs, so the stored rows come out
// identical to directly recorded ones.
type objectionRequest struct {
	SessionID  string `json:"session_id" validate:"required"`
	Objection  string `json:"objection" validate:"required"`
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
}

type promiseRequest struct {
	SessionID  string `json:"session_id" validate:"required"`
	Promise    string `json:"promise" validate:"required"`
	DueAt      string `json:"due_at,omitempty"`
	PropertyID string `json:"property_id,omitempty"`
	ContactID  string `json:"contact_id,omitempty"`
}

// CreateMemory handles POST /api/v1/memories/{type}.
func (h *MemoryHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	memoryType := chi.URLParam(r, "type")

	node, err := h.remember(r, memoryType)
	h.collector.ObserveOp("remember_"+memoryType, err)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, node)
}

func (h *MemoryHandler) remember(r *http.Request, memoryType string) (*core.MemoryNode, error) {
	ctx := r.Context()

	switch memoryType {
	case "fact":
		var in memory.FactInput
		if err := decodeAndValidate(r, &in); err != nil {
			return nil, err
		}
		return h.svc.RememberFact(ctx, in)
	case "preference":
		var in memory.PreferenceInput
		if err := decodeAndValidate(r, &in); err != nil {
			return nil, err
		}
		return h.svc.RememberPreference(ctx, in)
	case "decision":
		var in memory.DecisionInput
		if err := decodeAndValidate(r, &in); err != nil {
			return nil, err
		}
		return h.svc.RememberDecision(ctx, in)
	case "identity":
		var in memory.IdentityInput
		if err := decodeAndValidate(r, &in); err != nil {
			return nil, err
		}
		return h.svc.RememberIdentity(ctx, in)
	case "event":
		var in memory.EventInput
		if err := decodeAndValidate(r, &in); err != nil {
			return nil, err
		}
		return h.svc.RememberEvent(ctx, in)
	case "observation":
		var in memory.ObservationInput
		if err := decodeAndValidate(r, &in); err != nil {
			return nil, err
		}
		return h.svc.RememberObservation(ctx, in)
	case "goal":
		var in memory.GoalInput
		if err := decodeAndValidate(r, &in); err != nil {
			return nil, err
		}
		return h.svc.RememberGoal(ctx, in)
	case "todo":
		var in memory.TodoInput
		if err := decodeAndValidate(r, &in); err != nil {
			return nil, err
		}
		return h.svc.RememberTodo(ctx, in)
	case "objection":
		var req objectionRequest
		if err := decodeAndValidate(r, &req); err != nil {
			return nil, err
		}
		return h.svc.RememberObjection(ctx, memory.PreferenceInput{
			SessionID:  req.SessionID,
			Preference: req.Objection,
			EntityType: req.EntityType,
			EntityID:   req.EntityID,
		})
	case "promise":
		var req promiseRequest
		if err := decodeAndValidate(r, &req); err != nil {
			return nil, err
		}
		return h.svc.RememberPromise(ctx, memory.TodoInput{
			SessionID:  req.SessionID,
			Task:       req.Promise,
			DueAt:      req.DueAt,
			PropertyID: req.PropertyID,
			ContactID:  req.ContactID,
		})
	default:
		return nil, fmt.Errorf("%w: unknown memory type %q", core.ErrValidation, memoryType)
	}
}

// GetSummary handles GET /api/v1/sessions/{sessionID}/summary.
func (h *MemoryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	maxNodes := 0
	if raw := r.URL.Query().Get("max_nodes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.collector.ObserveOp("get_session_summary", err)
			respondError(w, fmt.Errorf("%w: max_nodes must be an integer", core.ErrValidation))
			return
		}
		maxNodes = parsed
	}

	summary, err := h.svc.SessionSummary(r.Context(), sessionID, maxNodes)
	h.collector.ObserveOp("get_session_summary", err)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

type nodeResponse struct {
	Node  *core.MemoryNode  `json:"node"`
	Edges []core.MemoryEdge `json:"edges"`
}

// GetMemory handles GET /api/v1/sessions/{sessionID}/memories/{nodeID}.
func (h *MemoryHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	node, edges, err := h.svc.GetNode(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "nodeID"))
	h.collector.ObserveOp("get_memory", err)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nodeResponse{Node: node, Edges: edges})
}

// ForgetMemory handles DELETE /api/v1/sessions/{sessionID}/memories/{nodeID}.
func (h *MemoryHandler) ForgetMemory(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Forget(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "nodeID"))
	h.collector.ObserveOp("forget_memory", err)
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LinkMemories handles POST /api/v1/memories/links.
func (h *MemoryHandler) LinkMemories(w http.ResponseWriter, r *http.Request) {
	var in memory.LinkInput
	if err := decodeAndValidate(r, &in); err != nil {
		h.collector.ObserveOp("link_memories", err)
		respondError(w, err)
		return
	}

	edge, err := h.svc.LinkMemories(r.Context(), in)
	h.collector.ObserveOp("link_memories", err)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, edge)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
