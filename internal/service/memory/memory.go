package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/airealtor/recall/internal/core"
)

// Summary window bounds. A non-positive max_nodes falls back to the
// default; anything above the cap is clamped.
const (
	DefaultSummaryNodes = 100
	MaxSummaryNodes     = 1000
)

// Memory is the session memory graph: typed remember operations, identity
// anchors with weighted edges, and bounded recency summaries. Every call is
// scoped to one session.
type Memory struct {
	repo  core.MemoryRepository
	rules core.RelationRules
}

// NewMemory wires the service over a repository. A nil rules table selects
// the shipped defaults.
func NewMemory(repo core.MemoryRepository, rules core.RelationRules) *Memory {
	if rules == nil {
		rules = core.DefaultRelationRules()
	}
	return &Memory{repo: repo, rules: rules}
}

// RememberFact stores a discrete, verifiable statement.
func (s *Memory) RememberFact(ctx context.Context, in FactInput) (*core.MemoryNode, error) {
	if err := validateRequired("session_id", in.SessionID, "fact", in.Fact); err != nil {
		return nil, err
	}

	node, err := s.newNode(in.SessionID, core.NodeFact, in.Fact, core.ContentKey(in.Fact),
		core.NodeFact.Importance(), factPayload{Fact: in.Fact, Category: in.Category})
	if err != nil {
		return nil, err
	}
	return s.repo.SaveMemory(ctx, node, nil)
}

// RememberPreference stores a like, dislike or requirement. When an entity
// reference is present the preference is linked to that entity's anchor.
func (s *Memory) RememberPreference(ctx context.Context, in PreferenceInput) (*core.MemoryNode, error) {
	if err := validateRequired("session_id", in.SessionID, "preference", in.Preference); err != nil {
		return nil, err
	}
	refs, err := optionalRef(core.EntityRef{Type: in.EntityType, ID: in.EntityID})
	if err != nil {
		return nil, err
	}

	node, err := s.newNode(in.SessionID, core.NodePreference, in.Preference, core.ContentKey(in.Preference),
		core.NodePreference.Importance(), preferencePayload{
			Preference: in.Preference,
			EntityType: in.EntityType,
			EntityID:   in.EntityID,
		})
	if err != nil {
		return nil, err
	}
	return s.repo.SaveMemory(ctx, node, s.entityLinks(in.SessionID, core.NodePreference, refs, node.CreatedAt))
}

// RememberObjection is a legacy alias. Objections are stored as
// preferences, indistinguishable from ones recorded directly.
func (s *Memory) RememberObjection(ctx context.Context, in PreferenceInput) (*core.MemoryNode, error) {
	return s.RememberPreference(ctx, in)
}

// RememberDecision stores a choice that was made, with optional context.
func (s *Memory) RememberDecision(ctx context.Context, in DecisionInput) (*core.MemoryNode, error) {
	if err := validateRequired("session_id", in.SessionID, "decision", in.Decision); err != nil {
		return nil, err
	}

	node, err := s.newNode(in.SessionID, core.NodeDecision, in.Decision, core.ContentKey(in.Decision),
		core.NodeDecision.Importance(), decisionPayload{Decision: in.Decision, Context: in.Context})
	if err != nil {
		return nil, err
	}
	return s.repo.SaveMemory(ctx, node, nil)
}

// RememberIdentity stores who or what an entity is. The node is keyed by
// the entity itself, so changed display data updates the existing node.
// Identity nodes are the anchors other memories link to and never link out.
func (s *Memory) RememberIdentity(ctx context.Context, in IdentityInput) (*core.MemoryNode, error) {
	if err := validateRequired("session_id", in.SessionID,
		"entity_type", in.EntityType, "entity_id", in.EntityID); err != nil {
		return nil, err
	}
	ref := core.EntityRef{Type: in.EntityType, ID: in.EntityID}

	node, err := s.newNode(in.SessionID, core.NodeIdentity, identitySummary(ref, in.IdentityData),
		core.EntityContentKey(ref), core.NodeIdentity.Importance(), identityPayload{
			EntityType:   in.EntityType,
			EntityID:     in.EntityID,
			IdentityData: in.IdentityData,
		})
	if err != nil {
		return nil, err
	}
	return s.repo.SaveMemory(ctx, node, nil)
}

// RememberEvent stores something that happened, linked to every entity it
// involved. Equivalence covers the event type, so two different kinds of
// event with the same description stay separate nodes.
func (s *Memory) RememberEvent(ctx context.Context, in EventInput) (*core.MemoryNode, error) {
	if err := validateRequired("session_id", in.SessionID,
		"event_type", in.EventType, "description", in.Description); err != nil {
		return nil, err
	}
	for _, ref := range in.Entities {
		if strings.TrimSpace(ref.Type) == "" || strings.TrimSpace(ref.ID) == "" {
			return nil, fmt.Errorf("%w: entities entries need both entity_type and entity_id", core.ErrValidation)
		}
	}

	node, err := s.newNode(in.SessionID, core.NodeEvent, in.Description,
		core.ContentKey(in.EventType+" "+in.Description), core.NodeEvent.Importance(), eventPayload{
			EventType:   in.EventType,
			Description: in.Description,
			Entities:    in.Entities,
			OccurredAt:  in.OccurredAt,
		})
	if err != nil {
		return nil, err
	}
	return s.repo.SaveMemory(ctx, node, s.entityLinks(in.SessionID, core.NodeEvent, in.Entities, node.CreatedAt))
}

// RememberObservation stores an inference the assistant made, with an
// optional confidence in [0, 1].
func (s *Memory) RememberObservation(ctx context.Context, in ObservationInput) (*core.MemoryNode, error) {
	if err := validateRequired("session_id", in.SessionID, "observation", in.Observation); err != nil {
		return nil, err
	}
	if in.Confidence != nil && (*in.Confidence < 0 || *in.Confidence > 1) {
		return nil, fmt.Errorf("%w: confidence must be within [0, 1], got %v", core.ErrValidation, *in.Confidence)
	}

	node, err := s.newNode(in.SessionID, core.NodeObservation, in.Observation, core.ContentKey(in.Observation),
		core.NodeObservation.Importance(), observationPayload{
			Observation: in.Observation,
			Category:    in.Category,
			Confidence:  in.Confidence,
		})
	if err != nil {
		return nil, err
	}
	return s.repo.SaveMemory(ctx, node, nil)
}

// RememberGoal stores what the user is trying to achieve. Importance comes
// from the priority tier rather than the type table, with the highest tier
// pinned at 1.0.
func (s *Memory) RememberGoal(ctx context.Context, in GoalInput) (*core.MemoryNode, error) {
	if err := validateRequired("session_id", in.SessionID, "goal", in.Goal); err != nil {
		return nil, err
	}
	importance, err := in.Priority.Importance()
	if err != nil {
		return nil, err
	}
	priority := in.Priority
	if priority == "" {
		priority = core.GoalPriorityMedium
	}

	node, err := s.newNode(in.SessionID, core.NodeGoal, in.Goal, core.ContentKey(in.Goal),
		importance, goalPayload{Goal: in.Goal, Metadata: in.Metadata, Priority: string(priority)})
	if err != nil {
		return nil, err
	}
	return s.repo.SaveMemory(ctx, node, nil)
}

// RememberTodo stores an action item, linked to the property and contact it
// concerns when those ids are present.
func (s *Memory) RememberTodo(ctx context.Context, in TodoInput) (*core.MemoryNode, error) {
	if err := validateRequired("session_id", in.SessionID, "task", in.Task); err != nil {
		return nil, err
	}

	var refs []core.EntityRef
	if strings.TrimSpace(in.PropertyID) != "" {
		refs = append(refs, core.EntityRef{Type: "property", ID: in.PropertyID})
	}
	if strings.TrimSpace(in.ContactID) != "" {
		refs = append(refs, core.EntityRef{Type: "contact", ID: in.ContactID})
	}

	node, err := s.newNode(in.SessionID, core.NodeTodo, in.Task, core.ContentKey(in.Task),
		core.NodeTodo.Importance(), todoPayload{
			Task:       in.Task,
			DueAt:      in.DueAt,
			PropertyID: in.PropertyID,
			ContactID:  in.ContactID,
		})
	if err != nil {
		return nil, err
	}
	return s.repo.SaveMemory(ctx, node, s.entityLinks(in.SessionID, core.NodeTodo, refs, node.CreatedAt))
}

// RememberPromise is a legacy alias. Promises are stored as todos,
// indistinguishable from ones recorded directly.
func (s *Memory) RememberPromise(ctx context.Context, in TodoInput) (*core.MemoryNode, error) {
	return s.RememberTodo(ctx, in)
}

// SessionSummary returns live counts plus the most recently seen nodes,
// newest first.
func (s *Memory) SessionSummary(ctx context.Context, sessionID string, maxNodes int) (*core.SessionSummary, error) {
	if err := validateRequired("session_id", sessionID); err != nil {
		return nil, err
	}
	if maxNodes <= 0 {
		maxNodes = DefaultSummaryNodes
	}
	if maxNodes > MaxSummaryNodes {
		maxNodes = MaxSummaryNodes
	}

	counts, err := s.repo.CountSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count session: %w", err)
	}
	nodes, err := s.repo.RecentNodes(ctx, sessionID, maxNodes)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent nodes: %w", err)
	}

	return &core.SessionSummary{
		SessionID:   sessionID,
		NodeCount:   counts.Nodes,
		EdgeCount:   counts.Edges,
		RecentNodes: nodes,
	}, nil
}

// GetNode returns one live node and every live edge touching it.
func (s *Memory) GetNode(ctx context.Context, sessionID, nodeID string) (*core.MemoryNode, []core.MemoryEdge, error) {
	if err := validateRequired("session_id", sessionID, "node_id", nodeID); err != nil {
		return nil, nil, err
	}
	return s.repo.GetNode(ctx, sessionID, nodeID)
}

// LinkMemories creates an explicit edge between two nodes of the session.
// The weight comes from the per-relation defaults; a blank relation falls
// back to related_to.
func (s *Memory) LinkMemories(ctx context.Context, in LinkInput) (*core.MemoryEdge, error) {
	if err := validateRequired("session_id", in.SessionID,
		"source_id", in.SourceID, "target_id", in.TargetID); err != nil {
		return nil, err
	}
	if in.SourceID == in.TargetID {
		return nil, fmt.Errorf("%w: source_id and target_id must differ", core.ErrValidation)
	}
	relation := strings.TrimSpace(in.Relation)
	if relation == "" {
		relation = core.RelationFallback
	}

	now := time.Now().UTC()
	return s.repo.SaveEdge(ctx, &core.MemoryEdge{
		ID:        uuid.NewString(),
		SessionID: in.SessionID,
		SourceID:  in.SourceID,
		TargetID:  in.TargetID,
		Relation:  relation,
		Weight:    core.LinkWeight(relation),
		CreatedAt: now,
	})
}

// Forget tombstones a node and every edge touching it. Re-asserting
// equivalent content later revives the node in place.
func (s *Memory) Forget(ctx context.Context, sessionID, nodeID string) error {
	if err := validateRequired("session_id", sessionID, "node_id", nodeID); err != nil {
		return err
	}
	return s.repo.ForgetNode(ctx, sessionID, nodeID)
}

func (s *Memory) newNode(sessionID string, nodeType core.NodeType, summary, contentKey string, importance float64, payload any) (*core.MemoryNode, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now().UTC()
	return &core.MemoryNode{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		NodeType:   nodeType,
		Summary:    summary,
		Importance: importance,
		Payload:    raw,
		ContentKey: contentKey,
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// entityLinks builds one anchor-and-edge pair per referenced entity, with
// the relation and weight resolved from the rules table.
func (s *Memory) entityLinks(sessionID string, source core.NodeType, refs []core.EntityRef, now time.Time) []core.MemoryLink {
	var links []core.MemoryLink
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		rule := s.rules.Resolve(source, ref.Type)
		links = append(links, core.MemoryLink{
			Anchor:   s.anchorNode(sessionID, ref, now),
			Relation: rule.Relation,
			Weight:   rule.Weight,
		})
	}
	return links
}

// anchorNode is the minimal identity node standing in for a referenced
// entity. The store only inserts it when the entity has no node yet.
func (s *Memory) anchorNode(sessionID string, ref core.EntityRef, now time.Time) *core.MemoryNode {
	payload, _ := json.Marshal(identityPayload{EntityType: ref.Type, EntityID: ref.ID})
	return &core.MemoryNode{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		NodeType:   core.NodeIdentity,
		Summary:    ref.Type + " " + ref.ID,
		Importance: core.NodeIdentity.Importance(),
		Payload:    payload,
		ContentKey: core.EntityContentKey(ref),
		CreatedAt:  now,
		LastSeenAt: now,
	}
}

func identitySummary(ref core.EntityRef, data map[string]any) string {
	if name, ok := data["name"].(string); ok && strings.TrimSpace(name) != "" {
		return name
	}
	return ref.Type + " " + ref.ID
}

// optionalRef validates a maybe-present entity reference: absent is fine,
// half-filled is a caller mistake.
func optionalRef(ref core.EntityRef) ([]core.EntityRef, error) {
	if ref.IsZero() {
		return nil, nil
	}
	if strings.TrimSpace(ref.Type) == "" || strings.TrimSpace(ref.ID) == "" {
		return nil, fmt.Errorf("%w: entity_type and entity_id must be provided together", core.ErrValidation)
	}
	return []core.EntityRef{ref}, nil
}

// validateRequired walks (name, value) pairs and rejects the first blank.
func validateRequired(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%w: %s is required", core.ErrValidation, pairs[i])
		}
	}
	return nil
}
