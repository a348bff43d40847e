package memory

import (
	"github.com/airealtor/recall/internal/core"
)

// Inputs are shared by both transports: REST binds request bodies straight
// into them (validate tags run first), the MCP handlers fill them from tool
// arguments. The service re-checks required fields itself, so neither
// transport is trusted to have done so.

type FactInput struct {
	SessionID string `json:"session_id" validate:"required"`
	Fact      string `json:"fact" validate:"required"`
	Category  string `json:"category,omitempty"`
}

type PreferenceInput struct {
	SessionID  string `json:"session_id" validate:"required"`
	Preference string `json:"preference" validate:"required"`
	EntityType string `json:"entity_type,omitempty" validate:"required_with=EntityID"`
	EntityID   string `json:"entity_id,omitempty" validate:"required_with=EntityType"`
}

type DecisionInput struct {
	SessionID string `json:"session_id" validate:"required"`
	Decision  string `json:"decision" validate:"required"`
	Context   string `json:"context,omitempty"`
}

type IdentityInput struct {
	SessionID    string         `json:"session_id" validate:"required"`
	EntityType   string         `json:"entity_type" validate:"required"`
	EntityID     string         `json:"entity_id" validate:"required"`
	IdentityData map[string]any `json:"identity_data,omitempty"`
}

type EventInput struct {
	SessionID   string           `json:"session_id" validate:"required"`
	EventType   string           `json:"event_type" validate:"required"`
	Description string           `json:"description" validate:"required"`
	Entities    []core.EntityRef `json:"entities,omitempty"`
	OccurredAt  string           `json:"occurred_at,omitempty"`
}

type ObservationInput struct {
	SessionID   string   `json:"session_id" validate:"required"`
	Observation string   `json:"observation" validate:"required"`
	Category    string   `json:"category,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
}

type GoalInput struct {
	SessionID string            `json:"session_id" validate:"required"`
	Goal      string            `json:"goal" validate:"required"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
	Priority  core.GoalPriority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
}

type TodoInput struct {
	SessionID  string `json:"session_id" validate:"required"`
	Task       string `json:"task" validate:"required"`
	DueAt      string `json:"due_at,omitempty"`
	PropertyID string `json:"property_id,omitempty"`
	ContactID  string `json:"contact_id,omitempty"`
}

type LinkInput struct {
	SessionID string `json:"session_id" validate:"required"`
	SourceID  string `json:"source_id" validate:"required"`
	TargetID  string `json:"target_id" validate:"required"`
	Relation  string `json:"relation,omitempty"`
}

// Stored payload shapes, one per node type. The alias operations reuse
// their target's payload so the stored rows stay indistinguishable.

type factPayload struct {
	Fact     string `json:"fact"`
	Category string `json:"category,omitempty"`
}

type preferencePayload struct {
	Preference string `json:"preference"`
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
}

type decisionPayload struct {
	Decision string `json:"decision"`
	Context  string `json:"context,omitempty"`
}

type identityPayload struct {
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	IdentityData map[string]any `json:"identity_data,omitempty"`
}

type eventPayload struct {
	EventType   string           `json:"event_type"`
	Description string           `json:"description"`
	Entities    []core.EntityRef `json:"entities,omitempty"`
	OccurredAt  string           `json:"occurred_at,omitempty"`
}

type observationPayload struct {
	Observation string   `json:"observation"`
	Category    string   `json:"category,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

type goalPayload struct {
	Goal     string         `json:"goal"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Priority string         `json:"priority"`
}

type todoPayload struct {
	Task       string `json:"task"`
	DueAt      string `json:"due_at,omitempty"`
	PropertyID string `json:"property_id,omitempty"`
	ContactID  string `json:"contact_id,omitempty"`
}
