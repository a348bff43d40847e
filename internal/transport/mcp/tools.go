package mcp

import (
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// entitySchema is the JSON schema for a single relational reference,
// shared by the tools that accept entity lists.
var entitySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"entity_type": map[string]any{
			"type":        "string",
			"description": "Kind of entity, e.g. contact, property, agent",
		},
		"entity_id": map[string]any{
			"type":        "string",
			"description": "Stable identifier of the entity within the CRM",
		},
	},
	"required": []string{"entity_type", "entity_id"},
}

func registerTools(s *server.MCPServer, h *toolHandler) {
	s.AddTool(mcpproto.NewTool("remember_fact",
		mcpproto.WithDescription("Store a factual statement from the conversation, e.g. budget, timeline or family size."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session the memory belongs to")),
		mcpproto.WithString("fact", mcpproto.Required(), mcpproto.Description("The fact to remember, in plain language")),
		mcpproto.WithString("category", mcpproto.Description("Optional grouping label, e.g. budget, timeline")),
	), h.rememberFact)

	s.AddTool(mcpproto.NewTool("remember_preference",
		mcpproto.WithDescription("Store a client preference, like or dislike, optionally tied to a property or contact."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session the memory belongs to")),
		mcpproto.WithString("preference", mcpproto.Required(), mcpproto.Description("The preference to remember")),
		mcpproto.WithString("entity_type", mcpproto.Description("Kind of entity the preference is about, e.g. property")),
		mcpproto.WithString("entity_id", mcpproto.Description("Identifier of that entity; required when entity_type is set")),
	), h.rememberPreference)

	s.AddTool(mcpproto.NewTool("remember_decision",
		mcpproto.WithDescription("Store a decision the client made, such as choosing a property or declining an offer."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session the memory belongs to")),
		mcpproto.WithString("decision", mcpproto.Required(), mcpproto.Description("The decision to remember")),
		mcpproto.WithString("context", mcpproto.Description("Optional background for the decision")),
	), h.rememberDecision)

	s.AddTool(mcpproto.NewTool("remember_identity",
		mcpproto.WithDescription("Store who or what an entity is. Repeated calls for the same entity update the existing record."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session the memory belongs to")),
		mcpproto.WithString("entity_type", mcpproto.Required(), mcpproto.Description("Kind of entity, e.g. contact, property")),
		mcpproto.WithString("entity_id", mcpproto.Required(), mcpproto.Description("Stable identifier of the entity")),
		mcpproto.WithObject("identity_data", mcpproto.Description("Attributes of the entity, e.g. name, stage, address")),
	), h.rememberIdentity)

	s.AddTool(mcpproto.NewTool("remember_event",
		mcpproto.WithDescription("Store something that happened, like a showing, a call or an offer, with the entities involved."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session the memory belongs to")),
		mcpproto.WithString("event_type", mcpproto.Required(), mcpproto.Description("Kind of event, e.g. showing, call, offer")),
		mcpproto.WithString("description", mcpproto.Required(), mcpproto.Description("What happened, in plain language")),
		mcpproto.WithArray("entities", mcpproto.Description("Entities involved in the event"), mcpproto.Items(entitySchema)),
		mcpproto.WithString("occurred_at", mcpproto.Description("When the event happened, free-form or RFC 3339")),
	), h.rememberEvent)

	s.AddTool(mcpproto.NewTool("remember_observation",
		mcpproto.WithDescription("Store an observation or inference about the client, with optional confidence."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session the memory belongs to")),
		mcpproto.WithString("observation", mcpproto.Required(), mcpproto.Description("The observation to remember")),
		mcpproto.WithString("category", mcpproto.Description("Optional grouping label")),
		mcpproto.WithNumber("confidence", mcpproto.Description("How confident the observation is, between 0 and 1")),
	), h.rememberObservation)

	s.AddTool(mcpproto.NewTool("remember_goal",
		mcpproto.WithDescription("Store a goal the client is working toward. Priority raises how prominently it is recalled."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session the memory belongs to")),
		mcpproto.WithString("goal", mcpproto.Required(), mcpproto.Description("The goal to remember")),
		mcpproto.WithString("priority", mcpproto.Description("Goal priority; defaults to medium"), mcpproto.Enum("low", "medium", "high")),
		mcpproto.WithObject("metadata", mcpproto.Description("Optional extra attributes of the goal")),
	), h.rememberGoal)

	s.AddTool(mcpproto.NewTool("remember_todo",
		mcpproto.WithDescription("Store an action item, optionally due at a time and tied to a property or contact."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session the memory belongs to")),
		mcpproto.WithString("task", mcpproto.Required(), mcpproto.Description("The action item to remember")),
		mcpproto.WithString("due_at", mcpproto.Description("When the task is due, free-form or RFC 3339")),
		mcpproto.WithString("property_id", mcpproto.Description("Property the task concerns")),
		mcpproto.WithString("contact_id", mcpproto.Description("Contact the task concerns")),
	), h.rememberTodo)

	s.AddTool(mcpproto.NewTool("remember_objection",
		mcpproto.WithDescription("Store a client objection or concern, optionally tied to a property or contact."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session the memory belongs to")),
		mcpproto.WithString("objection", mcpproto.Required(), mcpproto.Description("The objection to remember")),
		mcpproto.WithString("entity_type", mcpproto.Description("Kind of entity the objection is about")),
		mcpproto.WithString("entity_id", mcpproto.Description("Identifier of that entity; required when entity_type is set")),
	), h.rememberObjection)

	s.AddTool(mcpproto.NewTool("remember_promise",
		mcpproto.WithDescription("Store a commitment the agent made, optionally due at a time and tied to a property or contact."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session the memory belongs to")),
		mcpproto.WithString("promise", mcpproto.Required(), mcpproto.Description("The commitment to remember")),
		mcpproto.WithString("due_at", mcpproto.Description("When the promise is due, free-form or RFC 3339")),
		mcpproto.WithString("property_id", mcpproto.Description("Property the promise concerns")),
		mcpproto.WithString("contact_id", mcpproto.Description("Contact the promise concerns")),
	), h.rememberPromise)

	s.AddTool(mcpproto.NewTool("get_session_summary",
		mcpproto.WithDescription("Get session totals plus the most recent memories, newest first."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session to summarize")),
		mcpproto.WithNumber("max_nodes", mcpproto.Description("How many recent memories to include; defaults to 100, capped at 1000")),
	), h.getSessionSummary)

	s.AddTool(mcpproto.NewTool("get_memory",
		mcpproto.WithDescription("Get a single memory with its live relationships."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session the memory belongs to")),
		mcpproto.WithString("node_id", mcpproto.Required(), mcpproto.Description("Identifier of the memory")),
	), h.getMemory)

	s.AddTool(mcpproto.NewTool("link_memories",
		mcpproto.WithDescription("Link two memories in the same session, e.g. an objection that blocks a goal."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session both memories belong to")),
		mcpproto.WithString("source_id", mcpproto.Required(), mcpproto.Description("Memory the link starts from")),
		mcpproto.WithString("target_id", mcpproto.Required(), mcpproto.Description("Memory the link points to")),
		mcpproto.WithString("relation", mcpproto.Description("Relationship label, e.g. blocks; defaults to related_to")),
	), h.linkMemories)

	s.AddTool(mcpproto.NewTool("forget_memory",
		mcpproto.WithDescription("Forget a memory. It disappears from recall but revives if the same content is asserted again."),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Session the memory belongs to")),
		mcpproto.WithString("node_id", mcpproto.Required(), mcpproto.Description("Identifier of the memory to forget")),
	), h.forgetMemory)
}
