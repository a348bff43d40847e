package core

// RelationRule names the edge label and strength used when a memory links
// to a referenced entity.
type RelationRule struct {
	Relation string
	Weight   float64
}

// RelationRules resolves (source node type, target entity type) pairs to a
// rule. Keys are "source/target"; "*" matches any target entity type. The
// concrete labels and weights are configurable rather than hardcoded into
// the operations; callers may override any pair.
type RelationRules map[string]RelationRule

// RelationFallback labels edges no rule claims.
const RelationFallback = "related_to"

// relatedToFallback applies when no rule matches; the weight sits at the
// bottom of the documented band.
var relatedToFallback = RelationRule{Relation: RelationFallback, Weight: 0.85}

// DefaultRelationRules returns the shipped rule table.
func DefaultRelationRules() RelationRules {
	return RelationRules{
		"preference/*":  {Relation: "describes", Weight: 0.90},
		"todo/property": {Relation: "for_property", Weight: 0.88},
		"todo/contact":  {Relation: "involved", Weight: 0.86},
		"event/*":       {Relation: "involved", Weight: 0.85},
	}
}

// Resolve picks the rule for a source node type linking to a target entity
// type, most specific key first.
func (r RelationRules) Resolve(source NodeType, targetEntity string) RelationRule {
	if rule, ok := r[string(source)+"/"+targetEntity]; ok {
		return rule
	}
	if rule, ok := r[string(source)+"/*"]; ok {
		return rule
	}
	return relatedToFallback
}

// linkWeights holds default strengths for explicitly requested relations,
// covering the documented vocabulary that no constructor emits on its own.
var linkWeights = map[string]float64{
	"describes":      0.90,
	"for_property":   0.88,
	"involved":       0.86,
	"blocks":         0.92,
	RelationFallback: 0.85,
}

// LinkWeight returns the default strength for an explicit relation label.
func LinkWeight(relation string) float64 {
	if w, ok := linkWeights[relation]; ok {
		return w
	}
	return relatedToFallback.Weight
}
