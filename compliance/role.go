package compliance

import "strings"

// =============================================================================
// ROLE CLASSIFIER - Free-text role label to RoleCategory
// =============================================================================

// RoleCategory is the clean tagged variant the rest of the engine works on.
type RoleCategory string

const (
	RoleUnspecified RoleCategory = "unspecified"
	RoleCoordinator RoleCategory = "coordinator"
	RoleAssistant   RoleCategory = "assistant"
	RoleInstructor  RoleCategory = "instructor"
)

// Role markers matched by substring containment.
const (
	MarkerCoordinator = "רכז"
	MarkerAssistant   = "סייע"
	MarkerComplement  = "משלים"
	MarkerCadet       = "צוער"
)

type roleRule struct {
	category RoleCategory
	markers  []string
}

// Checked in order, first match wins. "סגן רכז" (deputy) hits the
// coordinator marker.
var roleRules = []roleRule{
	{category: RoleCoordinator, markers: []string{MarkerCoordinator}},
	{category: RoleAssistant, markers: []string{MarkerAssistant, MarkerComplement, MarkerCadet}},
}

// NormalizeRole trims the label and collapses internal whitespace runs.
func NormalizeRole(label string) string {
	return strings.Join(strings.Fields(label), " ")
}

// Classify maps a free-text role label to its category. Total: unknown
// labels fall through to RoleInstructor, empty labels are RoleUnspecified.
func Classify(label string) RoleCategory {
	normalized := NormalizeRole(label)
	if normalized == "" {
		return RoleUnspecified
	}
	for _, rule := range roleRules {
		for _, m := range rule.markers {
			if strings.Contains(normalized, m) {
				return rule.category
			}
		}
	}
	return RoleInstructor
}

// ClassifyPtr is Classify for optional labels.
func ClassifyPtr(label *string) RoleCategory {
	if label == nil {
		return RoleUnspecified
	}
	return Classify(*label)
}
