// Package fieldgrant declares which request fields each role may write
// on update operations. Handlers pass the raw patch through Filter and
// persist only what survives; anything else is silently dropped, the
// same way an unknown field would be.
//
// The table is data, not code: adding a field to an entity's grant is a
// one-line change, and the filter itself has no role-specific branches.
package fieldgrant

import "github.com/kneetrack/kneetrack/internal/domain/models"

// Entities with updatable fields.
const (
	EntityUsers           = "users"
	EntityActivityLogs    = "activity_logs"
	EntityDietLogs        = "diet_logs"
	EntityConsultations   = "consultations"
	EntityMedications     = "medication_reminders"
	EntityPredictions     = "ai_predictions"
	EntityRecommendations = "recommendations"
	EntityForumPosts      = "forum_posts"
	EntityRelations       = "doctor_patient_relations"
	EntityKLGrades        = "kl_grades"
)

// grant lists the fields any authorized updater may write, plus
// per-role extensions.
type grant struct {
	base    []string
	perRole map[string][]string
}

var table = map[string]grant{
	EntityUsers: {
		base: []string{
			"first_name", "last_name", "phone", "profile_picture",
			"date_of_birth", "gender", "medical_info", "doctor_info",
		},
		perRole: map[string][]string{
			models.RoleAdmin: {"email", "role", "active"},
		},
	},
	EntityActivityLogs: {
		base: []string{
			"steps", "distance_km", "calories_burned", "active_minutes",
			"knee_band", "target_steps",
		},
	},
	EntityDietLogs: {
		base: []string{"meals", "source"},
	},
	EntityConsultations: {
		base: []string{
			"type", "scheduled_time", "duration_ns", "status",
			"meeting", "cancellation_reason",
		},
		perRole: map[string][]string{
			models.RoleDoctor: {"findings", "notes"},
		},
	},
	EntityMedications: {
		base: []string{
			"name", "dosage", "frequency", "times",
			"start_date", "end_date", "active",
		},
	},
	EntityPredictions: {
		// Predictions are immutable model output; doctors may only
		// attach review notes.
		base: []string{"review_notes"},
	},
	EntityRecommendations: {
		base: []string{"exercise", "diet", "medication", "lifestyle"},
	},
	EntityForumPosts: {
		base: []string{"title", "body", "category", "tags"},
	},
	EntityRelations: {
		// Parties are immutable; only the grant set and descriptive
		// fields may change.
		base: []string{"type", "permissions", "notes"},
	},
	EntityKLGrades: {
		// The grade number itself never changes.
		base: []string{"description", "severity", "recommendations"},
	},
}

// Filter returns the subset of patch whose keys the given role may
// write on entity. Unknown entities yield an empty map.
func Filter(role, entity string, patch map[string]any) map[string]any {
	g, ok := table[entity]
	if !ok {
		return map[string]any{}
	}

	allowed := make(map[string]struct{}, len(g.base))
	for _, f := range g.base {
		allowed[f] = struct{}{}
	}
	for _, f := range g.perRole[role] {
		allowed[f] = struct{}{}
	}

	out := make(map[string]any, len(patch))
	for k, v := range patch {
		if _, ok := allowed[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Allows reports whether role may write field on entity.
func Allows(role, entity, field string) bool {
	g, ok := table[entity]
	if !ok {
		return false
	}
	for _, f := range g.base {
		if f == field {
			return true
		}
	}
	for _, f := range g.perRole[role] {
		if f == field {
			return true
		}
	}
	return false
}
