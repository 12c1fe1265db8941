// Package patientaccess decides who may touch a patient's records.
//
// Authorization rules:
//   - Admins can access any patient's data
//   - Patients can access their own data
//   - Doctors can access data for patients they hold an ACTIVE relation
//     with, subject to that relation's permission flags
//   - Everyone else is denied
//
// Decisions are pure given the relation lookup; callers are responsible
// for auditing denied mutations. A deny always maps to 403; handlers
// must not turn it into 404 or otherwise leak whether the patient exists.
package patientaccess

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// Grounds for a decision, useful in logs and tests.
const (
	GroundAdmin    = "admin"
	GroundSelf     = "self"
	GroundRelation = "active_relation"
	GroundDenied   = "denied"
)

// Permission names the relation flag a doctor needs for an operation.
// Admins and the patient themselves bypass permission checks.
type Permission int

const (
	// PermViewPredictions covers reads of x-rays, AI predictions, and
	// other medical records.
	PermViewPredictions Permission = iota
	// PermViewActivity covers reads of activity, diet, and weight logs.
	PermViewActivity
	// PermModifyRecommendations covers creating or updating care
	// recommendations.
	PermModifyRecommendations
	// PermPrescribe covers creating medication reminders for a patient.
	PermPrescribe
)

// RelationSource looks up the active relation between a doctor and a
// patient. It returns (nil, nil) when no active relation exists.
type RelationSource interface {
	ActiveRelation(ctx context.Context, doctorID, patientID primitive.ObjectID) (*models.DoctorPatientRelation, error)
}

// Decision is the outcome of an access check.
type Decision struct {
	Allowed bool
	Ground  string
}

func allow(ground string) Decision { return Decision{Allowed: true, Ground: ground} }

var denied = Decision{Allowed: false, Ground: GroundDenied}

// Check decides whether actor may perform an operation requiring perm
// on the given patient's data. actor may be nil (unauthenticated).
func Check(ctx context.Context, rels RelationSource, actor *models.User, patientID primitive.ObjectID, perm Permission) (Decision, error) {
	if actor == nil {
		return denied, nil
	}

	switch actor.Role {
	case models.RoleAdmin:
		return allow(GroundAdmin), nil

	case models.RolePatient:
		if actor.ID == patientID {
			return allow(GroundSelf), nil
		}
		return denied, nil

	case models.RoleDoctor:
		// Doctors access their own profile data like anyone else.
		if actor.ID == patientID {
			return allow(GroundSelf), nil
		}
		rel, err := rels.ActiveRelation(ctx, actor.ID, patientID)
		if err != nil {
			return denied, err
		}
		if rel == nil || !rel.Active {
			return denied, nil
		}
		if !permitted(rel.Permissions, perm) {
			return denied, nil
		}
		return allow(GroundRelation), nil
	}

	return denied, nil
}

func permitted(p models.RelationPermissions, perm Permission) bool {
	switch perm {
	case PermViewPredictions:
		return p.ViewPredictions
	case PermViewActivity:
		return p.ViewActivityData
	case PermModifyRecommendations:
		return p.ModifyRecommendations
	case PermPrescribe:
		return p.PrescribeMedications
	}
	return false
}
