// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Collections with structural invariants worth enforcing server-side.
	ensure("users", usersSchema())
	ensure("doctor_patient_relations", relationsSchema())
	ensure("audit_logs", auditLogsSchema())
	ensure("ai_predictions", predictionsSchema())
	ensure("kl_grades", klGradesSchema())

	// These don't strictly need validators; we still ensure the collections exist.
	ensure("activity_logs", nil)
	ensure("diet_logs", nil)
	ensure("weight_logs", nil)
	ensure("medication_reminders", nil)
	ensure("consultations", nil)
	ensure("messages", nil)
	ensure("forum_posts", nil)
	ensure("forum_comments", nil)
	ensure("notifications", nil)
	ensure("xray_images", nil)
	ensure("recommendations", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "password", "first_name", "last_name", "role", "active"},
			"properties": bson.M{
				"email":      bson.M{"bsonType": "string", "minLength": 3, "pattern": ".+@.+"},
				"password":   bson.M{"bsonType": "string", "minLength": 1},
				"first_name": bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"last_name":  bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"role":       bson.M{"enum": bson.A{models.RolePatient, models.RoleDoctor, models.RoleAdmin}},
				"active":     bson.M{"bsonType": "bool"},
			},
		},
	}
}

func relationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"doctor_id", "patient_id", "relation_type", "active"},
			"properties": bson.M{
				"doctor_id":     bson.M{"bsonType": "objectId"},
				"patient_id":    bson.M{"bsonType": "objectId"},
				"relation_type": bson.M{"enum": bson.A{"primary_care", "specialist", "consultant"}},
				"active":        bson.M{"bsonType": "bool"},
				"started_at":    bson.M{"bsonType": "date"},
				"ended_at":      bson.M{"bsonType": bson.A{"date", "null"}},
			},
		},
	}
}

func auditLogsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "action", "entity_type", "status", "timestamp"},
			"properties": bson.M{
				"user_id":     bson.M{"bsonType": "objectId"},
				"action":      bson.M{"bsonType": "string", "minLength": 1},
				"entity_type": bson.M{"bsonType": "string", "minLength": 1},
				"status":      bson.M{"enum": bson.A{"success", "failure", "warning"}},
				"timestamp":   bson.M{"bsonType": "date"},
			},
		},
	}
}

func predictionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "kl_grade", "oa_status"},
			"properties": bson.M{
				"user_id":  bson.M{"bsonType": "objectId"},
				"kl_grade": bson.M{"bsonType": "int", "minimum": 0, "maximum": 4},
				"oa_status": bson.M{"enum": bson.A{models.OAPresent, models.OAAbsent}},
				"confidence": bson.M{"bsonType": bson.A{"double", "int"}, "minimum": 0, "maximum": 1},
			},
		},
	}
}

func klGradesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"grade", "description", "severity"},
			"properties": bson.M{
				"grade":       bson.M{"bsonType": "int", "minimum": 0, "maximum": 4},
				"description": bson.M{"bsonType": "string", "minLength": 1},
				"severity":    bson.M{"bsonType": "string", "minLength": 1},
			},
		},
	}
}
