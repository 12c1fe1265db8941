// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Options carries tunables that affect index definitions.
type Options struct {
	// AuditRetention controls the TTL on audit_logs.timestamp.
	// Zero disables the TTL index.
	AuditRetention time.Duration
}

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, opts Options) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureRelations(ctx, db); err != nil {
		problems = append(problems, "doctor_patient_relations: "+err.Error())
	}
	if err := ensureAuditLogs(ctx, db, opts.AuditRetention); err != nil {
		problems = append(problems, "audit_logs: "+err.Error())
	}
	if err := ensureActivityLogs(ctx, db); err != nil {
		problems = append(problems, "activity_logs: "+err.Error())
	}
	if err := ensureDietLogs(ctx, db); err != nil {
		problems = append(problems, "diet_logs: "+err.Error())
	}
	if err := ensureWeightLogs(ctx, db); err != nil {
		problems = append(problems, "weight_logs: "+err.Error())
	}
	if err := ensureMedicationReminders(ctx, db); err != nil {
		problems = append(problems, "medication_reminders: "+err.Error())
	}
	if err := ensureConsultations(ctx, db); err != nil {
		problems = append(problems, "consultations: "+err.Error())
	}
	if err := ensureMessages(ctx, db); err != nil {
		problems = append(problems, "messages: "+err.Error())
	}
	if err := ensureForum(ctx, db); err != nil {
		problems = append(problems, "forum: "+err.Error())
	}
	if err := ensureNotifications(ctx, db); err != nil {
		problems = append(problems, "notifications: "+err.Error())
	}
	if err := ensureXRays(ctx, db); err != nil {
		problems = append(problems, "xray_images: "+err.Error())
	}
	if err := ensurePredictions(ctx, db); err != nil {
		problems = append(problems, "ai_predictions: "+err.Error())
	}
	if err := ensureKLGrades(ctx, db); err != nil {
		problems = append(problems, "kl_grades: "+err.Error())
	}
	if err := ensureRecommendations(ctx, db); err != nil {
		problems = append(problems, "recommendations: "+err.Error())
	}
	if err := ensureProgress(ctx, db); err != nil {
		problems = append(problems, "progress: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name               string `bson:"name"`
	Key                bson.D `bson:"key"`
	Unique             *bool  `bson:"unique,omitempty"`
	ExpireAfterSeconds *int32 `bson:"expireAfterSeconds,omitempty"`
	PartialFilter      bson.D `bson:"partialFilterExpression,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

func sameInt32Ptr(a, b *int32) bool {
	av := int32(0)
	bv := int32(0)
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		var desiredTTL *int32
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
			if m.Options.ExpireAfterSeconds != nil {
				desiredTTL = m.Options.ExpireAfterSeconds
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		zap.L().Info("ensuring index",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique))

		// 1) Load existing indexes
		existing := map[string]existingIndex{} // sig -> index
		cur, err := coll.Indexes().List(ctx)
		if err == nil {
			for cur.Next(ctx) {
				var idx existingIndex
				if err := cur.Decode(&idx); err != nil {
					zap.L().Warn("failed to decode existing index",
						zap.String("collection", coll.Name()),
						zap.Error(err))
					continue
				}
				existing[keySig(idx.Key)] = idx
			}
			cur.Close(ctx)
		}

		if ex, ok := existing[desiredSig]; ok {
			// Same key pattern exists already.
			if sameBoolPtr(desiredUnique, ex.Unique) && sameInt32Ptr(desiredTTL, ex.ExpireAfterSeconds) {
				if desiredName != "" && ex.Name != desiredName {
					zap.L().Info("renaming index to align with desired name",
						zap.String("collection", coll.Name()),
						zap.String("from", ex.Name),
						zap.String("to", desiredName),
						zap.String("keys", desiredSig))

					if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
						errs = append(errs, fmt.Sprintf("%s(%s): rename drop failed: %v", coll.Name(), desiredName, err))
						continue
					}
					if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
						errs = append(errs, fmt.Sprintf("%s(%s): rename create failed: %v", coll.Name(), desiredName, err))
						continue
					}
					zap.L().Info("index renamed",
						zap.String("collection", coll.Name()),
						zap.String("name", desiredName),
						zap.String("took", time.Since(start).String()))
					continue
				}

				// Names aligned (or we don't care) → reuse
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig),
					zap.String("took", time.Since(start).String()))
				continue
			}

			// Options mismatch (e.g., retention change, upgrading to unique).
			// Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
			if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
				if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
					errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
				} else {
					errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				}
				continue
			}
			zap.L().Info("index dropped and recreated",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.String("took", time.Since(start).String()))
			continue
		}

		// 2) No existing index with the same keys: create it.
		if created, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isOptionsConflictErr(err) {
				// An index with these keys snuck in under different options;
				// reload, drop the conflict, and try once more.
				cur2, e2 := coll.Indexes().List(ctx)
				if e2 == nil {
					var match *existingIndex
					for cur2.Next(ctx) {
						var idx existingIndex
						if err := cur2.Decode(&idx); err != nil {
							continue
						}
						if keySig(idx.Key) == desiredSig {
							match = &idx
							break
						}
					}
					cur2.Close(ctx)
					if match != nil {
						if _, dropErr := coll.Indexes().DropOne(ctx, match.Name); dropErr != nil {
							zap.L().Warn("failed to drop conflicting index",
								zap.String("collection", coll.Name()),
								zap.String("name", match.Name),
								zap.Error(dropErr))
						}
						if _, e3 := coll.Indexes().CreateOne(ctx, m); e3 != nil {
							errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, e3))
							continue
						}
						zap.L().Info("index dropped and recreated (post-conflict)",
							zap.String("collection", coll.Name()),
							zap.String("name", desiredName),
							zap.String("took", time.Since(start).String()))
						continue
					}
				}
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
				continue
			}

			if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
				helper := ""
				if coll.Name() == "users" && strings.Contains(desiredSig, "email:1") {
					helper = " - duplicates exist on users.email. Example finder:\n" +
						`db.users.aggregate([{ $group: { _id: "$email", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`
				}
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)%s", coll.Name(), desiredName, helper))
				continue
			}

			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		} else {
			zap.L().Info("index ensured",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("created_name", created),
				zap.String("keys", desiredSig),
				zap.String("took", time.Since(start).String()))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                             */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Email must be unique across all users.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},

		// Role lists (admin user management, doctor pickers).
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "active", Value: 1},
				{Key: "last_name", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_active_lastname_id"),
		},

		// Medical license numbers are unique among the doctors that have one.
		{
			Keys: bson.D{{Key: "doctor_info.license_number", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_users_license").
				SetPartialFilterExpression(bson.D{
					{Key: "doctor_info.license_number", Value: bson.D{{Key: "$exists", Value: true}}},
				}),
		},
	})
}

func ensureRelations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("doctor_patient_relations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one ACTIVE relation per doctor/patient pair. Ended
		// relations fall outside the partial filter, so a pair can be
		// re-established after an end.
		{
			Keys: bson.D{
				{Key: "doctor_id", Value: 1},
				{Key: "patient_id", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_relations_doctor_patient_active").
				SetPartialFilterExpression(bson.D{
					{Key: "active", Value: true},
				}),
		},

		// A patient's care team.
		{
			Keys:    bson.D{{Key: "patient_id", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index().SetName("idx_relations_patient_active"),
		},

		// A doctor's roster.
		{
			Keys:    bson.D{{Key: "doctor_id", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index().SetName("idx_relations_doctor_active"),
		},
	})
}

func ensureAuditLogs(ctx context.Context, db *mongo.Database, retention time.Duration) error {
	c := db.Collection("audit_logs")

	models := []mongo.IndexModel{
		// Actor timeline.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_ts"),
		},
		// Entity history.
		{
			Keys:    bson.D{{Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_entity_ts"),
		},
		// Action filters on the admin screen.
		{
			Keys:    bson.D{{Key: "action", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_action_ts"),
		},
	}

	if retention > 0 {
		models = append(models, mongo.IndexModel{
			Keys: bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().
				SetName("ttl_audit_timestamp").
				SetExpireAfterSeconds(int32(retention / time.Second)),
		})
	}

	return ensureIndexSet(ctx, c, models)
}

func ensureActivityLogs(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("activity_logs")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("idx_activity_user_date"),
		},
	})
}

func ensureDietLogs(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("diet_logs")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("idx_diet_user_date"),
		},
	})
}

func ensureWeightLogs(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("weight_logs")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "measurement_date", Value: -1}},
			Options: options.Index().SetName("idx_weight_user_date"),
		},
	})
}

func ensureMedicationReminders(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("medication_reminders")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index().SetName("idx_medications_user_active"),
		},
	})
}

func ensureConsultations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("consultations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "patient_id", Value: 1}, {Key: "scheduled_time", Value: -1}},
			Options: options.Index().SetName("idx_consults_patient_sched"),
		},
		{
			Keys:    bson.D{{Key: "doctor_id", Value: 1}, {Key: "scheduled_time", Value: -1}},
			Options: options.Index().SetName("idx_consults_doctor_sched"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "scheduled_time", Value: 1}},
			Options: options.Index().SetName("idx_consults_status_sched"),
		},
	})
}

func ensureMessages(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("messages")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Thread view, newest first.
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_messages_convo_created"),
		},
		// Unread counts per recipient.
		{
			Keys:    bson.D{{Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}},
			Options: options.Index().SetName("idx_messages_receiver_read"),
		},
	})
}

func ensureForum(ctx context.Context, db *mongo.Database) error {
	posts := db.Collection("forum_posts")
	if err := ensureIndexSet(ctx, posts, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_posts_category_created"),
		},
		{
			Keys:    bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_posts_author_created"),
		},
	}); err != nil {
		return err
	}

	comments := db.Collection("forum_comments")
	return ensureIndexSet(ctx, comments, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_comments_post_created"),
		},
		{
			Keys:    bson.D{{Key: "parent_comment_id", Value: 1}},
			Options: options.Index().SetName("idx_comments_parent"),
		},
	})
}

func ensureNotifications(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("notifications")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "read", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_notifications_user_read_created"),
		},
	})
}

func ensureXRays(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("xray_images")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "uploaded_at", Value: -1}},
			Options: options.Index().SetName("idx_xrays_user_uploaded"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_xrays_status"),
		},
	})
}

func ensurePredictions(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("ai_predictions")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_predictions_user_created"),
		},
		{
			Keys:    bson.D{{Key: "xray_image_id", Value: 1}},
			Options: options.Index().SetName("idx_predictions_xray"),
		},
	})
}

func ensureKLGrades(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("kl_grades")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "grade", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_klgrades_grade"),
		},
	})
}

func ensureRecommendations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("recommendations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_recommendations_user_created"),
		},
	})
}

func ensureProgress(ctx context.Context, db *mongo.Database) error {
	reports := db.Collection("progress_reports")
	if err := ensureIndexSet(ctx, reports, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "generated_at", Value: -1}},
			Options: options.Index().SetName("idx_progress_reports_user_generated"),
		},
		{
			Keys:    bson.D{{Key: "report_type", Value: 1}},
			Options: options.Index().SetName("idx_progress_reports_type"),
		},
	}); err != nil {
		return err
	}

	progressions := db.Collection("disease_progressions")
	return ensureIndexSet(ctx, progressions, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_progressions_user"),
		},
	})
}
