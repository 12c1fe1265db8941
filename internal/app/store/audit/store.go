// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Actions recorded in the audit trail.
const (
	ActionUserLogin             = "user_login"
	ActionUserLogout            = "user_logout"
	ActionUserCreated           = "user_created"
	ActionUserUpdated           = "user_updated"
	ActionUserDeleted           = "user_deleted"
	ActionXRayUploaded          = "xray_uploaded"
	ActionPredictionGenerated   = "ai_prediction_generated"
	ActionRecommendationCreated = "recommendation_created"
	ActionRecommendationUpdated = "recommendation_updated"
	ActionMedicationCreated     = "medication_reminder_created"
	ActionActivityLogged        = "activity_logged"
	ActionWeightLogged          = "weight_logged"
	ActionDietLogged            = "diet_logged"
	ActionConsultScheduled      = "consultation_scheduled"
	ActionReportGenerated       = "progress_report_generated"
	ActionConsultCompleted      = "consultation_completed"
	ActionMessageSent           = "message_sent"
	ActionForumPostCreated      = "forum_post_created"
	ActionForumCommentCreated   = "forum_comment_created"
	ActionNotificationSent      = "notification_sent"
	ActionDataExported          = "data_exported"
	ActionPasswordChanged       = "password_changed"
	ActionProfileUpdated        = "profile_updated"
	ActionRelationEstablished   = "relation_established"
	ActionRelationEnded         = "relation_ended"
	ActionRelationDeleted       = "relation_deleted"
	ActionAccessDenied          = "access_denied"
	ActionPanicRecovered        = "panic_recovered"
)

// Entity types an audit entry can reference.
const (
	EntityUsers           = "users"
	EntityXRayImages      = "xray_images"
	EntityPredictions     = "ai_predictions"
	EntityRecommendations = "recommendations"
	EntityMedications     = "medication_reminders"
	EntityActivityLogs    = "activity_logs"
	EntityWeightLogs      = "weight_logs"
	EntityDietLogs        = "diet_logs"
	EntityConsultations   = "consultations"
	EntityMessages        = "messages"
	EntityForumPosts      = "forum_posts"
	EntityForumComments   = "forum_comments"
	EntityNotifications   = "notifications"
	EntityRelations       = "doctor_patient_relations"
	EntityProgressReports = "progress_reports"
	EntityProgressions    = "disease_progressions"
	EntitySystem          = "system"
)

// Outcome statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusWarning = "warning"
)

// Entry is one audit trail record. Changes holds a redacted
// before/after snapshot; see auditlog.Redact.
type Entry struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time           `bson:"timestamp" json:"timestamp"`

	// Who
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	UserEmail string             `bson:"user_email,omitempty" json:"userEmail,omitempty"`
	UserRole  string             `bson:"user_role,omitempty" json:"userRole,omitempty"`

	// What
	Action     string              `bson:"action" json:"action"`
	EntityType string              `bson:"entity_type" json:"entityType"`
	EntityID   *primitive.ObjectID `bson:"entity_id,omitempty" json:"entityId,omitempty"`
	Changes    bson.M              `bson:"changes,omitempty" json:"changes,omitempty"`

	// Request context
	Method     string `bson:"method,omitempty" json:"method,omitempty"`
	Endpoint   string `bson:"endpoint,omitempty" json:"endpoint,omitempty"`
	IPAddress  string `bson:"ip_address,omitempty" json:"ipAddress,omitempty"`
	UserAgent  string `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	RequestID  string `bson:"request_id,omitempty" json:"requestId,omitempty"`
	StatusCode int    `bson:"status_code,omitempty" json:"statusCode,omitempty"`

	// Outcome
	Status       string `bson:"status" json:"status"`
	ErrorMessage string `bson:"error_message,omitempty" json:"errorMessage,omitempty"`

	Metadata bson.M `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// QueryFilter defines filters for querying the audit trail.
type QueryFilter struct {
	UserID     *primitive.ObjectID
	Action     string
	EntityType string
	EntityID   *primitive.ObjectID
	Status     string
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int64
	Offset     int64
}

// Store manages audit trail records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_logs")}
}

// Append records an audit entry.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Status == "" {
		e.Status = StatusSuccess
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

func (f QueryFilter) query() bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	if f.Action != "" {
		q["action"] = f.Action
	}
	if f.EntityType != "" {
		q["entity_type"] = f.EntityType
	}
	if f.EntityID != nil {
		q["entity_id"] = *f.EntityID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.StartTime != nil || f.EndTime != nil {
		timeQuery := bson.M{}
		if f.StartTime != nil {
			timeQuery["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			timeQuery["$lte"] = *f.EndTime
		}
		q["timestamp"] = timeQuery
	}
	return q
}

// Query retrieves entries matching the filter, most recent first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByFilter returns the count of entries matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}

// GetByID loads a single entry.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*Entry, error) {
	var e Entry
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteOlderThan removes entries with a timestamp before cutoff and
// returns how many were deleted. Backstop for the TTL index and the
// admin cleanup endpoint.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
