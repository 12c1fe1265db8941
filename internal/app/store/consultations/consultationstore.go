package consultationstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kneetrack/kneetrack/internal/domain/models"
)

var (
	// ErrNotAssignedDoctor is returned when a doctor tries to complete or
	// cancel a consultation that belongs to a different doctor.
	ErrNotAssignedDoctor = errors.New("consultation is assigned to a different doctor")

	// ErrNotReschedulable is returned when a state change is requested on a
	// consultation that is already completed or cancelled.
	ErrNotReschedulable = errors.New("consultation is already completed or cancelled")

	errBadType   = errors.New(`consultation type must be "virtual"|"in_person"|"review"`)
	errBadStatus = errors.New("unrecognized consultation status")
	errPastTime  = errors.New("scheduled time must be in the future")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("consultations")}
}

// Schedule creates a consultation in the scheduled state.
func (s *Store) Schedule(ctx context.Context, con models.Consultation) (models.Consultation, error) {
	if con.Type == "" {
		con.Type = models.ConsultInPerson
	}
	if !models.IsValidConsultType(con.Type) {
		return models.Consultation{}, errBadType
	}
	if con.ScheduledTime.Before(time.Now()) {
		return models.Consultation{}, errPastTime
	}
	if con.Duration <= 0 {
		con.Duration = 30 * time.Minute
	}

	con.ID = primitive.NewObjectID()
	con.Status = models.ConsultScheduled
	now := time.Now()
	con.CreatedAt = now
	con.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, con); err != nil {
		return models.Consultation{}, err
	}
	return con, nil
}

// GetByID loads a consultation by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Consultation, error) {
	var con models.Consultation
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&con); err != nil {
		return nil, err
	}
	return &con, nil
}

// QueryFilter narrows List. Zero values are ignored.
type QueryFilter struct {
	DoctorID  primitive.ObjectID
	PatientID primitive.ObjectID
	Status    string
	From, To  *time.Time
}

func (f QueryFilter) query() (bson.M, error) {
	q := bson.M{}
	if !f.DoctorID.IsZero() {
		q["doctor_id"] = f.DoctorID
	}
	if !f.PatientID.IsZero() {
		q["patient_id"] = f.PatientID
	}
	if f.Status != "" {
		if !models.IsValidConsultStatus(f.Status) {
			return nil, errBadStatus
		}
		q["status"] = f.Status
	}
	if f.From != nil || f.To != nil {
		r := bson.M{}
		if f.From != nil {
			r["$gte"] = *f.From
		}
		if f.To != nil {
			r["$lte"] = *f.To
		}
		q["scheduled_time"] = r
	}
	return q, nil
}

// List returns consultations matching the filter, soonest first, plus the
// total match count for pagination.
func (s *Store) List(ctx context.Context, f QueryFilter, skip, limit int64) ([]models.Consultation, int64, error) {
	q, err := f.query()
	if err != nil {
		return nil, 0, err
	}

	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_time", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var cons []models.Consultation
	if err := cur.All(ctx, &cons); err != nil {
		return nil, 0, err
	}
	return cons, total, nil
}

// Update applies a field-filtered patch. Rescheduling (scheduled_time in the
// patch) is refused once the consultation has left the scheduled state.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, patch bson.M) (*models.Consultation, error) {
	if t, ok := patch["type"].(string); ok && !models.IsValidConsultType(t) {
		return nil, errBadType
	}
	if len(patch) == 0 {
		return s.GetByID(ctx, id)
	}

	filter := bson.M{"_id": id}
	if _, resched := patch["scheduled_time"]; resched {
		filter["status"] = bson.M{"$in": bson.A{models.ConsultScheduled, models.ConsultInProgress}}
	}

	set := bson.M{"updated_at": time.Now()}
	for k, v := range patch {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var con models.Consultation
	err := s.c.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&con)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if existing, gerr := s.GetByID(ctx, id); gerr == nil && existing != nil {
			return nil, ErrNotReschedulable
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return &con, nil
}

// Complete marks a consultation finished and records the doctor's findings.
// Only the assigned doctor may complete it.
func (s *Store) Complete(ctx context.Context, id, doctorID primitive.ObjectID, findings *models.ClinicalFindings, notes string) (*models.Consultation, error) {
	set := bson.M{
		"status":     models.ConsultCompleted,
		"updated_at": time.Now(),
	}
	if findings != nil {
		set["findings"] = findings
	}
	if notes != "" {
		set["notes"] = notes
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var con models.Consultation
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"_id":       id,
			"doctor_id": doctorID,
			"status":    bson.M{"$in": bson.A{models.ConsultScheduled, models.ConsultInProgress}},
		},
		bson.M{"$set": set},
		opts,
	).Decode(&con)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.classifyStateErr(ctx, id, doctorID)
	}
	if err != nil {
		return nil, err
	}
	return &con, nil
}

// Cancel moves a pending consultation to cancelled with a reason. Either
// party may cancel; callers enforce who is allowed to reach this.
func (s *Store) Cancel(ctx context.Context, id primitive.ObjectID, reason string) (*models.Consultation, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var con models.Consultation
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"_id":    id,
			"status": bson.M{"$in": bson.A{models.ConsultScheduled, models.ConsultInProgress}},
		},
		bson.M{"$set": bson.M{
			"status":              models.ConsultCancelled,
			"cancellation_reason": reason,
			"updated_at":          time.Now(),
		}},
		opts,
	).Decode(&con)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if existing, gerr := s.GetByID(ctx, id); gerr == nil && existing != nil {
			return nil, ErrNotReschedulable
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return &con, nil
}

// MarkNoShow records that the patient did not attend.
func (s *Store) MarkNoShow(ctx context.Context, id, doctorID primitive.ObjectID) (*models.Consultation, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var con models.Consultation
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"_id":       id,
			"doctor_id": doctorID,
			"status":    models.ConsultScheduled,
		},
		bson.M{"$set": bson.M{
			"status":     models.ConsultNoShow,
			"updated_at": time.Now(),
		}},
		opts,
	).Decode(&con)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.classifyStateErr(ctx, id, doctorID)
	}
	if err != nil {
		return nil, err
	}
	return &con, nil
}

// classifyStateErr explains why a guarded transition matched nothing: wrong
// doctor, terminal state, or missing document.
func (s *Store) classifyStateErr(ctx context.Context, id, doctorID primitive.ObjectID) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.DoctorID != doctorID {
		return ErrNotAssignedDoctor
	}
	return ErrNotReschedulable
}
