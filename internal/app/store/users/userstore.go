package userstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kneetrack/kneetrack/internal/app/system/normalize"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrDuplicateLicense is returned when a doctor's license number is already registered.
	ErrDuplicateLicense = errors.New("a doctor with this license number already exists")
	errBadRole          = errors.New(`role must be "patient"|"doctor"|"admin"`)
	errDoctorInfoNeeded = errors.New("doctor accounts require license number and specialization")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by normalized email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByRole loads a user by ObjectID, returning an error if the user
// does not exist or holds a different role.
func (s *Store) GetByRole(ctx context.Context, id primitive.ObjectID, role string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "role": role}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing & validating fields.
// The caller supplies an already-hashed password.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Email = normalize.Email(u.Email)
	u.FirstName = normalize.Name(u.FirstName)
	u.LastName = normalize.Name(u.LastName)
	u.Role = normalize.Role(u.Role)
	u.Active = true

	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}
	if u.Role == models.RoleDoctor {
		if u.DoctorInfo == nil || u.DoctorInfo.LicenseNumber == "" || u.DoctorInfo.Specialization == "" {
			return models.User{}, errDoctorInfoNeeded
		}
	}

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			if u.Role == models.RoleDoctor {
				// Email and license share duplicate-key semantics; a
				// second lookup tells which index fired.
				if existing, lookupErr := s.GetByEmail(ctx, u.Email); lookupErr == nil && existing != nil {
					return models.User{}, ErrDuplicateEmail
				}
				return models.User{}, ErrDuplicateLicense
			}
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// Update applies a field-filtered patch (see policy/fieldgrant) to a
// user and returns the updated document.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, patch bson.M) (*models.User, error) {
	if len(patch) == 0 {
		return s.GetByID(ctx, id)
	}
	set := bson.M{"updated_at": time.Now()}
	for k, v := range patch {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &u, nil
}

// SetPassword replaces the stored bcrypt hash.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password":   hash,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Deactivate soft-deletes a user; their records stay for audit and
// clinical history, but authentication stops immediately.
func (s *Store) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"active":     false,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Role       string
	ActiveOnly bool
	Search     string // matches first/last name prefix or email
}

// List returns users matching the filter, ordered by last name, with
// the total count for pagination.
func (s *Store) List(ctx context.Context, filter ListFilter, skip, limit int64) ([]models.User, int64, error) {
	q := bson.M{}
	if filter.Role != "" {
		q["role"] = normalize.Role(filter.Role)
	}
	if filter.ActiveOnly {
		q["active"] = true
	}
	if search := normalize.QueryParam(filter.Search); search != "" {
		q["$or"] = bson.A{
			bson.M{"first_name": bson.M{"$regex": "^" + regexp.QuoteMeta(search), "$options": "i"}},
			bson.M{"last_name": bson.M{"$regex": "^" + regexp.QuoteMeta(search), "$options": "i"}},
			bson.M{"email": bson.M{"$regex": "^" + regexp.QuoteMeta(normalize.Email(search))}},
		}
	}

	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "last_name", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ActiveIDs returns the IDs of all active users, optionally restricted
// to one role. Used for notification fan-out.
func (s *Store) ActiveIDs(ctx context.Context, role string) ([]primitive.ObjectID, error) {
	q := bson.M{"active": true}
	if role != "" {
		q["role"] = normalize.Role(role)
	}

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}
