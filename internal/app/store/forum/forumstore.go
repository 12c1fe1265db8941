package forumstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kneetrack/kneetrack/internal/app/system/htmlsanitize"
	"github.com/kneetrack/kneetrack/internal/app/system/normalize"
	"github.com/kneetrack/kneetrack/internal/domain/models"
)

var (
	errBadCategory = errors.New("unrecognized forum category")
	errEmptyTitle  = errors.New("post title is required")
	errEmptyBody   = errors.New("body is required")
)

// Store covers forum posts and their comments. Counters on posts and
// comments are recomputed by explicit calls after comment writes.
type Store struct {
	posts    *mongo.Collection
	comments *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		posts:    db.Collection("forum_posts"),
		comments: db.Collection("forum_comments"),
	}
}

// CreatePost inserts a post after sanitizing its user-supplied HTML.
func (s *Store) CreatePost(ctx context.Context, p models.ForumPost) (models.ForumPost, error) {
	p.Title = normalize.Name(p.Title)
	if p.Title == "" {
		return models.ForumPost{}, errEmptyTitle
	}
	p.Body = htmlsanitize.Sanitize(p.Body)
	if p.Body == "" {
		return models.ForumPost{}, errEmptyBody
	}
	if p.Category == "" {
		p.Category = "general"
	}
	if !models.IsValidForumCategory(p.Category) {
		return models.ForumPost{}, errBadCategory
	}

	p.ID = primitive.NewObjectID()
	p.Likes = 0
	p.CommentCount = 0
	p.Lifecycle = models.NewLifecycle()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.posts.InsertOne(ctx, p); err != nil {
		return models.ForumPost{}, err
	}
	return p, nil
}

// GetPost loads an active post by ObjectID.
func (s *Store) GetPost(ctx context.Context, id primitive.ObjectID) (*models.ForumPost, error) {
	var p models.ForumPost
	if err := s.posts.FindOne(ctx, bson.M{"_id": id, "active": true}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPosts returns active posts, optionally filtered by category, newest
// first, with the total count.
func (s *Store) ListPosts(ctx context.Context, category string, skip, limit int64) ([]models.ForumPost, int64, error) {
	q := bson.M{"active": true}
	if category != "" {
		if !models.IsValidForumCategory(category) {
			return nil, 0, errBadCategory
		}
		q["category"] = category
	}

	total, err := s.posts.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.posts.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var ps []models.ForumPost
	if err := cur.All(ctx, &ps); err != nil {
		return nil, 0, err
	}
	return ps, total, nil
}

// UpdatePost applies a field-filtered patch to the author's own post.
func (s *Store) UpdatePost(ctx context.Context, id, authorID primitive.ObjectID, patch bson.M) (*models.ForumPost, error) {
	if c, ok := patch["category"].(string); ok && !models.IsValidForumCategory(c) {
		return nil, errBadCategory
	}
	if b, ok := patch["body"].(string); ok {
		patch["body"] = htmlsanitize.Sanitize(b)
	}
	if len(patch) == 0 {
		return s.GetPost(ctx, id)
	}

	set := bson.M{"updated_at": time.Now()}
	for k, v := range patch {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.ForumPost
	err := s.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": authorID, "active": true},
		bson.M{"$set": set},
		opts,
	).Decode(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePost soft-deletes a post. Admins pass a zero authorID to bypass the
// ownership check.
func (s *Store) DeletePost(ctx context.Context, id, authorID primitive.ObjectID) error {
	filter := bson.M{"_id": id, "active": true}
	if !authorID.IsZero() {
		filter["user_id"] = authorID
	}
	now := time.Now()
	res, err := s.posts.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"active":     false,
		"ended_at":   now,
		"updated_at": now,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// LikePost increments the post's like counter.
func (s *Store) LikePost(ctx context.Context, id primitive.ObjectID) (*models.ForumPost, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.ForumPost
	err := s.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$inc": bson.M{"likes": 1}},
		opts,
	).Decode(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateComment inserts a comment and recomputes the affected counters.
func (s *Store) CreateComment(ctx context.Context, c models.ForumComment) (models.ForumComment, error) {
	c.Body = htmlsanitize.Sanitize(c.Body)
	if c.Body == "" {
		return models.ForumComment{}, errEmptyBody
	}
	if _, err := s.GetPost(ctx, c.PostID); err != nil {
		return models.ForumComment{}, err
	}

	c.ID = primitive.NewObjectID()
	c.Likes = 0
	c.ReplyCount = 0
	c.Lifecycle = models.NewLifecycle()
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := s.comments.InsertOne(ctx, c); err != nil {
		return models.ForumComment{}, err
	}
	if err := s.RecomputeCommentCount(ctx, c.PostID); err != nil {
		return models.ForumComment{}, err
	}
	if c.ParentCommentID != nil {
		if err := s.RecomputeReplyCount(ctx, *c.ParentCommentID); err != nil {
			return models.ForumComment{}, err
		}
	}
	return c, nil
}

// GetComment loads an active comment by ObjectID.
func (s *Store) GetComment(ctx context.Context, id primitive.ObjectID) (*models.ForumComment, error) {
	var c models.ForumComment
	if err := s.comments.FindOne(ctx, bson.M{"_id": id, "active": true}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments returns a post's active comments oldest first, with the total.
func (s *Store) ListComments(ctx context.Context, postID primitive.ObjectID, skip, limit int64) ([]models.ForumComment, int64, error) {
	q := bson.M{"post_id": postID, "active": true}

	total, err := s.comments.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.comments.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var cs []models.ForumComment
	if err := cur.All(ctx, &cs); err != nil {
		return nil, 0, err
	}
	return cs, total, nil
}

// DeleteComment soft-deletes a comment and recomputes the affected counters.
// Admins pass a zero authorID to bypass the ownership check.
func (s *Store) DeleteComment(ctx context.Context, id, authorID primitive.ObjectID) error {
	filter := bson.M{"_id": id, "active": true}
	if !authorID.IsZero() {
		filter["user_id"] = authorID
	}

	now := time.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c models.ForumComment
	err := s.comments.FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{
		"active":     false,
		"ended_at":   now,
		"updated_at": now,
	}}, opts).Decode(&c)
	if err != nil {
		return err
	}
	if err := s.RecomputeCommentCount(ctx, c.PostID); err != nil {
		return err
	}
	if c.ParentCommentID != nil {
		return s.RecomputeReplyCount(ctx, *c.ParentCommentID)
	}
	return nil
}

// LikeComment increments the comment's like counter.
func (s *Store) LikeComment(ctx context.Context, id primitive.ObjectID) (*models.ForumComment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c models.ForumComment
	err := s.comments.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$inc": bson.M{"likes": 1}},
		opts,
	).Decode(&c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RecomputeCommentCount counts the post's active comments and writes the
// result onto the post document.
func (s *Store) RecomputeCommentCount(ctx context.Context, postID primitive.ObjectID) error {
	n, err := s.comments.CountDocuments(ctx, bson.M{"post_id": postID, "active": true})
	if err != nil {
		return err
	}
	_, err = s.posts.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$set": bson.M{"comment_count": n}})
	return err
}

// RecomputeReplyCount counts a comment's active replies and writes the
// result onto the parent comment.
func (s *Store) RecomputeReplyCount(ctx context.Context, commentID primitive.ObjectID) error {
	n, err := s.comments.CountDocuments(ctx, bson.M{"parent_comment_id": commentID, "active": true})
	if err != nil {
		return err
	}
	_, err = s.comments.UpdateOne(ctx, bson.M{"_id": commentID}, bson.M{"$set": bson.M{"reply_count": n}})
	return err
}
