// internal/domain/models/forum.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Forum post categories.
var forumCategories = map[string]struct{}{
	"exercise":        {},
	"diet":            {},
	"pain_management": {},
	"success_stories": {},
	"general":         {},
	"medication":      {},
	"lifestyle":       {},
}

// ForumPost is a community discussion topic. CommentCount is recomputed by an
// explicit step in the comment create/delete path, never by a storage hook.
type ForumPost struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`

	Title    string   `bson:"title" json:"title"`
	Body     string   `bson:"body" json:"body"`
	Category string   `bson:"category" json:"category"`
	Tags     []string `bson:"tags,omitempty" json:"tags,omitempty"`

	Likes        int `bson:"likes" json:"likes"`
	CommentCount int `bson:"comment_count" json:"comment_count"`

	Lifecycle `bson:",inline"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ForumComment is a reply to a post, optionally nested under another comment.
// ReplyCount is recomputed the same explicit way as ForumPost.CommentCount.
type ForumComment struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PostID primitive.ObjectID `bson:"post_id" json:"post_id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`

	ParentCommentID *primitive.ObjectID `bson:"parent_comment_id,omitempty" json:"parent_comment_id,omitempty"`

	Body       string `bson:"body" json:"body"`
	Likes      int    `bson:"likes" json:"likes"`
	ReplyCount int    `bson:"reply_count" json:"reply_count"`

	Lifecycle `bson:",inline"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidForumCategory reports whether c is a recognized post category.
func IsValidForumCategory(c string) bool {
	_, ok := forumCategories[c]
	return ok
}
