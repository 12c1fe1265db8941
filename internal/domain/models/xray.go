// internal/domain/models/xray.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// X-ray processing statuses.
const (
	XRayPending    = "pending"
	XRayProcessing = "processing"
	XRayCompleted  = "completed"
	XRayFailed     = "failed"
)

// XRayImage is the stored metadata for one uploaded radiograph. The binary
// lives on a storage.Store; ImageURL is the serving reference.
type XRayImage struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`

	ImageURL    string `bson:"image_url" json:"image_url"`
	StoragePath string `bson:"storage_path" json:"-"`
	FileName    string `bson:"file_name" json:"file_name"`
	FileSize    int64  `bson:"file_size" json:"file_size"`
	ContentType string `bson:"content_type" json:"content_type"`

	View   string `bson:"view,omitempty" json:"view,omitempty"` // AP | PA | Lateral | Oblique
	Status string `bson:"status" json:"status"`

	UploadedBy primitive.ObjectID `bson:"uploaded_by" json:"uploaded_by"`
	UploadedAt time.Time          `bson:"uploaded_at" json:"uploaded_at"`
}

// IsValidXRayView reports whether v is a recognized radiographic view.
func IsValidXRayView(v string) bool {
	return v == "AP" || v == "PA" || v == "Lateral" || v == "Oblique"
}
