// internal/app/system/limits/limits.go
package limits

// Request body size limits for various features.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBodySize is the maximum size for JSON request bodies.
	MaxJSONBodySize = 1 << 20 // 1 MB

	// MaxXRayUploadSize is the maximum size for an X-ray image upload.
	// Handlers pass this to ParseMultipartForm.
	MaxXRayUploadSize = 10 << 20 // 10 MB
)
