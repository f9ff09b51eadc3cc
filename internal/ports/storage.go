package ports

import (
	"context"
	"io"
)

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// In localfs this is the original object_key.
	// In gdrive it is the Drive fileId, needed for later retrieval.
	ObjectKey string
	Size      int64
}

// StorageProvider is the durable store behind the publish pipeline's mirror
// step. Implementations: localfs, gdrive.
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)

	// PublicURL returns the long-lived fetchable URL for a stored object.
	PublicURL(objectKey string) string

	// OwnsURL reports whether a URL already points into this store, i.e.
	// the asset no longer depends on the render provider's CDN.
	OwnsURL(url string) bool
}
