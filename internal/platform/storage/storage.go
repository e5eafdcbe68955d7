package storage

import "context"

// ObjectStore is the blob-store boundary the media endpoints depend on. The
// media serving path never reaches past this interface into client internals.
type ObjectStore interface {
	// GetObject fetches the bytes stored under a filename.
	GetObject(ctx context.Context, filename string) ([]byte, error)

	// PutObject stores bytes under a filename and returns its public URL.
	PutObject(ctx context.Context, filename string, data []byte, contentType string) (string, error)

	// DeleteObject removes a stored object. Deleting a missing object is not
	// an error.
	DeleteObject(ctx context.Context, filename string) error

	// FilenameFromURL maps a stored object's public URL back to its filename.
	// Returns "" when the URL does not belong to this store.
	FilenameFromURL(url string) string

	// MakeFilePath returns the object key for a filename, including any
	// configured prefix.
	MakeFilePath(filename string) string

	// ObjectURL returns the public URL for a filename.
	ObjectURL(filename string) string
}
