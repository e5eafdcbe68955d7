package media

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"gifable/internal/engine/giphy"
	"gifable/internal/platform/models"
	"gifable/internal/platform/storage"
)

// Source says where a media id's bytes live.
type Source int

const (
	SourceLocal Source = iota
	SourceGiphy
)

// Resolved is the outcome of mapping a media record to a fetchable object.
type Resolved struct {
	Source      Source
	Filename    string // object key within the store (local only)
	ContentType string
	URL         string // public URL of the backing object (local only)
}

// ErrBadObjectURL marks a stored media URL that cannot be decomposed into a
// storage key. These URLs are server-issued, so this is stored-data
// corruption, not caller error.
var ErrBadObjectURL = errors.New("media url does not map to a stored object")

// Resolver maps media records to their backing objects.
type Resolver struct {
	store storage.ObjectStore
}

func NewResolver(store storage.ObjectStore) *Resolver {
	return &Resolver{store: store}
}

// SourceOf classifies a media id without touching any backend.
func SourceOf(mediaID string) Source {
	if giphy.IsGiphyID(mediaID) {
		return SourceGiphy
	}
	return SourceLocal
}

// Resolve maps a local media record to its full-size object.
func (r *Resolver) Resolve(m *models.Media) (*Resolved, error) {
	return r.resolveURL(m.URL, false)
}

// ResolveThumbnail maps a record to its thumbnail object, falling back to the
// original when no thumbnail was generated.
func (r *Resolver) ResolveThumbnail(m *models.Media) (*Resolved, error) {
	u := m.ThumbnailURL
	if u == "" {
		u = m.URL
	}
	return r.resolveURL(u, true)
}

func (r *Resolver) resolveURL(rawURL string, thumbnail bool) (*Resolved, error) {
	filename := r.store.FilenameFromURL(rawURL)
	if filename == "" {
		return nil, fmt.Errorf("%w: %s", ErrBadObjectURL, rawURL)
	}

	contentType := ContentTypeForFilename(filename)
	if thumbnail {
		contentType = ThumbnailContentType(filename)
	}

	return &Resolved{
		Source:      SourceLocal,
		Filename:    filename,
		ContentType: contentType,
		URL:         r.store.ObjectURL(filename),
	}, nil
}

// ContentTypeForFilename derives a media content type from the filename
// extension. Unknown extensions get the generic binary type.
func ContentTypeForFilename(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(filename), ".")) {
	case "gif":
		return "image/gif"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ThumbnailContentType is like ContentTypeForFilename but defaults to JPEG,
// which is what the thumbnailer produces when the extension is ambiguous.
func ThumbnailContentType(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(filename), ".")) {
	case "gif":
		return "image/gif"
	case "png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

// MXCURI builds the Matrix content URI for a media id served by serverName.
func MXCURI(serverName, mediaID string) string {
	return fmt.Sprintf("mxc://%s/%s", serverName, mediaID)
}
