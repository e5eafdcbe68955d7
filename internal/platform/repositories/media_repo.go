package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"gifable/internal/platform/models"
)

type MediaRepository struct {
	db *sql.DB
}

func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

const mediaColumns = `id, user_id, url, thumbnail_url, file_hash, labels, alt_text, width, height, color, size, is_public, created_at, updated_at`

func (r *MediaRepository) Create(m *models.Media) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	m.CreatedAt = now
	m.UpdatedAt = now

	query := `
		INSERT INTO media (` + mediaColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, m.ID, m.UserID, m.URL, m.ThumbnailURL, m.FileHash,
		m.Labels, m.AltText, m.Width, m.Height, m.Color, m.Size, m.IsPublic,
		m.CreatedAt, m.UpdatedAt)
	return err
}

// GetByID returns nil, nil when no record exists. Absence is an expected
// outcome on the media-serving path, not an error.
func (r *MediaRepository) GetByID(id string) (*models.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = ?`
	m, err := scanMedia(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *MediaRepository) Update(m *models.Media) error {
	m.UpdatedAt = time.Now().Unix()
	query := `
		UPDATE media
		SET url = ?, thumbnail_url = ?, labels = ?, alt_text = ?, width = ?, height = ?,
		    color = ?, size = ?, is_public = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query, m.URL, m.ThumbnailURL, m.Labels, m.AltText,
		m.Width, m.Height, m.Color, m.Size, m.IsPublic, m.UpdatedAt, m.ID)
	return err
}

func (r *MediaRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM media WHERE id = ?`, id)
	return err
}

// ListByUser returns the user's media, newest first, optionally filtered by a
// label substring.
func (r *MediaRepository) ListByUser(userID, search string) ([]*models.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE user_id = ?`
	args := []interface{}{userID}
	if search != "" {
		query += ` AND labels LIKE ?`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY created_at DESC`

	return r.queryMedia(query, args...)
}

// SearchPublic returns public media matching the label query, newest first.
// When viewerID is non-empty the viewer's own private media is included too.
func (r *MediaRepository) SearchPublic(query string, viewerID string, limit int) ([]*models.Media, error) {
	q := `SELECT ` + mediaColumns + ` FROM media WHERE (is_public = 1`
	args := []interface{}{}
	if viewerID != "" {
		q += ` OR user_id = ?`
		args = append(args, viewerID)
	}
	q += `)`
	if query != "" {
		q += ` AND labels LIKE ?`
		args = append(args, "%"+query+"%")
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	return r.queryMedia(q, args...)
}

// RandomPublic picks one public media record at random.
func (r *MediaRepository) RandomPublic() (*models.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE is_public = 1 ORDER BY RANDOM() LIMIT 1`
	m, err := scanMedia(r.db.QueryRow(query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *MediaRepository) Count() (int64, error) {
	var n int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM media`).Scan(&n)
	return n, err
}

func (r *MediaRepository) queryMedia(query string, args ...interface{}) ([]*models.Media, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.Media
	for rows.Next() {
		m, err := scanMediaRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMedia(row *sql.Row) (*models.Media, error) {
	return scanMediaRow(row)
}

func scanMediaRow(row rowScanner) (*models.Media, error) {
	var m models.Media
	var thumbnailURL, fileHash, labels, altText, color sql.NullString
	var width, height sql.NullInt64
	var size sql.NullInt64

	err := row.Scan(&m.ID, &m.UserID, &m.URL, &thumbnailURL, &fileHash, &labels,
		&altText, &width, &height, &color, &size, &m.IsPublic, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	m.ThumbnailURL = thumbnailURL.String
	m.FileHash = fileHash.String
	m.Labels = labels.String
	m.AltText = altText.String
	m.Color = color.String
	m.Width = int(width.Int64)
	m.Height = int(height.Int64)
	m.Size = size.Int64

	return &m, nil
}
