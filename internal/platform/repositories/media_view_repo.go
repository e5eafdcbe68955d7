package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"gifable/internal/platform/models"
)

type MediaViewRepository struct {
	db *sql.DB
}

func NewMediaViewRepository(db *sql.DB) *MediaViewRepository {
	return &MediaViewRepository{db: db}
}

func (r *MediaViewRepository) Create(v *models.MediaView) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.ViewedAt == 0 {
		v.ViewedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO media_views (id, media_id, user_id, user_agent, view_type, viewed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, v.ID, v.MediaID, v.UserID, v.UserAgent, v.ViewType, v.ViewedAt)
	return err
}

// CountsByMedia returns total view counts per media id since the given time.
// A zero since counts everything.
func (r *MediaViewRepository) CountsByMedia(since int64) (map[string]int64, error) {
	query := `SELECT media_id, COUNT(*) FROM media_views WHERE viewed_at >= ? GROUP BY media_id`
	rows, err := r.db.Query(query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var mediaID string
		var n int64
		if err := rows.Scan(&mediaID, &n); err != nil {
			return nil, err
		}
		counts[mediaID] = n
	}
	return counts, rows.Err()
}

func (r *MediaViewRepository) CountForMedia(mediaID string, since int64) (int64, error) {
	var n int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM media_views WHERE media_id = ? AND viewed_at >= ?`, mediaID, since).Scan(&n)
	return n, err
}

func (r *MediaViewRepository) Total() (int64, error) {
	var n int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM media_views`).Scan(&n)
	return n, err
}

// AggregateDaily rolls raw views for the given UTC day into media_view_daily.
// Re-running for the same day replaces the previous rollup.
func (r *MediaViewRepository) AggregateDaily(day time.Time) error {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).Unix()
	end := start + 24*60*60
	date := day.UTC().Format("2006-01-02")

	query := `
		INSERT INTO media_view_daily (media_id, date, views)
		SELECT media_id, ?, COUNT(*) FROM media_views
		WHERE viewed_at >= ? AND viewed_at < ?
		GROUP BY media_id
		ON CONFLICT(media_id, date) DO UPDATE SET views = excluded.views
	`
	_, err := r.db.Exec(query, date, start, end)
	return err
}

// PurgeOlderThan deletes raw views past the retention window. Daily rollups
// are kept.
func (r *MediaViewRepository) PurgeOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM media_views WHERE viewed_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
