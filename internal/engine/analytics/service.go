package analytics

import (
	"time"

	"gifable/internal/engine/giphy"
	"gifable/internal/platform/repositories"
)

// Service answers view-count questions for metrics and per-media stats.
type Service struct {
	views *repositories.MediaViewRepository
	media *repositories.MediaRepository
}

func NewService(views *repositories.MediaViewRepository, media *repositories.MediaRepository) *Service {
	return &Service{views: views, media: media}
}

type MediaStats struct {
	Total   int64 `json:"total"`
	Last24h int64 `json:"last_24h"`
	Last7d  int64 `json:"last_7d"`
}

func (s *Service) StatsForMedia(mediaID string) (*MediaStats, error) {
	now := time.Now()

	total, err := s.views.CountForMedia(mediaID, 0)
	if err != nil {
		return nil, err
	}
	last24h, err := s.views.CountForMedia(mediaID, now.Add(-24*time.Hour).Unix())
	if err != nil {
		return nil, err
	}
	last7d, err := s.views.CountForMedia(mediaID, now.Add(-7*24*time.Hour).Unix())
	if err != nil {
		return nil, err
	}

	return &MediaStats{Total: total, Last24h: last24h, Last7d: last7d}, nil
}

type Overview struct {
	ViewsByMedia map[string]int64
	ViewsLast24h map[string]int64
	TotalViews   int64
	GiphyViews   int64
	MediaCount   int64
}

// GetOverview gathers everything the Prometheus collector exports.
func (s *Service) GetOverview() (*Overview, error) {
	byMedia, err := s.views.CountsByMedia(0)
	if err != nil {
		return nil, err
	}
	last24h, err := s.views.CountsByMedia(time.Now().Add(-24 * time.Hour).Unix())
	if err != nil {
		return nil, err
	}
	total, err := s.views.Total()
	if err != nil {
		return nil, err
	}
	mediaCount, err := s.media.Count()
	if err != nil {
		return nil, err
	}

	var giphyViews int64
	for mediaID, n := range byMedia {
		if giphy.IsGiphyID(mediaID) {
			giphyViews += n
		}
	}

	return &Overview{
		ViewsByMedia: byMedia,
		ViewsLast24h: last24h,
		TotalViews:   total,
		GiphyViews:   giphyViews,
		MediaCount:   mediaCount,
	}, nil
}
