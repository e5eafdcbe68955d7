package workers

import (
	"time"

	"github.com/rs/zerolog/log"

	"gifable/internal/platform/repositories"
)

// Analytics rolls raw media views into daily aggregates and enforces the
// retention window on the raw rows.
type Analytics struct {
	views         *repositories.MediaViewRepository
	retentionDays int
}

func NewAnalytics(views *repositories.MediaViewRepository, retentionDays int) *Analytics {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &Analytics{views: views, retentionDays: retentionDays}
}

// AggregateDay rolls up one day's views. Upserts, so re-running for the
// same day is safe.
func (a *Analytics) AggregateDay(day time.Time) error {
	if err := a.views.AggregateDaily(day); err != nil {
		return err
	}
	log.Info().Str("day", day.UTC().Format("2006-01-02")).Msg("aggregated daily view stats")
	return nil
}

// Purge deletes raw view rows older than the retention window. Aggregates
// are kept; only the per-view rows go.
func (a *Analytics) Purge() error {
	cutoff := time.Now().UTC().AddDate(0, 0, -a.retentionDays)
	deleted, err := a.views.PurgeOlderThan(cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("purged old view records")
	}
	return nil
}
