package analytics

import (
	"strings"

	"github.com/rs/zerolog/log"

	"gifable/internal/platform/models"
	"gifable/internal/platform/repositories"
)

// ViewLogger records media views. Recording is best-effort: it runs off the
// request path and its failures are logged, never surfaced to the viewer.
type ViewLogger struct {
	views *repositories.MediaViewRepository
}

func NewViewLogger(views *repositories.MediaViewRepository) *ViewLogger {
	return &ViewLogger{views: views}
}

// LogView is designed to be called in a goroutine. It takes all data as
// values so it does not depend on the request outliving it.
func (l *ViewLogger) LogView(mediaID, userID, userAgent, viewType string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered in LogView")
		}
	}()

	view := &models.MediaView{
		MediaID:   mediaID,
		UserID:    userID,
		UserAgent: userAgent,
		ViewType:  viewType,
	}
	if err := l.views.Create(view); err != nil {
		log.Error().Err(err).Str("media_id", mediaID).Msg("failed to record media view")
	}
}

// ClassifyView decides whether a request came from inside the app or from an
// external embed/direct link, based on the Referer.
func ClassifyView(referer, appURL string) string {
	if referer != "" && appURL != "" && strings.HasPrefix(referer, appURL) {
		return models.ViewInternal
	}
	return models.ViewExternal
}
