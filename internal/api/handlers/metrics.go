package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"gifable/internal/engine/analytics"
)

// MetricsHandler exposes /metrics. View counters are read from the
// database at scrape time rather than counted in-process, so restarts
// don't reset them.
type MetricsHandler struct {
	handler http.Handler
}

func NewMetricsHandler(analyticsSvc *analytics.Service) *MetricsHandler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		newViewCollector(analyticsSvc),
	)
	return &MetricsHandler{
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
}

func (h *MetricsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

type viewCollector struct {
	analytics *analytics.Service

	viewsByMedia *prometheus.Desc
	viewsLast24h *prometheus.Desc
	totalViews   *prometheus.Desc
	giphyViews   *prometheus.Desc
	mediaCount   *prometheus.Desc
}

func newViewCollector(analyticsSvc *analytics.Service) *viewCollector {
	return &viewCollector{
		analytics: analyticsSvc,
		viewsByMedia: prometheus.NewDesc("gifable_media_views_total",
			"Total recorded views per media item.", []string{"media_id"}, nil),
		viewsLast24h: prometheus.NewDesc("gifable_media_views_last_24h",
			"Views per media item in the last 24 hours.", []string{"media_id"}, nil),
		totalViews: prometheus.NewDesc("gifable_views_total",
			"Total recorded views across all media.", nil, nil),
		giphyViews: prometheus.NewDesc("gifable_giphy_views_total",
			"Total views served through the Giphy passthrough.", nil, nil),
		mediaCount: prometheus.NewDesc("gifable_media_count",
			"Number of media records in the library.", nil, nil),
	}
}

func (c *viewCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.viewsByMedia
	ch <- c.viewsLast24h
	ch <- c.totalViews
	ch <- c.giphyViews
	ch <- c.mediaCount
}

func (c *viewCollector) Collect(ch chan<- prometheus.Metric) {
	overview, err := c.analytics.GetOverview()
	if err != nil {
		log.Error().Err(err).Msg("failed to collect view metrics")
		return
	}

	for mediaID, n := range overview.ViewsByMedia {
		ch <- prometheus.MustNewConstMetric(c.viewsByMedia, prometheus.CounterValue, float64(n), mediaID)
	}
	for mediaID, n := range overview.ViewsLast24h {
		ch <- prometheus.MustNewConstMetric(c.viewsLast24h, prometheus.GaugeValue, float64(n), mediaID)
	}
	ch <- prometheus.MustNewConstMetric(c.totalViews, prometheus.CounterValue, float64(overview.TotalViews))
	ch <- prometheus.MustNewConstMetric(c.giphyViews, prometheus.CounterValue, float64(overview.GiphyViews))
	ch <- prometheus.MustNewConstMetric(c.mediaCount, prometheus.GaugeValue, float64(overview.MediaCount))
}
