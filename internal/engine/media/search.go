package media

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"gifable/internal/engine/giphy"
	"gifable/internal/platform/models"
	"gifable/internal/platform/repositories"
)

// SearchResult is the sticker-picker-compatible shape both search endpoints
// return: an MXC URI for Matrix clients plus plain HTTP URLs for everything
// else.
type SearchResult struct {
	ID            string     `json:"id"`
	MXC           string     `json:"mxc"`
	Body          string     `json:"body"`
	Info          MediaInfo  `json:"info"`
	ThumbnailMXC  string     `json:"thumbnail_mxc"`
	ThumbnailInfo *MediaInfo `json:"thumbnail_info,omitempty"`
	Tags          []string   `json:"tags"`
	HTTPURL       string     `json:"http_url"`
	ThumbnailURL  string     `json:"thumbnail_url"`
}

type MediaInfo struct {
	Width    int    `json:"w,omitempty"`
	Height   int    `json:"h,omitempty"`
	MimeType string `json:"mimetype"`
	Size     int64  `json:"size"`
}

type SearchResponse struct {
	Results []*SearchResult `json:"results"`
	Count   int             `json:"count"`
	Query   string          `json:"query"`
}

type SearchService struct {
	media        *repositories.MediaRepository
	giphy        *giphy.Client
	serverName   string
	appURL       string
	defaultLimit int
	maxLimit     int
}

func NewSearchService(media *repositories.MediaRepository, giphyClient *giphy.Client, serverName, appURL string, defaultLimit, maxLimit int) *SearchService {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit <= 0 {
		maxLimit = 50
	}
	return &SearchService{
		media:        media,
		giphy:        giphyClient,
		serverName:   serverName,
		appURL:       strings.TrimRight(appURL, "/"),
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// ClampLimit parses a limit query parameter, applying the default and the
// hard maximum.
func (s *SearchService) ClampLimit(raw string) int {
	limit := s.defaultLimit
	if raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return limit
}

// Search returns public media matching the query, newest first. An
// authenticated viewer also sees their own private media. External (Giphy)
// results are opt-in and require the viewer to have a Giphy API key; external
// failures degrade to local-only results.
func (s *SearchService) Search(ctx context.Context, query string, limit int, viewer *models.User, includeExternal bool) (*SearchResponse, error) {
	query = strings.TrimSpace(query)

	viewerID := ""
	if viewer != nil {
		viewerID = viewer.ID
	}

	items, err := s.media.SearchPublic(query, viewerID, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(items))
	for _, item := range items {
		results = append(results, s.transformLocal(item))
	}

	if includeExternal && viewer != nil && viewer.GiphyAPIKey != "" && query != "" && len(results) < limit {
		gifs, err := s.giphy.Search(ctx, viewer.GiphyAPIKey, query, limit-len(results))
		if err != nil {
			log.Warn().Err(err).Str("query", query).Msg("giphy search failed, returning local results only")
		} else {
			for _, gif := range gifs {
				results = append(results, s.transformGiphy(gif))
			}
		}
	}

	return &SearchResponse{
		Results: results,
		Count:   len(results),
		Query:   query,
	}, nil
}

func (s *SearchService) transformLocal(item *models.Media) *SearchResult {
	body := item.AltText
	if body == "" {
		body = item.Labels
	}
	if body == "" {
		body = "GIF"
	}

	mxc := MXCURI(s.serverName, item.ID)

	return &SearchResult{
		ID:   item.ID,
		MXC:  mxc,
		Body: body,
		Info: MediaInfo{
			Width:    item.Width,
			Height:   item.Height,
			MimeType: ContentTypeForFilename(item.URL),
			Size:     item.Size,
		},
		// Thumbnails share the MXC URI; Matrix uses different endpoints,
		// not different URIs.
		ThumbnailMXC: mxc,
		ThumbnailInfo: &MediaInfo{
			Width:    item.Width,
			Height:   item.Height,
			MimeType: ThumbnailContentType(item.ThumbnailURL),
		},
		Tags:         splitLabels(item.Labels),
		HTTPURL:      s.appURL + "/media/" + item.ID + "/image",
		ThumbnailURL: s.appURL + "/media/" + item.ID + "/thumbnail",
	}
}

func (s *SearchService) transformGiphy(gif *giphy.Gif) *SearchResult {
	id := giphy.EncodeID(gif.ID)
	mxc := MXCURI(s.serverName, id)

	body := gif.Title
	if body == "" {
		body = "GIF"
	}

	w, _ := strconv.Atoi(gif.Images.Original.Width)
	h, _ := strconv.Atoi(gif.Images.Original.Height)
	size, _ := strconv.ParseInt(gif.Images.Original.Size, 10, 64)

	return &SearchResult{
		ID:   id,
		MXC:  mxc,
		Body: body,
		Info: MediaInfo{
			Width:    w,
			Height:   h,
			MimeType: "image/gif",
			Size:     size,
		},
		ThumbnailMXC: mxc,
		ThumbnailInfo: &MediaInfo{
			Width:    w,
			Height:   h,
			MimeType: "image/gif",
		},
		Tags:         nil,
		HTTPURL:      s.appURL + "/media/" + id + "/image",
		ThumbnailURL: s.appURL + "/media/" + id + "/thumbnail",
	}
}

func splitLabels(labels string) []string {
	if labels == "" {
		return nil
	}
	parts := strings.Split(labels, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
