package giphy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gifable/internal/platform/config"
)

const apiBase = "https://api.giphy.com/v1/gifs"

// Variant selects which rendition of a GIF to use.
type Variant string

const (
	VariantOriginal  Variant = "original"
	VariantThumbnail Variant = "thumbnail"
)

type Image struct {
	URL    string `json:"url"`
	Width  string `json:"width"`
	Height string `json:"height"`
	Size   string `json:"size"`
}

type Gif struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Images struct {
		Original        Image `json:"original"`
		DownsizedMedium Image `json:"downsized_medium"`
		FixedWidth      Image `json:"fixed_width"`
	} `json:"images"`
}

// ImageURL picks the CDN URL for the requested variant, falling back through
// renditions the way the upstream app does.
func (g *Gif) ImageURL(variant Variant) string {
	if variant == VariantThumbnail {
		if g.Images.DownsizedMedium.URL != "" {
			return g.Images.DownsizedMedium.URL
		}
		if g.Images.FixedWidth.URL != "" {
			return g.Images.FixedWidth.URL
		}
	}
	if g.Images.Original.URL != "" {
		return g.Images.Original.URL
	}
	return g.URL
}

// Client talks to the Giphy API. API credentials are per-user, so every call
// takes the key explicitly.
type Client struct {
	http  *http.Client
	cache *gifCache
}

func NewClient(cfg config.GiphyConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Client{
		http:  &http.Client{Timeout: timeout},
		cache: newGifCache(ttl),
	}
}

// Search queries the Giphy API. Results are not cached; search traffic is
// interactive and low-volume compared to image loads.
func (c *Client) Search(ctx context.Context, apiKey, query string, limit int) ([]*Gif, error) {
	u, _ := url.Parse(apiBase + "/search")
	q := u.Query()
	q.Set("api_key", apiKey)
	q.Set("q", query)
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("rating", "g")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("giphy search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("giphy search: status %d", resp.StatusCode)
	}

	var body struct {
		Data []*Gif `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("giphy search: %w", err)
	}
	return body.Data, nil
}

// GetGif fetches a single GIF's metadata by raw Giphy id. Returns nil, nil
// when Giphy doesn't know the id.
func (c *Client) GetGif(ctx context.Context, apiKey, giphyID string) (*Gif, error) {
	if gif, ok := c.cache.Get(giphyID); ok {
		return gif, nil
	}

	u, _ := url.Parse(apiBase + "/" + url.PathEscape(giphyID))
	q := u.Query()
	q.Set("api_key", apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("giphy get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("giphy get: status %d", resp.StatusCode)
	}

	var body struct {
		Data *Gif `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("giphy get: %w", err)
	}

	if body.Data != nil {
		c.cache.Set(giphyID, body.Data)
	}
	return body.Data, nil
}

// FetchImage downloads the bytes of a GIF rendition from Giphy's CDN. The
// bytes themselves are never cached, per Giphy's terms.
func (c *Client) FetchImage(ctx context.Context, apiKey, id string, variant Variant) ([]byte, string, error) {
	giphyID, err := DecodeID(id)
	if err != nil {
		return nil, "", err
	}

	gif, err := c.GetGif(ctx, apiKey, giphyID)
	if err != nil {
		return nil, "", err
	}
	if gif == nil {
		return nil, "", fmt.Errorf("giphy gif not found: %s", giphyID)
	}

	imageURL := gif.ImageURL(variant)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("giphy image fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("giphy image fetch: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.HasSuffix(imageURL, ".mp4"):
		contentType = "video/mp4"
	case strings.HasSuffix(imageURL, ".webp"):
		contentType = "image/webp"
	case contentType == "":
		contentType = "image/gif"
	}

	return data, contentType, nil
}
