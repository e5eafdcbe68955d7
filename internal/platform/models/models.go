package models

type User struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	PasswordHash    string `json:"-"`
	IsAdmin         bool   `json:"is_admin"`
	GiphyAPIKey     string `json:"-"`
	PreferredLabels string `json:"preferred_labels,omitempty"`
	Theme           string `json:"theme,omitempty"`
	LastLogin       *int64 `json:"last_login,omitempty"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

type Media struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	FileHash     string `json:"file_hash,omitempty"`
	Labels       string `json:"labels,omitempty"`
	AltText      string `json:"alt_text,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Color        string `json:"color,omitempty"`
	Size         int64  `json:"size,omitempty"`
	IsPublic     bool   `json:"is_public"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// View types recorded with each media view.
const (
	ViewInternal   = "internal"   // browsing inside the app
	ViewExternal   = "external"   // direct link or embed
	ViewFederation = "federation" // Matrix federation/client media endpoints
)

type MediaView struct {
	ID        string `json:"id"`
	MediaID   string `json:"media_id"`
	UserID    string `json:"user_id,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	ViewType  string `json:"view_type"`
	ViewedAt  int64  `json:"viewed_at"`
}
