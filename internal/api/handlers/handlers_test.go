package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	_ "github.com/mattn/go-sqlite3"

	apiContext "gifable/internal/api/context"
	"gifable/internal/platform/models"
	"gifable/internal/platform/repositories"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}

	schema := `
	CREATE TABLE users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin INTEGER NOT NULL DEFAULT 0,
		giphy_api_key TEXT,
		preferred_labels TEXT,
		theme TEXT,
		last_login INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE media (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		url TEXT NOT NULL,
		thumbnail_url TEXT,
		file_hash TEXT,
		labels TEXT,
		alt_text TEXT,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		color TEXT,
		size INTEGER NOT NULL DEFAULT 0,
		is_public INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE api_keys (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		key_hash TEXT NOT NULL UNIQUE,
		key_prefix TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		last_used_at INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE media_views (
		id TEXT PRIMARY KEY,
		media_id TEXT NOT NULL,
		user_id TEXT,
		user_agent TEXT,
		view_type TEXT NOT NULL,
		viewed_at INTEGER NOT NULL
	);
	CREATE TABLE media_view_daily (
		media_id TEXT NOT NULL,
		date TEXT NOT NULL,
		views INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (media_id, date)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

// memStore is an in-memory ObjectStore for handler tests.
type memStore struct {
	baseURL string
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{
		baseURL: "https://cdn.example.com/media",
		objects: make(map[string][]byte),
	}
}

func (s *memStore) GetObject(_ context.Context, filename string) ([]byte, error) {
	data, ok := s.objects[filename]
	if !ok {
		return nil, fmt.Errorf("object %s not found", filename)
	}
	return data, nil
}

func (s *memStore) PutObject(_ context.Context, filename string, data []byte, _ string) (string, error) {
	s.objects[filename] = data
	return s.ObjectURL(filename), nil
}

func (s *memStore) DeleteObject(_ context.Context, filename string) error {
	delete(s.objects, filename)
	return nil
}

func (s *memStore) FilenameFromURL(url string) string {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return ""
	}
	name := strings.TrimPrefix(url, s.baseURL+"/")
	if strings.Contains(name, "/") {
		return ""
	}
	return name
}

func (s *memStore) MakeFilePath(filename string) string { return filename }

func (s *memStore) ObjectURL(filename string) string { return s.baseURL + "/" + filename }

// withParams injects router params the way the router's wrap helper does.
func withParams(r *http.Request, params httprouter.Params) *http.Request {
	ctx := context.WithValue(r.Context(), apiContext.Params, params)
	return r.WithContext(ctx)
}

// withUser injects an authenticated principal the way the auth middleware
// does.
func withUser(r *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(r.Context(), apiContext.User, user)
	return r.WithContext(ctx)
}

func insertTestUser(t *testing.T, db *sql.DB, id, username string, isAdmin bool) *models.User {
	t.Helper()

	user := &models.User{
		ID:           id,
		Username:     username,
		PasswordHash: "x",
		IsAdmin:      isAdmin,
	}
	if err := repositories.NewUserRepository(db).Create(user); err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	return user
}

func insertTestMedia(t *testing.T, db *sql.DB, store *memStore, id, userID string, public bool) *models.Media {
	t.Helper()

	filename := id + ".gif"
	store.objects[filename] = []byte("GIF89a test bytes for " + id)

	m := &models.Media{
		ID:        id,
		UserID:    userID,
		URL:       store.ObjectURL(filename),
		Labels:    "test",
		Width:     128,
		Height:    128,
		Size:      1234,
		IsPublic:  public,
		CreatedAt: time.Now().Unix(),
		UpdatedAt: time.Now().Unix(),
	}
	if err := repositories.NewMediaRepository(db).Create(m); err != nil {
		t.Fatalf("Failed to insert media: %v", err)
	}
	return m
}
