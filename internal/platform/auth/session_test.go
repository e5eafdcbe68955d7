package auth

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"gifable/internal/platform/config"
	"gifable/internal/platform/models"
	"gifable/internal/platform/repositories"
)

func setupSessions(t *testing.T, ttl time.Duration) (*Sessions, *repositories.UserRepository, *sql.DB) {
	t.Helper()

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
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	users := repositories.NewUserRepository(db)
	sessions := NewSessions(config.SessionConfig{
		Secret:     "test-secret",
		CookieName: "gifable_session",
		TTL:        ttl,
	}, users)
	return sessions, users, db
}

func TestSessionRoundTrip(t *testing.T) {
	sessions, users, db := setupSessions(t, time.Hour)
	defer db.Close()

	user := &models.User{ID: "u1", Username: "alice", PasswordHash: "x"}
	if err := users.Create(user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	token, err := sessions.Issue("u1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	w := httptest.NewRecorder()
	sessions.SetCookie(w, token)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range w.Result().Cookies() {
		r.AddCookie(cookie)
	}

	got := sessions.CurrentUser(r)
	if got == nil {
		t.Fatal("Expected a user from a valid session")
	}
	if got.ID != "u1" || got.Username != "alice" {
		t.Errorf("Unexpected user: %+v", got)
	}
}

func TestSessionAnonymousWithoutCookie(t *testing.T) {
	sessions, _, db := setupSessions(t, time.Hour)
	defer db.Close()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if user := sessions.CurrentUser(r); user != nil {
		t.Errorf("Expected nil for no cookie, got %+v", user)
	}
}

func TestSessionExpiredToken(t *testing.T) {
	sessions, users, db := setupSessions(t, -time.Minute)
	defer db.Close()

	user := &models.User{ID: "u1", Username: "alice", PasswordHash: "x"}
	if err := users.Create(user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	token, err := sessions.Issue("u1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "gifable_session", Value: token})

	if got := sessions.CurrentUser(r); got != nil {
		t.Error("Expected nil for expired session")
	}
}

func TestSessionTamperedToken(t *testing.T) {
	sessions, users, db := setupSessions(t, time.Hour)
	defer db.Close()

	user := &models.User{ID: "u1", Username: "alice", PasswordHash: "x"}
	if err := users.Create(user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	token, err := sessions.Issue("u1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "gifable_session", Value: token + "x"})

	if got := sessions.CurrentUser(r); got != nil {
		t.Error("Expected nil for tampered token")
	}
}

func TestSessionDeletedUserResolvesAnonymous(t *testing.T) {
	sessions, _, db := setupSessions(t, time.Hour)
	defer db.Close()

	token, err := sessions.Issue("ghost")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "gifable_session", Value: token})

	if got := sessions.CurrentUser(r); got != nil {
		t.Error("Expected nil for a session referencing a missing user")
	}
}

func TestClearCookie(t *testing.T) {
	sessions, _, db := setupSessions(t, time.Hour)
	defer db.Close()

	w := httptest.NewRecorder()
	sessions.ClearCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge != -1 {
		t.Errorf("Expected MaxAge -1, got %d", cookies[0].MaxAge)
	}
}
