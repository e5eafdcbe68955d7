package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	"gifable/internal/engine/apikeys"
	"gifable/internal/platform/models"
	"gifable/internal/platform/repositories"
)

func newAPIKeyFixture(t *testing.T, enabled bool) (*APIKeyHandler, *sql.DB) {
	t.Helper()

	db := setupTestDB(t)
	svc := apikeys.NewService(
		repositories.NewAPIKeyRepository(db),
		repositories.NewUserRepository(db),
		enabled,
	)
	return NewAPIKeyHandler(svc), db
}

func keyRequest(method, path, keyID, body string, user *models.User) *http.Request {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if keyID != "" {
		r = withParams(r, httprouter.Params{{Key: "key_id", Value: keyID}})
	}
	if user != nil {
		r = withUser(r, user)
	}
	return r
}

func TestAPIKeyCreateReturnsTokenOnce(t *testing.T) {
	h, db := newAPIKeyFixture(t, true)
	defer db.Close()

	user := insertTestUser(t, db, "u1", "alice", false)

	w := httptest.NewRecorder()
	h.Create(w, keyRequest(http.MethodPost, "/api/v1/keys", "", `{"name":"ci bot"}`, user))

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Key   apiKeyResponse `json:"key"`
		Token string         `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if !strings.HasPrefix(body.Token, apikeys.TokenPrefix) {
		t.Errorf("Expected token with %q prefix, got %q", apikeys.TokenPrefix, body.Token)
	}
	if body.Key.Name != "ci bot" || !body.Key.Enabled {
		t.Errorf("Unexpected key record: %+v", body.Key)
	}

	// The list response must not contain the token.
	w = httptest.NewRecorder()
	h.List(w, keyRequest(http.MethodGet, "/api/v1/keys", "", "", user))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), body.Token) {
		t.Error("List response leaks the plaintext token")
	}
}

func TestAPIKeyDisabledFeatureLooksAbsent(t *testing.T) {
	h, db := newAPIKeyFixture(t, false)
	defer db.Close()

	user := insertTestUser(t, db, "u1", "alice", false)

	w := httptest.NewRecorder()
	h.Create(w, keyRequest(http.MethodPost, "/api/v1/keys", "", `{"name":"x"}`, user))
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 with feature disabled, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.List(w, keyRequest(http.MethodGet, "/api/v1/keys", "", "", user))
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 with feature disabled, got %d", w.Code)
	}
}

func TestAPIKeyUpdateAndDeleteOwnership(t *testing.T) {
	h, db := newAPIKeyFixture(t, true)
	defer db.Close()

	owner := insertTestUser(t, db, "u1", "alice", false)
	other := insertTestUser(t, db, "u2", "bob", false)

	w := httptest.NewRecorder()
	h.Create(w, keyRequest(http.MethodPost, "/api/v1/keys", "", `{"name":"mine"}`, owner))
	var created struct {
		Key apiKeyResponse `json:"key"`
	}
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}

	// Another user cannot revoke it, and the refusal reads like a miss.
	w = httptest.NewRecorder()
	h.Update(w, keyRequest(http.MethodPatch, "/api/v1/keys/"+created.Key.ID, created.Key.ID, `{"enabled":false}`, other))
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for non-owner, got %d", w.Code)
	}

	// The owner can.
	w = httptest.NewRecorder()
	h.Update(w, keyRequest(http.MethodPatch, "/api/v1/keys/"+created.Key.ID, created.Key.ID, `{"enabled":false}`, owner))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for owner, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.Delete(w, keyRequest(http.MethodDelete, "/api/v1/keys/"+created.Key.ID, created.Key.ID, "", owner))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	// Double delete is a 404.
	w = httptest.NewRecorder()
	h.Delete(w, keyRequest(http.MethodDelete, "/api/v1/keys/"+created.Key.ID, created.Key.ID, "", owner))
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 on second delete, got %d", w.Code)
	}
}
