package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"gifable/internal/engine/analytics"
	"gifable/internal/engine/giphy"
	mediaengine "gifable/internal/engine/media"
	"gifable/internal/platform/config"
	"gifable/internal/platform/models"
	"gifable/internal/platform/repositories"
)

const testAppURL = "https://gifable.example.com"

func newMediaFixture(t *testing.T) (*MediaHandler, *memStore, *sql.DB) {
	t.Helper()

	db := setupTestDB(t)
	store := newMemStore()

	mediaRepo := repositories.NewMediaRepository(db)
	viewRepo := repositories.NewMediaViewRepository(db)
	resolver := mediaengine.NewResolver(store)
	viewLogger := analytics.NewViewLogger(viewRepo)
	giphyClient := giphy.NewClient(config.GiphyConfig{
		CacheTTL:       time.Minute,
		RequestTimeout: time.Second,
	})

	h := NewMediaHandler(testServerName, testAppURL, mediaRepo, resolver, store, giphyClient, viewLogger)
	return h, store, db
}

func clientRequest(path, serverName, mediaID string, user *models.User) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r = withParams(r, httprouter.Params{
		{Key: "server_name", Value: serverName},
		{Key: "media_id", Value: mediaID},
	})
	if user != nil {
		r = withUser(r, user)
	}
	return r
}

func TestClientDownloadWrongServerName(t *testing.T) {
	h, _, db := newMediaFixture(t)
	defer db.Close()

	w := httptest.NewRecorder()
	h.ClientDownload(w, clientRequest("/_matrix/client/v1/media/download/other.example/m1", "other.example", "m1", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}

	var body struct {
		ErrCode string `json:"errcode"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.ErrCode != "M_NOT_FOUND" {
		t.Errorf("Expected M_NOT_FOUND, got %q", body.ErrCode)
	}
	// Routing errors name the actual server so misconfigured clients can
	// see what went wrong.
	if !strings.Contains(body.Error, testServerName) {
		t.Errorf("Expected error to name %q, got %q", testServerName, body.Error)
	}
}

func TestClientDownloadOwnerSeesPrivateMedia(t *testing.T) {
	h, store, db := newMediaFixture(t)
	defer db.Close()

	owner := insertTestUser(t, db, "u1", "alice", false)
	m := insertTestMedia(t, db, store, "priv1", owner.ID, false)

	w := httptest.NewRecorder()
	h.ClientDownload(w, clientRequest("/_matrix/client/v1/media/download/"+testServerName+"/priv1", testServerName, "priv1", owner))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for owner, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/gif" {
		t.Errorf("Expected image/gif, got %q", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), store.objects[m.ID+".gif"]) {
		t.Error("Body does not match stored object")
	}
}

func TestClientDownloadAnonymousPrivateMedia(t *testing.T) {
	h, store, db := newMediaFixture(t)
	defer db.Close()

	owner := insertTestUser(t, db, "u1", "alice", false)
	insertTestMedia(t, db, store, "priv1", owner.ID, false)

	w := httptest.NewRecorder()
	h.ClientDownload(w, clientRequest("/_matrix/client/v1/media/download/"+testServerName+"/priv1", testServerName, "priv1", nil))

	assertMatrixNotFound(t, w)
}

func TestClientDownloadOtherUserPrivateMedia(t *testing.T) {
	h, store, db := newMediaFixture(t)
	defer db.Close()

	owner := insertTestUser(t, db, "u1", "alice", false)
	other := insertTestUser(t, db, "u2", "bob", false)
	insertTestMedia(t, db, store, "priv1", owner.ID, false)

	w := httptest.NewRecorder()
	h.ClientDownload(w, clientRequest("/_matrix/client/v1/media/download/"+testServerName+"/priv1", testServerName, "priv1", other))

	assertMatrixNotFound(t, w)
}

func TestClientThumbnailOtherUserPrivateMedia(t *testing.T) {
	h, store, db := newMediaFixture(t)
	defer db.Close()

	owner := insertTestUser(t, db, "u1", "alice", false)
	other := insertTestUser(t, db, "u2", "bob", false)
	insertTestMedia(t, db, store, "priv1", owner.ID, false)

	w := httptest.NewRecorder()
	h.ClientThumbnail(w, clientRequest("/_matrix/media/v3/thumbnail/"+testServerName+"/priv1", testServerName, "priv1", other))

	assertMatrixNotFound(t, w)
}

func TestClientDownloadAdminSeesPrivateMedia(t *testing.T) {
	h, store, db := newMediaFixture(t)
	defer db.Close()

	owner := insertTestUser(t, db, "u1", "alice", false)
	admin := insertTestUser(t, db, "u2", "root", true)
	insertTestMedia(t, db, store, "priv1", owner.ID, false)

	w := httptest.NewRecorder()
	h.ClientDownload(w, clientRequest("/_matrix/client/v1/media/download/"+testServerName+"/priv1", testServerName, "priv1", admin))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for admin, got %d", w.Code)
	}
}

func TestClientThumbnailRedirectsByDefault(t *testing.T) {
	h, store, db := newMediaFixture(t)
	defer db.Close()

	owner := insertTestUser(t, db, "u1", "alice", false)
	m := insertTestMedia(t, db, store, "pub1", owner.ID, true)

	w := httptest.NewRecorder()
	h.ClientThumbnail(w, clientRequest("/_matrix/media/v3/thumbnail/"+testServerName+"/pub1", testServerName, "pub1", nil))

	if w.Code != http.StatusPermanentRedirect {
		t.Fatalf("Expected 308, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != m.URL {
		t.Errorf("Expected redirect to %q, got %q", m.URL, loc)
	}
}

func TestClientThumbnailProxiesWhenRedirectDisabled(t *testing.T) {
	h, store, db := newMediaFixture(t)
	defer db.Close()

	owner := insertTestUser(t, db, "u1", "alice", false)
	m := insertTestMedia(t, db, store, "pub1", owner.ID, true)

	w := httptest.NewRecorder()
	h.ClientThumbnail(w, clientRequest("/_matrix/media/v3/thumbnail/"+testServerName+"/pub1?allow_redirect=false", testServerName, "pub1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), store.objects[m.ID+".gif"]) {
		t.Error("Proxied body does not match stored object")
	}
}

func TestProxyImageRecordsView(t *testing.T) {
	h, store, db := newMediaFixture(t)
	defer db.Close()

	owner := insertTestUser(t, db, "u1", "alice", false)
	insertTestMedia(t, db, store, "pub1", owner.ID, true)

	r := httptest.NewRequest(http.MethodGet, "/media/pub1/image", nil)
	r.Header.Set("User-Agent", "Synapse/1.98.0")
	r = withParams(r, httprouter.Params{{Key: "media_id", Value: "pub1"}})

	w := httptest.NewRecorder()
	h.ProxyImage(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	// The view is logged on a goroutine; poll for it.
	viewRepo := repositories.NewMediaViewRepository(db)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := viewRepo.CountForMedia("pub1", 0)
		if err == nil && n == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("View was never recorded")
}

func TestProxyImageGiphyRequiresAuth(t *testing.T) {
	h, _, db := newMediaFixture(t)
	defer db.Close()

	r := httptest.NewRequest(http.MethodGet, "/media/giphy_abc123/image", nil)
	r = withParams(r, httprouter.Params{{Key: "media_id", Value: "giphy_abc123"}})

	w := httptest.NewRecorder()
	h.ProxyImage(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for anonymous Giphy fetch, got %d", w.Code)
	}
}

func TestProxyImageGiphyRequiresAPIKey(t *testing.T) {
	h, _, db := newMediaFixture(t)
	defer db.Close()

	user := insertTestUser(t, db, "u1", "alice", false)

	r := httptest.NewRequest(http.MethodGet, "/media/giphy_abc123/image", nil)
	r = withParams(r, httprouter.Params{{Key: "media_id", Value: "giphy_abc123"}})
	r = withUser(r, user)

	w := httptest.NewRecorder()
	h.ProxyImage(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 without a Giphy key, got %d", w.Code)
	}
}

func TestProxyImagePrivateMediaForbidden(t *testing.T) {
	h, store, db := newMediaFixture(t)
	defer db.Close()

	owner := insertTestUser(t, db, "u1", "alice", false)
	insertTestMedia(t, db, store, "priv1", owner.ID, false)

	r := httptest.NewRequest(http.MethodGet, "/media/priv1/image", nil)
	r = withParams(r, httprouter.Params{{Key: "media_id", Value: "priv1"}})

	w := httptest.NewRecorder()
	h.ProxyImage(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d", w.Code)
	}
}
