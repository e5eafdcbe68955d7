package repositories

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"gifable/internal/platform/models"
)

func setupViewDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}

	schema := `
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

var viewSeq int

func insertView(t *testing.T, db *sql.DB, mediaID string, viewedAt int64) {
	t.Helper()
	viewSeq++
	_, err := db.Exec(`INSERT INTO media_views (id, media_id, view_type, viewed_at) VALUES (?, ?, ?, ?)`,
		fmt.Sprintf("v%d", viewSeq), mediaID, models.ViewExternal, viewedAt)
	if err != nil {
		t.Fatalf("Failed to insert view: %v", err)
	}
}

func TestMediaViewCreateAndCount(t *testing.T) {
	db := setupViewDB(t)
	defer db.Close()

	repo := NewMediaViewRepository(db)

	for i := 0; i < 3; i++ {
		view := &models.MediaView{MediaID: "m1", ViewType: models.ViewFederation}
		if err := repo.Create(view); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if view.ID == "" {
			t.Fatal("Expected an id to be assigned")
		}
	}

	n, err := repo.CountForMedia("m1", 0)
	if err != nil {
		t.Fatalf("CountForMedia failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 views, got %d", n)
	}

	total, err := repo.Total()
	if err != nil {
		t.Fatalf("Total failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}
}

func TestMediaViewCountSince(t *testing.T) {
	db := setupViewDB(t)
	defer db.Close()

	repo := NewMediaViewRepository(db)
	now := time.Now().Unix()

	insertView(t, db, "m1", now-3600)
	insertView(t, db, "m1", now-48*3600)

	n, err := repo.CountForMedia("m1", now-24*3600)
	if err != nil {
		t.Fatalf("CountForMedia failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 recent view, got %d", n)
	}

	byMedia, err := repo.CountsByMedia(0)
	if err != nil {
		t.Fatalf("CountsByMedia failed: %v", err)
	}
	if byMedia["m1"] != 2 {
		t.Errorf("Expected 2 views for m1, got %d", byMedia["m1"])
	}
}

func TestMediaViewAggregateDailyIdempotent(t *testing.T) {
	db := setupViewDB(t)
	defer db.Close()

	repo := NewMediaViewRepository(db)
	day := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	insertView(t, db, "m1", day.Add(2*time.Hour).Unix())
	insertView(t, db, "m1", day.Add(5*time.Hour).Unix())
	insertView(t, db, "m2", day.Add(3*time.Hour).Unix())
	// Outside the day.
	insertView(t, db, "m1", day.AddDate(0, 0, 1).Add(2*time.Hour).Unix())

	// Run twice; the upsert must not double-count.
	for i := 0; i < 2; i++ {
		if err := repo.AggregateDaily(day); err != nil {
			t.Fatalf("AggregateDaily failed: %v", err)
		}
	}

	var views int64
	err := db.QueryRow(`SELECT views FROM media_view_daily WHERE media_id = ? AND date = ?`,
		"m1", day.UTC().Format("2006-01-02")).Scan(&views)
	if err != nil {
		t.Fatalf("Failed to read aggregate: %v", err)
	}
	if views != 2 {
		t.Errorf("Expected 2 aggregated views, got %d", views)
	}
}

func TestMediaViewPurgeOlderThan(t *testing.T) {
	db := setupViewDB(t)
	defer db.Close()

	repo := NewMediaViewRepository(db)
	now := time.Now()

	insertView(t, db, "m1", now.AddDate(0, 0, -100).Unix())
	insertView(t, db, "m1", now.AddDate(0, 0, -1).Unix())

	deleted, err := repo.PurgeOlderThan(now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted row, got %d", deleted)
	}

	total, _ := repo.Total()
	if total != 1 {
		t.Errorf("Expected 1 remaining view, got %d", total)
	}
}
