package repositories

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

var userColumns = []string{"id", "username", "password_hash", "is_admin",
	"giphy_api_key", "preferred_labels", "theme", "last_login", "created_at", "updated_at"}

func TestUserRepositoryGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open stub db: %v", err)
	}
	defer db.Close()

	repo := NewUserRepository(db)

	rows := sqlmock.NewRows(userColumns).
		AddRow("u1", "alice", "hash", true, "giphy-key", "cat,dog", "dark", int64(1700000000), int64(1690000000), int64(1690000000))

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
		WithArgs("u1").
		WillReturnRows(rows)

	user, err := repo.GetByID("u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if user == nil {
		t.Fatal("Expected a user")
	}
	if user.Username != "alice" || !user.IsAdmin {
		t.Errorf("Unexpected user: %+v", user)
	}
	if user.GiphyAPIKey != "giphy-key" || user.Theme != "dark" {
		t.Errorf("Nullable fields not mapped: %+v", user)
	}
	if user.LastLogin == nil || *user.LastLogin != 1700000000 {
		t.Errorf("Expected last_login 1700000000, got %v", user.LastLogin)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestUserRepositoryGetByIDNullFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open stub db: %v", err)
	}
	defer db.Close()

	repo := NewUserRepository(db)

	rows := sqlmock.NewRows(userColumns).
		AddRow("u1", "alice", "hash", false, nil, nil, nil, nil, int64(1690000000), int64(1690000000))

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
		WithArgs("u1").
		WillReturnRows(rows)

	user, err := repo.GetByID("u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if user.GiphyAPIKey != "" || user.Theme != "" || user.PreferredLabels != "" {
		t.Errorf("Expected empty strings for nulls: %+v", user)
	}
	if user.LastLogin != nil {
		t.Errorf("Expected nil LastLogin, got %v", *user.LastLogin)
	}
}

func TestUserRepositoryGetByUsernameAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open stub db: %v", err)
	}
	defer db.Close()

	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE username = ?").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userColumns))

	user, err := repo.GetByUsername("ghost")
	if err != nil {
		t.Fatalf("Expected nil error for absent user, got %v", err)
	}
	if user != nil {
		t.Errorf("Expected nil user, got %+v", user)
	}
}

func TestUserRepositoryUpdateLastLogin(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open stub db: %v", err)
	}
	defer db.Close()

	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE users SET last_login = ?").
		WithArgs(sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateLastLogin("u1"); err != nil {
		t.Fatalf("UpdateLastLogin failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
