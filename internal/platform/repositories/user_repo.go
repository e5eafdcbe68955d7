package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"gifable/internal/platform/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, username, password_hash, is_admin, giphy_api_key, preferred_labels, theme, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, user.ID, user.Username, user.PasswordHash, user.IsAdmin,
		user.GiphyAPIKey, user.PreferredLabels, user.Theme, user.CreatedAt, user.UpdatedAt)
	return err
}

// GetByID returns nil, nil for an unknown id. Sessions referencing deleted
// users resolve to anonymous, not to an error.
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	query := `SELECT id, username, password_hash, is_admin, giphy_api_key, preferred_labels, theme, last_login, created_at, updated_at FROM users WHERE id = ?`
	u, err := r.scanUser(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetByUsername returns nil, nil for an unknown username so login can treat
// bad usernames and bad passwords identically.
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	query := `SELECT id, username, password_hash, is_admin, giphy_api_key, preferred_labels, theme, last_login, created_at, updated_at FROM users WHERE username = ?`
	u, err := r.scanUser(r.db.QueryRow(query, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var giphyKey, preferredLabels, theme sql.NullString
	var lastLogin sql.NullInt64

	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin,
		&giphyKey, &preferredLabels, &theme, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	u.GiphyAPIKey = giphyKey.String
	u.PreferredLabels = preferredLabels.String
	u.Theme = theme.String
	if lastLogin.Valid {
		u.LastLogin = new(int64)
		*u.LastLogin = lastLogin.Int64
	}

	return &u, nil
}

func (r *UserRepository) UpdateLastLogin(id string) error {
	_, err := r.db.Exec(`UPDATE users SET last_login = ? WHERE id = ?`, time.Now().Unix(), id)
	return err
}
