package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"gifable/internal/platform/models"
)

type APIKeyRepository struct {
	db *sql.DB
}

func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(key *models.APIKey) error {
	if key.ID == "" {
		key.ID = "key_" + uuid.New().String()
	}
	key.CreatedAt = time.Now().Unix()
	key.Enabled = true

	query := `
		INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.Enabled, key.CreatedAt)
	return err
}

// GetByHash looks up a key by its token hash. Returns nil, nil when absent.
func (r *APIKeyRepository) GetByHash(hash string) (*models.APIKey, error) {
	query := `SELECT id, user_id, name, key_prefix, enabled, last_used_at, created_at FROM api_keys WHERE key_hash = ?`
	row := r.db.QueryRow(query, hash)

	var k models.APIKey
	var lastUsedAt sql.NullInt64

	err := row.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyPrefix, &k.Enabled, &lastUsedAt, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if lastUsedAt.Valid {
		k.LastUsedAt = new(int64)
		*k.LastUsedAt = lastUsedAt.Int64
	}
	k.KeyHash = hash

	return &k, nil
}

func (r *APIKeyRepository) ListByUser(userID string) ([]*models.APIKey, error) {
	query := `SELECT id, name, key_prefix, enabled, last_used_at, created_at FROM api_keys WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		var lastUsedAt sql.NullInt64

		if err := rows.Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.Enabled, &lastUsedAt, &k.CreatedAt); err != nil {
			return nil, err
		}

		if lastUsedAt.Valid {
			k.LastUsedAt = new(int64)
			*k.LastUsedAt = lastUsedAt.Int64
		}
		k.UserID = userID
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// SetEnabled flips the enabled flag. The WHERE clause carries the ownership
// check so a key belonging to another user is indistinguishable from a key
// that does not exist.
func (r *APIKeyRepository) SetEnabled(id, userID string, enabled bool) (bool, error) {
	res, err := r.db.Exec(`UPDATE api_keys SET enabled = ? WHERE id = ? AND user_id = ?`, enabled, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes the key permanently, with the same ownership semantics as
// SetEnabled.
func (r *APIKeyRepository) Delete(id, userID string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM api_keys WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *APIKeyRepository) UpdateLastUsed(id string) error {
	_, err := r.db.Exec(`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, time.Now().Unix(), id)
	return err
}
