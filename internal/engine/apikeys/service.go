package apikeys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"gifable/internal/platform/models"
)

// TokenPrefix distinguishes API keys from any other credential a caller might
// put in a header. Tokens without it are ignored, never looked up.
const TokenPrefix = "gbl_"

var (
	// ErrNotOwned covers both "key does not exist" and "key belongs to
	// someone else". Callers must not be able to tell the difference.
	ErrNotOwned = errors.New("api key not found")

	// ErrDisabled is returned by mutating operations when the feature flag
	// is off.
	ErrDisabled = errors.New("api keys are disabled")
)

// KeyStore is the persistence boundary for API keys.
type KeyStore interface {
	Create(key *models.APIKey) error
	GetByHash(hash string) (*models.APIKey, error)
	ListByUser(userID string) ([]*models.APIKey, error)
	SetEnabled(id, userID string, enabled bool) (bool, error)
	Delete(id, userID string) (bool, error)
	UpdateLastUsed(id string) error
}

// UserStore resolves key owners.
type UserStore interface {
	GetByID(id string) (*models.User, error)
}

type Service struct {
	keys    KeyStore
	users   UserStore
	enabled bool
}

func NewService(keys KeyStore, users UserStore, enabled bool) *Service {
	return &Service{keys: keys, users: users, enabled: enabled}
}

func (s *Service) Enabled() bool {
	return s.enabled
}

// GenerateToken produces a prefixed 256-bit secret.
func GenerateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(b)
}

// HashToken is the at-rest form of a token. Only the hash is stored, so the
// plaintext cannot be recovered after creation.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ExtractFromRequest pulls an API key token out of the request headers,
// checking Authorization: Bearer first, then X-Api-Key. Tokens without the
// recognized prefix are treated as absent.
func ExtractFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token := strings.TrimPrefix(auth, "Bearer ")
		if strings.HasPrefix(token, TokenPrefix) {
			return token
		}
	}

	if key := r.Header.Get("X-Api-Key"); strings.HasPrefix(key, TokenPrefix) {
		return key
	}

	return ""
}

// Create mints a new key for the user and returns the record together with
// the plaintext token. This is the only time the plaintext exists outside the
// caller; storage keeps the hash.
func (s *Service) Create(userID, name string) (*models.APIKey, string, error) {
	if !s.enabled {
		return nil, "", ErrDisabled
	}

	token := GenerateToken()
	key := &models.APIKey{
		UserID:    userID,
		Name:      name,
		KeyHash:   HashToken(token),
		KeyPrefix: token[:12] + "...",
	}

	if err := s.keys.Create(key); err != nil {
		return nil, "", err
	}
	return key, token, nil
}

func (s *Service) List(userID string) ([]*models.APIKey, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}
	return s.keys.ListByUser(userID)
}

// SetEnabled flips a key's enabled flag. Returns ErrNotOwned when the key
// does not exist or belongs to another user.
func (s *Service) SetEnabled(id, userID string, enabled bool) error {
	if !s.enabled {
		return ErrDisabled
	}
	ok, err := s.keys.SetEnabled(id, userID, enabled)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotOwned
	}
	return nil
}

// Delete permanently removes a key, with the same ownership semantics as
// SetEnabled.
func (s *Service) Delete(id, userID string) error {
	if !s.enabled {
		return ErrDisabled
	}
	ok, err := s.keys.Delete(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotOwned
	}
	return nil
}

// Validate resolves a token to its owner. Absent, disabled and malformed
// tokens all come back as not-ok; none of these are errors. On success the
// lastUsedAt update is dispatched on a goroutine so the caller never waits
// on it.
func (s *Service) Validate(token string) (*models.User, string, bool) {
	if !s.enabled || !strings.HasPrefix(token, TokenPrefix) {
		return nil, "", false
	}

	key, err := s.keys.GetByHash(HashToken(token))
	if err != nil {
		log.Error().Err(err).Msg("api key lookup failed")
		return nil, "", false
	}
	if key == nil || !key.Enabled {
		return nil, "", false
	}

	user, err := s.users.GetByID(key.UserID)
	if err != nil {
		log.Error().Err(err).Str("key_id", key.ID).Msg("api key owner lookup failed")
		return nil, "", false
	}
	// Orphaned key: owner row is gone.
	if user == nil {
		return nil, "", false
	}

	go func(id string) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("recovered in lastUsedAt update")
			}
		}()
		if err := s.keys.UpdateLastUsed(id); err != nil {
			log.Error().Err(err).Str("key_id", id).Msg("failed to update api key last_used_at")
		}
	}(key.ID)

	return user, key.ID, true
}

// ResolvePrincipal identifies the caller. A session always wins over a key
// header so a logged-in browser is never downgraded by a stray credential.
func (s *Service) ResolvePrincipal(r *http.Request, session func() *models.User) *models.User {
	if session != nil {
		if user := session(); user != nil {
			return user
		}
	}

	token := ExtractFromRequest(r)
	if token == "" {
		return nil
	}

	user, _, ok := s.Validate(token)
	if !ok {
		return nil
	}
	return user
}
