package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gifable/internal/platform/config"
	"gifable/internal/platform/models"
	"gifable/internal/platform/repositories"
)

type SessionClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Sessions issues and validates JWT session cookies. It is the session-lookup
// collaborator every media endpoint consults before falling back to API keys.
type Sessions struct {
	config config.SessionConfig
	users  *repositories.UserRepository
}

func NewSessions(cfg config.SessionConfig, users *repositories.UserRepository) *Sessions {
	return &Sessions{config: cfg, users: users}
}

func (s *Sessions) Issue(userID string) (string, error) {
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "gifable",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *Sessions) validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

// SetCookie attaches a session cookie to the response.
func (s *Sessions) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.config.TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie logs the browser out.
func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// CurrentUser resolves the request's session cookie to a user. Returns nil
// for anonymous, expired or malformed sessions; none of those are errors on
// the serving path.
func (s *Sessions) CurrentUser(r *http.Request) *models.User {
	cookie, err := r.Cookie(s.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	claims, err := s.validate(cookie.Value)
	if err != nil {
		return nil
	}

	user, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return nil
	}
	return user
}
