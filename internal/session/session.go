package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var (
	// ErrNoSession is returned when no token is available.
	ErrNoSession = errors.New("not logged in (run `agriflow login`)")
	// ErrExpired is returned when the token's exp claim is in the past.
	ErrExpired = errors.New("session expired (run `agriflow login`)")
)

// Claims are the fields of interest in the API's JWT.
type Claims struct {
	Role      string
	Type      string
	ExpiresAt time.Time
}

// Session hands out the bearer token for API requests.
type Session struct {
	token string
	now   func() time.Time
}

// New creates a session for token. An empty token yields ErrNoSession on use.
func New(token string) *Session {
	return &Session{
		token: strings.TrimSpace(token),
		now:   time.Now,
	}
}

// Token returns the bearer token, or an error when the session cannot be
// used. Tokens that are not JWTs are treated as opaque and never expire.
func (s *Session) Token() (string, error) {
	if s == nil || s.token == "" {
		return "", ErrNoSession
	}
	claims, ok := s.Claims()
	if ok && !claims.ExpiresAt.IsZero() && claims.ExpiresAt.Before(s.now()) {
		return "", ErrExpired
	}
	return s.token, nil
}

// Claims decodes the token payload without verifying the signature; the
// API verifies it on every request.
func (s *Session) Claims() (Claims, bool) {
	if s == nil || s.token == "" {
		return Claims{}, false
	}
	mc := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(s.token, mc); err != nil {
		return Claims{}, false
	}

	var c Claims
	if v, ok := mc["role"].(string); ok {
		c.Role = v
	}
	if v, ok := mc["type"].(string); ok {
		c.Type = v
	}
	switch exp := mc["exp"].(type) {
	case float64:
		c.ExpiresAt = time.Unix(int64(exp), 0)
	case json.Number:
		if n, err := exp.Int64(); err == nil {
			c.ExpiresAt = time.Unix(n, 0)
		}
	}
	return c, true
}

// Store persists the token between runs.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path() string {
	return filepath.Join(s.dir, "token")
}

// Save writes the token, readable by the owner only.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty token")
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(s.path(), []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

// Load returns the stored token, or "" when there is none.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Clear removes the stored token.
func (s *Store) Clear() error {
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}
