// Package session holds the signed-in user's identity and backend session
// token. It is the identity collaborator for the chat panel and the sign-out
// target of the navigation bar.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/caarlos0/env/v11"

	apierrors "github.com/diogo/medimate/internal/errors"
	"github.com/diogo/medimate/internal/models"
)

// Identity is the read-only view of the current user
type Identity struct {
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Initial returns the first letter of the display name in upper case, or "U"
func (i Identity) Initial() string {
	name := strings.TrimSpace(i.DisplayName)
	if name == "" {
		return "U"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}

// Provider is the narrow interface the UI depends on
type Provider interface {
	// CurrentUser returns the signed-in identity, or false when nobody is signed in
	CurrentUser() (Identity, bool)
	// Token returns the backend session token, or "" when there is none
	Token() string
	// SignOut forgets the current session
	SignOut() error
}

// Session is the persisted session
type Session struct {
	User    Identity  `json:"user"`
	Token   string    `json:"token,omitempty"`
	Source  string    `json:"source,omitempty"` // where the token came from, e.g. a browser name
	SavedAt time.Time `json:"saved_at"`
}

// envIdentity lets the environment name the user without a session file
type envIdentity struct {
	Name   string `env:"MEDIMATE_USER_NAME"`
	Avatar string `env:"MEDIMATE_USER_AVATAR"`
}

// FileStore is a Provider backed by a JSON file
type FileStore struct {
	path string

	mu      sync.RWMutex
	session *Session
	loaded  bool
}

var _ Provider = (*FileStore)(nil)

// NewFileStore creates a store reading and writing path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the session file. A missing file yields ErrNotSignedIn.
func (s *FileStore) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() (*Session, error) {
	if s.loaded {
		if s.session == nil {
			return nil, apierrors.ErrNotSignedIn
		}
		return s.session, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil, apierrors.ErrNotSignedIn
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	s.session = &sess
	s.loaded = true
	return s.session, nil
}

// Save writes sess to disk with owner-only permissions
func (s *FileStore) Save(sess *Session) error {
	if sess == nil {
		return fmt.Errorf("session is nil")
	}
	if sess.SavedAt.IsZero() {
		sess.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	s.mu.Lock()
	s.session = sess
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// CurrentUser implements Provider. A session file holding a token or a
// name counts as signed in, even when the name is empty.
// MEDIMATE_USER_NAME and MEDIMATE_USER_AVATAR take precedence over the
// stored identity.
func (s *FileStore) CurrentUser() (Identity, bool) {
	var fromEnv envIdentity
	if err := env.Parse(&fromEnv); err == nil && fromEnv.Name != "" {
		return Identity{DisplayName: fromEnv.Name, AvatarURL: fromEnv.Avatar}, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.loadLocked()
	if err != nil || (sess.Token == "" && sess.User.DisplayName == "") {
		return Identity{}, false
	}
	return sess.User, true
}

// Token implements Provider
func (s *FileStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.loadLocked()
	if err != nil {
		return ""
	}
	return sess.Token
}

// SignOut implements Provider by deleting the session file
func (s *FileStore) SignOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	s.session = nil
	s.loaded = true
	return nil
}

// CookieListItem represents a cookie in browser export format
type CookieListItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ParseCookieExport extracts the backend session token from a cookie export.
// Supports both list format [{name, value}] and dict format {name: value}.
func ParseCookieExport(data []byte) (string, error) {
	var dictFormat map[string]string
	if err := json.Unmarshal(data, &dictFormat); err == nil {
		token, ok := dictFormat[models.SessionCookieName]
		if !ok || token == "" {
			return "", fmt.Errorf("missing required cookie: %s", models.SessionCookieName)
		}
		return token, nil
	}

	var listFormat []CookieListItem
	if err := json.Unmarshal(data, &listFormat); err == nil {
		for _, item := range listFormat {
			if item.Name == models.SessionCookieName && item.Value != "" {
				return item.Value, nil
			}
		}
		return "", fmt.Errorf("missing required cookie: %s", models.SessionCookieName)
	}

	return "", fmt.Errorf("invalid cookies format: expected list [{name, value}] or dict {name: value}")
}

// ImportCookieFile reads a cookie export from sourcePath and stores its token
// together with user.
func (s *FileStore) ImportCookieFile(sourcePath string, user Identity) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source file not found: %s", sourcePath)
		}
		return fmt.Errorf("could not read file: %w", err)
	}

	token, err := ParseCookieExport(data)
	if err != nil {
		return err
	}

	return s.Save(&Session{User: user, Token: token, Source: filepath.Base(sourcePath)})
}
