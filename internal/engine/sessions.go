package engine

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SessionStore resolves persisted login sessions for accounts. Sessions come
// from two places, in priority order: a base64 blob handed in through the
// environment, and session files on disk. Fresh logins are written back to
// disk so the next process start skips the login.
type SessionStore struct {
	dir string
	env map[string]string
}

// NewSessionStore builds a store over dir. envBlob holds zero or more
// "username:base64" pairs separated by commas; malformed pairs are skipped.
func NewSessionStore(dir, envBlob string) *SessionStore {
	s := &SessionStore{dir: dir, env: make(map[string]string)}
	for _, pair := range strings.Split(envBlob, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, blob, ok := strings.Cut(pair, ":")
		if !ok || name == "" || blob == "" {
			continue
		}
		s.env[name] = blob
	}
	return s
}

// FromEnv returns the decoded environment session for username, if present.
func (s *SessionStore) FromEnv(username string) ([]byte, bool) {
	blob, ok := s.env[username]
	if !ok {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, false
	}
	return raw, true
}

// Load reads the on-disk session for username.
func (s *SessionStore) Load(username string) ([]byte, bool) {
	raw, err := os.ReadFile(s.path(username))
	if err != nil {
		return nil, false
	}
	return raw, true
}

// Save writes the session for username to disk, creating the directory on
// first use.
func (s *SessionStore) Save(username string, blob []byte) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	if err := os.WriteFile(s.path(username), blob, 0o600); err != nil {
		return fmt.Errorf("writing session for %s: %w", username, err)
	}
	return nil
}

func (s *SessionStore) path(username string) string {
	return filepath.Join(s.dir, "session-"+username)
}
