// Package filestore keeps the token pair in a small JSON document on disk so
// a session survives process restarts.
package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/lemussistemas/salsa-hn-frontend/token"
	"github.com/pkg/errors"
)

type document struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Store is a token.Store backed by a single file.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ token.Store = (*Store)(nil)

func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("[filestore.New] path is required")
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) AccessToken() (string, error) {
	doc, err := s.read()
	return doc.AccessToken, err
}

func (s *Store) RefreshToken() (string, error) {
	doc, err := s.read()
	return doc.RefreshToken, err
}

// SetTokens rewrites the document through a temp file and rename so a crash
// never leaves half a pair behind.
func (s *Store) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "[filestore.SetTokens] mkdir")
	}
	data, err := json.Marshal(document{AccessToken: access, RefreshToken: refresh})
	if err != nil {
		return errors.Wrap(err, "[filestore.SetTokens] marshal")
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tokens-*")
	if err != nil {
		return errors.Wrap(err, "[filestore.SetTokens] create temp")
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[filestore.SetTokens] chmod")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[filestore.SetTokens] write")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[filestore.SetTokens] close")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "[filestore.SetTokens] rename")
	}
	return nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[filestore.Clear] remove")
	}
	return nil
}

func (s *Store) read() (document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc document
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return doc, errors.Wrap(err, "[filestore.read] read")
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, errors.Wrapf(err, "[filestore.read] corrupt token file %s", s.path)
	}
	return doc, nil
}
