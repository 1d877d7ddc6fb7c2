package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var (
	// ErrNoCredentials is returned when nothing has been saved yet.
	ErrNoCredentials = errors.New("credentials: not found")
	// ErrCorrupt is returned when the file cannot be decrypted with the derived key.
	ErrCorrupt = errors.New("credentials: file is corrupt or was written on another device")
)

// Credentials is the persisted sign-in state.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// FileStore keeps credentials in a secretbox-sealed file. The key is derived
// from the configured secret and the device id, so a copied file does not
// open on another device.
type FileStore struct {
	path string
	key  [32]byte

	mu     sync.RWMutex
	cached *Credentials
}

// NewFileStore derives the sealing key and returns the store.
func NewFileStore(path, secret, deviceID string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("credentials: path is required")
	}
	if secret == "" {
		return nil, errors.New("credentials: secret is required")
	}
	s := &FileStore{path: path}
	kdf := hkdf.New(sha256.New, []byte(secret), []byte(deviceID), []byte("evmobile-credentials"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return s, nil
}

// Save seals and writes the credentials, replacing any previous file.
func (s *FileStore) Save(accessToken, refreshToken string) error {
	if accessToken == "" {
		return errors.New("credentials: access token is required")
	}
	creds := Credentials{AccessToken: accessToken, RefreshToken: refreshToken, SavedAt: time.Now().UTC()}
	plain, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &s.key)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	s.mu.Lock()
	s.cached = &creds
	s.mu.Unlock()
	return nil
}

// Load reads and opens the credential file.
func (s *FileStore) Load() (*Credentials, error) {
	s.mu.RLock()
	if s.cached != nil {
		c := *s.cached
		s.mu.RUnlock()
		return &c, nil
	}
	s.mu.RUnlock()

	sealed, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoCredentials
		}
		return nil, err
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrCorrupt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrCorrupt
	}
	var creds Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, ErrCorrupt
	}

	s.mu.Lock()
	s.cached = &creds
	s.mu.Unlock()
	c := creds
	return &c, nil
}

// AccessToken returns the stored bearer token, empty when signed out.
func (s *FileStore) AccessToken() string {
	creds, err := s.Load()
	if err != nil {
		return ""
	}
	return creds.AccessToken
}

// Clear removes the credential file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
