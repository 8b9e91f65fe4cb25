package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// TokenKey is the fixed key the access token is stored under.
const TokenKey = "accessToken"

type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileStore is a small JSON key-value file, written atomically.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore places the state file under the user config dir. An empty
// appName or unavailable config dir falls back to the working directory.
func NewFileStore(appName string) *FileStore {
	dir, err := os.UserConfigDir()
	if err != nil || appName == "" {
		return &FileStore{path: filepath.Join(".", "state.json")}
	}
	return &FileStore{path: filepath.Join(dir, appName, "state.json")}
}

func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: filepath.Clean(path)}
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.readLocked()
	if err != nil {
		return "", err
	}
	return m[TokenKey], nil
}

func (f *FileStore) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.readLocked()
	if err != nil {
		// A corrupted file is replaced rather than blocking login.
		m = map[string]string{}
	}
	m[TokenKey] = token
	return f.writeLocked(m)
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.readLocked()
	if err != nil {
		m = map[string]string{}
	}
	if _, ok := m[TokenKey]; !ok {
		return nil
	}
	delete(m, TokenKey)
	return f.writeLocked(m)
}

func (f *FileStore) readLocked() (map[string]string, error) {
	m := map[string]string{}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (f *FileStore) writeLocked(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// MemoryStore keeps the token in memory only.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Save("")
}
