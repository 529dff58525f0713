package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is a small durable key/value store. Keys are case-insensitive.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

type FileStore struct {
	path string
	mu   sync.Mutex
	data *fileData
}

type fileData struct {
	Data map[string]string `json:"Data"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (self *FileStore) Path() string {
	return self.path
}

func (self *FileStore) persist() error {
	jsonData, err := json.MarshalIndent(self.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(self.path), 0755); err != nil {
		return fmt.Errorf("couldn't create storage dir: %w", err)
	}
	// write to a sibling file first so a crash never leaves a truncated store
	tmp := self.path + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, self.path)
}

func (self *FileStore) load() *fileData {
	if self.data != nil {
		return self.data
	}
	self.data = &fileData{
		Data: map[string]string{},
	}
	content, err := os.ReadFile(self.path)
	if err != nil {
		// WARNING: swallow error here, a missing file is an empty store
		return self.data
	}
	loaded := &fileData{}
	if err := json.Unmarshal(content, loaded); err != nil || loaded.Data == nil {
		// WARNING: swallow error here, unreadable content is an empty store
		return self.data
	}
	self.data = loaded
	return self.data
}

func (self *FileStore) Get(key string) (string, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()

	value, found := self.load().Data[strings.ToLower(key)]
	return value, found
}

func (self *FileStore) Set(key, value string) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.load().Data[strings.ToLower(key)] = value
	return self.persist()
}

func (self *FileStore) Remove(key string) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	d := self.load()
	if _, found := d.Data[strings.ToLower(key)]; !found {
		return nil
	}
	delete(d.Data, strings.ToLower(key))
	return self.persist()
}

// MemoryStore keeps everything in process. Tests use it in place of the
// file store.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]string{}}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[strings.ToLower(key)]
	return v, ok
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[strings.ToLower(key)] = value
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, strings.ToLower(key))
	return nil
}

var ErrNotFound = errors.New("key not found")

// GetJSON decodes the value stored under key into v. It returns ErrNotFound
// when the key is absent.
func GetJSON(s Store, key string, v interface{}) error {
	raw, found := s.Get(key)
	if !found {
		return ErrNotFound
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("couldn't decode %s: %w", key, err)
	}
	return nil
}

func SetJSON(s Store, key string, v interface{}) error {
	content, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("couldn't encode %s: %w", key, err)
	}
	return s.Set(key, string(content))
}
