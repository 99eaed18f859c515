package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// Key is the fixed storage key the settings blob lives under.
const Key = "bubblepop_share_settings"

type Settings struct {
	ShareOnHighScore   bool     `json:"shareOnHighScore"`
	ShareOnGameEnd     bool     `json:"shareOnGameEnd"`
	MinScoreThreshold  int      `json:"minScoreThreshold"`
	ShareInterval      int64    `json:"shareInterval"` // milliseconds
	LastShareTime      int64    `json:"lastShareTime"` // unix milliseconds
	PreferredPlatforms []string `json:"preferredPlatforms"`
	AutoPrompt         bool     `json:"autoPrompt"`
}

func Defaults() Settings {
	return Settings{
		ShareOnHighScore:   true,
		ShareOnGameEnd:     false,
		MinScoreThreshold:  1000,
		ShareInterval:      300000,
		LastShareTime:      0,
		PreferredPlatforms: []string{"web-share", "twitter", "facebook"},
		AutoPrompt:         true,
	}
}

// Clone returns a copy that shares no slice memory with s.
func (s Settings) Clone() Settings {
	s.PreferredPlatforms = append([]string(nil), s.PreferredPlatforms...)
	return s
}

// ErrNotFound is returned by a Store that has nothing under a key.
var ErrNotFound = errors.New("settings: not found")

// Store persists raw settings blobs by key.
type Store interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

// Load reads settings from store. Missing or corrupt data, or any storage
// error, yields the defaults; nothing is returned to the caller.
func Load(store Store) Settings {
	if store == nil {
		return Defaults()
	}
	data, err := store.Load(Key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("[Settings] Load failed, using defaults: %v\n", err)
		}
		return Defaults()
	}
	s := Defaults()
	s.PreferredPlatforms = nil
	if err := json.Unmarshal(data, &s); err != nil {
		log.Printf("[Settings] Corrupt settings, using defaults: %v\n", err)
		return Defaults()
	}
	if s.PreferredPlatforms == nil {
		s.PreferredPlatforms = Defaults().PreferredPlatforms
	}
	return s
}

// Save writes settings to store, logging and swallowing failures.
func Save(store Store, s Settings) {
	if store == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		log.Printf("[Settings] Marshal failed: %v\n", err)
		return
	}
	if err := store.Save(Key, data); err != nil {
		log.Printf("[Settings] Save failed: %v\n", err)
	}
}

// MemoryStore keeps blobs in a map.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Load(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), d...), nil
}

func (m *MemoryStore) Save(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// FileStore keeps one JSON file per key in a directory.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating settings dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.Dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

func (f *FileStore) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	return data, nil
}

// Save writes through a temp file so readers never see a partial blob.
func (f *FileStore) Save(key string, data []byte) error {
	target := f.path(key)
	tmp, err := os.CreateTemp(f.Dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming settings: %w", err)
	}
	return nil
}
