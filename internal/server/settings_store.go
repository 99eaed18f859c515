package server

import (
	"log"
	"path/filepath"
	"sync"

	"bubblepop/internal/db"
	"bubblepop/internal/settings"
)

// newSettingsFactory picks where player settings live: the database when
// connected, then per-player directories under dir, then process memory.
func newSettingsFactory(database *db.DB, dir string) func(playerID string) settings.Store {
	if database != nil {
		return func(playerID string) settings.Store { return database.SettingsStore(playerID) }
	}
	mem := &memoryStores{stores: make(map[string]*settings.MemoryStore)}
	if dir == "" {
		return mem.get
	}
	return func(playerID string) settings.Store {
		fs, err := settings.NewFileStore(filepath.Join(dir, playerID))
		if err != nil {
			log.Printf("[Settings] %v (keeping settings in memory)\n", err)
			return mem.get(playerID)
		}
		return fs
	}
}

// memoryStores keeps a player's settings across reconnects.
type memoryStores struct {
	mu     sync.Mutex
	stores map[string]*settings.MemoryStore
}

func (m *memoryStores) get(playerID string) settings.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stores[playerID]
	if !ok {
		st = settings.NewMemoryStore()
		m.stores[playerID] = st
	}
	return st
}
