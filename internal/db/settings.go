package db

import (
	"database/sql"
	"errors"
	"fmt"

	"bubblepop/internal/settings"
)

// SettingsStore keeps one player's share settings in the share_settings
// table. It implements settings.Store.
type SettingsStore struct {
	db       *DB
	playerID string
}

func (d *DB) SettingsStore(playerID string) *SettingsStore {
	return &SettingsStore{db: d, playerID: playerID}
}

func (s *SettingsStore) Load(key string) ([]byte, error) {
	var data string
	err := s.db.conn.QueryRow(`
		SELECT data FROM share_settings WHERE player_id = $1 AND key = $2
	`, s.playerID, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, settings.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading settings %s: %w", key, err)
	}
	return []byte(data), nil
}

func (s *SettingsStore) Save(key string, data []byte) error {
	_, err := s.db.conn.Exec(`
		INSERT INTO share_settings (player_id, key, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (player_id, key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, s.playerID, key, string(data))
	if err != nil {
		return fmt.Errorf("saving settings %s: %w", key, err)
	}
	return nil
}
