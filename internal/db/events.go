package db

import (
	"fmt"
	"time"
)

// ShareEvent is one statistics counter increment for a player.
type ShareEvent struct {
	PlayerID   string
	Event      string
	RecordedAt time.Time
}

func (d *DB) RecordShareEvent(ev ShareEvent) error {
	_, err := d.conn.Exec(`
		INSERT INTO share_events (player_id, event, recorded_at)
		VALUES ($1, $2, $3)
	`, ev.PlayerID, ev.Event, ev.RecordedAt)
	if err != nil {
		return fmt.Errorf("recording share event: %w", err)
	}
	return nil
}

func (d *DB) BatchRecordShareEvents(events []ShareEvent) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO share_events (player_id, event, recorded_at)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(ev.PlayerID, ev.Event, ev.RecordedAt); err != nil {
			return fmt.Errorf("recording share event in batch: %w", err)
		}
	}

	return tx.Commit()
}

// EventCounts totals a player's recorded events by name.
func (d *DB) EventCounts(playerID string) (map[string]int, error) {
	rows, err := d.conn.Query(`
		SELECT event, COUNT(*) FROM share_events WHERE player_id = $1 GROUP BY event
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("counting share events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var event string
		var n int
		if err := rows.Scan(&event, &n); err != nil {
			return nil, fmt.Errorf("scanning share event count: %w", err)
		}
		counts[event] = n
	}
	return counts, rows.Err()
}
