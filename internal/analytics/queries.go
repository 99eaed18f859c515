package analytics

import (
	"fmt"
	"sort"

	"bubblepop/internal/db"
	"bubblepop/internal/sharing"
)

// Channels are the share channels that carry attempt and success counters.
var Channels = []string{
	sharing.PlatformWebShare,
	sharing.PlatformTwitter,
	sharing.PlatformFacebook,
	sharing.PlatformCopy,
}

type Queries struct {
	DB *db.DB
}

func NewQueries(database *db.DB) *Queries {
	return &Queries{DB: database}
}

func (q *Queries) GetPlayerShareStats(playerID string) (*PlayerShareStats, error) {
	counts, err := q.DB.EventCounts(playerID)
	if err != nil {
		return nil, fmt.Errorf("getting share stats: %w", err)
	}
	stats := Summarize(playerID, counts)
	return &stats, nil
}

// Summarize derives player stats from raw counter totals.
func Summarize(playerID string, counts map[string]int) PlayerShareStats {
	stats := PlayerShareStats{
		PlayerID:    playerID,
		Requests:    counts[sharing.StatShareRequests],
		Successful:  counts[sharing.StatSuccessfulShares],
		Failed:      counts[sharing.StatFailedShares],
		Cancelled:   counts[sharing.StatUserCancelled],
		Screenshots: counts[sharing.StatScreenshotShare],
		SuccessRate: sharing.PerformanceStats(counts).SuccessRate(),
	}

	best := 0
	for _, ch := range Channels {
		cs := ChannelStats{
			Channel:   ch,
			Attempts:  counts[sharing.AttemptStat(ch)],
			Successes: counts[sharing.SuccessStat(ch)],
		}
		if cs.Attempts == 0 && cs.Successes == 0 {
			continue
		}
		stats.Channels = append(stats.Channels, cs)
		if cs.Successes > best {
			best = cs.Successes
			stats.TopChannel = ch
		}
	}
	return stats
}

// GetChannelLeaderboard ranks channels by successes across all players.
func (q *Queries) GetChannelLeaderboard(limit int) ([]LeaderboardEntry, error) {
	rows, err := q.DB.Query(`
		SELECT event, COUNT(*) FROM share_events
		WHERE event LIKE '%ShareAttempt' OR event LIKE '%ShareSuccess'
		GROUP BY event
	`)
	if err != nil {
		return nil, fmt.Errorf("getting leaderboard: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var event string
		var n int
		if err := rows.Scan(&event, &n); err != nil {
			return nil, err
		}
		counts[event] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return RankChannels(counts, limit), nil
}

// RankChannels orders channels by successes, then by success rate. Channels
// with no attempts are left out.
func RankChannels(counts map[string]int, limit int) []LeaderboardEntry {
	entries := []LeaderboardEntry{}
	for _, ch := range Channels {
		e := LeaderboardEntry{
			Channel:   ch,
			Attempts:  counts[sharing.AttemptStat(ch)],
			Successes: counts[sharing.SuccessStat(ch)],
		}
		if e.Attempts == 0 {
			continue
		}
		e.Rate = float64(e.Successes) / float64(e.Attempts) * 100
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Successes != entries[j].Successes {
			return entries[i].Successes > entries[j].Successes
		}
		return entries[i].Rate > entries[j].Rate
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
