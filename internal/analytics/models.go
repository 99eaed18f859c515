package analytics

// PlayerShareStats summarises one player's recorded share counters.
type PlayerShareStats struct {
	PlayerID    string
	Requests    int
	Successful  int
	Failed      int
	Cancelled   int
	Screenshots int
	SuccessRate float64 // percentage of requests
	TopChannel  string  // channel with the most successes, "" when none
	Channels    []ChannelStats
}

type ChannelStats struct {
	Channel   string
	Attempts  int
	Successes int
}

type LeaderboardEntry struct {
	Channel   string
	Attempts  int
	Successes int
	Rate      float64
	Rank      int
}
