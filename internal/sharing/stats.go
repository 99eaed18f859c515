package sharing

// Counter names.
const (
	StatShareRequests      = "shareRequests"
	StatSuccessfulShares   = "successfulShares"
	StatFailedShares       = "failedShares"
	StatUserCancelled      = "userCancelled"
	StatPopupBlocked       = "popupBlocked"
	StatScreenshotShare    = "screenshotShare"
	StatScreenshotCaptured = "screenshotCaptured"
	StatScreenshotFallback = "screenshotFallback"
	StatValidationFailed   = "validationFailed"
)

// AttemptStat is the per-platform attempt counter, e.g. "twitterShareAttempt".
func AttemptStat(platform string) string { return statKey(platform) + "ShareAttempt" }

// SuccessStat is the per-platform success counter, e.g. "twitterShareSuccess".
func SuccessStat(platform string) string { return statKey(platform) + "ShareSuccess" }

// PerformanceStats is a snapshot of the manager's monotonic counters.
type PerformanceStats map[string]int

// SuccessRate is successful shares as a percentage of requests, 0 when
// there were none.
func (s PerformanceStats) SuccessRate() float64 {
	if s[StatShareRequests] == 0 {
		return 0
	}
	return float64(s[StatSuccessfulShares]) / float64(s[StatShareRequests]) * 100
}

// record bumps a counter and forwards it to every recorder.
func (m *Manager) record(name string) {
	m.mu.Lock()
	m.stats[name]++
	m.mu.Unlock()
	for _, r := range m.recorders {
		r.Record(name)
	}
}

// Stats returns a copy of the counters.
func (m *Manager) Stats() PerformanceStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(PerformanceStats, len(m.stats))
	for k, v := range m.stats {
		out[k] = v
	}
	return out
}
