package events

// HighScoreEvent fires when a player beats their best score.
type HighScoreEvent struct {
	PlayerID string
	Score    int
	Stage    int
	Combo    int
	Accuracy float64
}

type AchievementEvent struct {
	PlayerID      string
	AchievementID string
}

type GameEndEvent struct {
	PlayerID    string
	Score       int
	Stage       int
	IsHighScore bool
	Combo       int
	Accuracy    float64
}

// Bus carries game events from the bridge to share managers.
type Bus struct {
	HighScores   chan HighScoreEvent
	Achievements chan AchievementEvent
	GameEnds     chan GameEndEvent
}

func NewBus() *Bus {
	return &Bus{
		HighScores:   make(chan HighScoreEvent, 10),
		Achievements: make(chan AchievementEvent, 10),
		GameEnds:     make(chan GameEndEvent, 10),
	}
}

// Publish sends ev on the matching channel without blocking. It reports
// false when the channel is full or ev is not a known event type.
func (b *Bus) Publish(ev any) bool {
	switch e := ev.(type) {
	case HighScoreEvent:
		select {
		case b.HighScores <- e:
			return true
		default:
		}
	case AchievementEvent:
		select {
		case b.Achievements <- e:
			return true
		default:
		}
	case GameEndEvent:
		select {
		case b.GameEnds <- e:
			return true
		default:
		}
	}
	return false
}
