package sharing

import (
	"context"
	"fmt"
	"log"

	"bubblepop/internal/achievements"
	"bubblepop/internal/challenge"
	"bubblepop/internal/content"
	"bubblepop/internal/events"
)

// OnHighScore asks the player to share a new best when settings allow. It
// reports whether a prompt was shown.
func (m *Manager) OnHighScore(ctx context.Context, ev events.HighScoreEvent) bool {
	s := m.Settings()
	if !s.ShareOnHighScore || !m.ShouldShowSharePrompt(ev.Score) {
		return false
	}
	return m.prompt(ctx, ShareData{
		Type:        TypeScore,
		Title:       defaultTitle,
		Score:       ev.Score,
		IsHighScore: true,
		Stage:       ev.Stage,
		Combo:       ev.Combo,
		Accuracy:    ev.Accuracy,
		URL:         m.shareURL,
		Text:        fmt.Sprintf("New high score in Bubble Pop: %d!", ev.Score),
	})
}

// OnAchievement prompts for anything rarer than common. Unknown ids are
// ignored.
func (m *Manager) OnAchievement(ctx context.Context, ev events.AchievementEvent) bool {
	a, ok := achievements.Lookup(ev.AchievementID)
	if !ok {
		log.Printf("[Share] Unknown achievement %q\n", ev.AchievementID)
		return false
	}
	if a.Rarity == content.RarityCommon {
		return false
	}
	return m.prompt(ctx, ShareData{
		Type:        TypeAchievement,
		Title:       defaultTitle,
		Name:        a.Name,
		Description: a.Description,
		Rarity:      string(a.Rarity),
		URL:         m.shareURL,
		Text:        fmt.Sprintf("Achievement unlocked in Bubble Pop: %s", a.Name),
	})
}

func (m *Manager) OnGameEnd(ctx context.Context, ev events.GameEndEvent) bool {
	s := m.Settings()
	if !s.ShareOnGameEnd || !m.ShouldShowSharePrompt(ev.Score) {
		return false
	}
	return m.prompt(ctx, ShareData{
		Type:        TypeScore,
		Title:       defaultTitle,
		Score:       ev.Score,
		IsHighScore: ev.IsHighScore,
		Stage:       ev.Stage,
		Combo:       ev.Combo,
		Accuracy:    ev.Accuracy,
		URL:         m.shareURL,
		Text:        fmt.Sprintf("I scored %d points in Bubble Pop!", ev.Score),
	})
}

func (m *Manager) prompt(ctx context.Context, data ShareData) bool {
	if m.prompter == nil || !m.Settings().AutoPrompt {
		return false
	}
	if err := m.prompter.PromptShare(ctx, data); err != nil {
		log.Printf("[Share] Prompt failed: %v\n", err)
		return false
	}
	return true
}

// Listen feeds bus events to the handlers until ctx is done. Events for
// other players are skipped when playerID is set.
func (m *Manager) Listen(ctx context.Context, bus *events.Bus, playerID string) {
	mine := func(id string) bool { return playerID == "" || id == playerID }
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-bus.HighScores:
			if mine(ev.PlayerID) {
				m.OnHighScore(ctx, ev)
			}
		case ev := <-bus.Achievements:
			if mine(ev.PlayerID) {
				m.OnAchievement(ctx, ev)
			}
		case ev := <-bus.GameEnds:
			if mine(ev.PlayerID) {
				m.OnGameEnd(ctx, ev)
			}
		}
	}
}

// ChallengeData builds a challenge share with a fresh code on the link.
func (m *Manager) ChallengeData(score int, opts ShareOptions) (ShareData, error) {
	code, err := challenge.GenerateCode()
	if err != nil {
		return ShareData{}, fmt.Errorf("generating challenge code: %w", err)
	}
	link, err := challenge.Link(m.linkFor(opts.URL), code)
	if err != nil {
		return ShareData{}, err
	}
	return ShareData{
		Type:       TypeChallenge,
		Title:      defaultTitle,
		Score:      score,
		Stage:      opts.Stage,
		Code:       code,
		Challenger: opts.Challenger,
		URL:        link,
		Text:       fmt.Sprintf("Can you beat my %d points in Bubble Pop? Code: %s", score, code),
	}, nil
}
