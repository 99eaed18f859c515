package sharing

import (
	"context"
	"log"

	"bubblepop/internal/capture"
	"bubblepop/internal/overlay"
)

// ShareWithScreenshot attaches the current game frame to data. A failed
// capture still shares the text, with Fallback set.
func (m *Manager) ShareWithScreenshot(ctx context.Context, platform string, data ShareData, opts capture.Options) (ShareResult, error) {
	if m.capture == nil {
		return ShareResult{}, ErrCaptureUnavailable
	}
	res, err := m.capture.CaptureGameCanvas(ctx, opts)
	return m.shareCaptured(ctx, platform, data, res, err), nil
}

// ShareWithOverlayScreenshot captures the frame with an achievement banner
// for achievement shares and a score card for everything else.
func (m *Manager) ShareWithOverlayScreenshot(ctx context.Context, platform string, data ShareData, cfg overlay.Config, opts capture.Options) (ShareResult, error) {
	if m.capture == nil {
		return ShareResult{}, ErrCaptureUnavailable
	}
	var (
		res *capture.Result
		err error
	)
	if data.Type == TypeAchievement {
		res, err = m.capture.CaptureWithAchievementOverlay(ctx, &overlay.AchievementData{
			Name:        data.Name,
			Description: data.Description,
			Rarity:      data.Rarity,
		}, cfg, opts)
	} else {
		res, err = m.capture.CaptureWithScoreOverlay(ctx, &overlay.ScoreData{
			Score:       data.Score,
			IsHighScore: data.IsHighScore,
			Combo:       data.Combo,
			Accuracy:    data.Accuracy,
			Stage:       data.Stage,
		}, cfg, opts)
	}
	return m.shareCaptured(ctx, platform, data, res, err), nil
}

func (m *Manager) shareCaptured(ctx context.Context, platform string, data ShareData, res *capture.Result, err error) ShareResult {
	if err != nil {
		log.Printf("[Share] Screenshot failed, sharing text only: %v\n", err)
		m.record(StatScreenshotFallback)
		out := m.ShareTo(ctx, platform, data)
		out.Fallback = true
		return out
	}
	m.record(StatScreenshotCaptured)
	m.record(StatScreenshotShare)

	data = data.clone()
	data.Files = append(data.Files, File{
		Name:        res.Filename,
		ContentType: res.ContentType,
		Data:        res.Data,
		URL:         res.URL,
	})
	return m.ShareTo(ctx, platform, data)
}
