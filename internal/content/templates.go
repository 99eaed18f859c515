package content

// Kind identifies the event a message is generated for.
type Kind string

const (
	KindScore       Kind = "score"
	KindAchievement Kind = "achievement"
	KindChallenge   Kind = "challenge"
	KindCustom      Kind = "custom"
)

const (
	langJapanese = "ja"
	langEnglish  = "en"
)

// templates[kind][platform][language]
var templates = map[Kind]map[string]map[string]string{
	KindScore: {
		PlatformTwitter: {
			langJapanese: "Bubble Popで{score}点を獲得！{highScore}",
			langEnglish:  "Scored {score} in Bubble Pop! {highScore}",
		},
		PlatformFacebook: {
			langJapanese: "Bubble Popで{score}点を獲得しました！{highScore} {stage} あなたは超えられる？",
			langEnglish:  "I just scored {score} points in Bubble Pop! {highScore} {stage} Can you beat me?",
		},
		PlatformGeneric: {
			langJapanese: "Bubble Popで{score}点を獲得！{highScore} {stage}",
			langEnglish:  "I scored {score} points in Bubble Pop! {highScore} {stage}",
		},
	},
	KindAchievement: {
		PlatformTwitter: {
			langJapanese: "Bubble Popで実績「{name}」を解除！",
			langEnglish:  "Unlocked \"{name}\" in Bubble Pop!",
		},
		PlatformFacebook: {
			langJapanese: "Bubble Popで実績「{name}」を解除しました！{description}",
			langEnglish:  "I unlocked the \"{name}\" achievement in Bubble Pop! {description}",
		},
		PlatformGeneric: {
			langJapanese: "実績解除：{name} - {description}",
			langEnglish:  "Achievement unlocked in Bubble Pop: {name}! {description}",
		},
	},
	KindChallenge: {
		PlatformTwitter: {
			langJapanese: "{challenger}からの挑戦状！Bubble Popで{score}点を超えられる？ {code}",
			langEnglish:  "{challenger} challenges you to beat {score} in Bubble Pop! {code}",
		},
		PlatformFacebook: {
			langJapanese: "{challenger}からの挑戦状！Bubble Popで{score}点を超えてみて！{stage} {code}",
			langEnglish:  "{challenger} challenges you to beat {score} points in Bubble Pop! {stage} {code}",
		},
		PlatformGeneric: {
			langJapanese: "{challenger}からの挑戦：{score}点を超えよう！ {code}",
			langEnglish:  "{challenger} challenges you to beat {score} points in Bubble Pop! {code}",
		},
	},
}

// fragments are localized pieces substituted into templates.
var fragments = map[string]map[string]string{
	langJapanese: {
		"highScore":  "ハイスコア更新！",
		"stage":      "（ステージ%d）",
		"code":       "挑戦コード：%s",
		"challenger": "友だち",
		"fallback":   "Bubble Popで遊んでいます！",
	},
	langEnglish: {
		"highScore":  "New high score!",
		"stage":      "(Stage %d)",
		"code":       "Challenge code: %s",
		"challenger": "A friend",
		"fallback":   "Playing Bubble Pop!",
	},
}

const brandHashtag = "BubblePop"

var kindHashtags = map[Kind][]string{
	KindScore:       {brandHashtag, "HighScore", "Gaming"},
	KindAchievement: {brandHashtag, "Achievement", "Gaming"},
	KindChallenge:   {brandHashtag, "Challenge", "Gaming"},
}

// legendaryGlyphs decorate legendary achievements.
var legendaryGlyphs = []string{"🏆", "👑", "💎", "🌟"}

// LegendaryGlyphs returns the glyph set used for legendary achievements.
func LegendaryGlyphs() []string {
	return append([]string(nil), legendaryGlyphs...)
}
