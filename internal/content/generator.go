package content

import (
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

type ScoreData struct {
	Score       int
	IsHighScore bool
	Stage       int
	URL         string
}

type AchievementData struct {
	Name        string
	Description string
	Rarity      Rarity
	URL         string
}

type ChallengeData struct {
	Score      int
	Challenger string
	Code       string
	Stage      int
	URL        string
}

type CustomData struct {
	Template string
	Fields   map[string]string
	URL      string
}

type Metadata struct {
	Kind       Kind
	IsRare     bool
	IsFallback bool
	Truncated  bool
	Hashtags   []string
	Length     int
}

type Message struct {
	Message  string
	Platform string
	Language string
	Metadata Metadata
}

// Localizer supplies translated templates. Keys look like
// "share.score.twitter".
type Localizer interface {
	Template(key, lang string) (string, bool)
}

type Options struct {
	// Language is a tag or an Accept-Language header value.
	Language   string
	URLReserve int
	Localizer  Localizer
}

type Stats struct {
	Generated int
	Errors    int
}

// Generator builds platform-constrained share text. It does no I/O.
type Generator struct {
	lang       string
	urlReserve int
	localizer  Localizer
	pick       func(n int) int

	mu    sync.Mutex
	stats Stats
}

func NewGenerator(opts Options) *Generator {
	reserve := opts.URLReserve
	if reserve <= 0 {
		reserve = DefaultURLReserve
	}
	return &Generator{
		lang:       MatchLanguage(opts.Language),
		urlReserve: reserve,
		localizer:  opts.Localizer,
		pick:       rand.IntN,
	}
}

var (
	supportedLanguages = []language.Tag{language.Japanese, language.English}
	languageMatcher    = language.NewMatcher(supportedLanguages)
)

// MatchLanguage picks ja or en for a language tag or Accept-Language
// value. Anything unrecognised resolves to ja.
func MatchLanguage(pref string) string {
	tags, _, err := language.ParseAcceptLanguage(pref)
	if err != nil || len(tags) == 0 {
		return langJapanese
	}
	_, idx, conf := languageMatcher.Match(tags...)
	if conf == language.No {
		return langJapanese
	}
	base, _ := supportedLanguages[idx].Base()
	return base.String()
}

func (g *Generator) Language() string {
	return g.lang
}

func (g *Generator) URLReserve() int {
	return g.urlReserve
}

func (g *Generator) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

func (g *Generator) GenerateScoreMessage(data ScoreData, platform string) Message {
	fields := map[string]string{
		"score": g.formatNumber(data.Score),
	}
	if data.IsHighScore {
		fields["highScore"] = fragments[g.lang]["highScore"]
	}
	if data.Stage > 0 {
		fields["stage"] = fmt.Sprintf(fragments[g.lang]["stage"], data.Stage)
	}
	tags := kindHashtags[KindScore]
	if !data.IsHighScore {
		tags = []string{brandHashtag, "Gaming"}
	}
	return g.compose(KindScore, platform, fields, "", tags, data.URL != "")
}

func (g *Generator) GenerateAchievementMessage(data AchievementData, platform string) Message {
	fields := map[string]string{
		"name":        data.Name,
		"description": data.Description,
	}
	glyph := ""
	if data.Rarity == RarityLegendary {
		glyph = legendaryGlyphs[g.pick(len(legendaryGlyphs))]
	}
	msg := g.compose(KindAchievement, platform, fields, glyph, kindHashtags[KindAchievement], data.URL != "")
	msg.Metadata.IsRare = glyph != ""
	return msg
}

func (g *Generator) GenerateChallengeMessage(data ChallengeData, platform string) Message {
	challenger := data.Challenger
	if challenger == "" {
		challenger = fragments[g.lang]["challenger"]
	}
	fields := map[string]string{
		"score":      g.formatNumber(data.Score),
		"challenger": challenger,
	}
	if data.Code != "" {
		fields["code"] = fmt.Sprintf(fragments[g.lang]["code"], data.Code)
	}
	if data.Stage > 0 {
		fields["stage"] = fmt.Sprintf(fragments[g.lang]["stage"], data.Stage)
	}
	return g.compose(KindChallenge, platform, fields, "", kindHashtags[KindChallenge], data.URL != "")
}

// GenerateCustomMessage interpolates a caller-supplied template. Unsafe
// templates produce a fallback message instead of an error.
func (g *Generator) GenerateCustomMessage(data CustomData, platform string) Message {
	platform = NormalizePlatform(platform)
	if !ValidateTemplate(data.Template) {
		log.Println("[Content] Rejected unsafe custom template")
		g.mu.Lock()
		g.stats.Errors++
		g.mu.Unlock()
		text := fragments[g.lang]["fallback"]
		return Message{
			Message:  text,
			Platform: platform,
			Language: g.lang,
			Metadata: Metadata{Kind: KindCustom, IsFallback: true, Length: utf8.RuneCountInString(text)},
		}
	}
	body := Interpolate(data.Template, data.Fields)
	limit := Limit(platform, data.URL != "", g.urlReserve)
	text, truncated := FitToLimit(body, limit)

	g.mu.Lock()
	g.stats.Generated++
	g.mu.Unlock()
	return Message{
		Message:  text,
		Platform: platform,
		Language: g.lang,
		Metadata: Metadata{Kind: KindCustom, Truncated: truncated, Length: utf8.RuneCountInString(text)},
	}
}

func (g *Generator) compose(kind Kind, platform string, fields map[string]string, glyph string, tags []string, hasURL bool) Message {
	platform = NormalizePlatform(platform)
	body := Interpolate(g.template(kind, platform), fields)
	mark := ""
	if glyph != "" {
		mark = " " + glyph
	}

	tags = CapHashtags(tags, platform)
	suffix := ""
	if len(tags) > 0 {
		suffix = " #" + strings.Join(tags, " #")
	}

	// The glyph and hashtags survive truncation; only the body is cut.
	limit := Limit(platform, hasURL, g.urlReserve) - utf8.RuneCountInString(mark)
	bodyLimit := limit - utf8.RuneCountInString(suffix)
	if bodyLimit < 10 {
		suffix, tags, bodyLimit = "", nil, limit
	}
	body, truncated := FitToLimit(body, bodyLimit)
	text := body + mark + suffix

	g.mu.Lock()
	g.stats.Generated++
	g.mu.Unlock()

	return Message{
		Message:  text,
		Platform: platform,
		Language: g.lang,
		Metadata: Metadata{
			Kind:      kind,
			Truncated: truncated,
			Hashtags:  tags,
			Length:    utf8.RuneCountInString(text),
		},
	}
}

func (g *Generator) template(kind Kind, platform string) string {
	if g.localizer != nil {
		key := "share." + string(kind) + "." + platform
		if t, ok := g.localizer.Template(key, g.lang); ok && ValidateTemplate(t) {
			return t
		}
	}
	byPlatform := templates[kind]
	byLang, ok := byPlatform[platform]
	if !ok {
		byLang = byPlatform[PlatformGeneric]
	}
	if t, ok := byLang[g.lang]; ok {
		return t
	}
	return byLang[langJapanese]
}

func (g *Generator) formatNumber(n int) string {
	tag, err := language.Parse(g.lang)
	if err != nil {
		return strconv.Itoa(n)
	}
	return message.NewPrinter(tag).Sprintf("%d", n)
}

// CapHashtags dedupes tags and trims them to the platform's allowance,
// keeping the caller's order so the brand tag stays first.
func CapHashtags(tags []string, platform string) []string {
	tags = lo.Uniq(lo.Compact(tags))
	allowed := HashtagLimit(platform)
	if len(tags) > allowed {
		tags = tags[:allowed]
	}
	return tags
}
