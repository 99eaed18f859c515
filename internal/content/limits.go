package content

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

const (
	PlatformTwitter  = "twitter"
	PlatformFacebook = "facebook"
	PlatformGeneric  = "generic"
)

// DefaultURLReserve is the length every link takes after the twitter
// link shortener rewrites it.
const DefaultURLReserve = 23

const ellipsis = "…"

var platformLimits = map[string]int{
	PlatformTwitter:  280,
	PlatformFacebook: 63206,
	PlatformGeneric:  1000,
}

var hashtagLimits = map[string]int{
	PlatformTwitter:  2,
	PlatformFacebook: 1,
	PlatformGeneric:  3,
}

// NormalizePlatform maps platforms without their own templates to generic.
func NormalizePlatform(platform string) string {
	if _, ok := platformLimits[platform]; ok {
		return platform
	}
	return PlatformGeneric
}

// HashtagLimit returns how many hashtags a message on platform may carry.
func HashtagLimit(platform string) int {
	return hashtagLimits[NormalizePlatform(platform)]
}

// Limit returns the character budget for a message on platform. Twitter
// loses urlReserve characters when the share carries a link.
func Limit(platform string, hasURL bool, urlReserve int) int {
	platform = NormalizePlatform(platform)
	limit := platformLimits[platform]
	if platform == PlatformTwitter && hasURL {
		limit -= urlReserve
	}
	return limit
}

// FitToLimit cuts text to at most limit runes, ending with an ellipsis when
// anything was removed. Cuts fall on grapheme boundaries so emoji and
// combining marks stay whole.
func FitToLimit(text string, limit int) (string, bool) {
	if utf8.RuneCountInString(text) <= limit {
		return text, false
	}
	if limit <= 0 {
		return "", true
	}
	budget := limit - utf8.RuneCountInString(ellipsis)
	var sb strings.Builder
	n := 0
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		cluster := gr.Str()
		size := utf8.RuneCountInString(cluster)
		if n+size > budget {
			break
		}
		sb.WriteString(cluster)
		n += size
	}
	return strings.TrimRight(sb.String(), " ") + ellipsis, true
}
