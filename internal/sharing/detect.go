package sharing

import (
	"net/url"
	"strings"
)

var platformAliases = map[string]string{
	"twitter":   PlatformTwitter,
	"x":         PlatformTwitter,
	"tw":        PlatformTwitter,
	"facebook":  PlatformFacebook,
	"fb":        PlatformFacebook,
	"web-share": PlatformWebShare,
	"webshare":  PlatformWebShare,
	"native":    PlatformWebShare,
	"copy":      PlatformCopy,
	"clipboard": PlatformCopy,
	"generic":   PlatformGeneric,
}

var referrerHosts = map[string]string{
	"twitter.com":        PlatformTwitter,
	"mobile.twitter.com": PlatformTwitter,
	"x.com":              PlatformTwitter,
	"t.co":               PlatformTwitter,
	"facebook.com":       PlatformFacebook,
	"m.facebook.com":     PlatformFacebook,
	"l.facebook.com":     PlatformFacebook,
	"fb.com":             PlatformFacebook,
}

// NormalizePlatform maps aliases to a platform id. Unknown names give "".
func NormalizePlatform(name string) string {
	return platformAliases[strings.ToLower(strings.TrimSpace(name))]
}

// DetectPlatform resolves the share platform in priority order: override,
// native share availability, in-app browser user agent, query hint,
// referrer, then generic.
func (m *Manager) DetectPlatform(override string) string {
	if p := NormalizePlatform(override); p != "" {
		return p
	}
	if m.nativeAvailable() {
		return PlatformWebShare
	}
	if m.env == nil {
		return PlatformGeneric
	}
	if p := platformFromUserAgent(m.env.UserAgent()); p != "" {
		return p
	}
	if p := platformFromQuery(m.env.Query()); p != "" {
		return p
	}
	if p := platformFromReferrer(m.env.Referrer()); p != "" {
		return p
	}
	return PlatformGeneric
}

func platformFromUserAgent(ua string) string {
	switch {
	case strings.Contains(ua, "Twitter"):
		return PlatformTwitter
	case strings.Contains(ua, "FBAN"), strings.Contains(ua, "FBAV"):
		return PlatformFacebook
	}
	return ""
}

func platformFromQuery(q url.Values) string {
	for _, key := range []string{"platform", "utm_source"} {
		switch p := NormalizePlatform(q.Get(key)); p {
		case PlatformTwitter, PlatformFacebook:
			return p
		}
	}
	return ""
}

func platformFromReferrer(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return referrerHosts[host]
}
