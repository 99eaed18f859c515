package sharing

import (
	"net/url"
	"strings"

	"bubblepop/internal/content"

	"github.com/samber/lo"
)

const (
	twitterIntentURL  = "https://twitter.com/intent/tweet"
	facebookSharerURL = "https://www.facebook.com/sharer/sharer.php"
	facebookDialogURL = "https://www.facebook.com/dialog/share"
)

type popup struct {
	name          string
	width, height int
}

var popups = map[string]popup{
	PlatformTwitter:  {name: "bubblepop-twitter", width: 550, height: 420},
	PlatformFacebook: {name: "bubblepop-facebook", width: 626, height: 436},
}

var facebookHashtags = map[ShareType]string{
	TypeScore:       "BubblePop",
	TypeAchievement: "BubblePopAchievement",
	TypeChallenge:   "BubblePopChallenge",
	TypeCustom:      "BubblePop",
}

type FacebookOptions struct {
	Dialog  bool
	AppID   string
	Quote   string
	Hashtag string // without the leading #
}

// BuildTwitterURL returns the tweet intent URL. Mentions lead the text,
// the hashtag is appended unless present or the text already carries the
// twitter allowance of tags, and the whole text is cut to the tweet limit
// minus the link reservation when a URL is set.
func (m *Manager) BuildTwitterURL(data ShareData) string {
	text := tweetText(data, m.urlReserve)
	out := twitterIntentURL + "?text=" + url.QueryEscape(text)
	if data.URL != "" {
		out += "&url=" + url.QueryEscape(data.URL)
	}
	return out
}

func tweetText(data ShareData, reserve int) string {
	var parts []string
	for _, mention := range data.Mentions {
		mention = strings.TrimPrefix(strings.TrimSpace(mention), "@")
		if mention != "" {
			parts = append(parts, "@"+mention)
		}
	}
	if t := strings.TrimSpace(data.Text); t != "" {
		parts = append(parts, t)
	} else if t := strings.TrimSpace(data.Title); t != "" {
		parts = append(parts, t)
	}
	text := strings.Join(parts, " ")
	tags := hashtags(text)
	if tag := strings.TrimPrefix(data.Hashtag, "#"); tag != "" && !lo.Contains(tags, tag) && len(tags) < content.HashtagLimit(content.PlatformTwitter) {
		text = strings.TrimSpace(text + " #" + tag)
	}
	text, _ = content.FitToLimit(text, content.Limit(content.PlatformTwitter, data.URL != "", reserve))
	return text
}

// hashtags lists the tags already written into text, without the #.
func hashtags(text string) []string {
	var tags []string
	for _, word := range strings.Fields(text) {
		if tag := strings.TrimPrefix(word, "#"); tag != word && tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// BuildFacebookURL returns the sharer URL, or the share dialog URL when
// opts.Dialog is set. The dialog needs an app id.
func (m *Manager) BuildFacebookURL(data ShareData, opts FacebookOptions) (string, error) {
	tag := strings.TrimPrefix(opts.Hashtag, "#")
	if tag == "" {
		tag = strings.TrimPrefix(data.Hashtag, "#")
	}
	if tag == "" {
		tag = facebookHashtags[data.Type]
	}

	var b strings.Builder
	if opts.Dialog {
		if opts.AppID == "" {
			return "", ErrMissingAppID
		}
		b.WriteString(facebookDialogURL + "?app_id=" + url.QueryEscape(opts.AppID))
		b.WriteString("&href=" + url.QueryEscape(data.URL))
	} else {
		b.WriteString(facebookSharerURL + "?u=" + url.QueryEscape(data.URL))
		b.WriteString("&t=" + url.QueryEscape(data.Title))
	}
	if opts.Quote != "" {
		b.WriteString("&quote=" + url.QueryEscape(opts.Quote))
	}
	if tag != "" {
		b.WriteString("&hashtag=" + url.QueryEscape("#"+tag))
	}
	return b.String(), nil
}

func (m *Manager) facebookOptions(data ShareData) FacebookOptions {
	return FacebookOptions{
		Dialog: m.facebookAppID != "",
		AppID:  m.facebookAppID,
		Quote:  data.Text,
	}
}

// clipboardText is the "<text> <url>" string written by the copy channel.
func clipboardText(data ShareData) string {
	text := data.Text
	if text == "" {
		text = data.Title
	}
	return strings.TrimSpace(text + " " + data.URL)
}
