package sharing

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const maxTitleLength = 200

// Validation messages.
const (
	MsgMissingContent = "at least one of title, text or url is required"
	MsgInvalidURL     = "url must be absolute"
	MsgTitleTooLong   = "title must be 200 characters or fewer"
)

// ValidationError lists everything wrong with a ShareData.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid share data: " + strings.Join(e.Problems, "; ")
}

type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Err returns the problems as a *ValidationError, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Problems: r.Errors}
}

// Validate checks the shape of data without touching any channel.
func Validate(data ShareData) ValidationResult {
	var problems []string
	if strings.TrimSpace(data.Title) == "" && strings.TrimSpace(data.Text) == "" && strings.TrimSpace(data.URL) == "" {
		problems = append(problems, MsgMissingContent)
	}
	if data.URL != "" {
		u, err := url.Parse(data.URL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			problems = append(problems, MsgInvalidURL)
		}
	}
	if utf8.RuneCountInString(data.Title) > maxTitleLength {
		problems = append(problems, MsgTitleTooLong)
	}
	return ValidationResult{Valid: len(problems) == 0, Errors: problems}
}

// maxStripPasses bounds how many layers of encoded markup are peeled.
const maxStripPasses = 4

var (
	strictPolicy   = bluemonday.StrictPolicy()
	scriptScheme   = regexp.MustCompile(`(?i)javascript\s*:`)
	inlineHandler  = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	angleBrackets  = strings.NewReplacer("<", "", ">", "")
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// Sanitize returns a copy of data with markup, script URLs and inline
// handlers removed from text fields, and any non-http(s) URL emptied.
func Sanitize(data ShareData) ShareData {
	out := data.clone()
	out.Title = sanitizeText(out.Title)
	out.Text = sanitizeText(out.Text)
	out.Name = sanitizeText(out.Name)
	out.Description = sanitizeText(out.Description)
	out.Hashtag = sanitizeText(out.Hashtag)
	out.Challenger = sanitizeText(out.Challenger)
	for i, m := range out.Mentions {
		out.Mentions[i] = sanitizeText(m)
	}
	out.URL = sanitizeURL(out.URL)
	return out
}

func sanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = stripMarkup(s)
	s = scriptScheme.ReplaceAllString(s, "")
	s = inlineHandler.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))
}

// stripMarkup removes tags and decodes the entities the policy escapes,
// repeating until decoding brings back no new markup. Plain brackets such
// as "5 < 10" survive.
func stripMarkup(s string) string {
	for range maxStripPasses {
		next := html.UnescapeString(strictPolicy.Sanitize(s))
		if next == s {
			return s
		}
		s = next
	}
	return angleBrackets.Replace(s)
}

func sanitizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	}
	return ""
}
