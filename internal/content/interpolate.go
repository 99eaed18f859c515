package content

import (
	"regexp"
	"strings"
)

var (
	placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
	unsafeTemplate     = regexp.MustCompile(`(?i)<\s*script|javascript\s*:|<\s*iframe`)
)

// Interpolate replaces {field} placeholders with values from fields. Unknown
// placeholders become empty and whitespace runs collapse to a single space,
// so applying it twice gives the same result as applying it once.
func Interpolate(template string, fields map[string]string) string {
	out := placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		return fields[m[1:len(m)-1]]
	})
	out = whitespacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// ValidateTemplate reports whether a trusted template is free of script,
// javascript: and iframe content. It does not clean runtime data.
func ValidateTemplate(template string) bool {
	return !unsafeTemplate.MatchString(template)
}
