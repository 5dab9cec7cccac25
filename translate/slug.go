package translate

import (
	"regexp"
	"strings"
)

var (
	slugSpaces  = regexp.MustCompile(`[\s\p{Z}]+`)
	slugInvalid = regexp.MustCompile(`[^\w-]+`)
	slugHyphens = regexp.MustCompile(`--+`)
)

// DeriveSlug turns a title into a URL slug: lower-cased, whitespace runs
// become "-", characters outside [A-Za-z0-9_-] are dropped, repeated hyphens
// collapse and leading/trailing hyphens are trimmed.
func DeriveSlug(title string) string {
	if title == "" {
		return ""
	}
	s := strings.ToLower(title)
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
