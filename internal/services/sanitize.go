package services

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Free-text length limits. Over-long input is truncated, not rejected.
const (
	ReasonMaxLen      = 300
	DescriptionMaxLen = 2000
	CoverLetterMaxLen = 4000
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all HTML from user-supplied free text, escapes what
// remains, collapses surrounding whitespace and truncates to limit runes.
// Applied to every reason/description/cover-letter field before storage.
func SanitizeText(s string, limit int) string {
	clean := strings.TrimSpace(strictPolicy.Sanitize(s))
	if r := []rune(clean); len(r) > limit {
		clean = string(r[:limit])
	}
	return clean
}
