package normalizer

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	nameCharsRe   = regexp.MustCompile(`[^\p{L}\p{N}_\s\-'.]`) // underscore kept, \w word-character parity
	controlRe     = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")
	newlineRunRe  = regexp.MustCompile(`\n{3,}`)
	spaceRunRe    = regexp.MustCompile(` {2,}`)
	emailRe       = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)
	urlRe         = regexp.MustCompile(`(?i)^https?://(?:(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,6}\.?|localhost|\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})(?::\d+)?(?:/?|[/?]\S+)$`)
)

// Ordered list of accepted timestamp layouts; first match wins.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 UTC",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 02, 2006",
	"01/02/2006",
	"02/01/2006",
}

// CleanString collapses whitespace and trims. Empty in, empty out.
func CleanString(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// CleanName normalizes a person name: collapse whitespace, drop characters
// outside word characters/space/hyphen/apostrophe/period, title-case, and
// trim stray leading or trailing periods.
func CleanName(name string) string {
	name = CleanString(name)
	if name == "" {
		return ""
	}
	name = nameCharsRe.ReplaceAllString(name, "")
	name = titleCase(name)
	return strings.Trim(name, ".")
}

// titleCase upper-cases the first letter of each letter run and
// lower-cases the rest, so "mcdonald" becomes "Mcdonald" and "o'brien"
// becomes "O'Brien".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				r = unicode.ToLower(r)
			} else {
				r = unicode.ToUpper(r)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CleanText strips control characters and collapses all whitespace.
func CleanText(text string) string {
	text = controlRe.ReplaceAllString(text, "")
	return CleanString(text)
}

// CleanContent cleans message bodies while preserving paragraph breaks:
// control characters are removed, 3+ newlines collapse to 2, and 2+ spaces
// collapse to 1.
func CleanContent(content string) string {
	content = controlRe.ReplaceAllString(content, "")
	content = newlineRunRe.ReplaceAllString(content, "\n\n")
	content = spaceRunRe.ReplaceAllString(content, " ")
	return strings.TrimSpace(content)
}

// CleanEmail lower-cases and validates an email address. Invalid input
// yields the empty string.
func CleanEmail(email string) string {
	email = strings.ToLower(CleanString(email))
	if email == "" || !emailRe.MatchString(email) {
		return ""
	}
	return email
}

// CleanURL validates an http(s) URL. A bare hostname is retried once with
// an https:// prefix. Invalid input yields the empty string.
func CleanURL(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}
	if urlRe.MatchString(url) {
		return url
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		if candidate := "https://" + url; urlRe.MatchString(candidate) {
			return candidate
		}
	}
	return ""
}

// ParseTimestamp tries each accepted layout in order.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
