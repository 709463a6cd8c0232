package session

import "strings"

// MaxSlugLen caps the slug portion of an id.
const MaxSlugLen = 32

// isSlugRune reports whether r may appear in a slug as-is.
func isSlugRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') ||
		r == '-' || r == '_' || r == '.'
}

// Slugify normalizes a display name into the URL-safe slug used as the
// readable half of a session id: lowercase, runes outside [a-z0-9-_.]
// replaced by '-', runs of '-' collapsed, separators trimmed from both
// ends, truncated to MaxSlugLen. The result may be empty; the random
// suffix alone still yields a valid id.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	prevDash := false
	for _, r := range strings.ToLower(name) {
		if !isSlugRune(r) {
			r = '-'
		}
		if r == '-' {
			if prevDash {
				continue
			}
			prevDash = true
		} else {
			prevDash = false
		}
		b.WriteRune(r)
	}

	slug := strings.Trim(b.String(), "-_.")
	if len(slug) > MaxSlugLen {
		slug = slug[:MaxSlugLen]
	}
	return slug
}
