package respcache

import (
	"strings"
	"unicode"
)

// maxKeyMessageLength caps the normalized message fragment of a cache key.
const maxKeyMessageLength = 100

// Key derives the cache key for a message at a given conversation step.
// The message is lower-cased, stripped of punctuation, whitespace-collapsed,
// and length-capped, then joined with the step so the same question asked at
// a different point in the flow caches separately.
func Key(message, step string) string {
	normalized := normalize(message)
	if step == "" {
		step = "default"
	}
	return normalized + "|" + step
}

// normalize lower-cases, removes punctuation, and collapses whitespace.
func normalize(message string) string {
	var b strings.Builder
	b.Grow(len(message))

	lastSpace := false
	for _, r := range strings.ToLower(message) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
		if b.Len() >= maxKeyMessageLength {
			break
		}
	}

	return strings.TrimSpace(b.String())
}
