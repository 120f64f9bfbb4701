package notify

import (
	"strings"

	"github.com/charlesng35/weddingrsvp/internal/models"
)

var (
	acceptWords  = []string{"yes", "yep", "yeah", "accept", "attending", "coming", "will be there", "✅"}
	declineWords = []string{"no", "nope", "decline", "not coming", "can't come", "cannot come", "won't make it", "❌"}
)

// ParseReply maps a free text chat reply to an RSVP answer. Replies that
// read as both an acceptance and a decline are reported as not understood.
func ParseReply(text string) (models.RSVPStatus, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", false
	}

	declined := matchesAny(text, declineWords)

	// "not coming" must not count as "coming".
	rest := text
	for _, phrase := range declineWords {
		if strings.Contains(phrase, " ") {
			rest = strings.ReplaceAll(rest, phrase, " ")
		}
	}
	accepted := matchesAny(rest, acceptWords)

	switch {
	case declined && accepted:
		return "", false
	case declined:
		return models.RSVPDeclined, true
	case accepted:
		return models.RSVPAttending, true
	}
	return "", false
}

// matchesAny matches single ASCII words against whole words and everything
// else (phrases, emoji) as substrings.
func matchesAny(text string, candidates []string) bool {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?' || r == '\n'
	})

	for _, candidate := range candidates {
		if !isASCIIWord(candidate) {
			if strings.Contains(text, candidate) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == candidate {
				return true
			}
		}
	}
	return false
}

func isASCIIWord(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
