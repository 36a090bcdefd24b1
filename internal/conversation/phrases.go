package conversation

import (
	"math/rand"
	"strings"
	"unicode"
)

// fillerPhrases keep the user engaged while routing runs long.
var fillerPhrases = []string{
	"Let me check on that for you.",
	"One moment while I look that up.",
	"Just a second, I'm pulling that up now.",
	"Give me a moment to find that.",
}

// FillerPhrase returns a random acknowledgment phrase.
func FillerPhrase() string {
	return fillerPhrases[rand.Intn(len(fillerPhrases))]
}

// isAudioFeedback reports whether a transcript is one of the assistant's own
// canned phrases, picked up by the microphone during playback.
func isAudioFeedback(text string) bool {
	norm := normalizePhrase(text)
	if norm == "" {
		return false
	}
	for _, p := range fillerPhrases {
		if normalizePhrase(p) == norm {
			return true
		}
	}
	return false
}

// normalizePhrase lowercases and strips punctuation so transcription
// artifacts do not defeat the comparison.
func normalizePhrase(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
