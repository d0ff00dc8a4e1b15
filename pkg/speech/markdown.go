package speech

import (
	"regexp"
	"strings"
)

var (
	emphasisPattern     = regexp.MustCompile("[*_`]")
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)
)

// CleanTextForTTS removes markdown emphasis and links so the synthesizer does
// not read formatting characters aloud.
func CleanTextForTTS(text string) string {
	text = markdownLinkPattern.ReplaceAllString(text, "$1")
	text = emphasisPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
