package websocket

import (
	"regexp"
	"strings"
)

// namePatterns cover the common introduction phrasings, tried in order. The
// capture is a single alphabetic token.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)my name is\s+([a-zA-Z]+)`),
	regexp.MustCompile(`(?i)\bi am\s+([a-zA-Z]+)`),
	regexp.MustCompile(`(?i)\bi'm\s+([a-zA-Z]+)`),
}

// DetectUserName extracts a user name from an introductory message, returning
// it capitalized, or "" when no pattern matches. Pure and deterministic; safe
// to call on every turn until a name is captured.
func DetectUserName(text string) string {
	for _, pattern := range namePatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return capitalize(match[1])
		}
	}
	return ""
}

func capitalize(word string) string {
	if word == "" {
		return ""
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
}
