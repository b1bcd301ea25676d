package security

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// PlainText strips every HTML element from free text a user typed and
// returns it as plain, trimmed text. Entities are decoded again so that
// "Tom & Jerry" survives unchanged.
func PlainText(input string) string {
	stripped := policy().Sanitize(input)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// PlainTextLimit is PlainText truncated to maxRunes characters.
func PlainTextLimit(input string, maxRunes int) string {
	clean := PlainText(input)
	if maxRunes <= 0 {
		return clean
	}
	runes := []rune(clean)
	if len(runes) <= maxRunes {
		return clean
	}
	return strings.TrimSpace(string(runes[:maxRunes]))
}
