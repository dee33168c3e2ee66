package ai

import (
	"regexp"
)

var (
	emojiPattern = regexp.MustCompile(
		`[\x{1F600}-\x{1F64F}` +
			`\x{1F300}-\x{1F5FF}` +
			`\x{1F680}-\x{1F6FF}` +
			`\x{1F1E0}-\x{1F1FF}` +
			`\x{2700}-\x{27BF}` +
			`\x{24C2}-\x{1F251}]+`)
	nonASCIIPattern = regexp.MustCompile(`[^\x00-\x7F]+`)
)

// CleanText drops emoji and any remaining non-ASCII characters so the text
// is safe for every speech provider.
func CleanText(text string) string {
	text = emojiPattern.ReplaceAllString(text, "")
	return nonASCIIPattern.ReplaceAllString(text, "")
}
