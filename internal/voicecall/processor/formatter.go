package processor

import (
	"regexp"
	"strings"
)

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// FormatForSpeech prepares an answer for speech synthesis. Rules run in this
// order: line-break runs become ". ", "*" is removed, "#" becomes "number".
// The result contains none of the characters the rules match, so the
// function is idempotent.
func FormatForSpeech(raw string) string {
	out := lineBreaks.ReplaceAllString(raw, ". ")
	out = strings.ReplaceAll(out, "*", "")
	out = strings.ReplaceAll(out, "#", "number")
	return out
}
