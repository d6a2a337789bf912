package match

import (
	"regexp"
	"strconv"
	"strings"
)

// junkTokens are stripped as raw substrings, in this order, before punctuation
// is removed. A token can therefore eat part of an unrelated word ("mvp" -> "p").
var junkTokens = []string{
	"official", "video", "audio", "lyrics", "visualiser", "visualizer",
	"hd", "4k", "mv", "soundtrack", "topic", "remaster", "remastered",
}

var (
	squareBracketPattern = regexp.MustCompile(`\[.*?\]`)
	parenthesesPattern   = regexp.MustCompile(`\(.*?\)`)
	nonAlphanumPattern   = regexp.MustCompile(`[^a-z0-9]`)
)

// Normalize turns a raw artist or title field into a matching key made only of
// lowercase ASCII letters and digits.
//
// The steps run in a fixed order: percent-decode and lowercase, drop [...] and
// (...) annotations, strip junk tokens, drop everything outside [a-z0-9], then
// strip a leading "the" without any word-boundary check ("Theatre" -> "atre").
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(percentDecode(text))

	// YouTube style [id] tags, then remix/feature notes in parentheses
	text = squareBracketPattern.ReplaceAllString(text, "")
	text = parenthesesPattern.ReplaceAllString(text, "")

	for _, token := range junkTokens {
		text = strings.ReplaceAll(text, token, "")
	}

	text = nonAlphanumPattern.ReplaceAllString(text, "")

	return strings.TrimPrefix(text, "the")
}

// percentDecode decodes %XX escapes and leaves malformed ones untouched, so
// "100% Pure" survives. '+' is not treated as a space.
func percentDecode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
