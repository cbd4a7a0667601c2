package chat

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// wordPattern matches alphabetic tokens of at least two letters.
var wordPattern = regexp.MustCompile(`\p{L}[\p{L}\p{M}]+`)

// pictographs covers the emoji blocks counted by the report.
var pictographs = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2600, Hi: 0x26ff, Stride: 1}, // miscellaneous symbols
		{Lo: 0x2700, Hi: 0x27bf, Stride: 1}, // dingbats
	},
	R32: []unicode.Range32{
		{Lo: 0x1f1e6, Hi: 0x1f1ff, Stride: 1}, // regional indicators
		{Lo: 0x1f300, Hi: 0x1f5ff, Stride: 1}, // symbols and pictographs
		{Lo: 0x1f600, Hi: 0x1f64f, Stride: 1}, // emoticons
		{Lo: 0x1f680, Hi: 0x1f6ff, Stride: 1}, // transport and map
		{Lo: 0x1f900, Hi: 0x1f9ff, Stride: 1}, // supplemental symbols and pictographs
		{Lo: 0x1fa70, Hi: 0x1faff, Stride: 1}, // symbols and pictographs extended-a
	},
}

// Words returns the lower-cased alphabetic tokens of text.
func Words(text string) []string {
	tokens := wordPattern.FindAllString(text, -1)
	if len(tokens) == 0 {
		return nil
	}
	caser := cases.Lower(language.Und)
	for i, tok := range tokens {
		tokens[i] = caser.String(tok)
	}
	return tokens
}

// WordCount returns the number of alphabetic tokens in text.
func WordCount(text string) int {
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// IsEmoji reports whether r falls in one of the pictographic blocks.
func IsEmoji(r rune) bool {
	return unicode.Is(pictographs, r)
}

// Emojis returns the pictographic runes of text in order of appearance.
func Emojis(text string) []rune {
	var out []rune
	for _, r := range text {
		if IsEmoji(r) {
			out = append(out, r)
		}
	}
	return out
}

// Command extracts a bot command such as "/roll@dicebot 2d6" -> "/roll".
func Command(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := strings.Fields(text)[0]
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	if len(cmd) < 2 {
		return "", false
	}
	return strings.ToLower(cmd), true
}

// IsBotName reports whether a display name looks like a bot account.
func IsBotName(name string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), "bot")
}
