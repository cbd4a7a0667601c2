package gemini

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockTags  = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</?li>`)
	blankLines = regexp.MustCompile(`\n\s*\n+`)
)

// plainText strips markdown and HTML from a model reply, keeping paragraph
// breaks. The report escapes the result again when rendering.
type plainText struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

func newPlainText() *plainText {
	return &plainText{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(),
	}
}

func (p *plainText) Strip(text string) string {
	if text == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return text
	}

	out := blockTags.ReplaceAllString(buf.String(), "\n")
	out = p.policy.Sanitize(out)
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(html.UnescapeString(out))
}
