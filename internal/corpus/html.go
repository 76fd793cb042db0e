package corpus

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML extracts the visible text of an HTML document, dropping markup
// together with script and style contents. Malformed input is tolerated; the
// parser recovers the same way a browser would.
func StripHTML(raw string) string {
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(raw))
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skipped(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skipped(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func skipped(tag string) bool {
	return tag == "script" || tag == "style"
}
