package classifier

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var (
	brTagRE = regexp.MustCompile(`(?i)<br\s*/?>`)
	digitRE = regexp.MustCompile(`\d+`)
	spaceRE = regexp.MustCompile(`\s+`)
)

// CleanText normalizes raw complaint text the same way the training data
// was prepared: lowercase, HTML unescaped, <br> tags to spaces, numbers
// replaced with the NUM token, punctuation removed, whitespace collapsed.
func CleanText(text string) string {
	s := html.UnescapeString(strings.ToLower(text))
	s = brTagRE.ReplaceAllString(s, " ")
	s = spaceRE.ReplaceAllString(s, " ")
	s = digitRE.ReplaceAllString(s, "NUM")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.TrimSpace(spaceRE.ReplaceAllString(b.String(), " "))
}
