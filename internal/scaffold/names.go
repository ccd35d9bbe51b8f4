package scaffold

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	apiWord       = regexp.MustCompile(`(?i)api`)
	versionPrefix = regexp.MustCompile(`(?i)v`)
	camelBreak    = regexp.MustCompile(`[-_\s]+(.)?`)
	nonWord       = regexp.MustCompile(`[\W_]`)
)

// NormalizeTitle drops every "api" from s so that rendered titles do not
// repeat the word.
func NormalizeTitle(s string) string {
	return strings.TrimSpace(apiWord.ReplaceAllString(s, ""))
}

// NormalizeURI drops one trailing slash.
func NormalizeURI(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(s, "/"))
}

// NormalizeVersion drops every "v" so templates can prefix their own.
func NormalizeVersion(s string) string {
	return strings.TrimSpace(versionPrefix.ReplaceAllString(s, ""))
}

// Titleize upper-cases the first letter of every word and lower-cases the rest.
func Titleize(s string) string {
	return cases.Title(language.Und).String(s)
}

// Camelize removes dashes, underscores and spaces, upper-casing the letter
// that follows each of them. The first letter is left as is.
func Camelize(s string) string {
	return camelBreak.ReplaceAllStringFunc(strings.TrimSpace(s), func(m string) string {
		sub := camelBreak.FindStringSubmatch(m)
		return strings.ToUpper(sub[1])
	})
}

// Classify turns s into an upper camel case identifier.
func Classify(s string) string {
	c := Camelize(nonWord.ReplaceAllString(s, " "))
	c = strings.Join(strings.Fields(c), "")
	if c == "" {
		return ""
	}
	r := []rune(c)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Slug returns a lower-case, dash separated resource name made only of
// letters.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	return b.String()
}
