package pattern

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Canonical tokens substituted for runs of similar characters
const (
	DigitToken        = `\d+`
	LetterToken       = `[a-zA-Z]+`
	AlphanumericToken = `[a-zA-Z0-9]+`
)

// Classify returns the shape of a URL's path: the first path segment
// verbatim, followed by every other segment reduced by Patternize.
// The root path (or an unparsable URL) yields the empty pattern.
func Classify(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	p := strings.Trim(u.Path, "/")
	if p == "" {
		return ""
	}

	parts := strings.Split(path.Clean(p), "/")
	for i := 1; i < len(parts); i++ {
		parts[i] = Patternize(parts[i])
	}
	return strings.Join(parts, "/")
}

// Patternize converts a path segment to a regular expression describing its shape.
// Runs of digits, letters, or mixed alphanumerics collapse to a single token;
// any other character is kept as an escaped literal.
// Example: "2024-post_17.html" -> `\d+-[a-zA-Z]+_\d+\.[a-zA-Z]+`
func Patternize(segment string) string {
	var b strings.Builder
	runes := []rune(segment)

	for i := 0; i < len(runes); {
		if !isAlnum(runes[i]) {
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
			i++
			continue
		}

		// Consume the whole alphanumeric run
		hasDigit, hasLetter := false, false
		for ; i < len(runes) && isAlnum(runes[i]); i++ {
			if isDigit(runes[i]) {
				hasDigit = true
			} else {
				hasLetter = true
			}
		}

		switch {
		case hasDigit && hasLetter:
			b.WriteString(AlphanumericToken)
		case hasDigit:
			b.WriteString(DigitToken)
		default:
			b.WriteString(LetterToken)
		}
	}

	return b.String()
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isAlnum(r rune) bool {
	return isDigit(r) || isLetter(r)
}
