package builtin

import (
	"regexp"
	"strings"
)

// globToRegexp translates a shell wildcard pattern into an anchored
// regular expression over a whole base name. A "[" without a closing "]"
// is literal, and a backslash escapes the next character.
func globToRegexp(pattern string, fold bool) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	if fold {
		b.WriteString("(?i)")
	}
	b.WriteString("(?s)")

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '\\':
			if i+1 < len(runes) {
				i++
				b.WriteString(regexp.QuoteMeta(string(runes[i])))
			} else {
				b.WriteString(`\\`)
			}
		case '[':
			class, next, ok := bracketClass(runes, i)
			if !ok {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(class)
			i = next
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// bracketClass converts the character class opening at runes[start]. It
// returns the regexp class, the index of the closing bracket, and false
// when the class is unterminated. A leading "!" or "^" negates and a "]"
// right after the opening (or the negation) is a literal member.
func bracketClass(runes []rune, start int) (string, int, bool) {
	i := start + 1
	var b strings.Builder
	b.WriteString("[")
	if i < len(runes) && (runes[i] == '!' || runes[i] == '^') {
		b.WriteString("^")
		i++
	}
	first := true
	for ; i < len(runes); i++ {
		c := runes[i]
		if c == ']' && !first {
			b.WriteString("]")
			return b.String(), i, true
		}
		first = false
		switch c {
		case '\\', '[', ']', '^':
			b.WriteRune('\\')
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
	}
	return "", start, false
}
