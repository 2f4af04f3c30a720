package syntax

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const operatorChars = "|>&"

// Lex splits input into tokens in a single left-to-right pass. The result
// always ends with an End token.
func Lex(input string) ([]Token, error) {
	var tokens []Token
	pos := 0

	for pos < len(input) {
		r, size := utf8.DecodeRuneInString(input[pos:])

		switch {
		case unicode.IsSpace(r):
			pos += size

		case r == '"' || r == '\'':
			end := strings.IndexRune(input[pos+1:], r)
			if end < 0 {
				return nil, errorf(pos, "unterminated quote %c", r)
			}
			kind := StringDouble
			if r == '\'' {
				kind = StringSingle
			}
			tokens = append(tokens, Token{Kind: kind, Value: input[pos+1 : pos+1+end], Offset: pos})
			pos += end + 2

		case r == '|':
			tokens = append(tokens, Token{Kind: Pipe, Value: "|", Offset: pos})
			pos++

		case r == '&':
			tokens = append(tokens, Token{Kind: Background, Value: "&", Offset: pos})
			pos++

		case r == '>':
			if pos+1 < len(input) && input[pos+1] == '>' {
				tokens = append(tokens, Token{Kind: RedirectAppend, Value: ">>", Offset: pos})
				pos += 2
			} else {
				tokens = append(tokens, Token{Kind: RedirectOverwrite, Value: ">", Offset: pos})
				pos++
			}

		case r == utf8.RuneError && size == 1, unicode.IsControl(r):
			return nil, errorf(pos, "unexpected character %q", r)

		default:
			start := pos
			for pos < len(input) {
				r, size = utf8.DecodeRuneInString(input[pos:])
				if !isWordRune(r, size) {
					break
				}
				pos += size
			}
			tokens = append(tokens, Token{Kind: Word, Value: input[start:pos], Offset: start})
		}
	}

	return append(tokens, Token{Kind: End, Offset: len(input)}), nil
}

func isWordRune(r rune, size int) bool {
	switch {
	case unicode.IsSpace(r), r == '"', r == '\'':
		return false
	case strings.ContainsRune(operatorChars, r):
		return false
	case r == utf8.RuneError && size == 1, unicode.IsControl(r):
		return false
	}
	return true
}
