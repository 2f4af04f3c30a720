package syntax

import (
	"strconv"
	"strings"
)

// ScriptLine is one runnable line of a script with its 1-based line number
// in the source file.
type ScriptLine struct {
	Number int
	Text   string
}

// ScriptLines prepares a script for execution: a leading "#!" line is
// dropped, comments are stripped, positional parameters are substituted,
// and blank lines are skipped.
func ScriptLines(content string, args []string) []ScriptLine {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	out := make([]ScriptLine, 0, len(lines))

	for i, raw := range lines {
		if i == 0 && strings.HasPrefix(raw, "#!") {
			continue
		}
		text := strings.TrimSpace(ExpandPositional(StripComment(raw), args))
		if text == "" {
			continue
		}
		out = append(out, ScriptLine{Number: i + 1, Text: text})
	}
	return out
}

// StripComment removes everything from the first '#' that is not inside a
// quoted string. The '#' of the parameter "$#" does not start a comment.
func StripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#' && (i == 0 || line[i-1] != '$'):
			return line[:i]
		}
	}
	return line
}

// ExpandPositional substitutes $1..$n, $@ (all arguments joined by a space)
// and $# (argument count). Out-of-range positions expand to nothing. A '$'
// not followed by a digit, '@' or '#' is left as is.
func ExpandPositional(line string, args []string) string {
	if !strings.Contains(line, "$") {
		return line
	}

	var b strings.Builder
	b.Grow(len(line))

	for i := 0; i < len(line); i++ {
		c := line[i]
		if c != '$' || i+1 >= len(line) {
			b.WriteByte(c)
			continue
		}

		next := line[i+1]
		switch {
		case next == '@':
			b.WriteString(strings.Join(args, " "))
			i++
		case next == '#':
			b.WriteString(strconv.Itoa(len(args)))
			i++
		case next >= '0' && next <= '9':
			j := i + 1
			for j < len(line) && line[j] >= '0' && line[j] <= '9' {
				j++
			}
			n, _ := strconv.Atoi(line[i+1 : j])
			if n >= 1 && n <= len(args) {
				b.WriteString(args[n-1])
			}
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
