package syntax

import "fmt"

// Kind identifies a token class.
type Kind int

const (
	Word Kind = iota
	StringDouble
	StringSingle
	RedirectOverwrite
	RedirectAppend
	Pipe
	Background
	End
)

var kindNames = map[Kind]string{
	Word:              "WORD",
	StringDouble:      "STRING_DOUBLE",
	StringSingle:      "STRING_SINGLE",
	RedirectOverwrite: "REDIRECT_OVERWRITE",
	RedirectAppend:    "REDIRECT_APPEND",
	Pipe:              "PIPE",
	Background:        "BACKGROUND",
	End:               "END",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsValue reports whether tokens of this kind can be a command name,
// argument or redirection target.
func (k Kind) IsValue() bool {
	return k == Word || k == StringDouble || k == StringSingle
}

// Token is a lexeme with its source offset. For quoted strings Value holds
// the text between the quotes.
type Token struct {
	Kind   Kind
	Value  string
	Offset int
}

func (t Token) String() string {
	if t.Kind.IsValue() {
		return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Value, t.Offset)
	}
	return fmt.Sprintf("%s@%d", t.Kind, t.Offset)
}

// SyntaxError is returned for lexer and parser failures. Offset is the
// byte position in the input line.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Offset, e.Msg)
}

func errorf(offset int, format string, args ...interface{}) error {
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
