package syntax

import (
	"errors"
	"fmt"
	"strings"
)

// RedirectMode selects overwrite (>) or append (>>).
type RedirectMode int

const (
	RedirectModeOverwrite RedirectMode = iota
	RedirectModeAppend
)

func (m RedirectMode) String() string {
	if m == RedirectModeAppend {
		return ">>"
	}
	return ">"
}

// Segment is one command with its arguments.
type Segment struct {
	Command string
	Args    []string
}

// Redirect sends the pipeline's final output to a file.
type Redirect struct {
	Mode   RedirectMode
	Target string
}

// Pipeline is one parsed command line.
type Pipeline struct {
	Segments   []Segment
	Redirect   *Redirect
	Background bool
}

// IsEmpty reports whether the line held no commands.
func (p *Pipeline) IsEmpty() bool {
	return p == nil || len(p.Segments) == 0
}

// String renders the pipeline back into a command line, quoting values
// that would not survive a round trip as bare words.
func (p *Pipeline) String() string {
	if p == nil {
		return ""
	}
	parts := make([]string, 0, len(p.Segments)*2)
	for i, seg := range p.Segments {
		if i > 0 {
			parts = append(parts, "|")
		}
		parts = append(parts, Quote(seg.Command))
		for _, arg := range seg.Args {
			parts = append(parts, Quote(arg))
		}
	}
	if p.Redirect != nil {
		parts = append(parts, p.Redirect.Mode.String(), Quote(p.Redirect.Target))
	}
	if p.Background {
		parts = append(parts, "&")
	}
	return strings.Join(parts, " ")
}

// Parse assembles tokens into exactly one pipeline. No tokens (only End)
// yields an empty pipeline.
func Parse(tokens []Token) (*Pipeline, error) {
	p := &parser{tokens: tokens}
	return p.parse()
}

// ParseLine lexes and parses a single command line.
func ParseLine(line string) (*Pipeline, error) {
	tokens, err := Lex(line)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	if p.pos >= len(p.tokens) {
		end := 0
		if n := len(p.tokens); n > 0 {
			end = p.tokens[n-1].Offset
		}
		return Token{Kind: End, Offset: end}
	}
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) parse() (*Pipeline, error) {
	pipeline := &Pipeline{}
	if p.peek().Kind == End {
		return pipeline, nil
	}

	seg, err := p.segment()
	if err != nil {
		return nil, err
	}
	pipeline.Segments = append(pipeline.Segments, seg)

	for {
		tok := p.next()
		switch tok.Kind {
		case End:
			return pipeline, nil

		case Pipe:
			if pipeline.Redirect != nil {
				return nil, errorf(tok.Offset, "pipe after redirection")
			}
			seg, err := p.segment()
			if err != nil {
				return nil, err
			}
			pipeline.Segments = append(pipeline.Segments, seg)

		case RedirectOverwrite, RedirectAppend:
			if pipeline.Redirect != nil {
				return nil, errorf(tok.Offset, "multiple redirections")
			}
			target := p.next()
			if !target.Kind.IsValue() {
				return nil, errorf(target.Offset, "expected filename after '%s'", tok.Value)
			}
			mode := RedirectModeOverwrite
			if tok.Kind == RedirectAppend {
				mode = RedirectModeAppend
			}
			pipeline.Redirect = &Redirect{Mode: mode, Target: target.Value}
			if k := p.peek().Kind; k.IsValue() {
				return nil, errorf(p.peek().Offset, "unexpected argument after redirection target")
			}

		case Background:
			if after := p.peek(); after.Kind != End {
				return nil, errorf(after.Offset, "'&' must be the last token")
			}
			pipeline.Background = true

		default:
			return nil, errorf(tok.Offset, "unexpected token %s", tok.Kind)
		}
	}
}

// segment reads a command token and the arguments that follow it.
func (p *parser) segment() (Segment, error) {
	tok := p.next()
	if !tok.Kind.IsValue() {
		return Segment{}, errorf(tok.Offset, "expected command, found %s", tok.Kind)
	}
	seg := Segment{Command: tok.Value}
	for p.peek().Kind.IsValue() {
		seg.Args = append(seg.Args, p.next().Value)
	}
	return seg, nil
}

// ErrUnquotable is returned by QuoteArg for a value holding both quote
// characters. The lexer has no escapes, so no single token can carry it.
var ErrUnquotable = errors.New("value contains both ' and \"")

// Quote returns s in a form the lexer reads back as a single value. A value
// holding both quote characters is wrapped in double quotes and will not
// round trip; use QuoteArg when the result is executed.
func Quote(s string) string {
	if q, err := QuoteArg(s); err == nil {
		return q
	}
	return `"` + s + `"`
}

// QuoteArg is Quote for lines that will be run. It fails with ErrUnquotable
// rather than produce a line that lexes differently.
func QuoteArg(s string) (string, error) {
	if s != "" && !strings.ContainsAny(s, " \t\n\r\"'|>&") {
		return s, nil
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`, nil
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'", nil
	}
	return "", fmt.Errorf("cannot quote %q: %w", s, ErrUnquotable)
}
