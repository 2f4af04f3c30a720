package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	"github.com/aedmark/OopisOS-sub001/internal/domain/session"
)

// lineReader is the input side of the REPL.
type lineReader interface {
	ReadLine() (string, error)
	SetPrompt(prompt string)
}

// termReader reads from a raw-mode terminal with line editing and history.
type termReader struct {
	t *term.Terminal
}

func (r *termReader) ReadLine() (string, error) { return r.t.ReadLine() }
func (r *termReader) SetPrompt(prompt string)   { r.t.SetPrompt(prompt) }

// scanReader reads plain lines, for pipes and files.
type scanReader struct {
	s *bufio.Scanner
}

func newScanReader(r io.Reader) *scanReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &scanReader{s: s}
}

func (r *scanReader) ReadLine() (string, error) {
	if !r.s.Scan() {
		if err := r.s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(r.s.Text(), "\r"), nil
}

func (r *scanReader) SetPrompt(string) {}

func prompt(s *session.Session) string {
	return fmt.Sprintf("%s@oopis:%s$ ", s.User, s.Cwd())
}

// answerPending feeds input lines to a parked confirmation until the line
// finishes. Running out of input cancels the confirmation.
func answerPending(ctx context.Context, s *session.Session, in lineReader, out session.Outcome) (session.Outcome, error) {
	for out.Pending {
		in.SetPrompt("? ")
		answer, err := in.ReadLine()
		if err != nil {
			out = s.Submit(ctx, "")
			if errors.Is(err, io.EOF) {
				continue
			}
			return out, err
		}
		out = s.Submit(ctx, answer)
	}
	return out, nil
}

// repl runs the interactive loop until end of input or "exit". It reports
// whether the last line succeeded.
func repl(ctx context.Context, s *session.Session, in lineReader) (bool, error) {
	ok := true
	for {
		if err := ctx.Err(); err != nil {
			return ok, nil
		}
		in.SetPrompt(prompt(s))
		line, err := in.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ok, nil
			}
			return ok, err
		}
		if strings.TrimSpace(line) == "exit" {
			return ok, nil
		}

		out := s.Submit(ctx, line)
		out, err = answerPending(ctx, s, in, out)
		ok = out.Result.Success
		if err != nil {
			return ok, err
		}
	}
}
