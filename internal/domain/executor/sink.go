package executor

import (
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

// Sink receives text to show the user. Present must not block for long
// and never reports failure back.
type Sink interface {
	Present(text string, hint types.PresentationHint)
}

// Discard drops everything.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Present(string, types.PresentationHint) {}

var (
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	warningStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD166"))
	successStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	infoStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	backgroundStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Italic(true)
)

func styleFor(hint types.PresentationHint) (lipgloss.Style, bool) {
	switch hint {
	case types.HintError:
		return errorStyle, true
	case types.HintWarning:
		return warningStyle, true
	case types.HintSuccess:
		return successStyle, true
	case types.HintInfo:
		return infoStyle, true
	case types.HintBackground:
		return backgroundStyle, true
	default:
		return lipgloss.Style{}, false
	}
}

// WriterSink writes each presentation as a line to w, styled by hint when
// color is enabled.
type WriterSink struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewWriterSink creates a sink over w.
func NewWriterSink(w io.Writer, color bool) *WriterSink {
	return &WriterSink{w: w, color: color}
}

// Present implements Sink.
func (s *WriterSink) Present(text string, hint types.PresentationHint) {
	if text == "" {
		return
	}
	if s.color {
		if style, ok := styleFor(hint); ok {
			text = style.Render(text)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	io.WriteString(s.w, text+"\n")
}

// Entry is one recorded presentation.
type Entry struct {
	Text string                 `json:"text"`
	Hint types.PresentationHint `json:"hint,omitempty"`
}

// RecorderSink keeps everything presented, for tests and request/response
// transports.
type RecorderSink struct {
	mu      sync.Mutex
	entries []Entry
}

// Present implements Sink.
func (s *RecorderSink) Present(text string, hint types.PresentationHint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{Text: text, Hint: hint})
}

// Entries returns a copy of everything recorded so far.
func (s *RecorderSink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Drain returns and forgets everything recorded so far.
func (s *RecorderSink) Drain() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.entries
	s.entries = nil
	return out
}

// Texts returns the recorded texts in order.
func (s *RecorderSink) Texts() []string {
	entries := s.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

// FanoutSink forwards to a changing set of subscribers.
type FanoutSink struct {
	mu   sync.RWMutex
	next int
	subs map[int]Sink
}

// NewFanoutSink creates an empty fanout.
func NewFanoutSink() *FanoutSink {
	return &FanoutSink{subs: make(map[int]Sink)}
}

// Subscribe adds s and returns a function that removes it.
func (f *FanoutSink) Subscribe(s Sink) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.subs[id] = s
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// Len returns the number of subscribers.
func (f *FanoutSink) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Present implements Sink.
func (f *FanoutSink) Present(text string, hint types.PresentationHint) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.subs {
		s.Present(text, hint)
	}
}
