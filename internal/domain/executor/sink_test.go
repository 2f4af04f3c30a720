package executor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aedmark/OopisOS-sub001/internal/shared/types"
)

func TestWriterSinkPlain(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf, false)

	s.Present("one", types.HintText)
	s.Present("", types.HintText)
	s.Present("two", types.HintError)
	assert.Equal(t, "one\ntwo\n", buf.String())
}

func TestWriterSinkColorKeepsText(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf, true)

	s.Present("careful", types.HintWarning)
	assert.Contains(t, buf.String(), "careful")
}

func TestRecorderSinkDrain(t *testing.T) {
	s := &RecorderSink{}
	s.Present("a", types.HintText)
	s.Present("b", types.HintBackground)

	assert.Equal(t, []string{"a", "b"}, s.Texts())
	assert.Equal(t, []Entry{{Text: "a", Hint: types.HintText}, {Text: "b", Hint: types.HintBackground}}, s.Drain())
	assert.Empty(t, s.Entries())
}

func TestFanoutSink(t *testing.T) {
	f := NewFanoutSink()
	first, second := &RecorderSink{}, &RecorderSink{}

	unsubscribe := f.Subscribe(first)
	f.Subscribe(second)
	assert.Equal(t, 2, f.Len())

	f.Present("both", types.HintInfo)
	unsubscribe()
	f.Present("only second", types.HintInfo)

	assert.Equal(t, []string{"both"}, first.Texts())
	assert.Equal(t, []string{"both", "only second"}, second.Texts())
	assert.Equal(t, 1, f.Len())
}
