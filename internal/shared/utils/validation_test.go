package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	for _, ok := range []string{"root", "guest", "a", "_svc", "dev-1"} {
		assert.NoError(t, ValidateUsername(ok), ok)
	}
	for _, bad := range []string{"", "Root", "1abc", "a b", "a/b", strings.Repeat("a", 33)} {
		assert.Error(t, ValidateUsername(bad), bad)
	}
}

func TestValidateCommandLine(t *testing.T) {
	assert.NoError(t, ValidateCommandLine(""))
	assert.NoError(t, ValidateCommandLine(`echo "hi" > out.txt &`))
	assert.Error(t, ValidateCommandLine("echo a\necho b"))
	assert.Error(t, ValidateCommandLine("echo \x00"))
	assert.Error(t, ValidateCommandLine(string([]byte{0xff, 0xfe})))
	assert.Error(t, ValidateCommandLine(strings.Repeat("x", MaxLineLength+1)))
}

func TestValidateScriptArgs(t *testing.T) {
	assert.NoError(t, ValidateScriptArgs([]string{"a", ""}))
	assert.Error(t, ValidateScriptArgs(make([]string, MaxScriptArgs+1)))
	assert.Error(t, ValidateScriptArgs([]string{"ok", "bad\x00"}))
}

func TestBlake2bHex(t *testing.T) {
	sum, err := Blake2bHex([]byte("abc"), 64)
	assert.NoError(t, err)
	assert.Equal(t, "ba80a53f981c4d0d6a2797b69f12f6e94c212f14685ac4b74b12bb6fdbffa2d17d87c5392aab792dc252d5de4533cc9518d38aa8dbf1925ab92386edd4009923", sum)

	short, err := Blake2bHex([]byte("abc"), 32)
	assert.NoError(t, err)
	assert.Len(t, short, 64)

	_, err = Blake2bHex(nil, 0)
	assert.Error(t, err)
}
