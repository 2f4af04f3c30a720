package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSpecs = []FlagSpec{
	{Name: "recursive", Short: 'r', Long: "recursive"},
	{Name: "recursive", Short: 'R'},
	{Name: "force", Short: 'f', Long: "force"},
	{Name: "lines", Short: 'n', Long: "lines", TakesValue: true},
}

func TestParseFlagsCombinedShort(t *testing.T) {
	flags, operands, err := ParseFlags([]string{"-rf", "a", "-R", "b"}, testSpecs)
	require.NoError(t, err)
	assert.True(t, flags.Has("recursive"))
	assert.True(t, flags.Has("force"))
	assert.Equal(t, []string{"a", "b"}, operands)
}

func TestParseFlagsValues(t *testing.T) {
	flags, operands, err := ParseFlags([]string{"-n5", "x"}, testSpecs)
	require.NoError(t, err)
	v, ok := flags.Value("lines")
	assert.True(t, ok)
	assert.Equal(t, "5", v)
	assert.Equal(t, []string{"x"}, operands)

	flags, _, err = ParseFlags([]string{"-n", "7"}, testSpecs)
	require.NoError(t, err)
	v, _ = flags.Value("lines")
	assert.Equal(t, "7", v)

	flags, _, err = ParseFlags([]string{"--lines=3"}, testSpecs)
	require.NoError(t, err)
	v, _ = flags.Value("lines")
	assert.Equal(t, "3", v)

	flags, _, err = ParseFlags([]string{"--lines", "4"}, testSpecs)
	require.NoError(t, err)
	v, _ = flags.Value("lines")
	assert.Equal(t, "4", v)
}

func TestParseFlagsTerminator(t *testing.T) {
	flags, operands, err := ParseFlags([]string{"-f", "--", "-r", "-"}, testSpecs)
	require.NoError(t, err)
	assert.True(t, flags.Has("force"))
	assert.False(t, flags.Has("recursive"))
	assert.Equal(t, []string{"-r", "-"}, operands)
}

func TestParseFlagsErrors(t *testing.T) {
	_, _, err := ParseFlags([]string{"-x"}, testSpecs)
	assert.EqualError(t, err, "invalid option -- 'x'")

	_, _, err = ParseFlags([]string{"--nope"}, testSpecs)
	assert.EqualError(t, err, "unrecognized option '--nope'")

	_, _, err = ParseFlags([]string{"-n"}, testSpecs)
	assert.EqualError(t, err, "option requires an argument -- 'n'")

	_, _, err = ParseFlags([]string{"--force=yes"}, testSpecs)
	assert.Error(t, err)
}
