package syntax

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestLexOperators(t *testing.T) {
	tokens, err := Lex(`cat a.txt | grep "x y" >> 'out file' &`)
	require.NoError(t, err)

	assert.Equal(t, []Kind{Word, Word, Pipe, Word, StringDouble, RedirectAppend, StringSingle, Background, End}, kinds(tokens))
	assert.Equal(t, "x y", tokens[4].Value)
	assert.Equal(t, "out file", tokens[6].Value)
	assert.Equal(t, 4, tokens[1].Offset)
}

func TestLexGreedyRedirect(t *testing.T) {
	tokens, err := Lex("a>b>>c> >d")
	require.NoError(t, err)
	assert.Equal(t, []Kind{Word, RedirectOverwrite, Word, RedirectAppend, Word, RedirectOverwrite, RedirectOverwrite, Word, End}, kinds(tokens))
}

func TestLexQuotesAreVerbatim(t *testing.T) {
	tokens, err := Lex(`echo "it's" '"quoted"' "a\nb" ""`)
	require.NoError(t, err)
	require.Len(t, tokens, 6)
	assert.Equal(t, "it's", tokens[1].Value)
	assert.Equal(t, `"quoted"`, tokens[2].Value)
	assert.Equal(t, `a\nb`, tokens[3].Value)
	assert.Equal(t, "", tokens[4].Value)
}

func TestLexWordsAbutQuotes(t *testing.T) {
	tokens, err := Lex(`ab"cd"ef`)
	require.NoError(t, err)
	assert.Equal(t, []Kind{Word, StringDouble, Word, End}, kinds(tokens))
}

func TestLexErrors(t *testing.T) {
	_, err := Lex(`echo "unterminated`)
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 5, se.Offset)

	_, err = Lex("echo \x01")
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 5, se.Offset)
}

func TestLexEmpty(t *testing.T) {
	tokens, err := Lex("   \t ")
	require.NoError(t, err)
	assert.Equal(t, []Kind{End}, kinds(tokens))
}
