package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verdict(t *testing.T, c Checker, text string) bool {
	t.Helper()
	ok, err := c.Check(context.Background(), Message{Text: text})
	require.NoError(t, err)
	return ok
}

func TestNoSpaces(t *testing.T) {
	c := NoSpaces()
	assert.True(t, verdict(t, c, "ab"))
	assert.False(t, verdict(t, c, "a b"))
	assert.False(t, verdict(t, c, "a\tb"))
	assert.True(t, verdict(t, c, ""))
}

func TestLowercaseOnly(t *testing.T) {
	c := LowercaseOnly()
	assert.True(t, verdict(t, c, "all quiet here"))
	assert.False(t, verdict(t, c, "Not quiet"))
	assert.True(t, verdict(t, c, "numbers 123 ok!"))
}

func TestUppercaseOnly(t *testing.T) {
	c := UppercaseOnly()
	assert.True(t, verdict(t, c, "LOUD NOISES"))
	assert.False(t, verdict(t, c, "LOUD noises"))
}

func TestBannedLetter(t *testing.T) {
	c := BannedLetter('e')
	assert.True(t, verdict(t, c, "zig and zag"))
	assert.False(t, verdict(t, c, "hello"))
	assert.False(t, verdict(t, c, "HELLO"), "fold must catch uppercase hits")
}

func TestRequiredLetter(t *testing.T) {
	c := RequiredLetter('z')
	assert.True(t, verdict(t, c, "puzzle"))
	assert.True(t, verdict(t, c, "ZEBRA"))
	assert.False(t, verdict(t, c, "plain"))
}

func TestWordCountRules(t *testing.T) {
	max3 := MaxWords(3)
	assert.True(t, verdict(t, max3, "one two three"))
	assert.False(t, verdict(t, max3, "one two three four"))

	min2 := MinWords(2)
	assert.True(t, verdict(t, min2, "two words"))
	assert.False(t, verdict(t, min2, "solo"))
	assert.False(t, verdict(t, min2, ""))
}

func TestNoRepeatWord(t *testing.T) {
	c := NoRepeatWord()
	assert.True(t, verdict(t, c, "every word once"))
	assert.False(t, verdict(t, c, "twice is twice"))
	assert.False(t, verdict(t, c, "Case case"), "repeats are case-insensitive")
}

func TestAlliteration(t *testing.T) {
	c := Alliteration()
	assert.True(t, verdict(t, c, "peter picked peppers"))
	assert.True(t, verdict(t, c, "Peter picked peppers"), "initials fold case")
	assert.False(t, verdict(t, c, "peter grabbed peppers"))
	assert.True(t, verdict(t, c, "solo"), "single word is vacuously alliterative")
}

func TestAscendingWordLength(t *testing.T) {
	c := AscendingWordLength()
	assert.True(t, verdict(t, c, "a an ant antsy"))
	assert.True(t, verdict(t, c, "aa bb cc"), "equal lengths allowed")
	assert.False(t, verdict(t, c, "longer a"))
}

func TestPalindromeWord(t *testing.T) {
	c := PalindromeWord()
	assert.True(t, verdict(t, c, "my kayak leaks"))
	assert.True(t, verdict(t, c, "Racecar ready"))
	assert.False(t, verdict(t, c, "no such word here"))
	assert.False(t, verdict(t, c, "aa bb"), "palindromes need three or more runes")
}

func TestQuestionOnly(t *testing.T) {
	c := QuestionOnly()
	assert.True(t, verdict(t, c, "is this allowed?"))
	assert.True(t, verdict(t, c, "really?  "))
	assert.False(t, verdict(t, c, "statement."))
}

func TestBannedWords(t *testing.T) {
	c := BannedWords("the", "a")
	assert.True(t, verdict(t, c, "words without articles"))
	assert.False(t, verdict(t, c, "the forbidden word"))
	assert.False(t, verdict(t, c, "THE forbidden word"))
	assert.True(t, verdict(t, c, "lathe is fine"), "only whole words are banned")
}

func TestBuiltinChecker_Registry(t *testing.T) {
	// 1. Parameterless builtins resolve by name.
	c, err := builtinChecker("no-spaces", nil)
	require.NoError(t, err)
	assert.False(t, verdict(t, c, "a b"))

	// 2. Parameterized builtins read params.
	c, err = builtinChecker("banned-letter", map[string]any{"letter": "q"})
	require.NoError(t, err)
	assert.False(t, verdict(t, c, "quiet"))

	c, err = builtinChecker("max-words", map[string]any{"n": 2})
	require.NoError(t, err)
	assert.True(t, verdict(t, c, "two words"))

	c, err = builtinChecker("banned-words", map[string]any{"words": []any{"sword"}})
	require.NoError(t, err)
	assert.False(t, verdict(t, c, "a sword appears"))

	// 3. Unknown names and bad params are configuration errors.
	_, err = builtinChecker("flarble", nil)
	require.Error(t, err)

	_, err = builtinChecker("banned-letter", map[string]any{"letter": "too long"})
	require.Error(t, err)

	_, err = builtinChecker("max-words", map[string]any{"n": "two"})
	require.Error(t, err)
}
