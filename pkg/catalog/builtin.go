package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Builtin checkers are the pure linguistic predicates of the word game. All
// of them NFC-normalize the text first so that platform encoding quirks do
// not change verdicts; case-insensitive checks additionally lowercase.

func fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

func wordsOf(s string) []string {
	return strings.Fields(norm.NFC.String(s))
}

func pure(fn func(text string) bool) Checker {
	return CheckFunc(func(_ context.Context, msg Message) (bool, error) {
		return fn(msg.Text), nil
	})
}

// NoSpaces is satisfied when the message contains no space characters.
func NoSpaces() Checker {
	return pure(func(text string) bool {
		return !strings.ContainsFunc(norm.NFC.String(text), unicode.IsSpace)
	})
}

// LowercaseOnly is satisfied when the message contains no uppercase letters.
func LowercaseOnly() Checker {
	return pure(func(text string) bool {
		return !strings.ContainsFunc(norm.NFC.String(text), unicode.IsUpper)
	})
}

// UppercaseOnly is satisfied when the message contains no lowercase letters.
func UppercaseOnly() Checker {
	return pure(func(text string) bool {
		return !strings.ContainsFunc(norm.NFC.String(text), unicode.IsLower)
	})
}

// BannedLetter is satisfied when the folded message does not contain letter.
func BannedLetter(letter rune) Checker {
	banned := unicode.ToLower(letter)
	return pure(func(text string) bool {
		return !strings.ContainsRune(fold(text), banned)
	})
}

// RequiredLetter is satisfied when the folded message contains letter.
func RequiredLetter(letter rune) Checker {
	required := unicode.ToLower(letter)
	return pure(func(text string) bool {
		return strings.ContainsRune(fold(text), required)
	})
}

// MaxWords is satisfied when the message has at most n whitespace-separated
// words.
func MaxWords(n int) Checker {
	return pure(func(text string) bool {
		return len(wordsOf(text)) <= n
	})
}

// MinWords is satisfied when the message has at least n whitespace-separated
// words.
func MinWords(n int) Checker {
	return pure(func(text string) bool {
		return len(wordsOf(text)) >= n
	})
}

// NoRepeatWord is satisfied when no folded word appears twice.
func NoRepeatWord() Checker {
	return pure(func(text string) bool {
		seen := make(map[string]struct{})
		for _, w := range wordsOf(text) {
			w = strings.ToLower(w)
			if _, dup := seen[w]; dup {
				return false
			}
			seen[w] = struct{}{}
		}
		return true
	})
}

// Alliteration is satisfied when every word starts with the same folded rune.
// Messages with fewer than two words satisfy it vacuously.
func Alliteration() Checker {
	return pure(func(text string) bool {
		words := wordsOf(text)
		if len(words) < 2 {
			return true
		}
		var initial rune
		for i, w := range words {
			first := unicode.ToLower([]rune(w)[0])
			if i == 0 {
				initial = first
				continue
			}
			if first != initial {
				return false
			}
		}
		return true
	})
}

// AscendingWordLength is satisfied when word lengths never decrease left to
// right. Vacuous below two words.
func AscendingWordLength() Checker {
	return pure(func(text string) bool {
		prev := 0
		for _, w := range wordsOf(text) {
			n := len([]rune(w))
			if n < prev {
				return false
			}
			prev = n
		}
		return true
	})
}

// PalindromeWord is satisfied when at least one word of three or more runes
// reads the same reversed, case-folded.
func PalindromeWord() Checker {
	return pure(func(text string) bool {
		for _, w := range wordsOf(text) {
			if isPalindrome(strings.ToLower(w)) {
				return true
			}
		}
		return false
	})
}

func isPalindrome(w string) bool {
	r := []rune(w)
	if len(r) < 3 {
		return false
	}
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		if r[i] != r[j] {
			return false
		}
	}
	return true
}

// QuestionOnly is satisfied when the trimmed message ends with a question
// mark.
func QuestionOnly() Checker {
	return pure(func(text string) bool {
		t := strings.TrimSpace(norm.NFC.String(text))
		return strings.HasSuffix(t, "?")
	})
}

// BannedWords is satisfied when none of the folded words equals a banned one.
func BannedWords(words ...string) Checker {
	banned := make(map[string]struct{}, len(words))
	for _, w := range words {
		banned[fold(w)] = struct{}{}
	}
	return pure(func(text string) bool {
		for _, w := range wordsOf(text) {
			if _, hit := banned[strings.ToLower(w)]; hit {
				return false
			}
		}
		return true
	})
}

// builtinChecker resolves a catalog-file builtin name plus parameters onto a
// checker. Unknown names and malformed parameters are configuration errors.
func builtinChecker(name string, params map[string]any) (Checker, error) {
	switch name {
	case "no-spaces":
		return NoSpaces(), nil
	case "lowercase-only":
		return LowercaseOnly(), nil
	case "uppercase-only":
		return UppercaseOnly(), nil
	case "banned-letter":
		r, err := letterParam(name, params)
		if err != nil {
			return nil, err
		}
		return BannedLetter(r), nil
	case "required-letter":
		r, err := letterParam(name, params)
		if err != nil {
			return nil, err
		}
		return RequiredLetter(r), nil
	case "max-words":
		n, err := intParam(name, params, "n")
		if err != nil {
			return nil, err
		}
		return MaxWords(n), nil
	case "min-words":
		n, err := intParam(name, params, "n")
		if err != nil {
			return nil, err
		}
		return MinWords(n), nil
	case "no-repeat-word":
		return NoRepeatWord(), nil
	case "alliteration":
		return Alliteration(), nil
	case "ascending-word-length":
		return AscendingWordLength(), nil
	case "palindrome-word":
		return PalindromeWord(), nil
	case "question-only":
		return QuestionOnly(), nil
	case "banned-words":
		raw, ok := params["words"]
		if !ok {
			return nil, configErrorf("builtin %q: missing words parameter", name)
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, configErrorf("builtin %q: words must be a list", name)
		}
		words := make([]string, 0, len(list))
		for _, v := range list {
			s, ok := v.(string)
			if !ok {
				return nil, configErrorf("builtin %q: words must be strings", name)
			}
			words = append(words, s)
		}
		return BannedWords(words...), nil
	default:
		return nil, configErrorf("unknown builtin %q", name)
	}
}

func letterParam(name string, params map[string]any) (rune, error) {
	raw, ok := params["letter"]
	if !ok {
		return 0, configErrorf("builtin %q: missing letter parameter", name)
	}
	s, ok := raw.(string)
	if !ok || len([]rune(s)) != 1 {
		return 0, configErrorf("builtin %q: letter must be a single character, got %v", name, raw)
	}
	return []rune(s)[0], nil
}

func intParam(name string, params map[string]any, key string) (int, error) {
	raw, ok := params[key]
	if !ok {
		return 0, configErrorf("builtin %q: missing %s parameter", name, key)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, configErrorf("builtin %q: %s must be an integer, got %T", name, key, raw)
	}
}

// Default builds the shipped word-game catalog: fourteen builtin rules with
// natural conflict pairs. Weights reflect how hard each rule is to obey in
// casual chat.
func Default() (*Catalog, error) {
	defs := []Definition{
		{ID: "no-spaces", Name: "No Spaces", Description: "Messages may not contain spaces.", Weight: 3, Check: NoSpaces()},
		{ID: "lowercase-only", Name: "Lowercase Only", Description: "No uppercase letters anywhere.", Weight: 1, Check: LowercaseOnly()},
		{ID: "uppercase-only", Name: "UPPERCASE ONLY", Description: "No lowercase letters anywhere.", Weight: 2, Check: UppercaseOnly()},
		{ID: "banned-letter-e", Name: "The Letter E Is Forbidden", Description: "Messages may not contain the letter e.", Weight: 4, Check: BannedLetter('e')},
		{ID: "banned-letter-a", Name: "The Letter A Is Forbidden", Description: "Messages may not contain the letter a.", Weight: 3, Check: BannedLetter('a')},
		{ID: "required-letter-z", Name: "Z Required", Description: "Every message must contain the letter z.", Weight: 3, Check: RequiredLetter('z')},
		{ID: "max-words-3", Name: "Three Words Or Fewer", Description: "At most three words per message.", Weight: 2, Check: MaxWords(3)},
		{ID: "min-words-2", Name: "At Least Two Words", Description: "One-word messages are not allowed.", Weight: 1, Check: MinWords(2)},
		{ID: "no-repeat-word", Name: "No Repeats", Description: "No word may appear twice in a message.", Weight: 1, Check: NoRepeatWord()},
		{ID: "alliteration", Name: "Alliteration", Description: "All words must start with the same letter.", Weight: 5, Check: Alliteration()},
		{ID: "ascending-word-length", Name: "Ever Longer", Description: "Each word must be at least as long as the one before it.", Weight: 4, Check: AscendingWordLength()},
		{ID: "palindrome-word", Name: "Palindrome Somewhere", Description: "Include at least one palindrome of three letters or more.", Weight: 5, Check: PalindromeWord()},
		{ID: "question-only", Name: "Questions Only", Description: "Every message must end with a question mark.", Weight: 2, Check: QuestionOnly()},
		{ID: "banned-word-the", Name: "Don't Say The", Description: "The word \"the\" is forbidden.", Weight: 2, Check: BannedWords("the")},
	}
	pairs := [][2]string{
		{"lowercase-only", "uppercase-only"},
		{"no-spaces", "min-words-2"},
		{"no-spaces", "alliteration"},
		{"no-spaces", "ascending-word-length"},
		{"no-spaces", "no-repeat-word"},
		{"banned-letter-e", "banned-letter-a"},
		{"max-words-3", "min-words-2"},
	}
	return New(defs, pairs)
}

// DefaultMust is Default for wiring paths where a failure is programmer
// error.
func DefaultMust() *Catalog {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("catalog: default catalog invalid: %v", err))
	}
	return c
}
