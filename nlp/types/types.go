package types

import (
	"strings"
)

const (
	DEFAULT_FACTOR_DELIMITER = "|"
)

type Token string

// Surface returns the first factor of a factored token ("house|NN" -> "house").
func (t Token) Surface(delimiter string) string {
	s := string(t)
	if len(delimiter) == 0 {
		return s
	}
	if i := strings.Index(s, delimiter); i >= 0 {
		return s[:i]
	}
	return s
}

// Factor returns the n-th factor of the token, or "" when absent.
func (t Token) Factor(n int, delimiter string) string {
	if len(delimiter) == 0 {
		if n == 0 {
			return string(t)
		}
		return ""
	}
	factors := strings.Split(string(t), delimiter)
	if n < len(factors) {
		return factors[n]
	}
	return ""
}

// Sentence is one unit of translation input.
type Sentence struct {
	TranslationID   int
	Tokens          []Token
	FactorDelimiter string
}

func NewSentence(translationID int, line, delimiter string) *Sentence {
	fields := strings.Fields(line)
	tokens := make([]Token, len(fields))
	for i, f := range fields {
		tokens[i] = Token(f)
	}
	return &Sentence{translationID, tokens, delimiter}
}

func (s *Sentence) Len() int {
	return len(s.Tokens)
}

// Words returns the surface factor of every token.
func (s *Sentence) Words() []string {
	retval := make([]string, len(s.Tokens))
	for i, tok := range s.Tokens {
		retval[i] = tok.Surface(s.FactorDelimiter)
	}
	return retval
}

func (s *Sentence) String() string {
	return strings.Join(s.Words(), " ")
}
