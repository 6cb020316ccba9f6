package console

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceCode = iota + 1
	pipeCode
	backgroundCode
	quotedCode
	wordCode
)

var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	pipeToken       = parsly.NewToken(pipeCode, "|", matcher.NewByte('|'))
	backgroundToken = parsly.NewToken(backgroundCode, "&", matcher.NewByte('&'))
	quotedToken     = parsly.NewToken(quotedCode, "Quoted", &quotedMatcher{})
	wordToken       = parsly.NewToken(wordCode, "Word", &wordMatcher{})
)

// wordMatcher matches a bare argument: anything up to whitespace or an operator.
type wordMatcher struct{}

func (m *wordMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos >= cursor.InputSize || isQuote(input[pos]) {
		return 0
	}
	matched := 0
	for i := pos; i < cursor.InputSize; i++ {
		if isSeparator(input[i]) {
			break
		}
		matched++
	}
	return matched
}

// quotedMatcher matches a single or double quoted argument, quotes included.
type quotedMatcher struct{}

func (m *quotedMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos >= cursor.InputSize || !isQuote(input[pos]) {
		return 0
	}
	quote := input[pos]
	for i := pos + 1; i < cursor.InputSize; i++ {
		switch input[i] {
		case '\\':
			i++
		case quote:
			return i - pos + 1
		}
	}
	return 0
}

func isQuote(b byte) bool {
	return b == '"' || b == '\''
}

func isSeparator(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '|', '&':
		return true
	}
	return false
}
