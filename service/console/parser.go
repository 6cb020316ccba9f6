// Package console parses shell command lines: whitespace separated words,
// quoted arguments, '|' pipelines and a trailing '&' for background jobs.
package console

import (
	"fmt"
	"strings"

	"github.com/viant/kcore/model"
	"github.com/viant/parsly"
)

// Parse parses one command line. A blank line yields an empty Line.
func Parse(input string) (*Line, error) {
	cursor := parsly.NewCursor("console", []byte(input), 0)
	line := &Line{}
	var current *Command
	for {
		matched := cursor.MatchAfterOptional(whitespaceToken, pipeToken, backgroundToken, quotedToken, wordToken)
		switch matched.Code {
		case parsly.EOF:
			if current == nil && len(line.Pipeline) > 0 {
				return nil, fmt.Errorf("%w: pipeline ends with '|'", model.ErrInvalidArgument)
			}
			return line, nil
		case wordCode, quotedCode:
			text := matched.Text(cursor)
			if matched.Code == quotedCode {
				text = unquote(text)
			}
			if current == nil {
				current = &Command{Name: text}
				line.Pipeline = append(line.Pipeline, current)
				continue
			}
			current.Args = append(current.Args, text)
		case pipeCode:
			if current == nil {
				return nil, fmt.Errorf("%w: '|' at %d without a command", model.ErrInvalidArgument, cursor.Pos-1)
			}
			current = nil
		case backgroundCode:
			if current == nil {
				return nil, fmt.Errorf("%w: '&' at %d without a command", model.ErrInvalidArgument, cursor.Pos-1)
			}
			if rest := strings.TrimSpace(string(cursor.Input[cursor.Pos:])); rest != "" {
				return nil, fmt.Errorf("%w: unexpected %q after '&'", model.ErrInvalidArgument, rest)
			}
			line.Background = true
			return line, nil
		default:
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidArgument, cursor.NewError(quotedToken, wordToken))
		}
	}
}

func unquote(text string) string {
	body := text[1 : len(text)-1]
	if !strings.ContainsRune(body, '\\') {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String()
}
