package console

import "strings"

// Command is one program invocation: its name and arguments.
type Command struct {
	Name string   `json:"name" yaml:"name"`
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
}

// Line is a parsed console line: a pipeline of one or more commands.
type Line struct {
	Pipeline   []*Command `json:"pipeline" yaml:"pipeline"`
	Background bool       `json:"background,omitempty" yaml:"background,omitempty"`
}

// IsEmpty reports a blank line.
func (l *Line) IsEmpty() bool {
	return len(l.Pipeline) == 0
}

func (l *Line) String() string {
	parts := make([]string, 0, len(l.Pipeline))
	for _, cmd := range l.Pipeline {
		parts = append(parts, strings.TrimSpace(cmd.Name+" "+strings.Join(cmd.Args, " ")))
	}
	ret := strings.Join(parts, " | ")
	if l.Background {
		ret += " &"
	}
	return ret
}
