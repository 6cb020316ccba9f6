package program

import (
	"strings"

	"github.com/viant/kcore/model/process"
	"github.com/viant/kcore/runtime/kernel"
	"github.com/viant/kcore/service/console"
)

const prompt = "$ "

// Shell runs every argument as one script line. With a leading -i it then
// reads the console until end of input or exit.
func Shell(ctx *kernel.Context, argv []string) int32 {
	sh := &shell{ctx: ctx}
	defer sh.reapJobs()
	interactive := len(argv) > 0 && argv[0] == "-i"
	if interactive {
		argv = argv[1:]
	}
	for _, line := range argv {
		if sh.run(line) {
			return sh.status
		}
	}
	for interactive {
		ctx.Printf(prompt)
		line, ok := ctx.ReadLine()
		if !ok || sh.run(line) {
			break
		}
	}
	return sh.status
}

type shell struct {
	ctx    *kernel.Context
	jobs   []process.PID
	status int32
}

// run executes one line and reports whether the shell should exit.
func (s *shell) run(text string) bool {
	line, err := console.Parse(text)
	if err != nil {
		s.ctx.Eprintf("sh: %v\n", err)
		s.status = 1
		return false
	}
	if line.IsEmpty() {
		return false
	}
	first := line.Pipeline[0]
	if len(line.Pipeline) == 1 && !line.Background {
		switch first.Name {
		case "exit":
			status, err := intArg(first.Args, 0, int(s.status))
			if err != nil {
				s.ctx.Eprintf("sh: exit: %v\n", err)
				status = 1
			}
			s.status = int32(status)
			return true
		case "wait":
			s.waitJobs()
			return false
		case "jobs":
			s.listJobs()
			return false
		}
	}
	for _, cmd := range line.Pipeline {
		if !s.ctx.HasProgram(cmd.Name) {
			s.ctx.Eprintf("sh: %s: command not found\n", cmd.Name)
			s.status = 127
			return false
		}
	}
	pids, err := s.launch(line)
	if err != nil {
		s.ctx.Eprintf("sh: %v\n", err)
		s.status = 1
		return false
	}
	if line.Background {
		for _, pid := range pids {
			s.jobs = append(s.jobs, pid)
			s.ctx.Printf("[%d]\n", pid)
		}
		s.status = 0
		return false
	}
	for _, pid := range pids {
		if s.status, err = s.ctx.Wait(pid); err != nil {
			s.ctx.Eprintf("sh: wait %d: %v\n", pid, err)
			s.status = 1
		}
	}
	return false
}

// launch starts every command of the pipeline, chaining standard output
// into the next command's standard input.
func (s *shell) launch(line *console.Line) ([]process.PID, error) {
	input := process.Stdin
	if line.Background {
		input = process.DevNull
	}
	var pids []process.PID
	for i, cmd := range line.Pipeline {
		output := process.Stdout
		if line.Background {
			output = process.DevNull
		}
		if i < len(line.Pipeline)-1 {
			fd, err := s.ctx.Pipe()
			if err != nil {
				s.abort(pids)
				return nil, err
			}
			output = fd
		}
		pid, err := s.ctx.CreateProcess(kernel.Spawn{
			Name:            cmd.Name,
			Args:            cmd.Args,
			Priority:        DefaultPriority,
			FileDescriptors: []process.FD{input, output, process.Stderr},
		})
		if err != nil {
			s.abort(pids)
			return nil, err
		}
		pids = append(pids, pid)
		input = output
	}
	return pids, nil
}

func (s *shell) abort(pids []process.PID) {
	for _, pid := range pids {
		_ = s.ctx.Kill(pid)
		_, _ = s.ctx.Wait(pid)
	}
}

func (s *shell) waitJobs() {
	for _, pid := range s.jobs {
		status, err := s.ctx.Wait(pid)
		if err == nil {
			s.ctx.Printf("[%d] done %d\n", pid, status)
		}
	}
	s.jobs = nil
}

func (s *shell) listJobs() {
	var running []process.PID
	for _, pid := range s.jobs {
		state, err := s.ctx.State(pid)
		if err != nil {
			continue
		}
		s.ctx.Printf("[%d] %s\n", pid, strings.ToLower(state.String()))
		running = append(running, pid)
	}
	s.jobs = running
}

// reapJobs kills and collects background jobs left when the shell ends.
func (s *shell) reapJobs() {
	for _, pid := range s.jobs {
		_ = s.ctx.Kill(pid)
		_, _ = s.ctx.Wait(pid)
	}
	s.jobs = nil
}
