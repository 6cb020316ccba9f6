package program

import (
	"fmt"

	"github.com/viant/kcore/model"
	"github.com/viant/kcore/model/process"
	"github.com/viant/toolbox"
)

// intArg returns argv[index] as an int, or fallback when absent.
func intArg(argv []string, index int, fallback int) (int, error) {
	if index >= len(argv) {
		return fallback, nil
	}
	ret, err := toolbox.ToInt(argv[index])
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", model.ErrInvalidArgument, argv[index])
	}
	return ret, nil
}

func pidArg(argv []string, index int) (process.PID, error) {
	if index >= len(argv) {
		return process.NoPID, fmt.Errorf("%w: missing pid", model.ErrInvalidArgument)
	}
	value, err := intArg(argv, index, 0)
	if err != nil {
		return process.NoPID, err
	}
	if value <= 0 || value > 0xFFFF {
		return process.NoPID, fmt.Errorf("%w: pid %d", model.ErrInvalidArgument, value)
	}
	return process.PID(value), nil
}
