package host

import (
	"errors"
	"fmt"
)

var (
	ErrNotReady         = errors.New("host is not ready")
	ErrHostFailed       = errors.New("host failed to initialize and must be recreated")
	ErrModuleNotFound   = errors.New("module not found")
	ErrNoDefaultExport  = errors.New("default export is not a function")
	ErrEmptyTree        = errors.New("nothing to render")
	ErrTooManyRerenders = errors.New("too many re-renders")
	ErrHandlerNotFound  = errors.New("handler not found")
	ErrInterrupted      = errors.New("execution interrupted")
)

// Phase names the pipeline stage an error came from
type Phase string

const (
	PhaseInit      Phase = "init"
	PhaseTransform Phase = "transform"
	PhaseEvaluate  Phase = "evaluate"
	PhaseBuild     Phase = "build"
	PhaseLayout    Phase = "layout"
	PhaseDispatch  Phase = "dispatch"
)

// PassError is a failure of one pipeline stage
type PassError struct {
	Phase Phase
	Err   error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *PassError) Unwrap() error {
	return e.Err
}

func fail(phase Phase, err error) error {
	if err == nil {
		return nil
	}
	var pe *PassError
	if errors.As(err, &pe) {
		return err
	}
	return &PassError{Phase: phase, Err: err}
}

// PhaseOf returns the phase recorded in err, or an empty phase
func PhaseOf(err error) Phase {
	var pe *PassError
	if errors.As(err, &pe) {
		return pe.Phase
	}
	return ""
}
