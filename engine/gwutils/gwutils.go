package gwutils

import (
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwsim/engine/gwlog"
)

// RunPanicless calls a function panic-freely
func RunPanicless(f func()) (paniced bool) {
	defer func() {
		err := recover()
		if err != nil {
			gwlog.TraceError("%v panic: %v", f, err)
			paniced = true
		}
	}()

	f()
	return
}

// CatchPanic calls a function and converts a panic into an error
func CatchPanic(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			gwlog.TraceError("%v panic: %v", f, r)
			if perr, ok := r.(error); ok {
				err = errors.Wrap(perr, "panic")
			} else {
				err = errors.Errorf("panic: %v", r)
			}
		}
	}()

	return f()
}
