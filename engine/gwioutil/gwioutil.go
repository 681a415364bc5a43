package gwioutil

import (
	"io"
	"net"

	"github.com/pkg/errors"
)

type timeoutError interface {
	Timeout() bool
}

// IsTimeoutError checks if the error is a timeout error
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	ne, ok := errors.Cause(err).(timeoutError)
	return ok && ne.Timeout()
}

// IsClosedError checks if the error means the connection was closed by either side
func IsClosedError(err error) bool {
	err = errors.Cause(err)
	return err == io.EOF || err == net.ErrClosed || err == io.ErrClosedPipe
}
