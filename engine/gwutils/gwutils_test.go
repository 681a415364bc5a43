package gwutils

import (
	"fmt"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
)

func TestRunPanicless(t *testing.T) {
	assert.T(t, RunPanicless(func() {
		panic(1)
	}), "should report panic")
	assert.T(t, RunPanicless(func() {
		panic(fmt.Errorf("bad"))
	}), "should report panic")
	assert.T(t, !RunPanicless(func() {}), "should not report panic")
}

func TestCatchPanic(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := CatchPanic(func() error {
		panic(sentinel)
	})
	assert.T(t, errors.Cause(err) == sentinel, "panic error should be the cause")

	err = CatchPanic(func() error {
		panic("boom")
	})
	assert.Equal(t, "panic: boom", err.Error())

	assert.Equal(t, sentinel, CatchPanic(func() error {
		return sentinel
	}))
	assert.Equal(t, nil, CatchPanic(func() error {
		return nil
	}))
}
