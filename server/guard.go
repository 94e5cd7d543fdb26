package server

import (
	"fmt"
	"runtime/debug"
)

// panicError is a recovered handler panic.
type panicError struct {
	method string
	value  any
	stack  []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.method, e.value)
}

// guard runs fn, recovering from panics. A document that trips a bug in the
// parser or a query fails its own request and nothing else.
func guard(method string, fn func() (any, error)) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &panicError{method: method, value: r, stack: debug.Stack()}
		}
	}()
	return fn()
}
