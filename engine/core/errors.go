package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrAlreadyAttached   = errors.New("already attached")
	ErrNotAttached       = errors.New("not attached")
	ErrStaleNode         = errors.New("node handle is stale or was destroyed")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrNotInitialized    = errors.New("not initialized")
	ErrEngineExists      = errors.New("an engine instance is already running")
)

// Assert logs err and panics with it when cond is false.
func Assert(cond bool, err error) {
	if cond {
		return
	}
	LogError("assertion failed: %s", err)
	panic(err)
}

// Assertf is Assert with a formatted message wrapping err.
func Assertf(cond bool, err error, format string, args ...interface{}) {
	if cond {
		return
	}
	wrapped := fmt.Errorf(format+": %w", append(args, err)...)
	LogError("assertion failed: %s", wrapped)
	panic(wrapped)
}
