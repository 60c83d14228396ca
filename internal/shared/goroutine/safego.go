// Package goroutine launches background work that must not take the process down.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"kreltrack/internal/shared/logger"
)

// SafeGo runs fn in a new goroutine and logs any panic with its stack.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer Recover(log, name)
		fn()
	}()
}

// Recover is meant to be deferred. It swallows a panic and logs it under name.
func Recover(log logger.Interface, name string) {
	if r := recover(); r != nil {
		log.Errorw("goroutine panicked",
			"goroutine", name,
			"panic", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)
	}
}
