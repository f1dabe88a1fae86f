package middleware

import (
	"fmt"
	"runtime"

	"github.com/emberhttp/ember"
)

// RecoverConfig configures the panic-recovery wrapper, adapted from the
// teacher's `gases.RecoverConfig`.
type RecoverConfig struct {
	// StackSize bounds how much of the goroutine's stack trace is
	// captured into the log line. Default 4 KB.
	StackSize int
}

// DefaultRecoverConfig mirrors the teacher's default.
var DefaultRecoverConfig = RecoverConfig{StackSize: 4 << 10}

// Recover returns a function that runs fn, converting any panic into
// an error (and logging its stack trace through logger), per spec
// §4.12 ("Handler exception → 500 via exception handler; handler still
// returned to pool"). Unlike the boolean-returning `ember.Middleware`,
// recovery must wrap the handler invocation itself, so this is called
// directly around a handler function rather than registered on the
// `MiddlewareChain`. The dispatcher does not use it: it recovers panics
// with its own inline wrapper.
func Recover(logger *ember.Logger) func(func() (interface{}, error)) (interface{}, error) {
	return RecoverWithConfig(DefaultRecoverConfig, logger)
}

// RecoverWithConfig returns a `Recover`-style wrapper using config.
func RecoverWithConfig(config RecoverConfig, logger *ember.Logger) func(func() (interface{}, error)) (interface{}, error) {
	if config.StackSize <= 0 {
		config.StackSize = DefaultRecoverConfig.StackSize
	}

	return func(fn func() (interface{}, error)) (result interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				switch v := r.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("%v", v)
				}
				stack := make([]byte, config.StackSize)
				n := runtime.Stack(stack, false)
				if logger != nil {
					logger.Errorf("[PANIC RECOVER] %s %s", err, stack[:n])
				}
			}
		}()
		return fn()
	}
}
