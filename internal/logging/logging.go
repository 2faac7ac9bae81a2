// Package logging is CodeGraph's single diagnostic surface: a package-level
// structured logger toggled by SetOutput/SetLevel, mirroring the teacher
// repo's internal/debug package-level-state idiom rather than a logger
// instance threaded through every call. Components call logging.L() to get
// the current logger; tests redirect it with SetOutput for assertions.
package logging

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	mu      sync.Mutex
	logger  = zerolog.New(os.Stderr).With().Timestamp().Logger()
	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// SetOutput redirects all subsequent logging to w. Passing nil disables
// output entirely (useful for library embedding, or MCP-style stdio modes
// where diagnostic output would corrupt a wire protocol on stdout/stderr).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		enabled.Store(false)
		return
	}
	enabled.Store(true)
	logger = zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel sets the minimum level that reaches the configured output.
func SetLevel(level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(level)
}

// L returns the current package logger. Safe for concurrent use; returns a
// disabled logger (zero allocations on log calls) when output is off.
func L() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled.Load() {
		disabled := zerolog.Nop()
		return &disabled
	}
	return &logger
}

// Component returns a logger annotated with a "component" field, used so
// every log line from e.g. the orchestrator or the graph store is easy to
// filter without each package constructing its own sub-logger by hand.
func Component(name string) zerolog.Logger {
	return L().With().Str("component", name).Logger()
}
