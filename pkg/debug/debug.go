// Package debug provides conditional debug logging for modviz.
//
// Debug logging is enabled by setting the MODVIZ_DEBUG environment variable:
//
//	MODVIZ_DEBUG=1 modviz -meta metadata.csv -data activity_data.csv
//
// Messages go to stderr with a [MODVIZ_DEBUG] prefix and microsecond
// timestamps. When disabled (default) every function is a no-op. The batch
// renderer logs from several goroutines, so the enabled flag is atomic.
package debug

import (
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const prefix = "[MODVIZ_DEBUG] "

var (
	enabled atomic.Bool

	mu     sync.Mutex
	logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
)

func init() {
	enabled.Store(os.Getenv("MODVIZ_DEBUG") != "")
}

// Enabled reports whether debug logging is on.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled switches debug logging on or off.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// SetOutput redirects debug output. Mostly useful in tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

func printf(format string, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Printf(format, args...)
}

// Log writes a printf-style debug message.
func Log(format string, args ...any) {
	if !enabled.Load() {
		return
	}
	printf(format, args...)
}

// LogTiming writes how long the named stage took.
func LogTiming(name string, d time.Duration) {
	if !enabled.Load() {
		return
	}
	printf("%s took %v", name, d)
}

// LogEnterExit logs entry into a pipeline stage and, when the returned func
// runs, its exit with elapsed time.
//
//	defer debug.LogEnterExit("chart.BuildActivityBar")()
func LogEnterExit(name string) func() {
	if !enabled.Load() {
		return func() {}
	}
	printf("-> %s", name)
	start := time.Now()
	return func() {
		printf("<- %s (%v)", name, time.Since(start))
	}
}

// Section logs a header separating one chart render from the next.
func Section(name string) {
	if !enabled.Load() {
		return
	}
	printf("=== %s ===", name)
}
