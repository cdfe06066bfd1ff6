package util

import (
	"fmt"
	"sync"
	"time"
)

// Tracer is the diagnostic log sink for call events. Every line carries the
// elapsed time since the tracer was created, in seconds with millisecond
// precision, so the timing of the negotiation steps can be read off directly.
//
// Lines fan out to all subscribed sinks. Subscription order is preserved;
// sinks must not block.
type Tracer struct {
	start time.Time

	mu    sync.Mutex
	sinks []func(line string)
}

// NewTracer creates a Tracer whose clock starts now.
func NewTracer() *Tracer {
	return &Tracer{start: time.Now()}
}

// Subscribe registers a sink that receives every formatted trace line.
func (t *Tracer) Subscribe(sink func(line string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks = append(t.sinks, sink)
}

// Elapsed returns the time since the tracer's clock started.
func (t *Tracer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Logf formats a trace line and delivers it to every sink.
func (t *Tracer) Logf(format string, args ...interface{}) {
	line := FormatTraceLine(t.Elapsed(), fmt.Sprintf(format, args...))

	t.mu.Lock()
	sinks := make([]func(string), len(t.sinks))
	copy(sinks, t.sinks)
	t.mu.Unlock()

	for _, sink := range sinks {
		sink(line)
	}
}

// FormatTraceLine renders a single diagnostic line: seconds since start with
// three decimals, a colon, then the message.
func FormatTraceLine(elapsed time.Duration, msg string) string {
	return fmt.Sprintf("%.3f: %s", elapsed.Seconds(), msg)
}
