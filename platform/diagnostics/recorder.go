package diagnostics

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/robbyt/go-shapescript/internal/helpers"
	"github.com/robbyt/go-shapescript/platform/sandbox"
)

// Collector accumulates fault reports for one call.
type Collector struct {
	faults []*sandbox.Fault
}

func (c *Collector) Report(f *sandbox.Fault) {
	if f != nil {
		c.faults = append(c.faults, f)
	}
}

// Faults returns the reports in arrival order.
func (c *Collector) Faults() []*sandbox.Fault {
	return append([]*sandbox.Fault(nil), c.faults...)
}

func (c *Collector) Len() int { return len(c.faults) }

func (c *Collector) Reset() { c.faults = nil }

// LogBuffer holds script log output for one call.
type LogBuffer struct {
	b strings.Builder
}

func (l *LogBuffer) Print(msg string) {
	l.b.WriteString(msg)
	if !strings.HasSuffix(msg, "\n") {
		l.b.WriteByte('\n')
	}
}

func (l *LogBuffer) String() string { return l.b.String() }

// Drain returns the buffered output and empties the buffer.
func (l *LogBuffer) Drain() string {
	s := l.b.String()
	l.b.Reset()
	return s
}

// Recorder is the sandbox.Reporter of one Execution Context. Begin clears what the previous call
// left behind. Script code may run on the cancellation goroutine of an engine, so access is locked.
type Recorder struct {
	mu        sync.Mutex
	collector Collector
	log       LogBuffer
	logger    *slog.Logger
}

var _ sandbox.Reporter = (*Recorder)(nil)

// NewRecorder creates an empty recorder. Script output is mirrored to handler at debug level.
func NewRecorder(handler slog.Handler) *Recorder {
	_, logger := helpers.SetupLogger(handler, "diagnostics", "Recorder")
	return &Recorder{logger: logger}
}

// Begin drains the log buffer and clears collected faults.
func (r *Recorder) Begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.Drain()
	r.collector.Reset()
}

func (r *Recorder) Report(f *sandbox.Fault) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Debug("fault reported", "fault", f)
	r.collector.Report(f)
}

func (r *Recorder) Print(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Debug("script output", "msg", msg)
	r.log.Print(msg)
}

// Faults returns the reports collected since Begin.
func (r *Recorder) Faults() []*sandbox.Fault {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collector.Faults()
}

// LogText returns the output buffered since Begin.
func (r *Recorder) LogText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.String()
}
