package engine

import (
	"io"
	"sync"
)

// ProgressReporter receives byte-level progress for a single file transfer.
// Implementations must tolerate concurrent calls when pairs are transferred
// in parallel.
type ProgressReporter interface {
	// Progress is invoked with the bytes transferred so far and the total
	// bytes expected. total is zero when the size is unknown.
	Progress(transferred, total int64)
}

// ProgressFunc adapts a plain function to the ProgressReporter interface.
type ProgressFunc func(transferred, total int64)

func (f ProgressFunc) Progress(transferred, total int64) { f(transferred, total) }

// ProgressWriter wraps an io.Writer and reports cumulative bytes written to
// a ProgressReporter.
type ProgressWriter struct {
	io.Writer
	reporter ProgressReporter
	total    int64

	mu sync.Mutex
	n  int64
}

// NewProgressWriter creates a ProgressWriter. reporter may be nil, in which
// case only byte counting is performed.
func NewProgressWriter(w io.Writer, total int64, reporter ProgressReporter) *ProgressWriter {
	return &ProgressWriter{
		Writer:   w,
		reporter: reporter,
		total:    total,
	}
}

// Write implements io.Writer and reports progress after each write.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	if n > 0 {
		pw.mu.Lock()
		pw.n += int64(n)
		transferred := pw.n
		pw.mu.Unlock()

		if pw.reporter != nil {
			pw.reporter.Progress(transferred, pw.total)
		}
	}
	return n, err
}

// BytesWritten returns the total number of bytes written so far.
func (pw *ProgressWriter) BytesWritten() int64 {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.n
}
