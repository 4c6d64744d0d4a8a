package myio

import (
	"time"
)

// SlowWriter simulates a consumer that spends perByte on every byte it accepts.
type SlowWriter struct {
	perByte time.Duration
	written int64
}

func NewSlowWriter(perByte time.Duration) *SlowWriter {
	return &SlowWriter{perByte: perByte}
}

func (w *SlowWriter) Write(p []byte) (int, error) {
	time.Sleep(time.Duration(len(p)) * w.perByte)
	w.written += int64(len(p))

	return len(p), nil
}

// Written returns the number of bytes accepted so far.
func (w *SlowWriter) Written() int64 {
	return w.written
}
