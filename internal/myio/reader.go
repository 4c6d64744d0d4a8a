package myio

import (
	"io"
	"sync"
)

// ChunkReader returns data in reads of at most size bytes. After data is
// exhausted it returns err, or io.EOF when err is nil.
// Close records the call and makes later reads fail with io.ErrClosedPipe.
type ChunkReader struct {
	data []byte
	size int
	err  error

	mu     sync.Mutex
	closed bool
	reads  int
	// unblock is closed by Close; a reader with Block set waits on it at the end of data.
	unblock chan struct{}
	Block   bool
}

func NewChunkReader(data []byte, size int, err error) *ChunkReader {
	return &ChunkReader{
		data:    data,
		size:    size,
		err:     err,
		unblock: make(chan struct{}),
	}
}

func (r *ChunkReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	r.reads++

	if len(r.data) == 0 {
		block := r.Block
		r.mu.Unlock()

		if block {
			<-r.unblock
			return 0, io.ErrClosedPipe
		}
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	defer r.mu.Unlock()

	n := min(len(p), r.size, len(r.data))
	copy(p, r.data[:n])
	r.data = r.data[n:]

	return n, nil
}

func (r *ChunkReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed {
		r.closed = true
		close(r.unblock)
	}

	return nil
}

// Closed reports whether Close was called.
func (r *ChunkReader) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

// Reads returns the number of Read calls so far.
func (r *ChunkReader) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.reads
}
