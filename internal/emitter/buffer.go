package emitter

import (
	"bytes"
	"io"
	"sync"
)

// buffer is the byte sink in front of the multipart reader.
// Writes never block; they report saturation once highWaterMark bytes are queued.
type buffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	data          bytes.Buffer
	highWaterMark int
	lowWaterMark  int

	saturated  bool
	drain      chan struct{}
	ended      bool
	discarding bool
	err        error
}

func newBuffer(highWaterMark int) *buffer {
	if highWaterMark <= 0 {
		highWaterMark = 1
	}

	b := &buffer{
		highWaterMark: highWaterMark,
		lowWaterMark:  highWaterMark / 2,
		drain:         closedChan(),
	}
	b.cond = sync.NewCond(&b.mu)

	return b
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (b *buffer) write(p []byte) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		return false, b.err
	}
	if b.ended {
		return false, ErrWriteAfterEnd
	}
	if b.discarding {
		return false, nil
	}

	b.data.Write(p)
	b.cond.Broadcast()

	if !b.saturated && b.data.Len() >= b.highWaterMark {
		b.saturated = true
		b.drain = make(chan struct{})
	}

	return b.saturated, nil
}

func (b *buffer) drained() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.drain
}

func (b *buffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.data.Len() == 0 && !b.ended && b.err == nil {
		b.cond.Wait()
	}
	if b.err != nil {
		return 0, b.err
	}
	if b.data.Len() == 0 {
		return 0, io.EOF
	}

	n, _ := b.data.Read(p)
	if b.saturated && b.data.Len() <= b.lowWaterMark {
		b.saturated = false
		close(b.drain)
	}

	return n, nil
}

func (b *buffer) end() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ended = true
	b.cond.Broadcast()
}

// closeWithError fails pending and future reads and writes.
// Buffered data is dropped.
func (b *buffer) closeWithError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		return
	}
	b.err = err
	b.data.Reset()
	if b.saturated {
		b.saturated = false
		close(b.drain)
	}
	b.cond.Broadcast()
}

// discard drops buffered data and accepts every later write without keeping it.
func (b *buffer) discard() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.discarding = true
	b.data.Reset()
	if b.saturated {
		b.saturated = false
		close(b.drain)
	}
}

func (b *buffer) buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.data.Len()
}
