package emitter

import (
	"errors"
	"io"
	"testing"
)

var errBuffer = errors.New("buffer error")

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestBuffer_Saturation(t *testing.T) {
	t.Parallel()

	b := newBuffer(8)

	saturated, err := b.write([]byte("0123"))
	if err != nil || saturated {
		t.Fatalf("unexpected write result: %t, %v", saturated, err)
	}
	if !isClosed(b.drained()) {
		t.Error("drained is open before saturation")
	}

	saturated, err = b.write([]byte("4567"))
	if err != nil || !saturated {
		t.Fatalf("unexpected write result: %t, %v", saturated, err)
	}
	drained := b.drained()
	if isClosed(drained) {
		t.Fatal("drained is closed while saturated")
	}

	p := make([]byte, 2)
	if _, err := b.Read(p); err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if isClosed(drained) {
		t.Error("drained is closed above the low-water mark")
	}

	p = make([]byte, 2)
	if _, err := b.Read(p); err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if !isClosed(drained) {
		t.Error("drained is open at the low-water mark")
	}
	if b.buffered() != 4 {
		t.Errorf("unexpected buffered size: %d", b.buffered())
	}
}

func TestBuffer_End(t *testing.T) {
	t.Parallel()

	b := newBuffer(8)
	if _, err := b.write([]byte("ab")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	b.end()

	data, err := io.ReadAll(b)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(data) != "ab" {
		t.Errorf("unexpected data: %q", data)
	}

	if _, err := b.write([]byte("c")); !errors.Is(err, ErrWriteAfterEnd) {
		t.Errorf("unexpected write error: %v", err)
	}
}

func TestBuffer_CloseWithError(t *testing.T) {
	t.Parallel()

	b := newBuffer(4)
	if _, err := b.write([]byte("0123")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	drained := b.drained()

	readErr := make(chan error, 1)
	go func() {
		p := make([]byte, 8)
		for {
			if _, err := b.Read(p); err != nil {
				readErr <- err
				return
			}
		}
	}()

	b.closeWithError(errBuffer)

	if err := <-readErr; !errors.Is(err, errBuffer) {
		t.Errorf("unexpected read error: %v", err)
	}
	if !isClosed(drained) {
		t.Error("drained is open after close")
	}
	if _, err := b.write([]byte("x")); !errors.Is(err, errBuffer) {
		t.Errorf("unexpected write error: %v", err)
	}
}
