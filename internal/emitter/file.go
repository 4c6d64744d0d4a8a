package emitter

import (
	"errors"
	"io"
	"sync"
)

// FileStream is the content of one file part.
// It must be read to EOF or closed before the emitter moves on to the next part.
type FileStream struct {
	r         io.Reader
	remaining int64
	truncated bool
	err       error

	once sync.Once
	done chan struct{}
	// onTruncate runs once when the size limit cut the content short.
	onTruncate func()
}

func newFileStream(r io.Reader, maxSize int64, onTruncate func()) *FileStream {
	return &FileStream{
		r:          r,
		remaining:  maxSize,
		done:       make(chan struct{}),
		onTruncate: onTruncate,
	}
}

func (s *FileStream) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}

	if s.remaining <= 0 {
		n, err := io.Copy(io.Discard, s.r)
		if n > 0 {
			s.markTruncated()
		}
		if err != nil {
			s.finish(err)
			return 0, err
		}

		s.finish(io.EOF)
		return 0, io.EOF
	}

	if int64(len(p)) > s.remaining {
		p = p[:s.remaining]
	}

	n, err := s.r.Read(p)
	s.remaining -= int64(n)
	switch {
	case errors.Is(err, io.EOF):
		s.finish(io.EOF)
		return n, io.EOF
	case err != nil:
		s.finish(err)
		return n, err
	}

	return n, nil
}

// Close discards whatever is left of the content.
func (s *FileStream) Close() error {
	if s.err != nil {
		return nil
	}

	_, err := io.Copy(io.Discard, s)
	if err != nil {
		return err
	}

	return nil
}

// Truncated reports whether the content exceeded the file size limit.
// It is only meaningful once the stream has been drained.
func (s *FileStream) Truncated() bool {
	return s.truncated
}

// Done is closed once the stream reached EOF or failed.
func (s *FileStream) Done() <-chan struct{} {
	return s.done
}

func (s *FileStream) markTruncated() {
	if s.truncated {
		return
	}
	s.truncated = true
	if s.onTruncate != nil {
		s.onTruncate()
	}
}

func (s *FileStream) finish(err error) {
	s.err = err
	s.once.Do(func() {
		close(s.done)
	})
}
