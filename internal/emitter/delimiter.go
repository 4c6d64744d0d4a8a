package emitter

import (
	"bytes"
	"io"
)

// delimiterScanner passes reads through and remembers whether the closing
// delimiter of the body went by. multipart.Reader reports both a closed body
// and a body cut off inside part headers as a bare io.EOF.
type delimiterScanner struct {
	r     io.Reader
	delim []byte
	// tail holds the last len(delim)-1 bytes read.
	tail []byte
	seen bool
}

func newDelimiterScanner(r io.Reader, boundary string) *delimiterScanner {
	return &delimiterScanner{
		r:     r,
		delim: []byte("\n--" + boundary + "--"),
		// the body may open with the closing delimiter
		tail: []byte("\n"),
	}
}

func (s *delimiterScanner) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if n > 0 && !s.seen {
		s.scan(p[:n])
	}

	return n, err
}

func (s *delimiterScanner) scan(p []byte) {
	keep := len(s.delim) - 1

	s.tail = append(s.tail, p[:min(len(p), keep)]...)
	if bytes.Contains(s.tail, s.delim) || bytes.Contains(p, s.delim) {
		s.seen = true
		return
	}

	if len(p) >= keep {
		s.tail = append(s.tail[:0], p[len(p)-keep:]...)
		return
	}
	if over := len(s.tail) - keep; over > 0 {
		s.tail = append(s.tail[:0], s.tail[over:]...)
	}
}

// closed reports whether the closing delimiter was read.
func (s *delimiterScanner) closed() bool {
	return s.seen
}
