package emitter

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestDelimiterScanner(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		body   string
		closed bool
	}{
		"closing delimiter": {
			body:   "--boundary\r\n\r\nvalue\r\n--boundary--\r\n",
			closed: true,
		},
		"closing delimiter with LF": {
			body:   "--boundary\n\nvalue\n--boundary--",
			closed: true,
		},
		"body opens with closing delimiter": {
			body:   "--boundary--\r\n",
			closed: true,
		},
		"part delimiter only": {
			body: "--boundary\r\n\r\nvalue\r\n--boundary\r\n",
		},
		"delimiter without line break before it": {
			body: "value--boundary--",
		},
		"empty": {
			body: "",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			// one byte at a time, so the delimiter spans reads
			s := newDelimiterScanner(iotest.OneByteReader(strings.NewReader(tt.body)), "boundary")
			if _, err := io.Copy(io.Discard, s); err != nil {
				t.Fatalf("failed to read: %v", err)
			}
			if s.closed() != tt.closed {
				t.Errorf("unexpected closed: expected %t, actual %t", tt.closed, s.closed())
			}

			s = newDelimiterScanner(strings.NewReader(tt.body), "boundary")
			if _, err := io.ReadAll(s); err != nil {
				t.Fatalf("failed to read: %v", err)
			}
			if s.closed() != tt.closed {
				t.Errorf("unexpected closed in a single read: expected %t, actual %t", tt.closed, s.closed())
			}
		})
	}
}
