// Package emitter parses a multipart/form-data body that is written into it
// chunk by chunk and reports every part to a Listener as it is found.
//
// The emitter owns a bounded byte buffer. Write never blocks: it reports
// saturation instead, and Drained signals when the writer may continue.
package emitter

//go:generate go run go.uber.org/mock/mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"mime/multipart"
	"net/textproto"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Structural limit kinds passed to Listener.Limit.
const (
	LimitParts  = "parts"
	LimitFiles  = "files"
	LimitFields = "fields"
)

var (
	// ErrTooManyHeaders is returned when the part headers are more than MaxHeaders.
	ErrTooManyHeaders = errors.New("too many headers")
	// ErrUnexpectedEnd is returned when the body ends before the closing boundary.
	ErrUnexpectedEnd = errors.New("unexpected end of form")
	// ErrDestroyed is the fault used when Destroy is called without a reason.
	ErrDestroyed = errors.New("parser destroyed")
	// ErrWriteAfterEnd is returned by Write once End has been called.
	ErrWriteAfterEnd = errors.New("write after end")
)

// Config holds the parser limits. Zero values are not replaced with defaults.
type Config struct {
	Boundary         string
	MaxParts         uint
	MaxFiles         uint
	MaxFields        uint
	MaxHeaders       uint
	MaxFieldSize     int64
	MaxFieldNameSize int64
	MaxFileSize      int64
	HighWaterMark    int
	Logger           *zap.Logger
	// OnTruncate is called from the reading goroutine when a file is truncated.
	OnTruncate func()
}

// Field is a non-file part.
type Field struct {
	Name           string
	Value          string
	Header         textproto.MIMEHeader
	NameTruncated  bool
	ValueTruncated bool
}

// File is a file part. Content must be drained or closed by the receiver.
type File struct {
	Name     string
	FileName string
	Header   textproto.MIMEHeader
	Content  *FileStream
}

// Listener receives parse events. Methods are called serially from the
// emitter goroutine, in the order the parts appear in the body.
// Exactly one of Finish and Error is called, last.
type Listener interface {
	Field(field Field)
	File(file File)
	Limit(kind string)
	Finish()
	Error(err error)
}

type Emitter struct {
	config   Config
	listener Listener
	logger   *zap.Logger
	buf      *buffer
	closing  *delimiterScanner
	received atomic.Int64

	destroyOnce sync.Once
	destroyed   chan struct{}
	done        chan struct{}

	mu  sync.Mutex
	err error
}

// New creates an emitter and starts parsing in the background.
// The goroutine exits once the body is fully parsed or the emitter is destroyed.
func New(config Config, listener Listener) *Emitter {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = math.MaxInt64
	}

	e := &Emitter{
		config:    config,
		listener:  listener,
		logger:    logger,
		buf:       newBuffer(config.HighWaterMark),
		destroyed: make(chan struct{}),
		done:      make(chan struct{}),
	}

	go e.run()

	return e
}

// Write queues p for parsing. p is copied. The returned bool reports whether
// the buffer is saturated, in which case the caller should wait for Drained.
func (e *Emitter) Write(p []byte) (bool, error) {
	e.received.Add(int64(len(p)))

	return e.buf.write(p)
}

// End signals that no more input is coming.
func (e *Emitter) End() error {
	if err := e.Err(); err != nil {
		return err
	}
	e.buf.end()

	return nil
}

// Drained is closed when the buffer is no longer saturated.
func (e *Emitter) Drained() <-chan struct{} {
	return e.buf.drained()
}

// Done is closed when parsing finished or failed.
func (e *Emitter) Done() <-chan struct{} {
	return e.done
}

// Err returns the fault, if any.
func (e *Emitter) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.err
}

// Buffered returns the number of bytes written but not yet parsed.
func (e *Emitter) Buffered() int {
	return e.buf.buffered()
}

// Destroy aborts parsing with err. A nil err is replaced by ErrDestroyed.
// Pending reads of an open FileStream fail with the same error.
func (e *Emitter) Destroy(err error) {
	if err == nil {
		err = ErrDestroyed
	}

	e.destroyOnce.Do(func() {
		e.setErr(err)
		e.buf.closeWithError(e.Err())
		close(e.destroyed)
	})
}

func (e *Emitter) setErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.err == nil {
		e.err = err
	}
}

func (e *Emitter) run() {
	defer close(e.done)

	err := e.parse()
	if err != nil {
		e.setErr(err)
		err = e.Err()
		e.buf.closeWithError(err)

		e.logger.Debug("multipart parse failed", zap.Error(err))
		e.listener.Error(err)
		return
	}

	// anything after the closing boundary is ignored
	e.buf.discard()

	e.logger.Debug("multipart parse finished", zap.Int64("bytes", e.received.Load()))
	e.listener.Finish()
}

func (e *Emitter) parse() error {
	var (
		parts, files, fields                uint
		partsLimit, filesLimit, fieldsLimit bool
		headers                             = e.config.MaxHeaders
	)

	e.closing = newDelimiterScanner(e.buf, e.config.Boundary)
	mr := multipart.NewReader(e.closing, e.config.Boundary)
	for {
		part, err := mr.NextRawPart()
		if err != nil {
			err = e.classify(err, true)
			if err == io.EOF {
				return nil
			}
			return err
		}

		if partsLimit {
			continue
		}
		if parts == e.config.MaxParts {
			partsLimit = true
			e.logger.Debug("parts limit reached", zap.Uint("limit", e.config.MaxParts))
			e.listener.Limit(LimitParts)
			continue
		}
		parts++

		for _, values := range part.Header {
			if headers < uint(len(values)) {
				return ErrTooManyHeaders
			}
			headers -= uint(len(values))
		}

		disposition, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
		if err != nil || disposition != "form-data" {
			continue
		}

		if _, ok := params["filename"]; ok {
			if filesLimit {
				continue
			}
			if files == e.config.MaxFiles {
				filesLimit = true
				e.logger.Debug("files limit reached", zap.Uint("limit", e.config.MaxFiles))
				e.listener.Limit(LimitFiles)
				continue
			}
			files++

			if err := e.emitFile(part, params["name"]); err != nil {
				return err
			}
			continue
		}

		if fieldsLimit {
			continue
		}
		if fields == e.config.MaxFields {
			fieldsLimit = true
			e.logger.Debug("fields limit reached", zap.Uint("limit", e.config.MaxFields))
			e.listener.Limit(LimitFields)
			continue
		}
		fields++

		if err := e.emitField(part, params["name"]); err != nil {
			return err
		}
	}
}

func (e *Emitter) emitFile(part *multipart.Part, name string) error {
	stream := newFileStream(part, e.config.MaxFileSize, e.config.OnTruncate)

	e.logger.Debug("file part found", zap.String("name", name))
	e.listener.File(File{
		Name:     name,
		FileName: part.FileName(),
		Header:   part.Header,
		Content:  stream,
	})

	select {
	case <-stream.Done():
	case <-e.destroyed:
		return e.Err()
	}

	if !errors.Is(stream.err, io.EOF) {
		return e.classify(stream.err, false)
	}

	return nil
}

var bufPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

func (e *Emitter) emitField(part *multipart.Part, name string) error {
	var nameTruncated bool
	if int64(len(name)) > e.config.MaxFieldNameSize {
		name = truncateName(name, e.config.MaxFieldNameSize)
		nameTruncated = true
	}

	buf, ok := bufPool.Get().(*bytes.Buffer)
	if !ok {
		buf = new(bytes.Buffer)
	}
	buf.Reset()
	defer bufPool.Put(buf)

	_, err := io.Copy(buf, io.LimitReader(part, e.config.MaxFieldSize))
	if err != nil {
		return e.classify(err, false)
	}

	rest, err := io.Copy(io.Discard, part)
	if err != nil {
		return e.classify(err, false)
	}

	e.logger.Debug("field part found", zap.String("name", name))
	e.listener.Field(Field{
		Name:           name,
		Value:          buf.String(),
		Header:         part.Header,
		NameTruncated:  nameTruncated,
		ValueTruncated: rest > 0,
	})

	return nil
}

// truncateName cuts name to at most size bytes without splitting a rune.
func truncateName(name string, size int64) string {
	cut := int(size)
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}

	return name[:cut]
}

// classify maps a read error to the fault reported to the listener.
func (e *Emitter) classify(err error, betweenParts bool) error {
	if destroyErr := e.Err(); destroyErr != nil {
		return destroyErr
	}

	switch {
	// a bare io.EOF is also returned for a body cut off inside part headers
	case betweenParts && err == io.EOF && e.closing.closed():
		return io.EOF
	case betweenParts && errors.Is(err, io.EOF) && e.received.Load() == 0:
		// nothing was ever written
		return io.EOF
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrUnexpectedEnd
	}

	return fmt.Errorf("failed to read part: %w", err)
}
