package formseq

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mazrean/formseq/internal/emitter"
	"github.com/mazrean/formseq/metrics"
)

// Parser turns one multipart/form-data body into an ordered sequence of events.
//
// Feed starts copying the body into the parser; Next and Events consume the
// parsed events at the caller's pace. A Parser handles a single body and
// cannot be reused.
type Parser struct {
	boundary string
	parserConfig
	seq     *sequence
	emitter *emitter.Emitter
	fed     atomic.Bool
}

// NewParser creates a parser for a body delimited by boundary.
// Parsing starts in the background and waits for Feed to supply bytes.
func NewParser(boundary string, options ...ParserOption) *Parser {
	c := parserConfig{
		maxParts:         defaultMaxParts,
		maxFiles:         defaultMaxFiles,
		maxFields:        defaultMaxFields,
		maxHeaders:       defaultMaxHeaders,
		maxFieldSize:     defaultMaxFieldSize,
		maxFieldNameSize: defaultMaxFieldNameSize,
		maxFileSize:      defaultMaxFileSize,
		highWaterMark:    defaultHighWaterMark,
		chunkSize:        defaultChunkSize,
		logger:           zap.NewNop(),
	}
	for _, opt := range options {
		opt(&c)
	}

	seq := newSequence(c.logger, c.metrics)

	return &Parser{
		boundary:     boundary,
		parserConfig: c,
		seq:          seq,
		emitter: emitter.New(emitter.Config{
			Boundary:         boundary,
			MaxParts:         c.maxParts,
			MaxFiles:         c.maxFiles,
			MaxFields:        c.maxFields,
			MaxHeaders:       c.maxHeaders,
			MaxFieldSize:     int64(c.maxFieldSize),
			MaxFieldNameSize: int64(c.maxFieldNameSize),
			MaxFileSize:      int64(c.maxFileSize),
			HighWaterMark:    int(c.highWaterMark),
			Logger:           c.logger,
			OnTruncate:       c.metrics.IncTruncatedFile,
		}, seq),
	}
}

// Destroy aborts parsing. Open file contents and a running Feed fail with err,
// and so does the event sequence once the events queued so far are consumed.
// A nil err is replaced by ErrDestroyed.
func (p *Parser) Destroy(err error) {
	p.emitter.Destroy(err)
}

// Close destroys the parser unless it already finished.
func (p *Parser) Close() error {
	select {
	case <-p.emitter.Done():
	default:
		p.Destroy(ErrDestroyed)
	}

	return nil
}

type parserConfig struct {
	maxParts         uint
	maxFiles         uint
	maxFields        uint
	maxHeaders       uint
	maxFieldSize     DataSize
	maxFieldNameSize DataSize
	maxFileSize      DataSize
	highWaterMark    DataSize
	chunkSize        DataSize
	logger           *zap.Logger
	metrics          *metrics.Metrics
	faultHandler     func(error)
}

type ParserOption func(*parserConfig)

type DataSize int64

const (
	_ DataSize = 1 << (iota * 10)
	KB
	MB
	GB
)

const (
	defaultMaxParts         = 10000
	defaultMaxFiles         = 10000
	defaultMaxFields        = 10000
	defaultMaxHeaders       = 10000
	defaultMaxFieldSize     = 1 * MB
	defaultMaxFieldNameSize = 100
	defaultMaxFileSize      = 0
	defaultHighWaterMark    = 64 * KB
	defaultChunkSize        = 32 * KB
)

// WithMaxParts sets the maximum number of parts to be parsed.
// Parts beyond it are skipped and reported once as a LimitParts event.
// default: 10000
func WithMaxParts(maxParts uint) ParserOption {
	return func(c *parserConfig) {
		c.maxParts = maxParts
	}
}

// WithMaxFiles sets the maximum number of file parts.
// default: 10000
func WithMaxFiles(maxFiles uint) ParserOption {
	return func(c *parserConfig) {
		c.maxFiles = maxFiles
	}
}

// WithMaxFields sets the maximum number of non-file parts.
// default: 10000
func WithMaxFields(maxFields uint) ParserOption {
	return func(c *parserConfig) {
		c.maxFields = maxFields
	}
}

// WithMaxHeaders sets the maximum number of headers to be parsed.
// Exceeding it aborts parsing with ErrTooManyHeaders.
// default: 10000
func WithMaxHeaders(maxHeaders uint) ParserOption {
	return func(c *parserConfig) {
		c.maxHeaders = maxHeaders
	}
}

// WithMaxFieldSize sets the maximum size of a field value. Longer values are
// truncated and flagged with ValueTruncated.
// default: 1MB
func WithMaxFieldSize(size DataSize) ParserOption {
	return func(c *parserConfig) {
		c.maxFieldSize = size
	}
}

// WithMaxFieldNameSize sets the maximum size of a field name.
// default: 100B
func WithMaxFieldNameSize(size DataSize) ParserOption {
	return func(c *parserConfig) {
		c.maxFieldNameSize = size
	}
}

// WithMaxFileSize sets the maximum size of one file content. Longer contents
// are truncated and report Truncated() once drained. Zero means no limit.
// default: no limit
func WithMaxFileSize(size DataSize) ParserOption {
	return func(c *parserConfig) {
		c.maxFileSize = size
	}
}

// WithHighWaterMark sets how many unparsed bytes the parser buffers before
// feeding pauses.
// default: 64KB
func WithHighWaterMark(size DataSize) ParserOption {
	return func(c *parserConfig) {
		c.highWaterMark = size
	}
}

// WithChunkSize sets the size of a single read from the body.
// default: 32KB
func WithChunkSize(size DataSize) ParserOption {
	return func(c *parserConfig) {
		c.chunkSize = size
	}
}

func WithLogger(logger *zap.Logger) ParserOption {
	return func(c *parserConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) ParserOption {
	return func(c *parserConfig) {
		c.metrics = m
	}
}

// WithFaultHandler sets a function called with the fault when Feed fails.
// It runs on the feeding goroutine, after the fault has been captured.
func WithFaultHandler(fn func(error)) ParserOption {
	return func(c *parserConfig) {
		c.faultHandler = fn
	}
}
