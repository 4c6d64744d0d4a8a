// Package pump moves bytes from a reader into a backpressure-aware sink.
package pump

//go:generate go run go.uber.org/mock/mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/mazrean/formseq/metrics"
)

// Sink is the writable side of a parser.
type Sink interface {
	// Write queues p and reports whether the sink is saturated.
	Write(p []byte) (saturated bool, err error)
	// End signals that no more input is coming.
	End() error
	// Drained is closed once a saturated sink accepts writes again.
	Drained() <-chan struct{}
	// Done is closed when the sink finished or failed.
	Done() <-chan struct{}
	// Err returns the sink fault, if any.
	Err() error
	// Destroy aborts the sink with err.
	Destroy(err error)
}

// Origin tells which side of the pump a fault came from.
type Origin int

const (
	OriginSource Origin = iota + 1
	OriginParser
	OriginContext
)

func (o Origin) String() string {
	switch o {
	case OriginSource:
		return "source"
	case OriginParser:
		return "parser"
	case OriginContext:
		return "context"
	default:
		return "unknown"
	}
}

// ErrUnknown replaces a fault that carried no error value.
var ErrUnknown = errors.New("unknown error")

// FaultError is a fault captured while feeding a body.
type FaultError struct {
	Origin Origin
	Err    error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s fault: %v", e.Origin, e.Err)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}

// NewFault wraps err as a fault of the given origin.
// An error that already is a *FaultError is returned unchanged.
func NewFault(origin Origin, err error) error {
	if err == nil {
		err = ErrUnknown
	}

	var fault *FaultError
	if errors.As(err, &fault) {
		return err
	}

	return &FaultError{Origin: origin, Err: err}
}

const (
	DefaultChunkSize = 32 * 1024
	// maxEmptyReads matches the patience of bufio.Reader.
	maxEmptyReads = 100
)

type Options struct {
	ChunkSize int
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Run drains src into sink until src reports io.EOF, then ends the sink and
// waits for it to finish.
// On the first fault from either side both sides are torn down: the sink is
// destroyed and src is closed if it implements io.Closer. The returned error
// is always a *FaultError.
func Run(ctx context.Context, src io.Reader, sink Sink, opts Options) error {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &pump{
		src:     src,
		sink:    sink,
		logger:  logger,
		metrics: opts.Metrics,
		buf:     make([]byte, opts.ChunkSize),
	}

	stop := p.watch(ctx)
	defer stop()

	err := p.loop(ctx)
	if err != nil {
		p.teardown(err)
		logger.Warn("feeding multipart body failed", zap.Error(err))
		opts.Metrics.IncFault(faultOrigin(err))
	}

	return err
}

type pump struct {
	src     io.Reader
	sink    Sink
	logger  *zap.Logger
	metrics *metrics.Metrics
	buf     []byte

	closeOnce sync.Once
}

func (p *pump) loop(ctx context.Context) error {
	var (
		saturated  bool
		emptyReads int
	)
	for {
		if saturated {
			if err := p.waitDrain(ctx); err != nil {
				return err
			}
			saturated = false
		}

		n, readErr := p.src.Read(p.buf)
		if n > 0 {
			emptyReads = 0

			var err error
			saturated, err = p.sink.Write(p.buf[:n])
			if err != nil {
				return NewFault(OriginParser, err)
			}
			p.metrics.AddBytes(n)
		}

		switch {
		case errors.Is(readErr, io.EOF):
			if saturated {
				if err := p.waitDrain(ctx); err != nil {
					return err
				}
			}
			if err := p.sink.End(); err != nil {
				return NewFault(OriginParser, err)
			}
			p.logger.Debug("multipart body fed")

			return p.waitFinish(ctx)
		case readErr != nil:
			// the watcher may have closed src because of one of these
			if err := p.sink.Err(); err != nil {
				return NewFault(OriginParser, err)
			}
			if err := ctx.Err(); err != nil {
				return NewFault(OriginContext, err)
			}
			return NewFault(OriginSource, readErr)
		case n == 0:
			emptyReads++
			if emptyReads >= maxEmptyReads {
				return NewFault(OriginSource, io.ErrNoProgress)
			}
		}
	}
}

func (p *pump) waitDrain(ctx context.Context) error {
	p.logger.Debug("sink saturated, waiting for drain")
	p.metrics.IncDrainWait()

	select {
	case <-p.sink.Drained():
		return nil
	case <-p.sink.Done():
		if err := p.sink.Err(); err != nil {
			return NewFault(OriginParser, err)
		}
		// the sink finished early and discards the rest
		return nil
	case <-ctx.Done():
		return NewFault(OriginContext, ctx.Err())
	}
}

// waitFinish waits until the sink parsed everything it was given, so that a
// fault found in the tail of the body still settles the pump.
func (p *pump) waitFinish(ctx context.Context) error {
	select {
	case <-p.sink.Done():
		if err := p.sink.Err(); err != nil {
			return NewFault(OriginParser, err)
		}
		return nil
	case <-ctx.Done():
		return NewFault(OriginContext, ctx.Err())
	}
}

// watch closes the source when the sink fails or ctx is cancelled, so that a
// Read blocked on a silent peer returns.
func (p *pump) watch(ctx context.Context) func() {
	var (
		stop   = make(chan struct{})
		exited = make(chan struct{})
		done   = p.sink.Done()
	)
	stopCtx := context.AfterFunc(ctx, p.closeSource)

	go func() {
		defer close(exited)

		select {
		case <-done:
			if p.sink.Err() != nil {
				p.closeSource()
			}
		case <-stop:
		}
	}()

	return func() {
		stopCtx()
		close(stop)
		<-exited
	}
}

func (p *pump) teardown(err error) {
	p.sink.Destroy(err)
	p.closeSource()
}

func (p *pump) closeSource() {
	c, ok := p.src.(io.Closer)
	if !ok {
		return
	}

	p.closeOnce.Do(func() {
		if err := c.Close(); err != nil {
			p.logger.Debug("failed to close source", zap.Error(err))
		}
	})
}

func faultOrigin(err error) string {
	var fault *FaultError
	if errors.As(err, &fault) {
		return fault.Origin.String()
	}

	return OriginSource.String()
}
