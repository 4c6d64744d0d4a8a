package formseq

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"

	"go.uber.org/zap"

	"github.com/mazrean/formseq/internal/emitter"
	"github.com/mazrean/formseq/internal/pump"
	"github.com/mazrean/formseq/metrics"
)

// sequence collects parse events in emission order and hands them out one at
// a time. It implements emitter.Listener.
type sequence struct {
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	queue    []Event
	head     int
	finished bool
	err      error
	// notify holds at most one pending wake-up for the consumer.
	notify chan struct{}
}

var _ emitter.Listener = (*sequence)(nil)

func newSequence(logger *zap.Logger, m *metrics.Metrics) *sequence {
	return &sequence{
		logger:  logger,
		metrics: m,
		notify:  make(chan struct{}, 1),
	}
}

func (s *sequence) Field(f emitter.Field) {
	s.push(newFieldEvent(f), "field")
}

func (s *sequence) File(f emitter.File) {
	s.push(newFileEvent(f), "file")
}

func (s *sequence) Limit(kind string) {
	s.logger.Info("multipart limit exceeded", zap.String("limit", kind))
	s.push(&LimitEvent{Kind: LimitKind(kind)}, "limit")
}

func (s *sequence) Finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()

	s.wake()
}

func (s *sequence) Error(err error) {
	s.fail(pump.NewFault(pump.OriginParser, err))
}

func (s *sequence) push(ev Event, kind string) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	s.metrics.IncEvent(kind)
	s.wake()
}

// fail captures err unless a fault was captured before.
// It returns the fault that is kept.
func (s *sequence) fail(err error) error {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	err = s.err
	s.mu.Unlock()

	s.wake()

	return err
}

func (s *sequence) fault() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

func (s *sequence) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// next returns the oldest queued event. Once the queue is empty it returns the
// captured fault, or io.EOF when parsing finished. Otherwise it waits.
func (s *sequence) next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if s.head < len(s.queue) {
			ev := s.queue[s.head]
			s.queue[s.head] = nil
			s.head++
			if s.head == len(s.queue) {
				s.queue = s.queue[:0]
				s.head = 0
			}
			s.mu.Unlock()

			return ev, nil
		}
		err, finished := s.err, s.finished
		s.mu.Unlock()

		if err != nil {
			return nil, err
		}
		if finished {
			return nil, io.EOF
		}

		select {
		case <-s.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Next returns the next event in body order.
//
// It blocks until an event is available, the body is exhausted (io.EOF), a
// fault was captured, or ctx is done. Events queued before a fault are
// returned before the fault. Once Next returned io.EOF or a fault, it keeps
// returning it.
//
// A cancelled ctx only stops waiting; use Destroy to abort parsing.
// Next must not be called concurrently.
func (p *Parser) Next(ctx context.Context) (Event, error) {
	return p.seq.next(ctx)
}

// Events returns the event sequence as an iterator. Iteration stops after the
// last event; a fault or ctx error is yielded as a final (nil, err) pair.
//
//	for ev, err := range parser.Events(ctx) {
//		if err != nil {
//			return err
//		}
//		...
//	}
func (p *Parser) Events(ctx context.Context) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := p.seq.next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// Err returns the captured fault, or nil.
func (p *Parser) Err() error {
	return p.seq.fault()
}
