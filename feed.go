package formseq

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/mazrean/formseq/internal/pump"
)

// Settlement is the outcome of a Feed. It always resolves: a fault is stored,
// never raised, so an unobserved Settlement is harmless.
type Settlement struct {
	done chan struct{}
	err  error
}

func newSettlement() *Settlement {
	return &Settlement{done: make(chan struct{})}
}

func (s *Settlement) resolve(err error) {
	s.err = err
	close(s.done)
}

// Done is closed once feeding finished or failed.
func (s *Settlement) Done() <-chan struct{} {
	return s.done
}

// Err returns the feed fault. It returns nil until Done is closed.
func (s *Settlement) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until the feed settled and returns its fault.
func (s *Settlement) Wait() error {
	<-s.done
	return s.err
}

// Feed copies r into the parser on a new goroutine, pausing whenever the
// parser buffered more than the high-water mark.
//
// On the first fault of r or the parser, both are torn down: r is closed if
// it is an io.Closer and the parser is destroyed. The fault is captured once;
// Next returns it after the events queued before it, and the returned
// Settlement resolves with the same value once the parser has consumed the
// whole body, so a fault found in its tail settles the feed too. Cancelling
// ctx is such a fault.
//
// Feed may be called only once per Parser.
func (p *Parser) Feed(ctx context.Context, r io.Reader) *Settlement {
	s := newSettlement()

	if !p.fed.CompareAndSwap(false, true) {
		s.resolve(ErrAlreadyFed)
		return s
	}

	go func() {
		err := pump.Run(ctx, r, p.emitter, pump.Options{
			ChunkSize: int(p.chunkSize),
			Logger:    p.logger,
			Metrics:   p.metrics,
		})
		if err != nil {
			err = p.seq.fail(err)
			if p.faultHandler != nil {
				p.faultHandler(err)
			}
		}

		s.resolve(err)
	}()

	return s
}

// Run feeds r and calls fn for every event until the body is exhausted.
//
// A file's content is released after fn returns: content fn left unread is
// discarded. If fn returns an error the parser is destroyed and Run returns
// that error.
func (p *Parser) Run(ctx context.Context, r io.Reader, fn func(Event) error) error {
	eg, ctx := errgroup.WithContext(ctx)

	settlement := p.Feed(ctx, r)
	eg.Go(settlement.Wait)

	eg.Go(func() error {
		for ev, err := range p.Events(ctx) {
			if err != nil {
				return err
			}

			err = fn(ev)
			if file, ok := ev.(*FileEvent); ok {
				if closeErr := file.Content.Close(); err == nil && closeErr != nil {
					err = fmt.Errorf("failed to discard file content: %w", closeErr)
				}
			}
			if err != nil {
				p.Destroy(err)
				return err
			}
		}

		return nil
	})

	return eg.Wait()
}
