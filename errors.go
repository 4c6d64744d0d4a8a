package formseq

import (
	"errors"

	"github.com/mazrean/formseq/internal/emitter"
	"github.com/mazrean/formseq/internal/pump"
)

var (
	// ErrTooManyHeaders is returned when the headers are more than MaxHeaders.
	ErrTooManyHeaders = emitter.ErrTooManyHeaders
	// ErrUnexpectedEnd is returned when the body ends before its closing boundary.
	ErrUnexpectedEnd = emitter.ErrUnexpectedEnd
	// ErrDestroyed is the fault of a parser destroyed without a reason.
	ErrDestroyed = emitter.ErrDestroyed
	// ErrUnknown stands in for a fault reported without an error value.
	ErrUnknown = pump.ErrUnknown
	// ErrAlreadyFed is returned when Feed is called twice on one Parser.
	ErrAlreadyFed = errors.New("parser already fed")
)

// FaultError is a fault that ended a parse. Origin tells whether the body
// reader, the parser or the feed context failed; Err is the original error.
//
// Faults caused by the body are client errors: malformed input or a
// disconnect, not a server failure.
type FaultError = pump.FaultError

type FaultOrigin = pump.Origin

const (
	OriginSource  = pump.OriginSource
	OriginParser  = pump.OriginParser
	OriginContext = pump.OriginContext
)
