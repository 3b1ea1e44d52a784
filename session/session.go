package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/glassbead-io/prism/iox"
	"github.com/glassbead-io/prism/log"
	"github.com/glassbead-io/prism/metrics"
	"github.com/glassbead-io/prism/sse"
	"github.com/glassbead-io/prism/types"
)

// readBufferSize is the transport read buffer size.
const readBufferSize = 4096

// TransportError classifies a transport-level failure: connection drop,
// short body, or any read error that is not a clean stream end.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if err is a transport-level failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// EventSink receives every decoded event in dispatch order. Used to tee a
// session to a capture file. Sink errors are logged, never fatal.
type EventSink interface {
	WriteEvent(ev types.Event) error
}

// Config configures a single streaming session.
type Config struct {
	// Meta is the session identity (required).
	Meta *types.SessionMeta
	// Handlers receive dispatched callbacks.
	Handlers Handlers
	// Collector records session metrics. Optional; nil disables metrics.
	Collector *metrics.Collector
	// Sink tees decoded events, e.g. to a capture file. Optional.
	Sink EventSink
	// Logger overrides the session logger. Optional.
	Logger *log.Logger
}

// Session drives one byte stream to completion: a single sequential
// pull-based loop with no parallel workers. Suspension occurs only while
// awaiting the next chunk; all parsing and dispatch between chunks is
// synchronous.
type Session struct {
	meta      *types.SessionMeta
	handlers  Handlers
	logger    *log.Logger
	collector *metrics.Collector
	sink      EventSink

	state     *State
	splitter  *sse.Splitter
	carry     utf8Carry
	dispatch  *Dispatcher
	completed bool
}

// New creates a session. Returns an error if metadata is invalid.
func New(cfg Config) (*Session, error) {
	if err := cfg.Meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session metadata: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewLogger(cfg.Meta)
	}

	state := NewState()
	return &Session{
		meta:      cfg.Meta,
		handlers:  cfg.Handlers,
		logger:    logger,
		collector: cfg.Collector,
		sink:      cfg.Sink,
		state:     state,
		splitter:  sse.NewSplitter(),
		dispatch:  NewDispatcher(state, cfg.Handlers, logger, cfg.Collector),
	}, nil
}

// State returns the session's accumulation state.
func (s *Session) State() *State {
	return s.state
}

// Run pumps the byte stream through split, decode, and dispatch until the
// stream ends, the transport fails, or ctx is canceled.
//
// On clean stream end the trailing buffered remainder is flushed through
// the same pipeline before completion. The terminal OnComplete callback
// fires exactly once on every exit path, even when zero events were
// produced, and the reader is always released. After cancellation no
// further event callbacks are invoked.
//
// Returns nil on clean completion, a *TransportError on transport failure,
// or the context error on cancellation.
func (s *Session) Run(ctx context.Context, body io.ReadCloser) error {
	defer iox.DiscardClose(body)

	// Unblock a pending Read when the caller abandons the session.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			iox.DiscardClose(body)
		case <-watchDone:
		}
	}()

	buf := make([]byte, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return s.cancel(err)
		}

		n, err := body.Read(buf)
		if n > 0 {
			s.collector.AddBytesRead(int64(n))
			for _, raw := range s.splitter.Push(s.carry.decode(buf[:n])) {
				s.processFrame(raw)
			}
		}
		if err == nil {
			continue
		}

		if errors.Is(err, io.EOF) {
			s.flushRemainder()
			s.complete(nil)
			return nil
		}
		if ctx.Err() != nil {
			// The watcher closed the reader out from under us.
			return s.cancel(ctx.Err())
		}

		s.collector.IncTransportErrors()
		terr := &TransportError{Err: err}
		s.logger.Error("stream read failed", map[string]any{
			"error": err.Error(),
		})
		if s.handlers.OnError != nil {
			s.handlers.OnError(terr)
		}
		s.complete(terr)
		return terr
	}
}

// processFrame scans, decodes, and dispatches one complete frame.
func (s *Session) processFrame(raw string) {
	s.collector.IncFramesSplit()

	frame := sse.ScanFrame(raw)
	for _, line := range frame.Unexpected {
		s.logger.Warn("unexpected line in frame", map[string]any{
			"line": line,
		})
	}

	ev, outcome := sse.Decode(frame)
	switch outcome {
	case sse.OutcomeSkip:
		return
	case sse.OutcomeEvent:
		s.collector.IncEventDecoded(string(ev.Type()))
	case sse.OutcomeMalformed:
		// Synthesized locally. Counted here as a decode error and routed
		// straight to the error handler so it never reaches the dispatcher's
		// backend-error counter.
		s.collector.IncDecodeErrors()
		s.writeSink(ev)
		if s.handlers.OnError != nil {
			s.handlers.OnError(ev.(types.ErrorEvent))
		}
		return
	case sse.OutcomeUnknown:
		// Counted by the dispatcher's unknown-event path.
	}

	s.writeSink(ev)
	s.dispatch.Dispatch(ev)
}

func (s *Session) writeSink(ev types.Event) {
	if s.sink == nil {
		return
	}
	if err := s.sink.WriteEvent(ev); err != nil {
		s.logger.Warn("event sink write failed", map[string]any{
			"error": err.Error(),
		})
	}
}

// flushRemainder pushes the trailing partial frame through the pipeline
// at stream end, best effort.
func (s *Session) flushRemainder() {
	if tail := s.carry.flush(); tail != "" {
		for _, raw := range s.splitter.Push(tail) {
			s.processFrame(raw)
		}
	}
	if remainder, ok := s.splitter.Flush(); ok {
		s.processFrame(remainder)
	}
}

// cancel handles caller abandonment: no further event callbacks, at most
// one terminal signal, reader released by the deferred close.
func (s *Session) cancel(err error) error {
	s.collector.IncSessionCanceled()
	s.logger.Info("session canceled", map[string]any{
		"error": err.Error(),
	})
	s.complete(err)
	return err
}

// complete fires the terminal notification exactly once.
func (s *Session) complete(err error) {
	if s.completed {
		return
	}
	s.completed = true
	s.collector.IncSessionCompleted()
	if s.handlers.OnComplete != nil {
		s.handlers.OnComplete(err)
	}
}
