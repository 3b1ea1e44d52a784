// Package metrics provides per-session metrics collection.
//
// The Collector accumulates counters during a single stream session. It is
// a leaf package with no internal dependencies. All increment methods are
// nil-receiver safe so callers may run without metrics.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all session metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Wire
	BytesRead     int64
	FramesSplit   int64
	EventsDecoded int64
	EventsByType  map[string]int64
	DecodeErrors  int64
	UnknownEvents int64

	// Dispatch
	ValidationErrors int64
	BackendErrors    int64

	// Session lifecycle
	TransportErrors   int64
	SessionsCompleted int64
	SessionsCanceled  int64

	// Transform
	ArtifactsPrepared int64

	// Dimensions (informational, set at construction)
	SessionID string
	Backend   string
}

// Collector accumulates metrics during a single session.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	bytesRead     int64
	framesSplit   int64
	eventsDecoded int64
	eventsByType  map[string]int64
	decodeErrors  int64
	unknownEvents int64

	validationErrors int64
	backendErrors    int64

	transportErrors   int64
	sessionsCompleted int64
	sessionsCanceled  int64

	artifactsPrepared int64

	sessionID string
	backend   string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(sessionID, backend string) *Collector {
	return &Collector{
		eventsByType: make(map[string]int64),
		sessionID:    sessionID,
		backend:      backend,
	}
}

// AddBytesRead records bytes pulled from the transport.
func (c *Collector) AddBytesRead(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.bytesRead += n
	c.mu.Unlock()
}

// IncFramesSplit records a completed frame leaving the splitter.
func (c *Collector) IncFramesSplit() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.framesSplit++
	c.mu.Unlock()
}

// IncEventDecoded records one decoded event of the given type.
func (c *Collector) IncEventDecoded(eventType string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsDecoded++
	c.eventsByType[eventType]++
	c.mu.Unlock()
}

// IncDecodeErrors records a payload that failed decoding.
func (c *Collector) IncDecodeErrors() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.decodeErrors++
	c.mu.Unlock()
}

// IncUnknownEvents records a payload with an unrecognized type tag.
func (c *Collector) IncUnknownEvents() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.unknownEvents++
	c.mu.Unlock()
}

// IncValidationErrors records an event rejected by dispatch validation.
func (c *Collector) IncValidationErrors() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.validationErrors++
	c.mu.Unlock()
}

// IncBackendErrors records a backend-reported error event.
func (c *Collector) IncBackendErrors() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.backendErrors++
	c.mu.Unlock()
}

// IncTransportErrors records a transport-level failure.
func (c *Collector) IncTransportErrors() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.transportErrors++
	c.mu.Unlock()
}

// IncSessionCompleted records a session reaching its terminal signal.
func (c *Collector) IncSessionCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsCompleted++
	c.mu.Unlock()
}

// IncSessionCanceled records a caller-abandoned session.
func (c *Collector) IncSessionCanceled() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsCanceled++
	c.mu.Unlock()
}

// IncArtifactsPrepared records a transform pipeline pass.
func (c *Collector) IncArtifactsPrepared() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.artifactsPrepared++
	c.mu.Unlock()
}

// Snapshot returns an immutable copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{EventsByType: map[string]int64{}}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byType := make(map[string]int64, len(c.eventsByType))
	for k, v := range c.eventsByType {
		byType[k] = v
	}

	return Snapshot{
		BytesRead:         c.bytesRead,
		FramesSplit:       c.framesSplit,
		EventsDecoded:     c.eventsDecoded,
		EventsByType:      byType,
		DecodeErrors:      c.decodeErrors,
		UnknownEvents:     c.unknownEvents,
		ValidationErrors:  c.validationErrors,
		BackendErrors:     c.backendErrors,
		TransportErrors:   c.transportErrors,
		SessionsCompleted: c.sessionsCompleted,
		SessionsCanceled:  c.sessionsCanceled,
		ArtifactsPrepared: c.artifactsPrepared,
		SessionID:         c.sessionID,
		Backend:           c.backend,
	}
}
