package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/glassbead-io/prism/log"
	"github.com/glassbead-io/prism/metrics"
	"github.com/glassbead-io/prism/transform"
	"github.com/glassbead-io/prism/types"
)

// recorder collects handler callbacks in arrival order.
type recorder struct {
	thoughts  []string
	chunks    []string
	accums    []string
	data      []types.QueryResult
	errs      []error
	completes []error
	order     []string
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnThought: func(content string) {
			r.thoughts = append(r.thoughts, content)
			r.order = append(r.order, "thought")
		},
		OnCode: func(chunk, accumulated string) {
			r.chunks = append(r.chunks, chunk)
			r.accums = append(r.accums, accumulated)
			r.order = append(r.order, "code")
		},
		OnData: func(result types.QueryResult) {
			r.data = append(r.data, result)
			r.order = append(r.order, "data")
		},
		OnError: func(err error) {
			r.errs = append(r.errs, err)
			r.order = append(r.order, "error")
		},
		OnComplete: func(err error) {
			r.completes = append(r.completes, err)
			r.order = append(r.order, "complete")
		},
	}
}

func testMeta() *types.SessionMeta {
	return &types.SessionMeta{SessionID: "sess-test", Prompt: "show sales"}
}

func newTestSession(t *testing.T, rec *recorder) *Session {
	t.Helper()
	meta := testMeta()
	s, err := New(Config{
		Meta:      meta,
		Handlers:  rec.handlers(),
		Collector: metrics.NewCollector(meta.SessionID, "test"),
		Logger:    log.NewLogger(meta).WithOutput(io.Discard),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func frame(tag, payload string) string {
	return "event: " + tag + "\ndata: " + payload + "\n\n"
}

func TestSession_FullScenario(t *testing.T) {
	stream := frame("thought", `{"type":"thought","content":"analyzing"}`) +
		frame("code", `{"type":"code","language":"tsx","content":"A"}`) +
		frame("code", `{"type":"code","language":"tsx","content":"B"}`) +
		frame("data", `{"type":"data","payload":{"columns":["a"],"rows":[[1]],"row_count":1}}`)

	rec := &recorder{}
	s := newTestSession(t, rec)

	if err := s.Run(context.Background(), io.NopCloser(strings.NewReader(stream))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantOrder := []string{"thought", "code", "code", "data", "complete"}
	if strings.Join(rec.order, ",") != strings.Join(wantOrder, ",") {
		t.Errorf("order = %v, want %v", rec.order, wantOrder)
	}
	if got := s.State().CodeText(); got != "AB" {
		t.Errorf("CodeText = %q, want %q", got, "AB")
	}
	if rec.accums[1] != "AB" {
		t.Errorf("running accumulation = %q, want %q", rec.accums[1], "AB")
	}
	if s.State().ThoughtText() != "analyzing" {
		t.Errorf("ThoughtText = %q", s.State().ThoughtText())
	}
	if s.State().LatestData() == nil || s.State().LatestData().RowCount != 1 {
		t.Errorf("LatestData = %+v", s.State().LatestData())
	}
	if len(rec.errs) != 0 {
		t.Errorf("errs = %v, want none", rec.errs)
	}
	if len(rec.completes) != 1 || rec.completes[0] != nil {
		t.Errorf("completes = %v, want one nil", rec.completes)
	}
}

func TestSession_ThoughtReplacedWholesale(t *testing.T) {
	stream := frame("thought", `{"type":"thought","content":"first"}`) +
		frame("thought", `{"type":"thought","content":"second"}`)

	rec := &recorder{}
	s := newTestSession(t, rec)
	if err := s.Run(context.Background(), io.NopCloser(strings.NewReader(stream))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := s.State().ThoughtText(); got != "second" {
		t.Errorf("ThoughtText = %q, want %q (last value wins)", got, "second")
	}
}

func TestSession_ChunkBoundaryIndependence(t *testing.T) {
	stream := frame("thought", `{"type":"thought","content":"hi"}`) +
		frame("code", `{"type":"code","language":"tsx","content":"X"}`) +
		frame("data", `{"type":"data","payload":{"columns":["a"],"rows":[["v"]],"row_count":1}}`)

	whole := &recorder{}
	s := newTestSession(t, whole)
	if err := s.Run(context.Background(), io.NopCloser(strings.NewReader(stream))); err != nil {
		t.Fatalf("Run (whole) failed: %v", err)
	}

	bytewise := &recorder{}
	s2 := newTestSession(t, bytewise)
	if err := s2.Run(context.Background(), io.NopCloser(iotest.OneByteReader(strings.NewReader(stream)))); err != nil {
		t.Fatalf("Run (bytewise) failed: %v", err)
	}

	if strings.Join(whole.order, ",") != strings.Join(bytewise.order, ",") {
		t.Errorf("order differs: whole=%v bytewise=%v", whole.order, bytewise.order)
	}
}

func TestSession_MultiByteRuneAcrossChunks(t *testing.T) {
	// "héllo" with the two-byte é split across reads.
	stream := frame("thought", `{"type":"thought","content":"héllo"}`)

	rec := &recorder{}
	s := newTestSession(t, rec)
	if err := s.Run(context.Background(), io.NopCloser(iotest.OneByteReader(strings.NewReader(stream)))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(rec.thoughts) != 1 || rec.thoughts[0] != "héllo" {
		t.Errorf("thoughts = %q, want [héllo]", rec.thoughts)
	}
}

func TestSession_TrailingFrameFlushedBeforeCompletion(t *testing.T) {
	// Final frame lacks its terminating delimiter.
	stream := frame("code", `{"type":"code","language":"tsx","content":"A"}`) +
		"event: code\ndata: {\"type\":\"code\",\"language\":\"tsx\",\"content\":\"B\"}"

	rec := &recorder{}
	s := newTestSession(t, rec)
	if err := s.Run(context.Background(), io.NopCloser(strings.NewReader(stream))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := s.State().CodeText(); got != "AB" {
		t.Errorf("CodeText = %q, want %q", got, "AB")
	}
	if rec.order[len(rec.order)-1] != "complete" {
		t.Errorf("order = %v, want completion last", rec.order)
	}
	if len(rec.completes) != 1 {
		t.Errorf("completes = %d, want exactly 1", len(rec.completes))
	}
}

func TestSession_EmptyStreamCompletesOnce(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, rec)
	if err := s.Run(context.Background(), io.NopCloser(strings.NewReader(""))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(rec.completes) != 1 {
		t.Fatalf("completes = %d, want 1 even with zero events", len(rec.completes))
	}
	if len(rec.order) != 1 {
		t.Errorf("order = %v, want only completion", rec.order)
	}
}

func TestSession_MalformedFrameDoesNotAbort(t *testing.T) {
	stream := frame("message", `{broken`) +
		frame("thought", `{"type":"thought","content":"still here"}`)

	rec := &recorder{}
	s := newTestSession(t, rec)
	if err := s.Run(context.Background(), io.NopCloser(strings.NewReader(stream))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(rec.errs) != 1 {
		t.Fatalf("errs = %v, want one synthesized error", rec.errs)
	}
	var ee types.ErrorEvent
	if !errors.As(rec.errs[0], &ee) {
		t.Errorf("error type = %T, want types.ErrorEvent", rec.errs[0])
	}
	if len(rec.thoughts) != 1 || rec.thoughts[0] != "still here" {
		t.Errorf("thoughts = %v, want session to continue", rec.thoughts)
	}
}

func TestSession_EmptyThoughtRejected(t *testing.T) {
	stream := frame("thought", `{"type":"thought","content":""}`)

	rec := &recorder{}
	s := newTestSession(t, rec)
	if err := s.Run(context.Background(), io.NopCloser(strings.NewReader(stream))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(rec.errs) != 1 {
		t.Errorf("errs = %v, want one validation error", rec.errs)
	}
	if len(rec.thoughts) != 0 {
		t.Errorf("thoughts = %v, want none", rec.thoughts)
	}
}

func TestSession_UnknownEventDropped(t *testing.T) {
	stream := frame("telemetry", `{"type":"telemetry","n":1}`) +
		frame("thought", `{"type":"thought","content":"hi"}`)

	rec := &recorder{}
	s := newTestSession(t, rec)
	if err := s.Run(context.Background(), io.NopCloser(strings.NewReader(stream))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(rec.errs) != 0 {
		t.Errorf("errs = %v, want none for unknown tag", rec.errs)
	}
	if len(rec.thoughts) != 1 {
		t.Errorf("thoughts = %v, want session to continue", rec.thoughts)
	}
}

// failingReader yields its payload, then a non-EOF error.
type failingReader struct {
	r    io.Reader
	err  error
	done bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if errors.Is(err, io.EOF) {
		return n, f.err
	}
	return n, err
}

func (f *failingReader) Close() error { return nil }

func TestSession_TransportError(t *testing.T) {
	cause := errors.New("connection reset")
	body := &failingReader{
		r:   strings.NewReader(frame("thought", `{"type":"thought","content":"hi"}`)),
		err: cause,
	}

	rec := &recorder{}
	s := newTestSession(t, rec)
	err := s.Run(context.Background(), body)

	if !IsTransportError(err) {
		t.Fatalf("Run error = %v, want TransportError", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Run error = %v, want wrapped cause", err)
	}
	if len(rec.errs) != 1 || !IsTransportError(rec.errs[0]) {
		t.Errorf("errs = %v, want one transport error", rec.errs)
	}
	if len(rec.completes) != 1 || rec.completes[0] == nil {
		t.Errorf("completes = %v, want exactly one with error", rec.completes)
	}
	if len(rec.thoughts) != 1 {
		t.Errorf("thoughts = %v, want event before failure delivered", rec.thoughts)
	}
}

// blockingReader blocks Reads until closed.
type blockingReader struct {
	once   sync.Once
	closed chan struct{}
}

func newBlockingReader() *blockingReader {
	return &blockingReader{closed: make(chan struct{})}
}

func (b *blockingReader) Read(p []byte) (int, error) {
	<-b.closed
	return 0, errors.New("reader closed")
}

func (b *blockingReader) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

func TestSession_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	body := newBlockingReader()

	rec := &recorder{}
	s := newTestSession(t, rec)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, body) }()

	cancel()
	err := <-done

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if len(rec.completes) != 1 {
		t.Errorf("completes = %d, want exactly 1", len(rec.completes))
	}
	// Cancellation fires the terminal signal only, no event callbacks.
	for _, kind := range rec.order[:len(rec.order)-1] {
		if kind != "complete" {
			t.Errorf("callback %q after cancellation", kind)
		}
	}
}

func TestNew_InvalidMeta(t *testing.T) {
	if _, err := New(Config{Meta: &types.SessionMeta{}}); err == nil {
		t.Fatal("New accepted empty session metadata")
	}
}

func TestSession_DataMissingPayloadRejected(t *testing.T) {
	stream := frame("data", `{"type":"data"}`) +
		frame("data", `{"type":"data","payload":{}}`)

	rec := &recorder{}
	s := newTestSession(t, rec)
	if err := s.Run(context.Background(), io.NopCloser(strings.NewReader(stream))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Absent payload is a validation failure; a present-but-empty result
	// is a legal (if useless) event.
	if len(rec.errs) != 1 {
		t.Fatalf("errs = %v, want one validation error", rec.errs)
	}
	if len(rec.data) != 1 {
		t.Fatalf("data callbacks = %d, want 1", len(rec.data))
	}
	if rec.data[0].RowCount != 0 || rec.data[0].Columns != nil {
		t.Errorf("data = %+v, want empty result", rec.data[0])
	}
}

func TestSession_LocalErrorsStayOutOfBackendCount(t *testing.T) {
	stream := frame("message", `{broken`) +
		frame("error", `{"type":"error","message":"query failed","stage":"sql_execution"}`)

	rec := &recorder{}
	meta := testMeta()
	collector := metrics.NewCollector(meta.SessionID, "test")
	s, err := New(Config{
		Meta:      meta,
		Handlers:  rec.handlers(),
		Collector: collector,
		Logger:    log.NewLogger(meta).WithOutput(io.Discard),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Run(context.Background(), io.NopCloser(strings.NewReader(stream))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	snap := collector.Snapshot()
	if snap.DecodeErrors != 1 {
		t.Errorf("DecodeErrors = %d, want 1", snap.DecodeErrors)
	}
	if snap.BackendErrors != 1 {
		t.Errorf("BackendErrors = %d, want 1 (the sql_execution event only)", snap.BackendErrors)
	}
	// Both still reach the caller's error channel.
	if len(rec.errs) != 2 {
		t.Errorf("errs = %v, want 2", rec.errs)
	}
}

func TestSession_ArtifactFromByteStream(t *testing.T) {
	code := "import React from 'react';\n\nexport default function Chart({ data }) {\n  return null;\n}\n"
	payload, err := json.Marshal(map[string]any{"type": "code", "language": "tsx", "content": code})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	stream := frame("data", `{"type":"data","payload":{"columns":["region","total"],"rows":[["east",5]],"row_count":1}}`) +
		frame("code", string(payload))

	rec := &recorder{}
	s := newTestSession(t, rec)
	if err := s.Run(context.Background(), io.NopCloser(iotest.OneByteReader(strings.NewReader(stream)))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	artifact := transform.Prepare(s.State().CodeText(), s.State().LatestData(), nil)
	if strings.Contains(artifact.Source, "export default function") {
		t.Errorf("export qualifier not stripped:\n%s", artifact.Source)
	}
	if !strings.Contains(artifact.Source, "function Chart(") {
		t.Errorf("declaration lost:\n%s", artifact.Source)
	}
	if !strings.Contains(artifact.Source, "Chart({ data, params })") {
		t.Errorf("wrapper invocation missing:\n%s", artifact.Source)
	}
	if !strings.Contains(artifact.Source, "export default __app;") {
		t.Errorf("wrapper export missing:\n%s", artifact.Source)
	}
}
